package helpers

import (
	"context"
	"sync/atomic"
)

// Hooks are the three completion callbacks of a gateway call. OnSuccess and OnError are mutually
// exclusive; OnComplete always runs last, even when one of the others panics.
type Hooks[T any] struct {
	OnSuccess  func(T)
	OnError    func(error)
	OnComplete func()
}

// Run executes fn and dispatches its result to hooks.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error), hooks Hooks[T]) (T, error) {
	if hooks.OnComplete != nil {
		defer hooks.OnComplete()
	}

	result, err := fn(ctx)
	if err != nil {
		if hooks.OnError != nil {
			hooks.OnError(err)
		}
		return result, err
	}

	if hooks.OnSuccess != nil {
		hooks.OnSuccess(result)
	}
	return result, nil
}

// Result is the value delivered by Go.
type Result[T any] struct {
	Value T
	Err   error
}

// Go runs fn on its own goroutine with the same hook semantics as Run. The returned channel receives
// exactly one Result after OnComplete has run.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error), hooks Hooks[T]) <-chan Result[T] {
	out := make(chan Result[T], 1)
	go func() {
		var res Result[T]
		defer func() { out <- res }()
		res.Value, res.Err = Run(ctx, fn, hooks)
	}()
	return out
}

// Sequencer issues monotonically increasing request numbers for one controller.
type Sequencer struct {
	last atomic.Uint64
}

// Next issues a new sequence number, making every earlier one stale.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Latest returns the last issued number, 0 if none.
func (s *Sequencer) Latest() uint64 {
	return s.last.Load()
}

// IsLatest reports whether seq is still the newest issued number.
func (s *Sequencer) IsLatest(seq uint64) bool {
	return s.last.Load() == seq
}
