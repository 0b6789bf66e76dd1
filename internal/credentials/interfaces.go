package credentials

import "context"

// IStore holds the session token under one well-known key. An empty token means unauthenticated.
//
// Writers are the forced-logout path and the login verification path. The store is last-writer-wins:
// a redundant Set or Clear is harmless and every implementation is safe for concurrent use.
type IStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Close() error
}
