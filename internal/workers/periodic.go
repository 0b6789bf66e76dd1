package workers

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task is one named step of a worker cycle. Fn returns how many items it refreshed.
type Task struct {
	Name string
	Fn   func(ctx context.Context) (int, error)
}

// CycleReport summarises a single worker cycle.
type CycleReport struct {
	Counts   map[string]int
	Failures map[string]error
	Duration time.Duration
}

// RunCycle executes every task in order. A failing task does not stop the following ones.
func RunCycle(ctx context.Context, workerName string, tasks []Task) CycleReport {
	start := time.Now()
	report := CycleReport{
		Counts:   make(map[string]int, len(tasks)),
		Failures: make(map[string]error),
	}

	for _, task := range tasks {
		count, err := task.Fn(ctx)
		if err != nil {
			zap.L().Warn("Worker task failed",
				zap.String("worker", workerName),
				zap.String("task", task.Name),
				zap.Error(err))
			report.Failures[task.Name] = err
		}
		report.Counts[task.Name] = count
	}
	report.Duration = time.Since(start)

	fields := []zap.Field{zap.String("worker", workerName)}
	for _, task := range tasks {
		fields = append(fields, zap.Int(task.Name, report.Counts[task.Name]))
	}
	fields = append(fields, zap.Duration("duration", report.Duration))
	zap.L().Debug("Worker cycle complete", fields...)

	return report
}

// StartPeriodicWorker runs one cycle immediately, then one per interval until ctx is done.
func StartPeriodicWorker(ctx context.Context, workerName string, interval time.Duration, tasks []Task) {
	zap.L().Info("Starting worker",
		zap.String("worker", workerName),
		zap.Duration("interval", interval))

	RunCycle(ctx, workerName, tasks)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Worker shutting down", zap.String("worker", workerName))
			return
		case <-ticker.C:
			RunCycle(ctx, workerName, tasks)
		}
	}
}
