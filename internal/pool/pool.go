// Package pool runs batches of tasks with a fixed concurrency limit while
// preserving input ordering of the results. Every parallel stage of the
// pipeline (segmented scene detection, frame extraction, OCR) goes through
// it, so parallelism stays invisible to downstream logic.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	minWorkers = 1
	maxWorkers = 16
)

// ClampWorkers bounds a requested worker count to the supported range.
func ClampWorkers(workers int) int {
	if workers < minWorkers {
		return minWorkers
	}
	if workers > maxWorkers {
		return maxWorkers
	}
	return workers
}

// Task produces one result slot.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes all tasks with at most workers running concurrently and
// returns results in the original index order, not completion order. Each
// task writes only to its own slot, so a failing task cannot corrupt a
// sibling's output; the first error cancels the group's context and
// propagates.
func Run[T any](ctx context.Context, workers int, tasks []Task[T]) ([]T, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	results := make([]T, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ClampWorkers(workers))
	for i, task := range tasks {
		g.Go(func() error {
			v, err := task(gctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
