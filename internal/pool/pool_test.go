package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunPreservesInputOrder(t *testing.T) {
	tasks := make([]Task[int], 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (int, error) {
			// Later tasks finish first; results must still come back in
			// input order.
			time.Sleep(time.Duration(20-i) * time.Millisecond)
			return i, nil
		}
	}
	results, err := Run(context.Background(), 8, tasks)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, v := range results {
		require.Equal(t, i, v)
	}
}

func TestRunEmptyTaskList(t *testing.T) {
	results, err := Run[int](context.Background(), 4, nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	var running, peak atomic.Int64
	var mu sync.Mutex
	tasks := make([]Task[struct{}], 12)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			n := running.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}
	}
	_, err := Run(context.Background(), 3, tasks)
	require.NoError(t, err)
	require.LessOrEqual(t, peak.Load(), int64(3))
}

func TestRunPropagatesTaskError(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 0, boom },
		func(ctx context.Context) (int, error) { return 3, nil },
	}
	_, err := Run(context.Background(), 2, tasks)
	require.ErrorIs(t, err, boom)
}

func TestClampWorkers(t *testing.T) {
	require.Equal(t, 1, ClampWorkers(0))
	require.Equal(t, 1, ClampWorkers(-3))
	require.Equal(t, 8, ClampWorkers(8))
	require.Equal(t, 16, ClampWorkers(99))
}
