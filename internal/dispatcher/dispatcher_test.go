package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

func TestDispatcherRunStartsWorkers(t *testing.T) {
	t.Parallel()

	queue := &blockingQueue{started: make(chan struct{}, 2)}
	runners := []Runner{&queueRunner{queue: queue}, &queueRunner{queue: queue}}
	dispatch := New(queue, runners)
	require.Equal(t, 2, dispatch.Size())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatch.Run(ctx)
		close(done)
	}()

	for range 2 {
		select {
		case <-queue.started:
		case <-time.After(time.Second):
			t.Fatal("worker did not begin dequeuing")
		}
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancel")
	}
	for _, r := range runners {
		require.True(t, r.(*queueRunner).stopped.Load())
	}
}

func TestDispatcherEnqueueWrapsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	dispatch := New(&errorQueue{err: boom}, nil)

	err := dispatch.Enqueue(context.Background(), summary.Task{SummaryID: 7})
	require.ErrorIs(t, err, boom)
	require.EqualError(t, err, "enqueue summary 7: boom")
}

func TestDispatcherRunWithoutRunnersReturns(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	New(&errorQueue{}, nil).Run(ctx)
}

type queueRunner struct {
	queue   summary.Queue
	stopped atomic.Bool
}

func (r *queueRunner) Run(ctx context.Context) {
	defer r.stopped.Store(true)
	for {
		if _, err := r.queue.Dequeue(ctx); err != nil && ctx.Err() != nil {
			return
		}
	}
}

type blockingQueue struct {
	started chan struct{}
}

func (q *blockingQueue) Enqueue(context.Context, summary.Task) error {
	return nil
}

func (q *blockingQueue) Dequeue(ctx context.Context) (summary.Task, error) {
	select {
	case q.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return summary.Task{}, fmt.Errorf("blocking dequeue canceled: %w", ctx.Err())
}

type errorQueue struct {
	err error
}

func (q *errorQueue) Enqueue(context.Context, summary.Task) error {
	return q.err
}

func (q *errorQueue) Dequeue(context.Context) (summary.Task, error) {
	return summary.Task{}, nil
}
