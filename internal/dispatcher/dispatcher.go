// Package dispatcher runs the summarization worker pool and exposes the
// queue's enqueue side to request handlers.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/article-summaries/internal/summary"
)

// Runner is a long-running consumer such as *worker.Worker. Run must return
// once ctx is done.
type Runner interface {
	Run(ctx context.Context)
}

// Dispatcher owns the worker pool.
type Dispatcher struct {
	queue   summary.Queue
	runners []Runner
}

// New creates a Dispatcher over queue.
func New(queue summary.Queue, runners []Runner) *Dispatcher {
	return &Dispatcher{queue: queue, runners: runners}
}

// Run starts every runner and blocks until ctx is done and all of them
// have returned, so in-flight tasks finish their current step first.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, r := range d.runners {
		wg.Go(func() { r.Run(ctx) })
	}
	<-ctx.Done()
	wg.Wait()
}

// Size reports the number of runners.
func (d *Dispatcher) Size() int {
	return len(d.runners)
}

// Enqueue hands a task to the queue; it implements summary.Enqueuer.
func (d *Dispatcher) Enqueue(ctx context.Context, task summary.Task) error {
	if err := d.queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueue summary %d: %w", task.SummaryID, err)
	}
	return nil
}
