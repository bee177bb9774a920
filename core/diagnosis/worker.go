package diagnosis

import (
	"context"
	"sync"
	"time"

	"github.com/buddybow/backend/core"
)

// worker serves fire-and-forget reconciliation passes on a bounded queue so
// submission handlers can return without waiting for the network round trip,
// while failures still get logged instead of vanishing.
type worker struct {
	queue     chan string
	logger    core.Logger
	reconcile func(ctx context.Context, requestID string, staleBefore time.Time, from ...Status) error

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopping  chan struct{}
	done      chan struct{}
}

func newWorker(queueSize int, logger core.Logger, reconcile func(ctx context.Context, requestID string, staleBefore time.Time, from ...Status) error) *worker {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &worker{
		queue:     make(chan string, queueSize),
		logger:    logger,
		reconcile: reconcile,
		stopping:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (w *worker) start() {
	w.startOnce.Do(func() {
		w.started = true
		go w.run()
	})
}

// stop signals the worker, lets it drain the queue and waits for completion.
// The queue channel itself is never closed, so a late enqueue cannot panic.
func (w *worker) stop() {
	w.stopOnce.Do(func() {
		close(w.stopping)
		if w.started {
			<-w.done
		}
	})
}

// enqueue hands a request to the worker without blocking. A full queue or a
// stopping worker drops the task; the next sweep picks the request up anyway.
func (w *worker) enqueue(requestID string) {
	select {
	case <-w.stopping:
		w.logger.Warn("diagnosis worker stopping, deferring to next sweep", "request_id", requestID)
		return
	default:
	}
	select {
	case w.queue <- requestID:
	default:
		w.logger.Warn("diagnosis worker queue full, deferring to next sweep", "request_id", requestID)
	}
}

func (w *worker) run() {
	defer close(w.done)
	for {
		select {
		case requestID := <-w.queue:
			w.process(requestID)
		case <-w.stopping:
			// drain what is already queued, then exit
			for {
				select {
				case requestID := <-w.queue:
					w.process(requestID)
				default:
					return
				}
			}
		}
	}
}

func (w *worker) process(requestID string) {
	if err := w.reconcile(context.Background(), requestID, time.Time{}, StatusPending); err != nil {
		w.logger.Warn("background reconciliation failed", "request_id", requestID, "error", err)
	}
}
