package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/relaykit/messaging/core/mtime"
)

// worker processes exactly one queue, one entry at a time. Different
// queues' workers run concurrently with each other; within a queue,
// processing is strictly sequential.
type worker struct {
	queueName          string
	store              Store
	dispatch           func(ctx context.Context, payload any) error
	clock              mtime.Source
	logger             *slog.Logger
	visibilityTimeout  time.Duration
	maxRequeueAttempts int
	idleBackoff        time.Duration
	errorBackoff       time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

func (w *worker) start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.run()
}

func (w *worker) stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *worker) run() {
	defer w.wg.Done()
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		entry, ok, err := w.store.Dequeue(w.ctx, w.queueName, w.clock.Now(), w.visibilityTimeout)
		if err != nil {
			w.logger.ErrorContext(w.ctx, "queue dequeue failed",
				slog.String("queue", w.queueName), slog.String("error", err.Error()))
			if !w.sleep(w.errorBackoff) {
				return
			}
			continue
		}
		if !ok {
			if !w.sleep(w.idleBackoff) {
				return
			}
			continue
		}

		w.process(entry)
	}
}

func (w *worker) process(entry Entry) {
	err := w.dispatch(w.ctx, entry.Payload)
	if err == nil {
		if ackErr := w.store.Ack(w.ctx, w.queueName, entry.ID); ackErr != nil {
			w.logger.ErrorContext(w.ctx, "queue ack failed",
				slog.String("queue", w.queueName), slog.String("error", ackErr.Error()))
		}
		return
	}

	w.logger.ErrorContext(w.ctx, "queue entry failed",
		slog.String("queue", w.queueName), slog.Int("dequeue_count", entry.DequeueCount),
		slog.String("error", err.Error()))

	if entry.DequeueCount < w.maxRequeueAttempts {
		_ = w.store.Requeue(w.ctx, w.queueName, entry.ID, w.clock.Now().Add(w.visibilityTimeout))
		return
	}

	_ = w.store.DeadLetter(w.ctx, DeadLetter{Entry: entry, Error: err.Error(), FailedAt: w.clock.Now()})
}

// sleep waits for d or until the worker is stopped, reporting which
// happened first.
func (w *worker) sleep(d time.Duration) bool {
	select {
	case <-w.clock.After(d):
		return true
	case <-w.ctx.Done():
		return false
	}
}
