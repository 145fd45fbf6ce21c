// Package queue implements the Queue Processor and Queue Worker: named,
// independently-lifecycled FIFO-with-priority queues, each processed
// strictly sequentially by its own worker while different queues run
// concurrently.
package queue

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaykit/messaging/core/mtime"
	"github.com/relaykit/messaging/core/msgerrors"
	"github.com/relaykit/messaging/core/registry"
)

const (
	defaultVisibilityTimeout  = 30 * time.Second
	defaultIdleBackoff        = 100 * time.Millisecond
	defaultErrorBackoff       = time.Second
)

// Processor owns every named queue's worker and routes dispatch to the
// shared handler registry.
type Processor struct {
	store              Store
	registry           *registry.Registry
	clock              mtime.Source
	logger             *slog.Logger
	visibilityTimeout  time.Duration
	maxRequeueAttempts int
	idleBackoff        time.Duration
	errorBackoff       time.Duration

	mu      sync.Mutex
	workers map[string]*worker
}

// Option configures a Processor.
type Option func(*Processor)

func WithClock(c mtime.Source) Option                 { return func(p *Processor) { p.clock = c } }
func WithLogger(l *slog.Logger) Option                 { return func(p *Processor) { p.logger = l } }
func WithVisibilityTimeout(d time.Duration) Option     { return func(p *Processor) { p.visibilityTimeout = d } }
func WithMaxRequeueAttempts(n int) Option              { return func(p *Processor) { p.maxRequeueAttempts = n } }
func WithIdleBackoff(d time.Duration) Option           { return func(p *Processor) { p.idleBackoff = d } }
func WithErrorBackoff(d time.Duration) Option          { return func(p *Processor) { p.errorBackoff = d } }

// New creates a Processor backed by store and reg.
func New(store Store, reg *registry.Registry, opts ...Option) *Processor {
	p := &Processor{
		store:              store,
		registry:           reg,
		clock:              mtime.Default,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		visibilityTimeout:  defaultVisibilityTimeout,
		maxRequeueAttempts: DefaultMaxRequeueAttempts,
		idleBackoff:        defaultIdleBackoff,
		errorBackoff:       defaultErrorBackoff,
		workers:            make(map[string]*worker),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnqueueOptions customizes a single EnqueueAsync call.
type EnqueueOptions struct {
	Priority int
}

// EnqueueAsync appends payload to queueName, creating the queue on first
// use. It does not start a worker; call StartQueueAsync separately.
func (p *Processor) EnqueueAsync(ctx context.Context, queueName string, payload any, opts EnqueueOptions) error {
	entry := Entry{
		ID:                 uuid.New(),
		Queue:              queueName,
		Name:               registry.TypeName(payload),
		Payload:            payload,
		Priority:           opts.Priority,
		MaxRequeueAttempts: p.maxRequeueAttempts,
		EnqueuedAt:         p.clock.Now(),
		VisibleAt:          p.clock.Now(),
	}
	return p.store.Enqueue(ctx, entry)
}

// StartQueueAsync starts a worker for queueName if one is not already
// running.
func (p *Processor) StartQueueAsync(ctx context.Context, queueName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, running := p.workers[queueName]; running {
		return nil
	}

	w := &worker{
		queueName:          queueName,
		store:              p.store,
		dispatch:           p.dispatch,
		clock:              p.clock,
		logger:             p.logger,
		visibilityTimeout:  p.visibilityTimeout,
		maxRequeueAttempts: p.maxRequeueAttempts,
		idleBackoff:        p.idleBackoff,
		errorBackoff:       p.errorBackoff,
	}
	w.start(ctx)
	p.workers[queueName] = w
	return nil
}

// StopQueueAsync stops queueName's worker, waiting for any in-flight entry
// to finish processing. Stopping an unknown queue is a no-op.
func (p *Processor) StopQueueAsync(queueName string) error {
	p.mu.Lock()
	w, running := p.workers[queueName]
	if running {
		delete(p.workers, queueName)
	}
	p.mu.Unlock()

	if !running {
		return nil
	}
	w.stop()
	return nil
}

// RunningQueues returns the names of queues with an active worker.
func (p *Processor) RunningQueues() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.workers))
	for name := range p.workers {
		names = append(names, name)
	}
	return names
}

// GetQueueDepthAsync returns the current pending count for queueName.
func (p *Processor) GetQueueDepthAsync(ctx context.Context, queueName string) (int64, error) {
	n, err := p.store.Depth(ctx, queueName)
	return int64(n), err
}

// GetActiveQueuesAsync lists every queue with a running worker.
func (p *Processor) GetActiveQueuesAsync() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.workers))
	for name := range p.workers {
		names = append(names, name)
	}
	return names
}

// dispatch routes a dequeued payload through the handler registry: a
// registered command handler takes it, otherwise every registered event
// handler for its type runs in turn. Neither case requires re-entering the
// Command/Event Processor's own serialization, since queue dispatch is
// already sequential per queue.
func (p *Processor) dispatch(ctx context.Context, payload any) error {
	typeName := registry.TypeName(payload)

	if h, err := p.registry.ResolveCommandHandler(typeName); err == nil {
		_, err := h.Handle(ctx, payload)
		return err
	} else if !msgerrors.Is(err, msgerrors.CodeConfiguration) {
		return err
	}

	for _, h := range p.registry.ResolveEventHandlers(typeName) {
		if err := h.Handle(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}
