// Package query implements the Query Processor: same registration and
// serialized-dispatch contract as core/command, but every handler returns a
// typed response and nothing resembling a cache sits inside the core —
// caching is left to a pipeline.Decorator wrapping the processor externally.
package query

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/relaykit/messaging/core/message"
	"github.com/relaykit/messaging/core/metrics"
	"github.com/relaykit/messaging/core/mtime"
	"github.com/relaykit/messaging/core/msgerrors"
	"github.com/relaykit/messaging/core/pipeline"
	"github.com/relaykit/messaging/core/registry"
)

// Processor dispatches queries one at a time across the entire process via a
// semaphore of size 1, mirroring command.Processor's serialization
// discipline.
type Processor struct {
	registry   *registry.Registry
	sem        *semaphore.Weighted
	decorators []pipeline.Decorator
	logger     *slog.Logger
	clock      mtime.Source
	metrics    *metrics.QueryCollector
	disposed   atomic.Bool
}

// Option configures a Processor.
type Option func(*Processor)

func WithLogger(l *slog.Logger) Option { return func(p *Processor) { p.logger = l } }
func WithClock(c mtime.Source) Option  { return func(p *Processor) { p.clock = c } }
func WithMetrics(m *metrics.QueryCollector) Option {
	return func(p *Processor) { p.metrics = m }
}
func WithDecorators(decorators ...pipeline.Decorator) Option {
	return func(p *Processor) { p.decorators = append(p.decorators, decorators...) }
}

// New creates a Processor backed by reg.
func New(reg *registry.Registry, opts ...Option) *Processor {
	p := &Processor{
		registry: reg,
		sem:      semaphore.NewWeighted(1),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    mtime.Default,
		metrics:  metrics.NewQuery(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dispose marks the processor as disposed; every further Ask surfaces
// msgerrors.ErrDisposed.
func (p *Processor) Dispose() {
	p.disposed.Store(true)
}

// Metrics returns a snapshot of this processor's accumulated metrics,
// including cache hit/miss counters recorded by a caching decorator.
func (p *Processor) Metrics() metrics.QuerySnapshot { return p.metrics.Snapshot() }

// RecordCacheHit lets an external caching decorator attribute a hit to this
// processor's metrics without reaching into its internals.
func (p *Processor) RecordCacheHit() { p.metrics.RecordCacheHit() }

// RecordCacheMiss lets an external caching decorator attribute a miss to
// this processor's metrics.
func (p *Processor) RecordCacheMiss() { p.metrics.RecordCacheMiss() }

// Ask invokes a query handler and type-asserts the result to R. It is a free
// function because Go methods cannot carry their own type parameters.
func Ask[R any](ctx context.Context, p *Processor, payload any) (R, error) {
	var zero R
	res, err := p.dispatch(ctx, payload)
	if err != nil {
		return zero, err
	}
	typed, ok := res.(R)
	if !ok {
		return zero, msgerrors.Wrap(msgerrors.CodeConfiguration, "query handler returned unexpected response type", nil)
	}
	return typed, nil
}

func (p *Processor) dispatch(ctx context.Context, payload any) (any, error) {
	if p.disposed.Load() {
		return nil, msgerrors.ErrDisposed
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	if p.disposed.Load() {
		return nil, msgerrors.ErrDisposed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	typeName := registry.TypeName(payload)
	handler, err := p.registry.ResolveQueryHandler(typeName)
	if err != nil {
		return nil, err
	}

	msg := message.New(p.clock, message.KindQuery, typeName, payload)
	msg = message.WithCorrelation(ctx, msg, msg.CorrelationID, msg.CausationID)

	start := p.clock.Now()
	proc := pipeline.ApplyDecorators(queryProcessor{handler: handler}, p.decorators...)
	result, err := proc.Process(ctx, msg)
	duration := p.clock.Now().Sub(start)

	if err != nil {
		if ctx.Err() == nil {
			p.metrics.RecordFailure()
		}
		p.logger.ErrorContext(ctx, "query failed", slog.String("query", typeName), slog.String("error", err.Error()))
		return nil, err
	}

	p.metrics.RecordSuccess(duration)
	return result.Response, nil
}

type queryProcessor struct {
	handler registry.QueryHandler
}

func (c queryProcessor) Process(ctx context.Context, msg message.Message) (pipeline.Result, error) {
	resp, err := c.handler.Handle(ctx, msg.Payload)
	if err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.Result{Response: resp}, nil
}
