// Package command implements the Command Processor: globally serialized
// dispatch of a single registered handler per command type, routed through
// the shared processor pipeline. Unlike the teacher's bus-backed command
// dispatcher, commands here are delivered synchronously in-process — the
// caller's Send blocks on the same serialization semaphore the handler runs
// under, matching the "globally serialized ... additional callers queue and
// wait" concurrency discipline.
package command

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

// Processor dispatches commands one at a time across the entire process,
// via a semaphore of size 1: additional callers queue and wait for their
// turn rather than being rejected outright.
type Processor struct {
	registry   *registry.Registry
	sem        *semaphore.Weighted
	decorators []pipeline.Decorator
	logger     *slog.Logger
	clock      mtime.Source
	metrics    *metrics.Collector
	disposed   atomic.Bool
}

// Option configures a Processor.
type Option func(*Processor)

func WithLogger(l *slog.Logger) Option { return func(p *Processor) { p.logger = l } }
func WithClock(c mtime.Source) Option  { return func(p *Processor) { p.clock = c } }
func WithMetrics(m *metrics.Collector) Option {
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
		metrics:  metrics.New(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dispose marks the processor as disposed; every further Send surfaces
// msgerrors.ErrDisposed without touching the semaphore or the registry.
func (p *Processor) Dispose() {
	p.disposed.Store(true)
}

// Metrics returns a snapshot of this processor's accumulated metrics.
func (p *Processor) Metrics() metrics.Snapshot { return p.metrics.Snapshot() }

// Send dispatches a void command: acquire the serialization semaphore, check
// cancellation, resolve the handler, invoke it through the pipeline, record
// metrics, release.
func (p *Processor) Send(ctx context.Context, payload any) error {
	_, err := p.dispatch(ctx, payload)
	return err
}

// Send invokes a command-with-response handler and type-asserts the result
// to R. It is a free function because Go methods cannot carry their own
// type parameters.
func Send[R any](ctx context.Context, p *Processor, payload any) (R, error) {
	var zero R
	res, err := p.dispatch(ctx, payload)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	typed, ok := res.(R)
	if !ok {
		return zero, msgerrors.Wrap(msgerrors.CodeConfiguration, "command handler returned unexpected response type", nil)
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
	handler, err := p.registry.ResolveCommandHandler(typeName)
	if err != nil {
		return nil, err
	}

	msg := message.New(p.clock, message.KindCommand, typeName, payload)
	msg = message.WithCorrelation(ctx, msg, msg.CorrelationID, msg.CausationID)

	start := p.clock.Now()
	proc := pipeline.ApplyDecorators(commandProcessor{handler: handler}, p.decorators...)
	result, err := proc.Process(ctx, msg)
	duration := p.clock.Now().Sub(start)

	if err != nil {
		if ctx.Err() == nil {
			p.metrics.RecordFailure()
		}
		p.logger.ErrorContext(ctx, "command failed", slog.String("command", typeName), slog.String("error", err.Error()))
		return nil, err
	}

	p.metrics.RecordSuccess(duration)
	return result.Response, nil
}

type commandProcessor struct {
	handler registry.CommandHandler
}

func (c commandProcessor) Process(ctx context.Context, msg message.Message) (pipeline.Result, error) {
	resp, err := c.handler.Handle(ctx, msg.Payload)
	if err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.Result{Response: resp}, nil
}
