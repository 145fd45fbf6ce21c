// Package event implements the Event Bus: publish-to-many-handlers dispatch
// through a bounded, parallel in-process work region rather than the
// teacher's external channel/JSON-bus transport, since events here never
// leave the process.
package event

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/relaykit/messaging/core/message"
	"github.com/relaykit/messaging/core/metrics"
	"github.com/relaykit/messaging/core/mtime"
	"github.com/relaykit/messaging/core/msgerrors"
	"github.com/relaykit/messaging/core/pipeline"
	"github.com/relaykit/messaging/core/registry"
)

const defaultQueueCapacity = 1000

// Bus dispatches published events to every registered handler for that
// event's type, in parallel, through a bounded dispatch region.
type Bus struct {
	registry    *registry.Registry
	queueCap    int
	parallelism int
	decorators  []pipeline.Decorator
	logger      *slog.Logger
	clock       mtime.Source
	metrics     *metrics.Collector

	queue   chan job
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	running atomic.Bool
}

type job struct {
	ctx     context.Context
	msg     message.Message
	handler registry.EventHandler
	wg      *sync.WaitGroup
}

// Option configures a Bus.
type Option func(*Bus)

// WithQueueCapacity overrides the bounded dispatch region's capacity. The
// default is 1000; values below 1 fall back to the default.
func WithQueueCapacity(n int) Option { return func(b *Bus) { b.queueCap = n } }

// WithParallelism overrides the number of concurrent dispatch workers. The
// default is runtime.GOMAXPROCS(0); values below 1 fall back to 1.
func WithParallelism(n int) Option { return func(b *Bus) { b.parallelism = n } }

func WithLogger(l *slog.Logger) Option { return func(b *Bus) { b.logger = l } }
func WithClock(c mtime.Source) Option  { return func(b *Bus) { b.clock = c } }
func WithMetrics(m *metrics.Collector) Option {
	return func(b *Bus) { b.metrics = m }
}
func WithDecorators(decorators ...pipeline.Decorator) Option {
	return func(b *Bus) { b.decorators = append(b.decorators, decorators...) }
}

// New creates a Bus backed by reg. Call Start before publishing.
func New(reg *registry.Registry, opts ...Option) *Bus {
	b := &Bus{
		registry:    reg,
		queueCap:    defaultQueueCapacity,
		parallelism: runtime.GOMAXPROCS(0),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:       mtime.Default,
		metrics:     metrics.New(0),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.parallelism < 1 {
		b.parallelism = 1
	}
	if b.queueCap < 1 {
		b.queueCap = defaultQueueCapacity
	}
	return b
}

// Metrics returns a snapshot of this bus's accumulated metrics.
func (b *Bus) Metrics() metrics.Snapshot { return b.metrics.Snapshot() }

// Start launches the bounded dispatch region's worker pool. Start is not
// reentrant; calling it twice without an intervening Stop is a configuration
// error.
func (b *Bus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return msgerrors.New(msgerrors.CodeConfiguration, "event bus already started")
	}

	b.ctx, b.cancel = context.WithCancel(ctx)
	b.queue = make(chan job, b.queueCap)

	for i := 0; i < b.parallelism; i++ {
		b.workers.Add(1)
		go b.work()
	}

	b.logger.InfoContext(ctx, "event bus started",
		slog.Int("parallelism", b.parallelism), slog.Int("queue_capacity", b.queueCap))
	return nil
}

// Stop cancels the bus context, closes the dispatch channel so workers
// drain whatever is already queued, then blocks until every worker exits.
func (b *Bus) Stop() error {
	if !b.running.CompareAndSwap(true, false) {
		return msgerrors.New(msgerrors.CodeConfiguration, "event bus is not running")
	}
	b.cancel()
	close(b.queue)
	b.workers.Wait()
	b.logger.Info("event bus stopped")
	return nil
}

// Run adapts Start/Stop to the errgroup.Group.Go lifecycle convention used
// elsewhere in this module.
func (b *Bus) Run(ctx context.Context) func() error {
	return func() error {
		if err := b.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return b.Stop()
	}
}

// PublishAsync resolves every handler registered for payload's type and
// hands each one to the bounded dispatch region. It returns once every
// handler's envelope has been accepted into that region, not once the
// handlers have finished running. Absence of handlers is not an error.
func (b *Bus) PublishAsync(ctx context.Context, payload any) error {
	return b.publish(ctx, payload, nil)
}

// PublishAndWait is the opt-in stronger variant: it blocks until every
// resolved handler has finished (successfully or not) before returning.
func (b *Bus) PublishAndWait(ctx context.Context, payload any) error {
	var wg sync.WaitGroup
	if err := b.publish(ctx, payload, &wg); err != nil {
		return err
	}
	wg.Wait()
	return nil
}

func (b *Bus) publish(ctx context.Context, payload any, wg *sync.WaitGroup) error {
	if !b.running.Load() {
		return msgerrors.New(msgerrors.CodeConfiguration, "event bus is not running")
	}

	typeName := registry.TypeName(payload)
	handlers := b.registry.ResolveEventHandlers(typeName)
	if len(handlers) == 0 {
		b.logger.DebugContext(ctx, "no handlers registered for event", slog.String("event", typeName))
		return nil
	}

	msg := message.New(b.clock, message.KindEvent, typeName, payload)
	msg = message.WithCorrelation(ctx, msg, msg.CorrelationID, msg.CausationID)

	for _, h := range handlers {
		if wg != nil {
			wg.Add(1)
		}
		j := job{ctx: ctx, msg: msg, handler: h, wg: wg}
		select {
		case b.queue <- j:
		case <-ctx.Done():
			if wg != nil {
				wg.Done()
			}
			return ctx.Err()
		}
	}
	return nil
}

func (b *Bus) work() {
	defer b.workers.Done()
	for j := range b.queue {
		b.dispatch(j)
	}
}

// dispatch runs a single handler envelope through the pipeline. A panic in
// one handler is isolated: it is recorded as a failure and never propagates
// to the worker loop or to any other handler's envelope.
func (b *Bus) dispatch(j job) {
	defer func() {
		if j.wg != nil {
			j.wg.Done()
		}
		if r := recover(); r != nil {
			b.metrics.RecordFailure()
			b.logger.Error("event handler panicked",
				slog.String("event", j.msg.Name), slog.Any("panic", r))
		}
	}()

	proc := pipeline.ApplyDecorators(eventProcessor{handler: j.handler}, b.decorators...)
	start := b.clock.Now()
	_, err := proc.Process(j.ctx, j.msg)
	duration := b.clock.Now().Sub(start)

	if err != nil {
		if j.ctx.Err() == nil {
			b.metrics.RecordFailure()
		}
		b.logger.ErrorContext(j.ctx, "event handler failed",
			slog.String("event", j.msg.Name), slog.String("error", err.Error()))
		return
	}
	b.metrics.RecordSuccess(duration)
}

type eventProcessor struct {
	handler registry.EventHandler
}

func (e eventProcessor) Process(ctx context.Context, msg message.Message) (pipeline.Result, error) {
	if err := e.handler.Handle(ctx, msg.Payload); err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.Result{}, nil
}
