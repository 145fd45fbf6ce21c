// Package inbox implements the Inbox Processor: deduplicates inbound
// messages by MessageId within a configurable window and processes
// admitted messages sequentially, in admission order.
package inbox

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/relaykit/messaging/core/mtime"
	"github.com/relaykit/messaging/core/msgerrors"
	"github.com/relaykit/messaging/core/polling"
	"github.com/relaykit/messaging/core/registry"
)

// Processor admits and sequentially processes inbound messages, routing
// each through the shared handler registry.
type Processor struct {
	store    Store
	registry *registry.Registry
	clock    mtime.Source
	logger   *slog.Logger

	// mu serializes ProcessIncomingAsync so admitted messages are processed
	// one at a time, in admission order.
	mu sync.Mutex

	retention       time.Duration
	failedRetention time.Duration
	cleanupInterval time.Duration

	processed *polling.Service[cleanupTarget]
	failed    *polling.Service[cleanupTarget]
}

type cleanupTarget struct{}

// Option configures a Processor.
type Option func(*Processor)

func WithClock(c mtime.Source) Option  { return func(p *Processor) { p.clock = c } }
func WithLogger(l *slog.Logger) Option { return func(p *Processor) { p.logger = l } }

// WithRetention overrides how long a Processed entry survives before
// cleanup deletes it. Default 7 days.
func WithRetention(d time.Duration) Option { return func(p *Processor) { p.retention = d } }

// WithCleanupInterval overrides how often the housekeeping task runs.
// Default 1 hour.
func WithCleanupInterval(d time.Duration) Option {
	return func(p *Processor) { p.cleanupInterval = d }
}

// WithFailedRetention opts into purging Failed entries older than d during
// the same cleanup pass. Zero (the default) disables purging Failed
// entries, which are otherwise retained indefinitely for manual
// investigation.
func WithFailedRetention(d time.Duration) Option {
	return func(p *Processor) { p.failedRetention = d }
}

// New creates a Processor backed by store and reg.
func New(store Store, reg *registry.Registry, opts ...Option) *Processor {
	p := &Processor{
		store:           store,
		registry:        reg,
		clock:           mtime.Default,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		retention:       DefaultRetention,
		cleanupInterval: DefaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the periodic housekeeping task. Processing incoming
// messages via ProcessIncomingAsync does not require Start.
func (p *Processor) Start(ctx context.Context) error {
	poll := func(ctx context.Context) ([]cleanupTarget, error) {
		if _, err := p.store.DeleteOlderThan(ctx, StatusProcessed, p.clock.Now().Add(-p.retention)); err != nil {
			return nil, err
		}
		if p.failedRetention > 0 {
			if _, err := p.store.DeleteOlderThan(ctx, StatusFailed, p.clock.Now().Add(-p.failedRetention)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	p.processed = polling.New("inbox-cleanup", poll, func(context.Context, cleanupTarget) error { return nil },
		polling.WithIdleDelay[cleanupTarget](p.cleanupInterval),
		polling.WithWorkDelay[cleanupTarget](p.cleanupInterval),
		polling.WithClock[cleanupTarget](p.clock),
		polling.WithLogger[cleanupTarget](p.logger),
	)
	return p.processed.Start(ctx)
}

// Stop stops the housekeeping task.
func (p *Processor) Stop() error {
	if p.processed == nil {
		return nil
	}
	return p.processed.Stop()
}

// Running reports whether the housekeeping task is currently started.
func (p *Processor) Running() bool { return p.processed != nil && p.processed.Running() }

// Run adapts Start/Stop to the errgroup.Group.Go lifecycle convention.
func (p *Processor) Run(ctx context.Context) func() error {
	return func() error {
		if err := p.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return p.Stop()
	}
}

// ProcessIncomingAsync admits messageID if it has not been seen within
// opts.DeduplicationWindow, then processes it sequentially through the
// registry. It returns true if the message was newly admitted and
// processed, false if a duplicate was detected and no further action was
// taken.
func (p *Processor) ProcessIncomingAsync(ctx context.Context, messageID string, payload any, opts ProcessOptions) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	admitted, err := p.store.TryAdmit(ctx, messageID, opts.Source, p.clock.Now(), opts.DeduplicationWindow)
	if err != nil {
		return false, err
	}
	if !admitted {
		p.logger.DebugContext(ctx, "duplicate inbound message ignored", slog.String("message_id", messageID))
		return false, nil
	}

	if err := p.dispatch(ctx, payload); err != nil {
		if markErr := p.store.MarkFailed(ctx, messageID, err.Error()); markErr != nil {
			p.logger.ErrorContext(ctx, "failed to record inbox failure", slog.String("error", markErr.Error()))
		}
		return true, err
	}

	if err := p.store.MarkProcessed(ctx, messageID); err != nil {
		p.logger.ErrorContext(ctx, "failed to record inbox success", slog.String("error", err.Error()))
	}
	return true, nil
}

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
