// Package outbox implements the Outbox Processor: a durable, polled queue
// of outbound messages appended inside the same transaction as the business
// change that produced them, dispatched out-of-band so publishing failures
// never roll back already-committed business state.
package outbox

import (
	"context"
	"io"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/relaykit/messaging/core/mtime"
	"github.com/relaykit/messaging/core/msgerrors"
	"github.com/relaykit/messaging/core/polling"
	"github.com/relaykit/messaging/core/registry"
)

const defaultPollBatchSize = 100
const defaultPollInterval = time.Second

// Sender hands an outbox entry with a Destination set to an external
// system. Entries with no Destination dispatch locally via the registry
// instead.
type Sender interface {
	Send(ctx context.Context, destination string, payload any) error
}

// Processor polls a Store for due entries and dispatches each one, either
// locally through the handler registry or to a Sender when a Destination is
// set.
type Processor struct {
	store         Store
	registry      *registry.Registry
	sender        Sender
	clock         mtime.Source
	logger        *slog.Logger
	pollBatchSize int
	pollInterval  time.Duration
	maxRetries    int
	svc           *polling.Service[Entry]
}

// Option configures a Processor.
type Option func(*Processor)

func WithSender(s Sender) Option              { return func(p *Processor) { p.sender = s } }
func WithClock(c mtime.Source) Option         { return func(p *Processor) { p.clock = c } }
func WithLogger(l *slog.Logger) Option        { return func(p *Processor) { p.logger = l } }
func WithPollBatchSize(n int) Option          { return func(p *Processor) { p.pollBatchSize = n } }
func WithPollInterval(d time.Duration) Option { return func(p *Processor) { p.pollInterval = d } }
func WithMaxRetries(n int) Option             { return func(p *Processor) { p.maxRetries = n } }

// New creates a Processor backed by store and reg. Dispatch parallelism
// defaults to the number of logical CPUs.
func New(store Store, reg *registry.Registry, opts ...Option) *Processor {
	p := &Processor{
		store:         store,
		registry:      reg,
		clock:         mtime.Default,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		pollBatchSize: defaultPollBatchSize,
		pollInterval:  defaultPollInterval,
		maxRetries:    DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.svc = polling.New("outbox", p.poll, p.dispatch,
		polling.WithParallelism[Entry](runtime.GOMAXPROCS(0)),
		polling.WithClock[Entry](p.clock),
		polling.WithLogger[Entry](p.logger),
		polling.WithIdleDelay[Entry](p.pollInterval),
	)
	return p
}

func (p *Processor) Start(ctx context.Context) error { return p.svc.Start(ctx) }
func (p *Processor) Stop() error                     { return p.svc.Stop() }
func (p *Processor) Run(ctx context.Context) func() error { return p.svc.Run(ctx) }

// Running reports whether the outbox's polling loop is currently started.
func (p *Processor) Running() bool { return p.svc.Running() }

// PublishToOutboxAsync appends a new entry. A Priority above
// HighPriorityThreshold is additionally handed to the dispatch region
// immediately, bypassing the next poll.
func (p *Processor) PublishToOutboxAsync(ctx context.Context, payload any, opts PublishOptions) error {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = p.maxRetries
	}
	now := p.clock.Now()
	e := Entry{
		ID:          uuid.New(),
		Name:        registry.TypeName(payload),
		Payload:     payload,
		Destination: opts.Destination,
		Priority:    opts.Priority,
		MaxRetries:  maxRetries,
		RetryDelay:  opts.RetryDelay,
		Status:      StatusPending,
		EnqueuedAt:  now,
		NextRetryAt: now,
	}
	if err := p.store.Append(ctx, e); err != nil {
		return err
	}

	if opts.Priority > HighPriorityThreshold {
		go func() {
			claimed, ok, err := p.store.ClaimByID(context.Background(), e.ID)
			if err != nil || !ok {
				return
			}
			if err := p.dispatch(context.Background(), claimed); err != nil {
				p.logger.Error("outbox high-priority shortcut dispatch failed", slog.String("error", err.Error()))
			}
		}()
	}
	return nil
}

func (p *Processor) poll(ctx context.Context) ([]Entry, error) {
	return p.store.ClaimPending(ctx, p.clock.Now(), p.pollBatchSize)
}

func (p *Processor) dispatch(ctx context.Context, e Entry) error {
	var err error
	if e.Destination != "" {
		if p.sender == nil {
			err = msgerrors.New(msgerrors.CodeConfiguration, "outbox entry has a destination but no sender is configured")
		} else {
			err = p.sender.Send(ctx, e.Destination, e.Payload)
		}
	} else {
		err = p.dispatchLocally(ctx, e.Payload)
	}

	if err == nil {
		return p.store.Complete(ctx, e.ID)
	}

	retryCount := e.RetryCount + 1
	if retryCount >= e.MaxRetries {
		return p.store.Fail(ctx, e.ID, err.Error())
	}

	delay := e.RetryDelay
	if delay <= 0 {
		delay = time.Duration(math.Pow(2, float64(retryCount))) * time.Second
	}
	return p.store.Retry(ctx, e.ID, p.clock.Now().Add(delay), retryCount, err.Error())
}

func (p *Processor) dispatchLocally(ctx context.Context, payload any) error {
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
