// Package polling provides the shared background-service skeleton used by
// the Outbox Processor, the Inbox Processor's housekeeping task, and the
// Saga Timeout Monitor: a poll callback feeding a bounded dispatch region,
// with adaptive backoff between polls. Composition over inheritance — each
// caller supplies its own Poll/Dispatch closures rather than subclassing a
// base type.
package polling

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relaykit/messaging/core/mtime"
	"github.com/relaykit/messaging/core/msgerrors"
)

const (
	defaultIdleDelay  = time.Second
	defaultWorkDelay  = 100 * time.Millisecond
	defaultErrorDelay = 5 * time.Second
)

// Service is a generic poll-then-dispatch background task, reusing the
// atomic-running-flag / context.CancelFunc / sync.WaitGroup shutdown
// skeleton shared by this module's other background workers.
type Service[T any] struct {
	name        string
	poll        func(ctx context.Context) ([]T, error)
	dispatch    func(ctx context.Context, item T) error
	parallelism int
	clock       mtime.Source
	logger      *slog.Logger

	workDelay  time.Duration
	idleDelay  time.Duration
	errorDelay time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sem     chan struct{}
	running atomic.Bool
}

// Option configures a Service.
type Option[T any] func(*Service[T])

func WithParallelism[T any](n int) Option[T] { return func(s *Service[T]) { s.parallelism = n } }
func WithClock[T any](c mtime.Source) Option[T] { return func(s *Service[T]) { s.clock = c } }
func WithLogger[T any](l *slog.Logger) Option[T] { return func(s *Service[T]) { s.logger = l } }
func WithWorkDelay[T any](d time.Duration) Option[T] {
	return func(s *Service[T]) { s.workDelay = d }
}
func WithIdleDelay[T any](d time.Duration) Option[T] {
	return func(s *Service[T]) { s.idleDelay = d }
}
func WithErrorDelay[T any](d time.Duration) Option[T] {
	return func(s *Service[T]) { s.errorDelay = d }
}

// New creates a Service named name, polling via poll and handling each
// polled item via dispatch.
func New[T any](name string, poll func(context.Context) ([]T, error), dispatch func(context.Context, T) error, opts ...Option[T]) *Service[T] {
	s := &Service[T]{
		name:        name,
		poll:        poll,
		dispatch:    dispatch,
		parallelism: 1,
		clock:       mtime.Default,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		workDelay:   defaultWorkDelay,
		idleDelay:   defaultIdleDelay,
		errorDelay:  defaultErrorDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parallelism < 1 {
		s.parallelism = 1
	}
	return s
}

// Start is idempotent: starting an already-running Service is a no-op.
func (s *Service[T]) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.sem = make(chan struct{}, s.parallelism)

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop is idempotent: cancels polling and blocks until in-flight dispatches
// drain. It does not itself impose a timeout; pass a context with a
// deadline to Start if bounded shutdown is required.
func (s *Service[T]) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	return nil
}

// Running reports whether the Service is currently started.
func (s *Service[T]) Running() bool { return s.running.Load() }

// Run adapts Start/Stop to the errgroup.Group.Go lifecycle convention.
func (s *Service[T]) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return s.Stop()
	}
}

func (s *Service[T]) loop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		items, err := s.poll(s.ctx)
		if err != nil {
			s.logger.ErrorContext(s.ctx, "poll failed", slog.String("service", s.name), slog.String("error", err.Error()))
			if !s.sleep(s.errorDelay) {
				return
			}
			continue
		}

		for _, item := range items {
			select {
			case s.sem <- struct{}{}:
			case <-s.ctx.Done():
				return
			}
			s.wg.Add(1)
			go func(it T) {
				defer s.wg.Done()
				defer func() { <-s.sem }()
				if err := s.dispatch(s.ctx, it); err != nil {
					s.logger.ErrorContext(s.ctx, "dispatch failed", slog.String("service", s.name), slog.String("error", err.Error()))
				}
			}(item)
		}

		delay := s.idleDelay
		if len(items) > 0 {
			delay = s.workDelay
		}
		if !s.sleep(delay) {
			return
		}
	}
}

func (s *Service[T]) sleep(d time.Duration) bool {
	select {
	case <-s.clock.After(d):
		return true
	case <-s.ctx.Done():
		return false
	}
}

// ErrNotRunning is returned by callers that require an active Service for
// an operation that makes no sense otherwise.
var ErrNotRunning = msgerrors.New(msgerrors.CodeConfiguration, "polling service is not running")
