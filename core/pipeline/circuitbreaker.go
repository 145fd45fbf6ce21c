package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/relaykit/messaging/core/message"
	"github.com/relaykit/messaging/core/msgerrors"
)

// CircuitBreakerOptions configures the {Closed, Open, HalfOpen} state
// machine. MinimumThroughput and FailureRateThreshold map onto gobreaker's
// ReadyToTrip counters; BreakDuration maps onto gobreaker's Timeout.
type CircuitBreakerOptions struct {
	Name                 string
	MinimumThroughput    uint32
	FailureRateThreshold float64
	BreakDuration        time.Duration
	Logger               *slog.Logger
}

// CircuitBreakerConfig holds environment-driven defaults for
// CircuitBreakerOptions, loaded with config.Load/config.MustLoad.
type CircuitBreakerConfig struct {
	MinimumThroughput    uint32        `env:"CIRCUIT_BREAKER_MIN_THROUGHPUT" envDefault:"5"`
	FailureRateThreshold float64       `env:"CIRCUIT_BREAKER_FAILURE_RATE_THRESHOLD" envDefault:"0.5"`
	BreakDuration        time.Duration `env:"CIRCUIT_BREAKER_DURATION" envDefault:"30s"`
}

// Apply copies cfg's values onto opts, leaving Name and Logger untouched.
func (cfg CircuitBreakerConfig) Apply(opts CircuitBreakerOptions) CircuitBreakerOptions {
	opts.MinimumThroughput = cfg.MinimumThroughput
	opts.FailureRateThreshold = cfg.FailureRateThreshold
	opts.BreakDuration = cfg.BreakDuration
	return opts
}

// CircuitBreaker returns a Decorator implementing the circuit breaker
// contract: closed state passes calls through; once at least
// MinimumThroughput calls have been counted and the failure ratio reaches
// FailureRateThreshold it opens and rejects immediately with
// msgerrors.ErrCircuitOpen; after BreakDuration it allows a single half-open
// probe, closing again on success or reopening on failure. The counts cover
// every call since the last state change; there is no time-based window.
func CircuitBreaker(opts CircuitBreakerOptions) Decorator {
	if opts.BreakDuration <= 0 {
		opts.BreakDuration = 30 * time.Second
	}
	if opts.MinimumThroughput == 0 {
		opts.MinimumThroughput = 5
	}
	if opts.FailureRateThreshold <= 0 {
		opts.FailureRateThreshold = 0.5
	}
	logger := opts.Logger

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.BreakDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.MinimumThroughput {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= opts.FailureRateThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Info("circuit breaker state change",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			}
		},
	})

	return func(next Processor) Processor {
		return ProcessorFunc(func(ctx context.Context, msg message.Message) (Result, error) {
			out, err := cb.Execute(func() (any, error) {
				res, err := next.Process(ctx, msg)
				return res, err
			})
			if err != nil {
				if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
					return Result{}, msgerrors.ErrCircuitOpen
				}
				return Result{}, err
			}
			return out.(Result), nil
		})
	}
}
