package pipeline

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/relaykit/messaging/core/message"
	"github.com/relaykit/messaging/core/msgerrors"
	"github.com/relaykit/messaging/core/ratelimiter"
)

// RateLimitOptions configures the Rate Limiter decorator. Store buckets per
// message name using a token-bucket config. In front of the Store, one
// golang.org/x/time/rate limiter shared by every message name allows
// Config.RefillRate calls per second with a burst of the larger of Burst and
// Config.Capacity.
type RateLimitOptions struct {
	Store  ratelimiter.Store
	Config ratelimiter.Config
	Burst  int
}

// RateLimiter returns a Decorator that rejects messages exceeding the
// configured throughput rather than deferring them: the inner processor is
// never invoked on rejection, and the caller receives msgerrors.ErrRateLimited.
func RateLimiter(opts RateLimitOptions) Decorator {
	if opts.Store == nil {
		return nil
	}
	limiter := rate.NewLimiter(rate.Limit(opts.Config.RefillRate), maxInt(opts.Burst, opts.Config.Capacity))

	return func(next Processor) Processor {
		return ProcessorFunc(func(ctx context.Context, msg message.Message) (Result, error) {
			if !limiter.Allow() {
				return Result{}, msgerrors.ErrRateLimited
			}

			remaining, _ := opts.Store.Consume(ctx, msg.Name, 1, opts.Config)
			if remaining < 0 {
				return Result{}, msgerrors.ErrRateLimited
			}

			return next.Process(ctx, msg)
		})
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
