package pipeline

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/relaykit/messaging/core/message"
	"github.com/relaykit/messaging/core/msgerrors"
)

// Classifier decides whether a failed Process call should be retried. The
// default classifier retries only msgerrors.CodeTransient failures, matching
// the taxonomy's "transient errors ... classified by the retry policy" rule.
type Classifier func(err error) bool

// DefaultClassifier retries transient errors only; configuration, validation,
// business, concurrency, and disposed errors are never retried.
func DefaultClassifier(err error) bool {
	return msgerrors.Is(err, msgerrors.CodeTransient)
}

// RetryOptions configures the Retry decorator's backoff policy.
type RetryOptions struct {
	MaxRetries   uint64
	InitialDelay time.Duration
	MaxDelay     time.Duration
	JitterPct    uint64
	Classify     Classifier
}

// Retry returns a Decorator that retries transient failures using an
// exponential-with-jitter backoff policy built on sethvargo/go-retry,
// honoring ctx cancellation between attempts.
func Retry(opts RetryOptions) Decorator {
	if opts.Classify == nil {
		opts.Classify = DefaultClassifier
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 50 * time.Millisecond
	}

	return func(next Processor) Processor {
		return ProcessorFunc(func(ctx context.Context, msg message.Message) (Result, error) {
			backoff, err := retry.NewExponential(opts.InitialDelay)
			if err != nil {
				return Result{}, err
			}
			if opts.MaxDelay > 0 {
				backoff = retry.WithCappedDuration(opts.MaxDelay, backoff)
			}
			if opts.JitterPct > 0 {
				backoff = retry.WithJitterPercent(opts.JitterPct, backoff)
			}
			backoff = retry.WithMaxRetries(opts.MaxRetries, backoff)

			var result Result
			retryErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
				res, err := next.Process(ctx, msg)
				if err == nil {
					result = res
					return nil
				}
				if opts.Classify(err) {
					return retry.RetryableError(err)
				}
				return err
			})
			return result, retryErr
		})
	}
}
