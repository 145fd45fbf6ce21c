package pipeline

import (
	"context"

	"github.com/relaykit/messaging/core/message"
	"github.com/relaykit/messaging/core/msgerrors"
)

// DeadLetter is the external Dead Letter Queue contract.
type DeadLetter interface {
	SendToDeadLetter(ctx context.Context, msg message.Message, reason string) error
}

// ErrorHandlerFunc observes a terminal failure. It does not change the
// outcome reported to the caller; it exists for side effects such as
// alerting or audit logging.
type ErrorHandlerFunc func(ctx context.Context, msg message.Message, err error)

// ErrorHandlingOptions configures the Error Handling decorator.
type ErrorHandlingOptions struct {
	Handler    ErrorHandlerFunc
	DeadLetter DeadLetter
}

// ErrorHandling returns a Decorator that, on a failure the inner processor
// could not recover from, invokes the configured handler and — for
// non-retryable or retry-exhausted failures — promotes the message to dead
// letter storage with taxonomy context. Validation and concurrency failures
// are surfaced but never dead-lettered, since they are not delivery failures.
func ErrorHandling(opts ErrorHandlingOptions) Decorator {
	return func(next Processor) Processor {
		return ProcessorFunc(func(ctx context.Context, msg message.Message) (Result, error) {
			res, err := next.Process(ctx, msg)
			if err == nil {
				return res, nil
			}

			if opts.Handler != nil {
				opts.Handler(ctx, msg, err)
			}

			if opts.DeadLetter != nil && isDeadLetterEligible(err) {
				_ = opts.DeadLetter.SendToDeadLetter(ctx, msg, err.Error())
			}

			return res, err
		})
	}
}

func isDeadLetterEligible(err error) bool {
	switch {
	case msgerrors.Is(err, msgerrors.CodeValidation):
		return false
	case msgerrors.Is(err, msgerrors.CodeConcurrency):
		return false
	case msgerrors.Is(err, msgerrors.CodeDisposed):
		return false
	default:
		return true
	}
}
