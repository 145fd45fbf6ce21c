package pipeline

import (
	"context"
	"strings"

	"github.com/relaykit/messaging/core/message"
	"github.com/relaykit/messaging/core/msgerrors"
)

// Validator is the external Message Validator contract: it inspects a
// message's payload and reports validation failures without ever returning a
// transport-level error itself.
type Validator interface {
	Validate(ctx context.Context, msg message.Message) (ok bool, errs []string)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, msg message.Message) (bool, []string)

func (f ValidatorFunc) Validate(ctx context.Context, msg message.Message) (bool, []string) {
	return f(ctx, msg)
}

// Validation returns a Decorator that runs validator before the inner
// processor and short-circuits on failure, carrying the aggregated error
// list without ever invoking the inner processor.
func Validation(validator Validator) Decorator {
	if validator == nil {
		return nil
	}
	return func(next Processor) Processor {
		return ProcessorFunc(func(ctx context.Context, msg message.Message) (Result, error) {
			ok, errs := validator.Validate(ctx, msg)
			if !ok {
				return Result{}, msgerrors.New(msgerrors.CodeValidation, strings.Join(errs, "; ")).
					WithDetails(map[string]any{"validation_errors": errs})
			}
			return next.Process(ctx, msg)
		})
	}
}
