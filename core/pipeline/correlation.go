package pipeline

import (
	"context"

	"github.com/relaykit/messaging/core/message"
)

// Correlation returns a Decorator that pushes an ambient scope derived from
// the incoming message before invoking the inner processor and tears it down
// unconditionally on exit, regardless of success or failure.
func Correlation() Decorator {
	return func(next Processor) Processor {
		return ProcessorFunc(func(ctx context.Context, msg message.Message) (Result, error) {
			scoped, dispose := message.BeginScope(ctx, msg)
			defer dispose()
			return next.Process(scoped, msg)
		})
	}
}
