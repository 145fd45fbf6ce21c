// Package pipeline implements the composable decorator chain shared by the
// Command, Query, Event, Outbox, and Inbox processors: validation, retry,
// circuit breaker, rate limiting, error handling, metrics, logging,
// correlation, and OpenTelemetry tracing, each expressed as a function
// wrapping a Processor rather than an inheriting class.
package pipeline

import (
	"context"

	"github.com/relaykit/messaging/core/message"
)

// Result carries the outcome of a single processor invocation.
type Result struct {
	Response any
	Metadata map[string]string
}

// Processor handles a single Message and returns a Result or an error.
// Every decorator is itself a Processor wrapping an inner Processor.
type Processor interface {
	Process(ctx context.Context, msg message.Message) (Result, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, msg message.Message) (Result, error)

func (f ProcessorFunc) Process(ctx context.Context, msg message.Message) (Result, error) {
	return f(ctx, msg)
}

// Decorator wraps a Processor to add cross-cutting behavior. Decorators never
// observe the inner processor's intermediate state, only its final
// success/failure.
type Decorator func(Processor) Processor

// ApplyDecorators composes decorators around inner so that the first
// decorator in the list becomes the outermost layer and therefore executes
// first. A nil entry in decorators is skipped, which is how a pipeline
// configuration omits a decorator whose required dependency is absent
// instead of failing configuration (per the Skipping rule).
func ApplyDecorators(inner Processor, decorators ...Decorator) Processor {
	p := inner
	for i := len(decorators) - 1; i >= 0; i-- {
		if decorators[i] == nil {
			continue
		}
		p = decorators[i](p)
	}
	return p
}
