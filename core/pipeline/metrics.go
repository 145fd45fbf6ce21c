package pipeline

import (
	"context"
	"time"

	"github.com/relaykit/messaging/core/message"
	"github.com/relaykit/messaging/core/metrics"
)

// Metrics returns a Decorator that measures invocation duration and records
// success/failure counters without swallowing the inner processor's error.
// Cancellation is never recorded as a failure.
func Metrics(collector *metrics.Collector) Decorator {
	if collector == nil {
		return nil
	}
	return func(next Processor) Processor {
		return ProcessorFunc(func(ctx context.Context, msg message.Message) (Result, error) {
			start := time.Now()
			res, err := next.Process(ctx, msg)
			duration := time.Since(start)

			switch {
			case err == nil:
				collector.RecordSuccess(duration)
			case ctx.Err() != nil:
				// cancellation; never counted as a failure
			default:
				collector.RecordFailure()
			}

			return res, err
		})
	}
}
