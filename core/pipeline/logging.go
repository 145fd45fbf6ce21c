package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/relaykit/messaging/core/message"
)

// LoggingOptions configures the Logging decorator.
type LoggingOptions struct {
	Logger         *slog.Logger
	IncludePayload bool
}

// Logging returns a Decorator that logs structured entry/exit events around
// the inner processor, mirroring the teacher's command.LoggingMiddleware.
func Logging(opts LoggingOptions) Decorator {
	if opts.Logger == nil {
		return nil
	}
	return func(next Processor) Processor {
		return ProcessorFunc(func(ctx context.Context, msg message.Message) (Result, error) {
			start := time.Now()

			attrs := []any{slog.String("message", msg.Name), slog.String("message_id", msg.ID.String())}
			if opts.IncludePayload {
				attrs = append(attrs, slog.Any("payload", msg.Payload))
			}
			opts.Logger.InfoContext(ctx, "processing started", attrs...)

			res, err := next.Process(ctx, msg)
			duration := time.Since(start)

			if err != nil {
				opts.Logger.ErrorContext(ctx, "processing failed",
					slog.String("message", msg.Name),
					slog.Duration("duration", duration),
					slog.String("error", err.Error()))
				return res, err
			}

			opts.Logger.InfoContext(ctx, "processing completed",
				slog.String("message", msg.Name),
				slog.Duration("duration", duration))
			return res, nil
		})
	}
}
