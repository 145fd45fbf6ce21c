package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/relaykit/messaging/core/message"
)

// OpenTelemetryOptions configures the tracing decorator.
type OpenTelemetryOptions struct {
	// TracerName identifies the instrumentation scope; defaults to the
	// module path when empty.
	TracerName string
}

// OpenTelemetry returns a Decorator that creates a span per invocation when a
// tracer provider is configured globally, recording correlation/causation IDs
// as span attributes so traces can be joined with application-level
// correlation lookups.
func OpenTelemetry(opts OpenTelemetryOptions) Decorator {
	name := opts.TracerName
	if name == "" {
		name = "github.com/relaykit/messaging"
	}
	tracer := otel.Tracer(name)

	return func(next Processor) Processor {
		return ProcessorFunc(func(ctx context.Context, msg message.Message) (Result, error) {
			ctx, span := tracer.Start(ctx, msg.Name, trace.WithAttributes(
				attribute.String("message.id", msg.ID.String()),
				attribute.String("message.kind", string(msg.Kind)),
			))
			defer span.End()

			if msg.HasCorrelation() {
				span.SetAttributes(attribute.String("message.correlation_id", msg.CorrelationID.String()))
			}
			if msg.HasCausation() {
				span.SetAttributes(attribute.String("message.causation_id", msg.CausationID.String()))
			}

			res, err := next.Process(ctx, msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return res, err
		})
	}
}
