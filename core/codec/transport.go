package codec

import "context"

// Envelope is the wire shape a Transport sends and receives: a message's
// identity and correlation fields alongside its (already serialized)
// payload.
type Envelope struct {
	MessageID     string
	CorrelationID string
	CausationID   string
	Metadata      map[string]string
	Payload       []byte
}

// Transport is the optional external interface a durable event/queue
// backend implements to move Envelopes across process boundaries. The core
// processors never depend on Transport directly; it exists for hosts that
// need to bridge this module's in-process dispatch to a broker.
type Transport interface {
	Send(ctx context.Context, topic string, env Envelope) error
	Receive(ctx context.Context, topic string) (Envelope, error)
}
