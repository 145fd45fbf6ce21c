// Package message defines the wire-level envelope shared by commands, queries,
// events, and queue entries, plus the ambient correlation scope that flows
// workflow identity through handler chains without the caller threading it
// explicitly.
package message

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/relaykit/messaging/core/mtime"
)

// Kind identifies the messaging pattern a Message was constructed for.
type Kind string

const (
	KindCommand Kind = "command"
	KindQuery   Kind = "query"
	KindEvent   Kind = "event"
)

// Message is the immutable envelope carried through every processor in the
// framework. Payload is intentionally untyped at this layer; type-safe access
// happens in the handler registry via generics.
type Message struct {
	ID            uuid.UUID
	Kind          Kind
	Name          string
	Payload       any
	Timestamp     time.Time
	CorrelationID uuid.UUID
	CausationID   uuid.UUID
	Metadata      map[string]string
	// Version identifies the payload schema this message was serialized
	// with. A zero value means "unversioned". core/codec's ConverterRegistry
	// can upgrade a payload between versions; codec.JSONSerializer does not
	// apply it on deserialize.
	Version int
}

// HasCorrelation reports whether CorrelationID is set.
func (m Message) HasCorrelation() bool { return m.CorrelationID != uuid.Nil }

// HasCausation reports whether CausationID is set.
func (m Message) HasCausation() bool { return m.CausationID != uuid.Nil }

// New constructs a Message with a fresh identity. clock supplies the
// timestamp so call sites never reach for time.Now directly.
func New(clock mtime.Source, kind Kind, name string, payload any) Message {
	return Message{
		ID:        uuid.New(),
		Kind:      kind,
		Name:      name,
		Payload:   payload,
		Timestamp: clock.Now(),
	}
}

// WithCorrelation returns a copy of m with CorrelationID/CausationID resolved
// per the framework's ambient-inheritance rule:
//
//   - explicit correlationID/causationID arguments win when non-nil;
//   - otherwise, an ambient scope on ctx supplies CorrelationID and the
//     ambient message's ID becomes CausationID;
//   - if no ambient scope and no explicit CorrelationID exist, a fresh UUID
//     is generated so the message always carries a workflow identity.
//
// A CausationID without a CorrelationID would violate the message invariant,
// so WithCorrelation always resolves CorrelationID first.
func WithCorrelation(ctx context.Context, m Message, correlationID, causationID uuid.UUID) Message {
	out := m

	scope, ok := scopeFrom(ctx)

	switch {
	case correlationID != uuid.Nil:
		out.CorrelationID = correlationID
	case ok:
		out.CorrelationID = scope.CorrelationID
	default:
		out.CorrelationID = uuid.New()
	}

	switch {
	case causationID != uuid.Nil:
		out.CausationID = causationID
	case ok:
		out.CausationID = scope.MessageID
	}

	return out
}
