package message

import (
	"context"

	"github.com/google/uuid"
)

// Scope is the ambient correlation state pushed onto a context by BeginScope.
type Scope struct {
	CorrelationID uuid.UUID
	MessageID     uuid.UUID
}

type scopeCtxKey struct{}

// scopeFrom reads the nearest ambient Scope from ctx, if any.
func scopeFrom(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	s, ok := ctx.Value(scopeCtxKey{}).(Scope)
	return s, ok
}

// BeginScope derives a context carrying m's correlation identity as the
// ambient scope. The returned dispose function is a no-op: Go has no
// goroutine-local storage to unwind, so the prior scope is restored simply by
// continuing to use the parent context after the derived one falls out of
// scope. dispose exists so call sites mirror the source idiom's
// push/dispose-on-LIFO pairing and so a future stack-based implementation
// could be substituted without changing call sites.
func BeginScope(ctx context.Context, m Message) (context.Context, func()) {
	next := context.WithValue(ctx, scopeCtxKey{}, Scope{
		CorrelationID: m.CorrelationID,
		MessageID:     m.ID,
	})
	return next, func() {}
}

// CurrentScope returns the ambient scope on ctx, if one has been pushed.
func CurrentScope(ctx context.Context) (Scope, bool) {
	return scopeFrom(ctx)
}
