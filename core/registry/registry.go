// Package registry implements the Handler Registry: a keyed mapping from
// message type name to handler descriptor(s), enforcing at most one handler
// per Command/Query type and allowing zero or more per Event type.
package registry

import (
	"sync"

	"github.com/relaykit/messaging/core/msgerrors"
)

// Registry holds all registered command, query, and event handlers. It is
// read-mostly after application configuration completes, so lookups take a
// read lock.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]CommandHandler
	queries  map[string]QueryHandler
	events   map[string][]EventHandler
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		commands: make(map[string]CommandHandler),
		queries:  make(map[string]QueryHandler),
		events:   make(map[string][]EventHandler),
	}
}

// RegisterCommand registers h as the sole handler for its command type.
// Registering a second handler for the same type is a configuration error.
func (r *Registry) RegisterCommand(h CommandHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[h.Name()]; exists {
		return msgerrors.ErrDuplicateHandler.WithDetails(map[string]any{"type": h.Name()})
	}
	r.commands[h.Name()] = h
	return nil
}

// RegisterQuery registers h as the sole handler for its query type.
func (r *Registry) RegisterQuery(h QueryHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.queries[h.Name()]; exists {
		return msgerrors.ErrDuplicateHandler.WithDetails(map[string]any{"type": h.Name()})
	}
	r.queries[h.Name()] = h
	return nil
}

// RegisterEvent appends h to the handler list for its event type. Multiple
// handlers per event type are always allowed.
func (r *Registry) RegisterEvent(h EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[h.Name()] = append(r.events[h.Name()], h)
}

// ResolveCommandHandler returns the handler for typeName, or
// msgerrors.ErrNoHandler if none is registered.
func (r *Registry) ResolveCommandHandler(typeName string) (CommandHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.commands[typeName]
	if !ok {
		return nil, msgerrors.ErrNoHandler.WithDetails(map[string]any{"type": typeName})
	}
	return h, nil
}

// ResolveQueryHandler returns the handler for typeName, or
// msgerrors.ErrNoHandler if none is registered.
func (r *Registry) ResolveQueryHandler(typeName string) (QueryHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.queries[typeName]
	if !ok {
		return nil, msgerrors.ErrNoHandler.WithDetails(map[string]any{"type": typeName})
	}
	return h, nil
}

// ResolveEventHandlers returns every handler registered for typeName. An
// empty result is not an error.
func (r *Registry) ResolveEventHandlers(typeName string) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EventHandler, len(r.events[typeName]))
	copy(out, r.events[typeName])
	return out
}
