package saga

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State names a node in a saga's state machine.
type State string

// Instance is one running (or completed/failed) saga: a correlation-scoped
// state machine instance with user-defined data.
type Instance[TData any] struct {
	CorrelationID uuid.UUID
	CurrentState  State
	Data          TData
	Version       int64
	IsCompleted   bool
	IsFailed      bool
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Step is one unit of behavior bound to a state/event pair: a Then action,
// a TransitionTo, a Finalize, or a Compensate registration all reduce to a
// Step that mutates the ActionContext's Saga and/or CompensationContext.
type Step[TData any] func(actx *ActionContext[TData]) error

// ActionContext is passed to every Step. It carries the saga instance, the
// triggering message (nil for a timeout-triggered step), and the
// compensation stack for this dispatch.
type ActionContext[TData any] struct {
	Context       context.Context
	Saga          *Instance[TData]
	Message       any
	Compensations *CompensationContext
}

// CompensationContext is the LIFO stack of compensating actions registered
// during one dispatch, modeled on the krew-solutions routing-slip's
// completed-work-log stack (push on success, pop-and-undo on failure) but
// transient: it exists only for the current dispatch and is not persisted,
// so compensations never reach across separate event dispatches.
type CompensationContext struct {
	mu    sync.Mutex
	stack []func(ctx context.Context) error
}

// Register pushes a compensation onto the stack. Compensations run in LIFO
// order if the dispatch that registered them ultimately fails.
func (c *CompensationContext) Register(action func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stack = append(c.stack, action)
}

// run executes every registered compensation in LIFO order, collecting but
// not stopping on individual failures so a broken compensation cannot strand
// the rest of the stack.
func (c *CompensationContext) run(ctx context.Context) []error {
	c.mu.Lock()
	stack := c.stack
	c.stack = nil
	c.mu.Unlock()

	var errs []error
	for i := len(stack) - 1; i >= 0; i-- {
		if err := stack[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
