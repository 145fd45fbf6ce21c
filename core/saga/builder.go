package saga

import (
	"context"
	"time"
)

type eventBinding[TData any] struct {
	steps []Step[TData]
}

type stateTimeout[TData any] struct {
	duration time.Duration
	handler  Step[TData]
}

type stateDefinition[TData any] struct {
	events  map[string]*eventBinding[TData]
	timeout *stateTimeout[TData]
}

// Definition is a state machine built once per saga type via Initially and
// During, then shared by every Orchestrator instance for that type.
type Definition[TData any] struct {
	initial State
	states  map[State]*stateDefinition[TData]
}

// NewDefinition creates an empty Definition.
func NewDefinition[TData any]() *Definition[TData] {
	return &Definition[TData]{states: make(map[State]*stateDefinition[TData])}
}

// Initially sets the state a new saga instance starts in.
func (d *Definition[TData]) Initially(s State) *Definition[TData] {
	d.initial = s
	return d
}

// During declares the behavior of state s: which events it accepts and
// what each does.
func (d *Definition[TData]) During(s State, configure func(*StateBuilder[TData])) *Definition[TData] {
	sd, ok := d.states[s]
	if !ok {
		sd = &stateDefinition[TData]{events: make(map[string]*eventBinding[TData])}
		d.states[s] = sd
	}
	configure(&StateBuilder[TData]{state: sd})
	return d
}

// StateBuilder configures one state's event bindings and timeout.
type StateBuilder[TData any] struct {
	state *stateDefinition[TData]
}

// When binds behavior to eventTypeName (use registry.TypeName(Event{}) to
// derive it) within this state.
func (b *StateBuilder[TData]) When(eventTypeName string) *EventBuilder[TData] {
	eb, ok := b.state.events[eventTypeName]
	if !ok {
		eb = &eventBinding[TData]{}
		b.state.events[eventTypeName] = eb
	}
	return &EventBuilder[TData]{binding: eb}
}

// OnTimeout registers a per-state timeout: if the saga remains in this
// state for at least d without a persisted update, handler runs on the
// next Timeout Monitor pass.
func (b *StateBuilder[TData]) OnTimeout(d time.Duration, handler Step[TData]) *StateBuilder[TData] {
	b.state.timeout = &stateTimeout[TData]{duration: d, handler: handler}
	return b
}

// EventBuilder accumulates the ordered steps that run when its bound event
// is dispatched while the saga is in the enclosing state.
type EventBuilder[TData any] struct {
	binding *eventBinding[TData]
}

// Then appends a user action.
func (b *EventBuilder[TData]) Then(action Step[TData]) *EventBuilder[TData] {
	b.binding.steps = append(b.binding.steps, action)
	return b
}

// TransitionTo appends a state transition.
func (b *EventBuilder[TData]) TransitionTo(s State) *EventBuilder[TData] {
	b.binding.steps = append(b.binding.steps, func(actx *ActionContext[TData]) error {
		actx.Saga.CurrentState = s
		return nil
	})
	return b
}

// Finalize appends a step that marks the saga completed and terminal.
func (b *EventBuilder[TData]) Finalize() *EventBuilder[TData] {
	b.binding.steps = append(b.binding.steps, func(actx *ActionContext[TData]) error {
		actx.Saga.IsCompleted = true
		return nil
	})
	return b
}

// Compensate registers action onto the current dispatch's compensation
// stack; it runs (in LIFO order with any sibling compensations) only if a
// later step in this same dispatch fails.
func (b *EventBuilder[TData]) Compensate(action func(ctx context.Context) error) *EventBuilder[TData] {
	b.binding.steps = append(b.binding.steps, func(actx *ActionContext[TData]) error {
		actx.Compensations.Register(action)
		return nil
	})
	return b
}

// If starts a conditional step; chain .Then(...).Else(...) or .Then(...).EndIf().
func (b *EventBuilder[TData]) If(predicate func(actx *ActionContext[TData]) bool) *IfBuilder[TData] {
	return &IfBuilder[TData]{parent: b, predicate: predicate}
}

// IfBuilder accumulates the "then" branch of a conditional step until
// Else or EndIf commits it onto the parent EventBuilder.
type IfBuilder[TData any] struct {
	parent    *EventBuilder[TData]
	predicate func(actx *ActionContext[TData]) bool
	thenSteps []Step[TData]
}

// Then appends a step to the "then" branch.
func (i *IfBuilder[TData]) Then(action Step[TData]) *IfBuilder[TData] {
	i.thenSteps = append(i.thenSteps, action)
	return i
}

// Else commits the conditional with an "else" action and returns to the
// parent EventBuilder so further steps can be chained.
func (i *IfBuilder[TData]) Else(action Step[TData]) *EventBuilder[TData] {
	predicate, thenSteps := i.predicate, i.thenSteps
	i.parent.binding.steps = append(i.parent.binding.steps, func(actx *ActionContext[TData]) error {
		if predicate(actx) {
			return runSteps(thenSteps, actx)
		}
		return action(actx)
	})
	return i.parent
}

// EndIf commits the conditional with no "else" branch.
func (i *IfBuilder[TData]) EndIf() *EventBuilder[TData] {
	predicate, thenSteps := i.predicate, i.thenSteps
	i.parent.binding.steps = append(i.parent.binding.steps, func(actx *ActionContext[TData]) error {
		if predicate(actx) {
			return runSteps(thenSteps, actx)
		}
		return nil
	})
	return i.parent
}

func runSteps[TData any](steps []Step[TData], actx *ActionContext[TData]) error {
	for _, s := range steps {
		if err := s(actx); err != nil {
			return err
		}
	}
	return nil
}
