// Package saga implements the Saga Orchestrator and its declarative state
// machine DSL: long-running, correlation-scoped coordinators with
// compensation semantics, persisted under optimistic concurrency control.
package saga

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/relaykit/messaging/core/mtime"
	"github.com/relaykit/messaging/core/msgerrors"
	"github.com/relaykit/messaging/core/registry"
)

// CorrelationFunc extracts the correlation ID an event belongs to.
type CorrelationFunc func(event any) (uuid.UUID, bool)

// Orchestrator dispatches events against a Definition, loading or creating
// the correlated Instance from a Repository and persisting the result with
// optimistic concurrency.
type Orchestrator[TData any] struct {
	def           *Definition[TData]
	repo          Repository[TData]
	correlationOf CorrelationFunc
	newData       func() TData
	clock         mtime.Source
	logger        *slog.Logger
}

// Option configures an Orchestrator.
type Option[TData any] func(*Orchestrator[TData])

func WithClock[TData any](c mtime.Source) Option[TData] {
	return func(o *Orchestrator[TData]) { o.clock = c }
}
func WithLogger[TData any](l *slog.Logger) Option[TData] {
	return func(o *Orchestrator[TData]) { o.logger = l }
}

// New creates an Orchestrator. correlationOf extracts the correlation ID
// from an inbound event; newData produces a zero-value Data for a newly
// created saga instance.
func New[TData any](def *Definition[TData], repo Repository[TData], correlationOf CorrelationFunc, newData func() TData, opts ...Option[TData]) *Orchestrator[TData] {
	o := &Orchestrator[TData]{
		def:           def,
		repo:          repo,
		correlationOf: correlationOf,
		newData:       newData,
		clock:         mtime.Default,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DispatchAsync routes event to the correlated saga instance (creating one
// if the event is accepted by the initial state), executes the bound
// steps, runs compensations on failure, and persists with optimistic
// concurrency.
func (o *Orchestrator[TData]) DispatchAsync(ctx context.Context, event any) error {
	eventName := registry.TypeName(event)

	correlationID, ok := o.correlationOf(event)
	if !ok {
		return msgerrors.New(msgerrors.CodeValidation, "event carries no resolvable correlation id")
	}

	inst, found, err := o.repo.Find(ctx, correlationID)
	if err != nil {
		return err
	}

	isNew := false
	if !found {
		initialDef, ok := o.def.states[o.def.initial]
		if !ok || initialDef.events[eventName] == nil {
			return msgerrors.New(msgerrors.CodeBusiness, "no saga instance exists and this event does not initiate one")
		}
		now := o.clock.Now()
		inst = &Instance[TData]{
			CorrelationID: correlationID,
			CurrentState:  o.def.initial,
			Data:          o.newData(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		isNew = true
	}

	if inst.IsCompleted {
		return msgerrors.New(msgerrors.CodeBusiness, "saga instance is already completed")
	}

	stateDef, ok := o.def.states[inst.CurrentState]
	if !ok {
		return msgerrors.New(msgerrors.CodeConfiguration, "saga definition has no state matching the instance's current state")
	}
	binding, ok := stateDef.events[eventName]
	if !ok {
		return msgerrors.New(msgerrors.CodeBusiness, "current saga state does not accept this event")
	}

	comp := &CompensationContext{}
	actx := &ActionContext[TData]{Context: ctx, Saga: inst, Message: event, Compensations: comp}

	if runErr := runSteps(binding.steps, actx); runErr != nil {
		comp.run(ctx)
		inst.IsFailed = true
		inst.FailureReason = runErr.Error()
	}

	inst.UpdatedAt = o.clock.Now()

	if isNew {
		return o.repo.Save(ctx, inst)
	}
	return o.repo.Update(ctx, inst)
}

// applyTimeout runs inst's current-state timeout handler, used by
// TimeoutMonitor. It is a no-op if the state has no timeout configured or
// the timeout has not yet elapsed.
func (o *Orchestrator[TData]) applyTimeout(ctx context.Context, inst *Instance[TData]) error {
	stateDef, ok := o.def.states[inst.CurrentState]
	if !ok || stateDef.timeout == nil {
		return nil
	}
	if o.clock.Now().Sub(inst.UpdatedAt) < stateDef.timeout.duration {
		return nil
	}

	comp := &CompensationContext{}
	actx := &ActionContext[TData]{Context: ctx, Saga: inst, Compensations: comp}

	if err := stateDef.timeout.handler(actx); err != nil {
		comp.run(ctx)
		inst.IsFailed = true
		inst.FailureReason = err.Error()
	}
	inst.UpdatedAt = o.clock.Now()
	return o.repo.Update(ctx, inst)
}
