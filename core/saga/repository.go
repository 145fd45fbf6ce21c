package saga

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaykit/messaging/core/msgerrors"
)

// Repository is the Saga Repository external interface. MemoryRepository is
// the in-process reference implementation; a durable repository upholds the
// same optimistic-concurrency contract via a transaction comparing and
// incrementing the stored Version.
type Repository[TData any] interface {
	Find(ctx context.Context, correlationID uuid.UUID) (*Instance[TData], bool, error)
	FindByState(ctx context.Context, state State) ([]*Instance[TData], error)
	// FindStale returns every non-completed instance whose UpdatedAt is
	// older than now-olderThan.
	FindStale(ctx context.Context, olderThan time.Duration, now time.Time) ([]*Instance[TData], error)
	// Save inserts a new instance at Version 0. A duplicate correlation ID
	// is a conflict.
	Save(ctx context.Context, inst *Instance[TData]) error
	// Update persists inst if its Version still matches the stored
	// Version, then increments the stored Version. A missing instance or a
	// version mismatch is a concurrency failure.
	Update(ctx context.Context, inst *Instance[TData]) error
	Delete(ctx context.Context, correlationID uuid.UUID) error
	Clear(ctx context.Context) error
}

// MemoryRepository is an in-memory, thread-safe Repository.
type MemoryRepository[TData any] struct {
	mu        sync.Mutex
	instances map[uuid.UUID]*Instance[TData]
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository[TData any]() *MemoryRepository[TData] {
	return &MemoryRepository[TData]{instances: make(map[uuid.UUID]*Instance[TData])}
}

func (r *MemoryRepository[TData]) Find(_ context.Context, correlationID uuid.UUID) (*Instance[TData], bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[correlationID]
	if !ok {
		return nil, false, nil
	}
	cp := *inst
	return &cp, true, nil
}

func (r *MemoryRepository[TData]) FindByState(_ context.Context, state State) ([]*Instance[TData], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Instance[TData]
	for _, inst := range r.instances {
		if inst.CurrentState == state {
			cp := *inst
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository[TData]) FindStale(_ context.Context, olderThan time.Duration, now time.Time) ([]*Instance[TData], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := now.Add(-olderThan)
	var out []*Instance[TData]
	for _, inst := range r.instances {
		if !inst.IsCompleted && inst.UpdatedAt.Before(cutoff) {
			cp := *inst
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository[TData]) Save(_ context.Context, inst *Instance[TData]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[inst.CorrelationID]; exists {
		return msgerrors.New(msgerrors.CodeConcurrency, "saga instance already exists for this correlation id")
	}
	inst.Version = 0
	cp := *inst
	r.instances[inst.CorrelationID] = &cp
	return nil
}

func (r *MemoryRepository[TData]) Update(_ context.Context, inst *Instance[TData]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.instances[inst.CorrelationID]
	if !ok {
		return msgerrors.New(msgerrors.CodeConcurrency, "saga instance does not exist")
	}
	if stored.Version != inst.Version {
		return msgerrors.New(msgerrors.CodeConcurrency, "saga instance was modified concurrently")
	}
	cp := *inst
	cp.Version = stored.Version + 1
	r.instances[inst.CorrelationID] = &cp
	inst.Version = cp.Version
	return nil
}

func (r *MemoryRepository[TData]) Delete(_ context.Context, correlationID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, correlationID)
	return nil
}

func (r *MemoryRepository[TData]) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[uuid.UUID]*Instance[TData])
	return nil
}
