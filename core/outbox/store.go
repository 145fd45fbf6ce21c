package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the Outbox Storage external interface. MemoryStore is the
// in-process reference implementation; a durable store backs the same
// contract with a table and row-level locking for ClaimPending/ClaimByID.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// ClaimPending atomically transitions up to limit Pending entries whose
	// NextRetryAt has elapsed to Processing, ordered by (Priority DESC,
	// EnqueuedAt ASC), and returns copies. Safe against duplicate pickup by
	// a concurrent poller.
	ClaimPending(ctx context.Context, now time.Time, limit int) ([]Entry, error)
	// ClaimByID atomically transitions a single Pending entry to
	// Processing for the high-priority shortcut. ok is false if the entry
	// was already claimed (by the poller or another shortcut call) or does
	// not exist.
	ClaimByID(ctx context.Context, id uuid.UUID) (Entry, bool, error)
	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, errMsg string) error
	Retry(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, retryCount int, errMsg string) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID]*Entry)}
}

func (s *MemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := e
	s.entries[e.ID] = &cp
	return nil
}

func (s *MemoryStore) ClaimPending(_ context.Context, now time.Time, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]*Entry, 0)
	for _, e := range s.entries {
		if e.Status == StatusPending && !e.NextRetryAt.After(now) {
			candidates = append(candidates, e)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].EnqueuedAt.Before(candidates[j].EnqueuedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]Entry, 0, len(candidates))
	for _, e := range candidates {
		e.Status = StatusProcessing
		out = append(out, *e)
	}
	return out, nil
}

func (s *MemoryStore) ClaimByID(_ context.Context, id uuid.UUID) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.Status != StatusPending {
		return Entry{}, false, nil
	}
	e.Status = StatusProcessing
	return *e, true, nil
}

func (s *MemoryStore) Complete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.Status = StatusCompleted
	}
	return nil
}

func (s *MemoryStore) Fail(_ context.Context, id uuid.UUID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.Status = StatusFailed
		e.Error = errMsg
	}
	return nil
}

func (s *MemoryStore) Retry(_ context.Context, id uuid.UUID, nextRetryAt time.Time, retryCount int, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.Status = StatusPending
		e.NextRetryAt = nextRetryAt
		e.RetryCount = retryCount
		e.Error = errMsg
	}
	return nil
}
