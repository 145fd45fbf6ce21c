package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the Queue Storage external interface: persistence for pending
// entries and their dead-letter counterparts. MemoryStore is the in-process
// reference implementation; a durable store backs the same contract with a
// table per queue.
type Store interface {
	Enqueue(ctx context.Context, e Entry) error
	// Dequeue pops the highest-priority, earliest-enqueued visible entry for
	// queue, marking it invisible until now+visibilityTimeout and
	// incrementing its dequeue count. ok is false when nothing is eligible.
	Dequeue(ctx context.Context, queueName string, now time.Time, visibilityTimeout time.Duration) (Entry, bool, error)
	Ack(ctx context.Context, queueName string, id uuid.UUID) error
	Requeue(ctx context.Context, queueName string, id uuid.UUID, visibleAt time.Time) error
	DeadLetter(ctx context.Context, d DeadLetter) error
	Depth(ctx context.Context, queueName string) (int, error)
}

// MemoryStore is an in-memory Store keyed by queue name.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]map[uuid.UUID]*Entry
	dead    []DeadLetter
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[uuid.UUID]*Entry)}
}

func (s *MemoryStore) Enqueue(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.entries[e.Queue]
	if !ok {
		q = make(map[uuid.UUID]*Entry)
		s.entries[e.Queue] = q
	}
	cp := e
	q[e.ID] = &cp
	return nil
}

func (s *MemoryStore) Dequeue(_ context.Context, queueName string, now time.Time, visibilityTimeout time.Duration) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.entries[queueName]
	if len(q) == 0 {
		return Entry{}, false, nil
	}

	candidates := make([]*Entry, 0, len(q))
	for _, e := range q {
		if !e.VisibleAt.After(now) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return Entry{}, false, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].EnqueuedAt.Before(candidates[j].EnqueuedAt)
	})

	picked := candidates[0]
	picked.VisibleAt = now.Add(visibilityTimeout)
	picked.DequeueCount++
	return *picked, true, nil
}

func (s *MemoryStore) Ack(_ context.Context, queueName string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.entries[queueName]; ok {
		delete(q, id)
	}
	return nil
}

func (s *MemoryStore) Requeue(_ context.Context, queueName string, id uuid.UUID, visibleAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.entries[queueName]; ok {
		if e, ok := q[id]; ok {
			e.VisibleAt = visibleAt
		}
	}
	return nil
}

func (s *MemoryStore) DeadLetter(_ context.Context, d DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.entries[d.Queue]; ok {
		delete(q, d.ID)
	}
	s.dead = append(s.dead, d)
	return nil
}

func (s *MemoryStore) Depth(_ context.Context, queueName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[queueName]), nil
}

// DeadLetters returns a copy of every entry that exhausted its requeue
// attempts, for inspection in tests and admin tooling.
func (s *MemoryStore) DeadLetters() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeadLetter, len(s.dead))
	copy(out, s.dead)
	return out
}
