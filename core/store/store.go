// Package store implements the Message Storage external interface: a generic
// key-value store over Id -> Message with optional TTL, metadata/collection
// filters, pagination, and ordering. MemoryStore is the in-process reference
// implementation; a durable store (Redis, a document database, ...) satisfies
// the same Store contract.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaykit/messaging/core/message"
	"github.com/relaykit/messaging/core/mtime"
)

// OrderBy names the field a Query sorts by. Unknown values are ignored and
// the store falls back to its natural (arbitrary but non-failing) order.
type OrderBy string

const (
	OrderByTimestamp OrderBy = "timestamp"
	OrderByStoredAt  OrderBy = "storedat"
)

// PutOptions configures Store.
type PutOptions struct {
	// TTL, if non-zero, expires the entry TTL after it is stored. Expired
	// entries are removed lazily on the next Retrieve/Query/Exists/Count
	// that encounters them.
	TTL time.Duration
	// Tags attaches collection tags an item can be filtered by, independent
	// of its Metadata.
	Tags []string
}

// Query filters and paginates a Store listing.
type Query struct {
	// Metadata filters entries whose message.Metadata contains every given
	// key/value pair (AND semantics).
	Metadata map[string]string
	// Tags filters entries that carry every given collection tag.
	Tags []string
	// Offset and Limit paginate the (filtered, ordered) result set. A Limit
	// of zero means unbounded.
	Offset int
	Limit  int
	// OrderBy names the sort field; unknown values leave the result in
	// arbitrary but non-failing order.
	OrderBy OrderBy
}

// Store is the Message Storage external interface.
type Store interface {
	Store(ctx context.Context, id uuid.UUID, msg message.Message, opts PutOptions) error
	Retrieve(ctx context.Context, id uuid.UUID) (message.Message, bool, error)
	Query(ctx context.Context, q Query) ([]message.Message, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type item struct {
	msg       message.Message
	tags      []string
	expiresAt time.Time // zero means no expiry
	storedAt  time.Time
}

func (it item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// MemoryStore is an in-memory Store, keyed by Message ID.
type MemoryStore struct {
	clock mtime.Source

	mu    sync.Mutex
	items map[uuid.UUID]item
}

// NewMemoryStore creates an empty MemoryStore. clock supplies the time used
// for TTL expiry and StoredAt timestamps.
func NewMemoryStore(clock mtime.Source) *MemoryStore {
	return &MemoryStore{clock: clock, items: make(map[uuid.UUID]item)}
}

func (s *MemoryStore) Store(_ context.Context, id uuid.UUID, msg message.Message, opts PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := item{msg: msg, tags: opts.Tags, storedAt: s.clock.Now()}
	if opts.TTL > 0 {
		it.expiresAt = s.clock.Now().Add(opts.TTL)
	}
	s.items[id] = it
	return nil
}

func (s *MemoryStore) Retrieve(_ context.Context, id uuid.UUID) (message.Message, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return message.Message{}, false, nil
	}
	if it.expired(s.clock.Now()) {
		delete(s.items, id)
		return message.Message{}, false, nil
	}
	return it.msg, true, nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var matched []item
	for id, it := range s.items {
		if it.expired(now) {
			delete(s.items, id)
			continue
		}
		if !matchesMetadata(it.msg.Metadata, q.Metadata) {
			continue
		}
		if !matchesTags(it.tags, q.Tags) {
			continue
		}
		matched = append(matched, it)
	}

	switch q.OrderBy {
	case OrderByTimestamp:
		sort.Slice(matched, func(i, j int) bool { return matched[i].msg.Timestamp.Before(matched[j].msg.Timestamp) })
	case OrderByStoredAt:
		sort.Slice(matched, func(i, j int) bool { return matched[i].storedAt.Before(matched[j].storedAt) })
	}

	if q.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	out := make([]message.Message, len(matched))
	for i, it := range matched {
		out[i] = it.msg
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		return false, nil
	}
	if it.expired(s.clock.Now()) {
		delete(s.items, id)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	count := 0
	for id, it := range s.items {
		if it.expired(now) {
			delete(s.items, id)
			continue
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[uuid.UUID]item)
	return nil
}

func matchesMetadata(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func matchesTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
