// Package ratelimiter implements a keyed token-bucket limiter used by the
// pipeline's Rate Limiter decorator, adapted from the teacher's HTTP
// middleware token-bucket store to key buckets by message name instead of a
// client identity, and to draw time from an injectable mtime.Source instead
// of calling time.Now directly.
package ratelimiter

import (
	"context"
	"sync"
	"time"

	"github.com/relaykit/messaging/core/mtime"
)

// Config describes a token bucket's refill behavior. Env tags let it be
// loaded directly with config.Load/config.MustLoad.
type Config struct {
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"100"`
	RefillRate     int           `env:"RATE_LIMIT_REFILL_RATE" envDefault:"10"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
}

// Store consumes tokens from keyed buckets.
type Store interface {
	Consume(ctx context.Context, key string, tokens int, cfg Config) (remaining int, resetAt time.Time)
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// MemoryStore is an in-process Store implementation, safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	clock   mtime.Source
}

// NewMemoryStore creates a MemoryStore. A nil clock defaults to the real
// system clock.
func NewMemoryStore(clock mtime.Source) *MemoryStore {
	if clock == nil {
		clock = mtime.Default
	}
	return &MemoryStore{buckets: make(map[string]*bucket), clock: clock}
}

func (s *MemoryStore) Consume(ctx context.Context, key string, tokens int, cfg Config) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{tokens: cfg.Capacity, lastRefill: now}
		s.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill)
	if cfg.RefillInterval > 0 {
		intervals := int(elapsed / cfg.RefillInterval)
		if intervals > 0 {
			b.tokens = min(b.tokens+intervals*cfg.RefillRate, cfg.Capacity)
			b.lastRefill = now
		}
	}

	b.tokens -= tokens
	return b.tokens, b.lastRefill.Add(cfg.RefillInterval)
}

// Reset clears a single key's bucket, reinitializing it on next Consume.
func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
}
