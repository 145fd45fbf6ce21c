// Package metrics implements the framework's thread-safe recency window of
// durations (reported as an average) and success/failure counters, exposed
// as point-in-time snapshots rather
// than live references so callers cannot observe torn reads.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

const defaultRingSize = 100

// Collector accumulates success/failure counts and a recency window of
// latencies for average-duration reporting.
type Collector struct {
	processed atomic.Int64
	failed    atomic.Int64

	mu       sync.Mutex
	ring     []time.Duration
	ringSize int
	next     int
	filled   bool
}

// New creates a Collector with the given ring capacity; a non-positive size
// defaults to 100 samples.
func New(ringSize int) *Collector {
	if ringSize <= 0 {
		ringSize = defaultRingSize
	}
	return &Collector{ring: make([]time.Duration, ringSize), ringSize: ringSize}
}

// RecordSuccess appends d to the recency ring and increments the processed
// counter.
func (c *Collector) RecordSuccess(d time.Duration) {
	c.processed.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ring[c.next] = d
	c.next = (c.next + 1) % c.ringSize
	if c.next == 0 {
		c.filled = true
	}
}

// RecordFailure increments the failure counter. Cancellations must not be
// passed here; they are not recorded as failures per the error taxonomy.
func (c *Collector) RecordFailure() {
	c.failed.Add(1)
}

// Snapshot is a point-in-time view of the collector's state.
type Snapshot struct {
	ProcessedCount  int64
	FailedCount     int64
	AverageDuration time.Duration
}

// Snapshot returns the current counters and recency-window average duration.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	var sum time.Duration
	n := c.next
	if c.filled {
		n = c.ringSize
	}
	for i := 0; i < n; i++ {
		sum += c.ring[i]
	}
	c.mu.Unlock()

	var avg time.Duration
	if n > 0 {
		avg = sum / time.Duration(n)
	}

	return Snapshot{
		ProcessedCount:  c.processed.Load(),
		FailedCount:     c.failed.Load(),
		AverageDuration: avg,
	}
}

// QuerySnapshot extends Snapshot with the query-processor's cache hit rate.
type QuerySnapshot struct {
	Snapshot
	CacheHitRate float64
}

// QueryCollector additionally tracks cache hits/misses for query processors
// whose pipeline includes a caching decorator.
type QueryCollector struct {
	*Collector
	hits   atomic.Int64
	misses atomic.Int64
}

// NewQuery creates a QueryCollector with the given ring capacity.
func NewQuery(ringSize int) *QueryCollector {
	return &QueryCollector{Collector: New(ringSize)}
}

// RecordCacheHit records a cache hit.
func (c *QueryCollector) RecordCacheHit() { c.hits.Add(1) }

// RecordCacheMiss records a cache miss.
func (c *QueryCollector) RecordCacheMiss() { c.misses.Add(1) }

// Snapshot returns the query-specific snapshot including CacheHitRate.
func (c *QueryCollector) Snapshot() QuerySnapshot {
	hits := c.hits.Load()
	misses := c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return QuerySnapshot{Snapshot: c.Collector.Snapshot(), CacheHitRate: rate}
}
