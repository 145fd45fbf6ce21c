// Package mtime provides an injectable time source so that timeouts, backoffs,
// and dedup windows can be driven deterministically in tests.
package mtime

import "time"

// Source abstracts wall-clock access. Business logic must never call
// time.Now or time.Sleep directly; it takes a Source instead.
type Source interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that fires after d, honoring ctx-style
	// cancellation is the caller's responsibility via select.
	After(d time.Duration) <-chan time.Time
}

// System is the production Source backed by the real clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

func (System) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Default is the process-wide real clock, safe to share since it is stateless.
var Default Source = System{}
