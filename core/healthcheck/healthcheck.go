// Package healthcheck implements a readiness probe the host process may
// mount, adapted from the teacher's handler-shaped liveness/readiness probe:
// the same "run each dependency function in sequence, log the first
// failure" idiom, restructured here to report a named status per processor
// instead of serving an HTTP response directly, since this module no longer
// carries an HTTP surface of its own.
package healthcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/relaykit/messaging/core/logger"
)

// Check reports whether a single dependency (a processor, a store, a
// broker connection) is ready. A nil error means ready.
type Check func(context.Context) error

// Probe aggregates named Checks into a single readiness report.
type Probe struct {
	logger *slog.Logger
	checks map[string]Check
	order  []string
}

// New creates an empty Probe. log receives one error-level entry per failed
// check when Check runs.
func New(log *slog.Logger) *Probe {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Probe{logger: log, checks: make(map[string]Check)}
}

// Register adds a named Check. Registering the same name twice replaces the
// earlier Check but preserves its position in Report's output order.
func (p *Probe) Register(name string, check Check) {
	if _, exists := p.checks[name]; !exists {
		p.order = append(p.order, name)
	}
	p.checks[name] = check
}

// Status is a single check's outcome.
type Status struct {
	Name  string
	Ready bool
	Error string
}

// Report is the aggregate readiness result: Ready is true only if every
// registered check succeeded.
type Report struct {
	Ready    bool
	Statuses []Status
}

// Check runs every registered Check in registration order, continuing past
// individual failures so Report always reflects the whole system's state
// rather than stopping at the first failing dependency.
func (p *Probe) Check(ctx context.Context) Report {
	report := Report{Ready: true}
	for _, name := range p.order {
		check := p.checks[name]
		if err := check(ctx); err != nil {
			p.logger.ErrorContext(ctx, "readiness check failed", logger.Error(err), slog.String("check", name))
			report.Ready = false
			report.Statuses = append(report.Statuses, Status{Name: name, Ready: false, Error: err.Error()})
			continue
		}
		report.Statuses = append(report.Statuses, Status{Name: name, Ready: true})
	}
	return report
}

// Running adapts any type exposing a Running() bool method — every
// background processor in this module does — into a Check: not running is
// reported as a readiness failure.
func Running(name string, svc interface{ Running() bool }) Check {
	return func(context.Context) error {
		if !svc.Running() {
			return fmt.Errorf("%s is not running", name)
		}
		return nil
	}
}
