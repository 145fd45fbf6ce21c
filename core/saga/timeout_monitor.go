package saga

import (
	"context"
	"time"

	"github.com/relaykit/messaging/core/polling"
)

// TimeoutMonitor periodically scans for non-completed saga instances whose
// current state has elapsed its configured OnTimeout duration and applies
// each one's timeout handler.
type TimeoutMonitor[TData any] struct {
	orchestrator *Orchestrator[TData]
	svc          *polling.Service[*Instance[TData]]
}

// TimeoutOption configures a TimeoutMonitor.
type TimeoutOption[TData any] func(*monitorConfig)

type monitorConfig struct {
	checkInterval time.Duration
}

// WithCheckInterval overrides how often the monitor scans for stale
// instances. Default 30 seconds.
func WithCheckInterval[TData any](d time.Duration) TimeoutOption[TData] {
	return func(c *monitorConfig) { c.checkInterval = d }
}

const defaultCheckInterval = 30 * time.Second

// NewTimeoutMonitor creates a TimeoutMonitor for orchestrator.
func NewTimeoutMonitor[TData any](orchestrator *Orchestrator[TData], opts ...TimeoutOption[TData]) *TimeoutMonitor[TData] {
	cfg := monitorConfig{checkInterval: defaultCheckInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &TimeoutMonitor[TData]{orchestrator: orchestrator}
	poll := func(ctx context.Context) ([]*Instance[TData], error) {
		return orchestrator.repo.FindStale(ctx, 0, orchestrator.clock.Now())
	}
	dispatch := func(ctx context.Context, inst *Instance[TData]) error {
		return orchestrator.applyTimeout(ctx, inst)
	}
	m.svc = polling.New("saga-timeout-monitor", poll, dispatch,
		polling.WithIdleDelay[*Instance[TData]](cfg.checkInterval),
		polling.WithWorkDelay[*Instance[TData]](cfg.checkInterval),
		polling.WithClock[*Instance[TData]](orchestrator.clock),
		polling.WithLogger[*Instance[TData]](orchestrator.logger),
	)
	return m
}

func (m *TimeoutMonitor[TData]) Start(ctx context.Context) error       { return m.svc.Start(ctx) }
func (m *TimeoutMonitor[TData]) Stop() error                          { return m.svc.Stop() }
func (m *TimeoutMonitor[TData]) Run(ctx context.Context) func() error { return m.svc.Run(ctx) }

// Running reports whether the timeout monitor's scan loop is currently started.
func (m *TimeoutMonitor[TData]) Running() bool { return m.svc.Running() }
