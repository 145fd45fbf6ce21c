package saga

import "time"

// MonitorConfig holds environment-driven defaults for a TimeoutMonitor,
// loaded with config.Load/config.MustLoad.
type MonitorConfig struct {
	CheckInterval time.Duration `env:"SAGA_TIMEOUT_CHECK_INTERVAL" envDefault:"30s"`
}

// WithMonitorConfig applies cfg's values as TimeoutMonitor options.
func WithMonitorConfig[TData any](cfg MonitorConfig) TimeoutOption[TData] {
	return func(c *monitorConfig) {
		if cfg.CheckInterval > 0 {
			c.checkInterval = cfg.CheckInterval
		}
	}
}
