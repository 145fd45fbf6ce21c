package inbox

import "time"

// Config holds environment-driven defaults for a Processor, loaded with
// config.Load/config.MustLoad.
type Config struct {
	Retention       time.Duration `env:"INBOX_RETENTION" envDefault:"168h"`
	FailedRetention time.Duration `env:"INBOX_FAILED_RETENTION" envDefault:"0s"`
	CleanupInterval time.Duration `env:"INBOX_CLEANUP_INTERVAL" envDefault:"1h"`
}

// WithConfig applies cfg's values as Processor options.
func WithConfig(cfg Config) Option {
	return func(p *Processor) {
		if cfg.Retention > 0 {
			p.retention = cfg.Retention
		}
		if cfg.FailedRetention > 0 {
			p.failedRetention = cfg.FailedRetention
		}
		if cfg.CleanupInterval > 0 {
			p.cleanupInterval = cfg.CleanupInterval
		}
	}
}
