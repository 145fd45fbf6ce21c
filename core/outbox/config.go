package outbox

import "time"

// Config holds environment-driven defaults for a Processor, loaded with
// config.Load/config.MustLoad.
type Config struct {
	PollInterval  time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	PollBatchSize int           `env:"OUTBOX_POLL_BATCH_SIZE" envDefault:"100"`
	MaxRetries    int           `env:"OUTBOX_MAX_RETRIES" envDefault:"3"`
}

// WithConfig applies cfg's values as Processor options.
func WithConfig(cfg Config) Option {
	return func(p *Processor) {
		if cfg.PollInterval > 0 {
			p.pollInterval = cfg.PollInterval
		}
		if cfg.PollBatchSize > 0 {
			p.pollBatchSize = cfg.PollBatchSize
		}
		if cfg.MaxRetries > 0 {
			p.maxRetries = cfg.MaxRetries
		}
	}
}
