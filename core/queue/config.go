package queue

import "time"

// Config holds environment-driven defaults for a Processor, loaded with
// config.Load/config.MustLoad.
type Config struct {
	VisibilityTimeout  time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT" envDefault:"30s"`
	MaxRequeueAttempts int           `env:"QUEUE_MAX_REQUEUE_ATTEMPTS" envDefault:"3"`
	IdleBackoff        time.Duration `env:"QUEUE_IDLE_BACKOFF" envDefault:"100ms"`
	ErrorBackoff       time.Duration `env:"QUEUE_ERROR_BACKOFF" envDefault:"1s"`
}

// WithConfig applies cfg's values as Processor options.
func WithConfig(cfg Config) Option {
	return func(p *Processor) {
		if cfg.VisibilityTimeout > 0 {
			p.visibilityTimeout = cfg.VisibilityTimeout
		}
		if cfg.MaxRequeueAttempts > 0 {
			p.maxRequeueAttempts = cfg.MaxRequeueAttempts
		}
		if cfg.IdleBackoff > 0 {
			p.idleBackoff = cfg.IdleBackoff
		}
		if cfg.ErrorBackoff > 0 {
			p.errorBackoff = cfg.ErrorBackoff
		}
	}
}
