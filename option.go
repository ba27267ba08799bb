package scrim

import (
	"time"

	"pkg.world.dev/scrim/handoff"
)

// Option augments how the engine is assembled.
type Option func(*Engine)

// WithConfig replaces the environment-derived config entirely. Zero
// values still fall back to the documented defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		cfg.applyDefaults()
		e.cfg = cfg
	}
}

// WithClock injects the time source used for queue windows, timeouts
// and roster TTL accounting. Tests use this to move time without
// sleeping.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithNotifier replaces the match handoff publisher. When set, the
// engine does not dial NATS regardless of NATS_URL.
func WithNotifier(n handoff.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}
