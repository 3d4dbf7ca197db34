package runner

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is how long a Loop waits before polling suspended work again.
const DefaultInterval = 10 * time.Millisecond

// Option defines a functional option for configuring the Loop.
type Option func(*Loop)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithInterval sets the delay between polls of suspended work.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		l.interval = d
	}
}

// WithClock sets the clock the poll interval is measured with.
func WithClock(c clockwork.Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}
