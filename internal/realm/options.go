package realm

import (
	"log/slog"

	"github.com/roach88/duet/internal/engine"
	"github.com/roach88/duet/internal/metrics"
)

// DefaultHopWarning is the hop count at which received writes are logged
// as a possible non-terminating chain.
const DefaultHopWarning = 8

// Option configures a Realm.
type Option func(*Realm)

// WithLogger sets the realm's logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Realm) {
		r.logger = logger
	}
}

// WithJournal records every sync message sent or received.
func WithJournal(j Journal) Option {
	return func(r *Realm) {
		r.journal = j
	}
}

// WithMetrics reports sync and delivery counts to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Realm) {
		r.metrics = c
	}
}

// WithHopWarning sets the warning threshold. n <= 0 disables the warning.
func WithHopWarning(n int64) Option {
	return func(r *Realm) {
		r.hopWarning = n
	}
}

// WithIDGenerator sets the generator used for instances created without an
// explicit ID. Default: UUIDv7.
func WithIDGenerator(g engine.IDGenerator) Option {
	return func(r *Realm) {
		r.ids = g
	}
}

// WithClock sets the clock that stamps outbound messages. Realms sharing
// a clock produce one total order of Seq values.
func WithClock(c *engine.Clock) Option {
	return func(r *Realm) {
		r.clock = c
	}
}
