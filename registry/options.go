package registry

import (
	"log/slog"
	"time"

	"github.com/c360/livebridge/metric"
	"github.com/c360/livebridge/pkg/intern"
	"github.com/c360/livebridge/provider"
)

const (
	// DefaultLogEvery throttles hot-path log lines to one in 60 calls.
	DefaultLogEvery = 60
	// DefaultSourceRetryInterval is the minimum time between attempts to
	// establish the source.
	DefaultSourceRetryInterval = 5 * time.Second
	// DefaultSourceTimeout bounds source creation and close.
	DefaultSourceTimeout = 10 * time.Second
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. A "component" attribute is added.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFactory sets the source factory. Without one every attempt to
// establish a source fails.
func WithFactory(f provider.Factory) Option {
	return func(r *Registry) { r.factory = f }
}

// WithBootstrap shares a process-wide bootstrap guard.
func WithBootstrap(b *Bootstrap) Option {
	return func(r *Registry) {
		if b != nil {
			r.bootstrap = b
		}
	}
}

// WithMetrics records bridge metrics. nil disables them.
func WithMetrics(m *metric.BridgeMetrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithEventHook receives lifecycle events. The hook may call back into the
// registry.
func WithEventHook(fn func(Event)) Option {
	return func(r *Registry) { r.onEvent = fn }
}

// WithLogEvery logs hot-path lines once every n calls. n <= 1 logs all.
func WithLogEvery(n int) Option {
	return func(r *Registry) {
		if n < 1 {
			n = 1
		}
		r.throttle.every = uint64(n)
	}
}

// WithSourceRetryInterval sets the minimum time between source attempts.
func WithSourceRetryInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d >= 0 {
			r.retryInterval = d
		}
	}
}

// WithSourceTimeout bounds source creation and close.
func WithSourceTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.sourceTimeout = d
		}
	}
}

// WithNameTable uses t as the name cache, for example one built with
// intern.WithMetrics.
func WithNameTable(t *intern.Table) Option {
	return func(r *Registry) {
		if t != nil {
			r.names = t
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}
