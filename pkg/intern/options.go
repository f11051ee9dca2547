package intern

import (
	"github.com/c360/livebridge/metric"
)

// Option configures a Table.
type Option func(*tableOptions)

type tableOptions struct {
	metricsReg    *metric.MetricsRegistry
	metricsPrefix string
	initialSize   int
}

// WithMetrics exports hits, misses and size as Prometheus metrics labelled
// with component. Ignored when registry is nil or component is empty.
func WithMetrics(registry *metric.MetricsRegistry, component string) Option {
	return func(o *tableOptions) {
		if registry != nil && component != "" {
			o.metricsReg = registry
			o.metricsPrefix = component
		}
	}
}

// WithInitialSize presizes the table. Values <= 0 are ignored.
func WithInitialSize(n int) Option {
	return func(o *tableOptions) {
		if n > 0 {
			o.initialSize = n
		}
	}
}

func applyOptions(opts ...Option) *tableOptions {
	o := &tableOptions{initialSize: 64}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
