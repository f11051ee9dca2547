package intern

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/livebridge/metric"
)

// tableMetrics mirrors Statistics into Prometheus. Methods on a nil
// *tableMetrics do nothing.
type tableMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	size   prometheus.Gauge
}

func newTableMetrics(registry *metric.MetricsRegistry, component string) (*tableMetrics, error) {
	labels := prometheus.Labels{"component": component}
	m := &tableMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "name_cache",
			Name:        "hits_total",
			ConstLabels: labels,
			Help:        "Total number of name cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "name_cache",
			Name:        "misses_total",
			ConstLabels: labels,
			Help:        "Total number of name cache misses",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "name_cache",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of cached names",
		}),
	}

	if err := registry.RegisterCounter(component, "name_cache_hits", m.hits); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(component, "name_cache_misses", m.misses); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(component, "name_cache_size", m.size); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *tableMetrics) recordHit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *tableMetrics) recordMiss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *tableMetrics) setSize(n int) {
	if m != nil {
		m.size.Set(float64(n))
	}
}
