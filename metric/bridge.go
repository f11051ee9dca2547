package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Frame drop reasons recorded by BridgeMetrics.FrameDropped.
const (
	DropNoSource       = "no_source"
	DropCountMismatch  = "count_mismatch"
	DropSchemaMismatch = "schema_mismatch"
	DropNotInitialized = "not_initialized"
	DropPublishError   = "publish_error"
)

// BridgeMetrics holds the subject registry's metrics. A nil *BridgeMetrics is
// valid and records nothing.
type BridgeMetrics struct {
	subjects          *prometheus.GaugeVec
	framesPublished   *prometheus.CounterVec
	framesDropped     *prometheus.CounterVec
	autoRegistrations *prometheus.CounterVec
	conflicts         *prometheus.CounterVec
	sourceEstablished prometheus.Gauge
	sourceFailures    prometheus.Counter
	publishLatency    prometheus.Histogram
}

// NewBridgeMetrics creates the bridge metrics and registers them under
// serviceName.
func NewBridgeMetrics(registrar MetricsRegistrar, serviceName string) (*BridgeMetrics, error) {
	m := &BridgeMetrics{
		subjects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "bridge",
			Name:      "subjects",
			Help:      "Number of tracked subjects",
		}, []string{"kind"}),
		framesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "bridge",
			Name:      "frames_published_total",
			Help:      "Total number of frames handed to the source",
		}, []string{"kind"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "bridge",
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped before publishing",
		}, []string{"kind", "reason"}),
		autoRegistrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "bridge",
			Name:      "auto_registrations_total",
			Help:      "Total number of subjects created by an update",
		}, []string{"kind"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "bridge",
			Name:      "registration_conflicts_total",
			Help:      "Total number of ignored registrations with a different schema",
		}, []string{"kind"}),
		sourceEstablished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "bridge",
			Name:      "source_established",
			Help:      "Publishing source status (0=none, 1=established)",
		}),
		sourceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "bridge",
			Name:      "source_failures_total",
			Help:      "Total number of failed attempts to establish the source",
		}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "bridge",
			Name:      "publish_duration_seconds",
			Help:      "Time spent handing one frame to the source",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),
	}

	if err := registrar.RegisterGaugeVec(serviceName, "subjects", m.subjects); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounterVec(serviceName, "frames_published", m.framesPublished); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounterVec(serviceName, "frames_dropped", m.framesDropped); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounterVec(serviceName, "auto_registrations", m.autoRegistrations); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounterVec(serviceName, "registration_conflicts", m.conflicts); err != nil {
		return nil, err
	}
	if err := registrar.RegisterGauge(serviceName, "source_established", m.sourceEstablished); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter(serviceName, "source_failures", m.sourceFailures); err != nil {
		return nil, err
	}
	if err := registrar.RegisterHistogram(serviceName, "publish_duration", m.publishLatency); err != nil {
		return nil, err
	}

	return m, nil
}

// SetSubjects records the number of tracked subjects of a kind.
func (m *BridgeMetrics) SetSubjects(kind string, n int) {
	if m == nil {
		return
	}
	m.subjects.WithLabelValues(kind).Set(float64(n))
}

// FramePublished records a frame handed to the source and how long it took.
func (m *BridgeMetrics) FramePublished(kind string, took time.Duration) {
	if m == nil {
		return
	}
	m.framesPublished.WithLabelValues(kind).Inc()
	m.publishLatency.Observe(took.Seconds())
}

// FrameDropped records a frame that was not published.
func (m *BridgeMetrics) FrameDropped(kind, reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(kind, reason).Inc()
}

// AutoRegistered records a subject created implicitly by an update.
func (m *BridgeMetrics) AutoRegistered(kind string) {
	if m == nil {
		return
	}
	m.autoRegistrations.WithLabelValues(kind).Inc()
}

// Conflict records an ignored registration.
func (m *BridgeMetrics) Conflict(kind string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(kind).Inc()
}

// SourceEstablished records whether a publishing source exists.
func (m *BridgeMetrics) SourceEstablished(established bool) {
	if m == nil {
		return
	}
	if established {
		m.sourceEstablished.Set(1)
	} else {
		m.sourceEstablished.Set(0)
	}
}

// SourceFailed records a failed attempt to establish the source.
func (m *BridgeMetrics) SourceFailed() {
	if m == nil {
		return
	}
	m.sourceFailures.Inc()
}
