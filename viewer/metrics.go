package viewer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/livebridge/metric"
)

// Metrics holds the viewer's Prometheus metrics. A nil *Metrics records
// nothing.
type Metrics struct {
	eventsReceived   *prometheus.CounterVec
	eventsStale      prometheus.Counter
	decodeErrors     prometheus.Counter
	subjects         prometheus.Gauge
	clientsConnected prometheus.Gauge
	messagesSent     prometheus.Counter
	bytesSent        prometheus.Counter
	disconnections   *prometheus.CounterVec
}

// NewMetrics creates the viewer metrics and registers them under
// serviceName.
func NewMetrics(registrar metric.MetricsRegistrar, serviceName string) (*Metrics, error) {
	m := &Metrics{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "viewer",
			Name:      "events_received_total",
			Help:      "Total envelopes received from NATS",
		}, []string{"type"}),
		eventsStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "viewer",
			Name:      "events_ignored_total",
			Help:      "Envelopes that changed nothing: stale sequence or retired source",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "viewer",
			Name:      "decode_errors_total",
			Help:      "Messages that were not valid envelopes",
		}),
		subjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "viewer",
			Name:      "subjects",
			Help:      "Number of live subjects in the state table",
		}),
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "viewer",
			Name:      "clients_connected",
			Help:      "Number of connected WebSocket clients",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "viewer",
			Name:      "messages_sent_total",
			Help:      "Total messages written to WebSocket clients",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "viewer",
			Name:      "bytes_sent_total",
			Help:      "Total bytes written to WebSocket clients",
		}),
		disconnections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "viewer",
			Name:      "client_disconnections_total",
			Help:      "Total WebSocket client disconnections",
		}, []string{"reason"}),
	}

	if err := registrar.RegisterCounterVec(serviceName, "events_received", m.eventsReceived); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter(serviceName, "events_ignored", m.eventsStale); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter(serviceName, "decode_errors", m.decodeErrors); err != nil {
		return nil, err
	}
	if err := registrar.RegisterGauge(serviceName, "subjects", m.subjects); err != nil {
		return nil, err
	}
	if err := registrar.RegisterGauge(serviceName, "clients_connected", m.clientsConnected); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter(serviceName, "messages_sent", m.messagesSent); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounter(serviceName, "bytes_sent", m.bytesSent); err != nil {
		return nil, err
	}
	if err := registrar.RegisterCounterVec(serviceName, "client_disconnections", m.disconnections); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) received(eventType string, changed bool, subjects int) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(eventType).Inc()
	if !changed {
		m.eventsStale.Inc()
	}
	m.subjects.Set(float64(subjects))
}

func (m *Metrics) decodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) clients(n int) {
	if m == nil {
		return
	}
	m.clientsConnected.Set(float64(n))
}

func (m *Metrics) sent(bytes int) {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
	m.bytesSent.Add(float64(bytes))
}

func (m *Metrics) disconnected(reason string) {
	if m == nil {
		return
	}
	m.disconnections.WithLabelValues(reason).Inc()
}
