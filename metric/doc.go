// Package metric provides the Prometheus registry, the bridge's metrics and
// the HTTP server that exposes them.
//
// MetricsRegistry owns a private prometheus.Registry pre-loaded with the NATS
// connection metrics and the Go runtime collectors. Components register their
// own collectors through MetricsRegistrar, keyed "service.metric", and a
// second registration under the same key is rejected as invalid.
//
//	registry := metric.NewMetricsRegistry()
//	bridgeMetrics, err := metric.NewBridgeMetrics(registry, "bridge")
//	server := metric.NewServer(9090, "/metrics", registry,
//	    metric.WithHealthHandler(health.Handler(status)))
//	if err := server.Start(); err != nil { ... }
//	defer server.Stop()
//
// A nil *BridgeMetrics records nothing, so the registry runs unchanged when
// metrics are disabled.
package metric
