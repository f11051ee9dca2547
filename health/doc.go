// Package health reports whether a bridge process is serving.
//
// A Status is healthy, degraded or unhealthy. FromBridge derives one from
// registry stats: a bridge that is initialized but has no publishing source
// is degraded, since subjects are tracked and frames are dropped until the
// source comes back. FromNATS does the same for the NATS client and strips
// URLs, addresses and credentials from error text before it is exposed.
//
// Monitor runs named checks on demand and aggregates them, with unhealthy
// taking precedence over degraded. WatchBridge and WatchNATS wrap the two
// derivations; Handler serves the aggregate:
//
//	mon := health.NewMonitor("livebridge").
//	    WatchBridge("registry", reg).
//	    WatchNATS("nats", client, nil)
//	srv := metric.NewServer(9090, "/metrics", registry,
//	    metric.WithHealthHandler(health.Handler(mon.Check)))
package health
