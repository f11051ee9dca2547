package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/c360/livebridge/config"
	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/health"
	"github.com/c360/livebridge/metric"
	"github.com/c360/livebridge/natsclient"
	"github.com/c360/livebridge/viewer"
)

// lastError keeps the most recent NATS disconnect reason for /health.
type lastError struct {
	mu  sync.Mutex
	err error
}

func (l *lastError) set(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

func (l *lastError) get() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// newServer mounts the viewer routes, /health and the metrics endpoint on
// one listener. client may be nil, which reports unhealthy.
func newServer(cfg *config.Config, v *viewer.Viewer, reg *metric.MetricsRegistry,
	client *natsclient.Client, lastErr func() error,
) *http.Server {
	monitor := health.NewMonitor(appName).
		WatchNATS("nats", client, lastErr).
		Watch("viewer", func() health.Status {
			n := v.State().Len()
			msg := fmt.Sprintf("Tracking %d subjects for %d clients", n, v.Hub().Len())
			return health.NewHealthy("viewer", msg).WithMetrics(&health.Metrics{Subjects: n})
		})

	mux := http.NewServeMux()
	mux.Handle("/", v.Handler())
	mux.Handle("GET /health", health.Handler(monitor.Check))
	mux.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(
		reg.PrometheusRegistry(),
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))

	return &http.Server{
		Addr:              cfg.Viewer.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serve runs srv until ctx is done, then shuts it down gracefully. A serve
// failure also triggers the shutdown and is returned.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return errors.WrapFatal(err, "viewer", "serve", "listen on "+srv.Addr)
	}
	logger.Info("Viewer listening", "address", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.WrapFatal(err, "viewer", "serve", "serve HTTP")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Viewer shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.WrapTransient(err, "viewer", "serve", "shutdown HTTP server")
		}
		return nil
	})
	return g.Wait()
}
