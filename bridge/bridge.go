// Package bridge is the process composition root. It turns a config.Config
// into one registry, one call surface and the supporting NATS client,
// metrics server and health monitor, and tears them down in reverse order.
//
// The native library builds exactly one Runtime per process; the simulator
// CLI builds one per run.
package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/c360/livebridge/config"
	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/ffi"
	"github.com/c360/livebridge/health"
	"github.com/c360/livebridge/metric"
	"github.com/c360/livebridge/natsclient"
	"github.com/c360/livebridge/pkg/intern"
	"github.com/c360/livebridge/provider"
	"github.com/c360/livebridge/registry"
)

// ServiceName labels logs and metrics when no other name is given.
const ServiceName = "livebridge"

// Runtime owns every long-lived object of a bridge process.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Metrics  *metric.MetricsRegistry
	Client   *natsclient.Client
	Registry *registry.Registry
	Surface  *ffi.Surface

	server   *metric.Server
	monitor  *health.Monitor
	closeLog func() error
	natsErr  atomic.Pointer[error]
	closed   atomic.Bool
}

type options struct {
	service   string
	logWriter io.Writer
	logger    *slog.Logger
	factory   provider.Factory
	hook      func(registry.Event)
}

// Option configures New.
type Option func(*options)

// WithServiceName sets the "service" log attribute and the metrics service
// label.
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.service = name
		}
	}
}

// WithLogWriter sends log output to w instead of stderr. Ignored when
// log.file is configured.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.logWriter = w
		}
	}
}

// WithLogger uses logger as is and skips building one from config.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithFactory replaces the NATS source factory. No NATS client is created,
// which is how dry runs and tests avoid a server.
func WithFactory(f provider.Factory) Option {
	return func(o *options) { o.factory = f }
}

// WithEventHook forwards registry lifecycle events.
func WithEventHook(fn func(registry.Event)) Option {
	return func(o *options) { o.hook = fn }
}

// New builds a Runtime from cfg and starts the metrics server when enabled.
// Nothing connects to NATS here; the registry does that lazily on the first
// call that needs a source.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Runtime", "New", "check config")
	}
	o := &options{service: ServiceName, logWriter: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	rt := &Runtime{
		Config:   cfg,
		Metrics:  metric.NewMetricsRegistry(),
		closeLog: func() error { return nil },
	}

	if o.logger != nil {
		rt.Logger = o.logger
	} else {
		logger, closeLog, err := cfg.Log.NewLogger(o.service, o.logWriter)
		if err != nil {
			return nil, errors.Wrap(err, "Runtime", "New", "build logger")
		}
		rt.Logger = logger
		rt.closeLog = closeLog
	}

	bridgeMetrics, err := metric.NewBridgeMetrics(rt.Metrics, o.service)
	if err != nil {
		rt.cleanup()
		return nil, errors.Wrap(err, "Runtime", "New", "register bridge metrics")
	}
	names, err := intern.New(intern.WithMetrics(rt.Metrics, o.service))
	if err != nil {
		rt.cleanup()
		return nil, errors.Wrap(err, "Runtime", "New", "build name cache")
	}

	factory := o.factory
	if factory == nil {
		clientOpts := append(cfg.ClientOptions(rt.Logger),
			natsclient.WithMetrics(rt.Metrics),
			natsclient.WithDisconnectCallback(rt.recordDisconnect),
		)
		rt.Client, err = natsclient.NewClient(cfg.ServerURL(), clientOpts...)
		if err != nil {
			rt.cleanup()
			return nil, errors.Wrap(err, "Runtime", "New", "create NATS client")
		}
		factory = provider.NewNATSFactory(rt.Client,
			provider.WithPrefix(cfg.NATS.SubjectPrefix),
			provider.WithStaticBucket(cfg.NATS.StaticBucket),
			provider.WithLogger(rt.Logger),
		)
	}

	regOpts := []registry.Option{
		registry.WithLogger(rt.Logger),
		registry.WithFactory(factory),
		registry.WithMetrics(bridgeMetrics),
		registry.WithNameTable(names),
		registry.WithLogEvery(cfg.Bridge.LogEvery),
		registry.WithSourceRetryInterval(cfg.Bridge.SourceRetryInterval),
		registry.WithSourceTimeout(cfg.Bridge.SourceTimeout),
	}
	if o.hook != nil {
		regOpts = append(regOpts, registry.WithEventHook(o.hook))
	}
	rt.Registry = registry.New(regOpts...)
	rt.Surface = ffi.New(rt.Registry,
		ffi.WithLogger(rt.Logger),
		ffi.WithLogEvery(cfg.Bridge.LogEvery),
	)

	rt.monitor = health.NewMonitor(o.service).WatchBridge("registry", rt.Registry)
	if rt.Client != nil {
		rt.monitor.WatchNATS("nats", rt.Client, rt.lastNATSError)
	}

	if cfg.Metrics.Enabled {
		rt.server = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, rt.Metrics,
			metric.WithHealthHandler(health.Handler(rt.monitor.Check)))
		if err := rt.server.Start(); err != nil {
			rt.cleanup()
			return nil, errors.Wrap(err, "Runtime", "New", "start metrics server")
		}
		rt.Logger.Info("Metrics server started", "address", rt.server.Address())
	}

	rt.Logger.Debug("Runtime ready", "config", cfg.String())
	return rt, nil
}

func (rt *Runtime) recordDisconnect(err error) {
	if err != nil {
		rt.natsErr.Store(&err)
	}
}

func (rt *Runtime) lastNATSError() error {
	if p := rt.natsErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Health polls every component and returns the aggregate status.
func (rt *Runtime) Health() health.Status {
	return rt.monitor.Check()
}

// MetricsAddress returns the metrics URL, or "" when the server is disabled.
func (rt *Runtime) MetricsAddress() string {
	if rt.server == nil {
		return ""
	}
	return rt.server.Address()
}

// Close shuts the registry down, then stops the metrics server, then closes
// the NATS client and the log file. Calling it again is a no-op.
func (rt *Runtime) Close(ctx context.Context) error {
	if !rt.closed.CompareAndSwap(false, true) {
		return nil
	}
	rt.Registry.Shutdown()
	rt.Logger.Info("Runtime stopped", "rejected_calls", rt.Surface.Rejected(), "recovered_panics", rt.Surface.Panics())

	var errs []error
	if rt.server != nil {
		if err := rt.server.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.Client != nil {
		if err := rt.Client.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close NATS client: %w", err))
		}
	}
	if err := rt.closeLog(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// cleanup releases what New acquired before failing.
func (rt *Runtime) cleanup() {
	if rt.server != nil {
		_ = rt.server.Stop()
	}
	_ = rt.closeLog()
}
