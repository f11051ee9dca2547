// Command livebridge-viewer subscribes to every provider's subjects, keeps the
// current state of each one and serves it over HTTP and WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/c360/livebridge/config"
	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/metric"
	"github.com/c360/livebridge/natsclient"
	"github.com/c360/livebridge/viewer"
)

// Build information
const (
	Version = "0.1.0"
	appName = "livebridge-viewer"
)

const shutdownTimeout = 10 * time.Second

type options struct {
	configPath string
	listen     string
	logLevel   string
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", o.configPath, "Path to a JSON or YAML config file (default: $"+config.EnvConfigPath+")")
	fs.StringVarP(&o.listen, "listen", "l", o.listen, "HTTP listen address, overrides viewer.listen")
	fs.StringVar(&o.logLevel, "log-level", o.logLevel, "Log level, overrides the config (debug, info, warn, error)")
}

func newCommand() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Serve the live state of every bridged subject",
		Long: `livebridge-viewer subscribes to all subjects under the configured prefix,
recovers static data for subjects registered before it started from the
JetStream bucket, and serves:

  GET /subjects                         every subject
  GET /subjects/{provider}/{kind}/{name}
  GET /sources                          live source per provider
  GET /health                           JSON health
  GET <metrics.path>                    Prometheus metrics
  <viewer.ws_path>                      WebSocket snapshot then events`,
		Version: Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o)
		},
		SilenceUsage: true,
	}
	o.addFlags(cmd.Flags())
	return cmd
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, debug.Stack())
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(o *options) (*config.Config, error) {
	l := config.NewLoader()
	path := o.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	if path != "" {
		l.AddLayer(path)
	}
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}
	if o.listen != "" {
		cfg.Viewer.Listen = o.listen
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, o *options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	logger, closeLog, err := cfg.Log.NewLogger(appName, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("Starting viewer", "version", Version, "listen", cfg.Viewer.Listen, "nats", cfg.ServerURL())

	reg := metric.NewMetricsRegistry()
	vm, err := viewer.NewMetrics(reg, appName)
	if err != nil {
		return errors.Wrap(err, "viewer", "run", "register metrics")
	}

	var lastErr lastError
	clientOpts := append(cfg.ClientOptions(logger),
		natsclient.WithMetrics(reg),
		natsclient.WithDisconnectCallback(lastErr.set),
	)
	client, err := natsclient.NewClient(cfg.ServerURL(), clientOpts...)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Close(closeCtx); err != nil {
			logger.Warn("NATS close failed", "error", err)
		}
	}()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.NATS.Timeout)
	err = client.Connect(connectCtx)
	cancel()
	if err != nil {
		return errors.Wrap(err, "viewer", "run", "connect to NATS")
	}

	v := viewer.New(client,
		viewer.WithPrefix(cfg.NATS.SubjectPrefix),
		viewer.WithStaticBucket(cfg.NATS.StaticBucket),
		viewer.WithWSPath(cfg.Viewer.WSPath),
		viewer.WithLogger(logger),
		viewer.WithMetrics(vm),
	)
	defer v.Close()

	if err := v.Start(ctx); err != nil {
		return err
	}

	srv := newServer(cfg, v, reg, client, lastErr.get)
	return serve(ctx, srv, logger)
}
