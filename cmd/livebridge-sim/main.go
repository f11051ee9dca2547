// Command livebridge-sim publishes a simulated vehicle fleet through the
// bridge, the same path a host simulation takes through the native library.
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
	"golang.org/x/time/rate"

	"github.com/c360/livebridge/bridge"
	"github.com/c360/livebridge/config"
	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/provider"
)

// Build information
const (
	Version = "0.1.0"
	appName = "livebridge-sim"
)

type options struct {
	configPath string
	provider   string
	entities   int
	rate       float64
	duration   time.Duration
	dryRun     bool
	logLevel   string
	keep       bool
}

func defaultOptions() *options {
	return &options{
		entities: 8,
		rate:     30,
	}
}

func (o *options) addFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", o.configPath, "Path to a JSON or YAML config file (default: $"+config.EnvConfigPath+")")
	fs.StringVarP(&o.provider, "provider", "p", o.provider, "Provider name, overrides the config")
	fs.IntVarP(&o.entities, "entities", "n", o.entities, "Number of simulated vehicles")
	fs.Float64VarP(&o.rate, "rate", "r", o.rate, "Frames per second")
	fs.DurationVarP(&o.duration, "duration", "d", o.duration, "Stop after this long, 0 runs until interrupted")
	fs.BoolVar(&o.dryRun, "dry-run", o.dryRun, "Record events in memory instead of publishing to NATS")
	fs.StringVar(&o.logLevel, "log-level", o.logLevel, "Log level, overrides the config (debug, info, warn, error)")
	fs.BoolVar(&o.keep, "keep", o.keep, "Leave subjects registered on exit instead of removing them")
}

func (o *options) validate() error {
	if o.entities < 1 {
		return errors.WrapInvalid(fmt.Errorf("entities must be at least 1, got %d", o.entities), "options", "validate", "check entities")
	}
	if o.rate <= 0 || o.rate > 1000 {
		return errors.WrapInvalid(fmt.Errorf("rate must be in (0, 1000], got %g", o.rate), "options", "validate", "check rate")
	}
	if o.duration < 0 {
		return errors.WrapInvalid(fmt.Errorf("negative duration %s", o.duration), "options", "validate", "check duration")
	}
	return nil
}

func newCommand() *cobra.Command {
	o := defaultOptions()
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Publish a simulated fleet through livebridge",
		Long: `livebridge-sim registers a fleet of vehicles driving around concentric
circles plus a "Fleet" data subject, and publishes their poses through the
same registry and call surface the native library uses.

Use --dry-run to exercise the bridge without a NATS server.`,
		Version: Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.validate(); err != nil {
				return err
			}
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

	if o.provider != "" {
		cfg.Provider = o.provider
	}
	if cfg.Provider == "" {
		cfg.Provider = appName
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.dryRun {
		cfg.Metrics.Enabled = false
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, o *options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	var recorder *provider.RecorderFactory
	opts := []bridge.Option{bridge.WithServiceName(appName)}
	if o.dryRun {
		recorder = provider.NewRecorderFactory()
		opts = append(opts, bridge.WithFactory(recorder))
	}

	rt, err := bridge.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			rt.Logger.Warn("Shutdown incomplete", "error", err)
		}
	}()

	rt.Logger.Info("Starting simulation",
		"version", Version,
		"provider", cfg.Provider,
		"entities", o.entities,
		"rate", o.rate,
		"duration", o.duration,
		"dry_run", o.dryRun)

	res, err := simulate(ctx, rt, cfg.Provider, o)
	if err != nil {
		return err
	}

	attrs := []any{"ticks", res.ticks, "updated", res.updated, "failed", res.failed}
	if recorder != nil {
		if rec := recorder.Last(); rec != nil {
			attrs = append(attrs,
				"static_events", rec.Count(provider.EventStatic),
				"frame_events", rec.Count(provider.EventFrame),
				"removed_events", rec.Count(provider.EventRemoved))
		}
	}
	rt.Logger.Info("Simulation finished", attrs...)
	return nil
}

type result struct {
	ticks   int
	updated int
	failed  int
}

// simulate runs the fleet until ctx is done or o.duration has passed.
func simulate(ctx context.Context, rt *bridge.Runtime, providerName string, o *options) (result, error) {
	var res result
	logger := rt.Logger.With("component", "sim")

	if code := rt.Surface.Initialize(&providerName); code.Err() != nil {
		return res, errors.Wrap(code.Err(), "sim", "run", "initialize bridge")
	}
	defer rt.Surface.Shutdown()

	sim := NewSimulation(rt.Surface, o.entities)
	if err := sim.Register(); err != nil {
		// not fatal: frames auto-register once a source comes up
		logger.Warn("Registration incomplete", "error", err)
	}

	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	// burst 1: no catch-up frames after a slow step
	limiter := rate.NewLimiter(rate.Limit(o.rate), 1)
	const reportEvery = 5 * time.Second

	start := time.Now()
	lastReport := start
	for {
		if err := limiter.Wait(ctx); err != nil {
			// ctx is done, or its deadline falls before the next frame
			break
		}
		now := time.Now()
		st, err := sim.Step(res.ticks, now.Sub(start))
		res.ticks++
		res.updated += st.Updated
		res.failed += st.Failed
		if err != nil {
			return res, err
		}
		if st.Failed > 0 {
			logger.Debug("Frame not published", "tick", res.ticks, "failed", st.Failed)
		}
		if now.Sub(lastReport) >= reportEvery {
			lastReport = now
			logger.Info("Progress",
				"ticks", res.ticks,
				"updated", res.updated,
				"failed", res.failed,
				"connected", rt.Surface.IsConnected().String())
		}
	}

	if !o.keep {
		if err := sim.Remove(); err != nil {
			logger.Warn("Removal incomplete", "error", err)
		}
	}
	return res, nil
}
