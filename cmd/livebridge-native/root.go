package main

import (
	"log/slog"
	"os"
	"sync"

	"github.com/c360/livebridge/bridge"
	"github.com/c360/livebridge/config"
	"github.com/c360/livebridge/ffi"
)

// root is built on the first exported call and lives until the host
// process exits. LB_Shutdown only returns the registry to NotInitialized.
var root = sync.OnceValue(func() *bridge.Runtime {
	return buildRuntime(loadConfig())
})

// loadConfig never fails: a broken config file is reported on stderr and the
// defaults are used, so the host process keeps running.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Config load failed, using defaults", "error", err)
		return config.Defaults()
	}
	return cfg
}

func buildRuntime(cfg *config.Config) *bridge.Runtime {
	rt, err := bridge.New(cfg, bridge.WithServiceName("livebridge-native"), bridge.WithLogWriter(os.Stderr))
	if err == nil {
		return rt
	}
	slog.Error("Bridge runtime failed to start", "error", err)

	if !cfg.Metrics.Enabled {
		return nil
	}
	// the metrics port is the usual culprit inside a host process
	cfg.Metrics.Enabled = false
	rt, err = bridge.New(cfg, bridge.WithServiceName("livebridge-native"), bridge.WithLogWriter(os.Stderr))
	if err != nil {
		slog.Error("Bridge runtime failed to start without metrics", "error", err)
		return nil
	}
	rt.Logger.Warn("Running without metrics server")
	return rt
}

// surface returns nil when the runtime could not be built.
func surface() *ffi.Surface {
	rt := root()
	if rt == nil {
		return nil
	}
	return rt.Surface
}

// copyNames builds a name list from n entries. An absent array is nil, a
// present one with no entries is empty, so the surface can tell "no names"
// from "zero names".
func copyNames(present bool, n int, at func(int) *string) []*string {
	if !present {
		return nil
	}
	out := make([]*string, n)
	for i := range n {
		out[i] = at(i)
	}
	return out
}
