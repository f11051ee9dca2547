// Package config loads bridge configuration.
//
// Load order is defaults, then each file layer in order, then LIVEBRIDGE_*
// environment variables, then Validate. Files are JSON or YAML by extension
// and only keys present in a layer override lower layers. Durations may be
// written as strings ("5s", "250ms").
//
//	loader := config.NewLoader()
//	loader.AddLayer("/etc/livebridge/base.yaml")
//	loader.AddLayer("/etc/livebridge/plant3.json")
//	cfg, err := loader.Load()
//
// The native library has no command line, so it calls Load, which reads the
// file named by LIVEBRIDGE_CONFIG when set.
//
// Environment names follow the file keys: nats.urls is LIVEBRIDGE_NATS_URLS
// (comma separated), bridge.source_retry_interval is
// LIVEBRIDGE_BRIDGE_SOURCE_RETRY_INTERVAL.
//
// Config files are size and depth limited, and relative paths may not
// resolve outside the working directory.
package config
