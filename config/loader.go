package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/c360/livebridge/errors"
)

type format int

const (
	formatJSON format = iota
	formatYAML
)

// Limits on config layers.
const (
	maxConfigSize = 1 << 20
	maxJSONDepth  = 32
	maxPathLen    = 4096
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	default:
		return 0, fmt.Errorf("unsupported config file %s, want .json, .yaml or .yml: %w", path, errors.ErrInvalidConfig)
	}
}

// checkLayerPath rejects paths a layer may not be read from. Relative paths
// must stay under the working directory.
func checkLayerPath(path string) error {
	switch {
	case path == "":
		return fmt.Errorf("empty config path: %w", errors.ErrInvalidConfig)
	case len(path) > maxPathLen:
		return fmt.Errorf("config path longer than %d bytes: %w", maxPathLen, errors.ErrInvalidConfig)
	case strings.ContainsRune(path, 0):
		return fmt.Errorf("null byte in config path: %w", errors.ErrInvalidConfig)
	}
	if !filepath.IsAbs(path) && !filepath.IsLocal(path) {
		return fmt.Errorf("config path %s leaves the working directory: %w", path, errors.ErrInvalidConfig)
	}
	return nil
}

// readLayer reads one layer file after path, type and size checks.
func readLayer(path string) ([]byte, format, error) {
	if err := checkLayerPath(path); err != nil {
		return nil, 0, err
	}
	f, err := formatOf(path)
	if err != nil {
		return nil, 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("config %s is not a regular file: %w", path, errors.ErrInvalidConfig)
	}
	if info.Size() > maxConfigSize {
		return nil, 0, fmt.Errorf("config %s is %d bytes, limit %d: %w", path, info.Size(), maxConfigSize, errors.ErrInvalidConfig)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	return data, f, nil
}

// checkJSONDepth walks the token stream so a deeply nested document fails
// before it is decoded into a map.
func checkJSONDepth(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if depth != 0 {
				return fmt.Errorf("JSON ends inside a value: %w", errors.ErrInvalidConfig)
			}
			return nil
		}
		if err != nil {
			return err
		}
		d, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		switch d {
		case '{', '[':
			if depth++; depth > maxJSONDepth {
				return fmt.Errorf("JSON nested deeper than %d: %w", maxJSONDepth, errors.ErrInvalidConfig)
			}
		default:
			depth--
		}
	}
}

// durationKeys are the section.field paths parsed from strings like "5s".
var durationKeys = [][2]string{
	{"nats", "reconnect_wait"},
	{"nats", "timeout"},
	{"bridge", "source_retry_interval"},
	{"bridge", "source_timeout"},
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validate   bool
	envEnabled bool
	environ    map[string]string
}

// NewLoader creates a loader with validation and environment overrides on.
func NewLoader() *Loader {
	return &Loader{validate: true, envEnabled: true}
}

// AddLayer adds a configuration file layer. Later layers win.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validate = enable
}

// EnableEnv enables or disables LIVEBRIDGE_* overrides.
func (l *Loader) EnableEnv(enable bool) {
	l.envEnabled = enable
}

// WithEnvironment replaces the process environment for overrides.
func (l *Loader) WithEnvironment(environ map[string]string) *Loader {
	l.environ = environ
	return l
}

// LoadFile loads configuration from a single file over the defaults.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, every layer and the environment, then validates.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Defaults())
	if err != nil {
		return nil, err
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "read "+filepath.Base(path))
		}
		merged = deepMergeMaps(merged, raw)
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "merge layers")
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "decode config")
	}

	if l.envEnabled {
		opts := env.Options{Prefix: EnvPrefix, Environment: l.environ}
		if err := env.ParseWithOptions(cfg, opts); err != nil {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err), "Loader", "Load", "apply environment")
		}
	}

	if l.validate {
		if err := cfg.Validate(); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "validate")
		}
	}
	return cfg, nil
}

// loadRaw reads one layer as a generic map so absent keys keep lower layers.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, f, err := readLayer(path)
	if err != nil {
		return nil, err
	}

	raw := map[string]any{}
	switch f {
	case formatJSON:
		if err := checkJSONDepth(data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case formatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}

	if err := parseDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// parseDurations converts duration strings to nanoseconds for json unmarshaling
func parseDurations(raw map[string]any) error {
	for _, k := range durationKeys {
		section, ok := raw[k[0]].(map[string]any)
		if !ok {
			continue
		}
		s, ok := section[k[1]].(string)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", k[0], k[1], err)
		}
		section[k[1]] = int64(d)
	}
	return nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if overrideMap, ok := v.(map[string]any); ok {
			if baseMap, ok := result[k].(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// Load reads the file named by LIVEBRIDGE_CONFIG, or only defaults and the
// environment when it is unset.
func Load() (*Config, error) {
	l := NewLoader()
	if path := os.Getenv(EnvConfigPath); path != "" {
		l.AddLayer(path)
	}
	return l.Load()
}
