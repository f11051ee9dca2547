package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/c360/livebridge/errors"
	"github.com/c360/livebridge/natsclient"
	"github.com/c360/livebridge/provider"
	"github.com/c360/livebridge/registry"
)

// EnvPrefix prefixes every environment override, e.g. LIVEBRIDGE_NATS_URLS.
const EnvPrefix = "LIVEBRIDGE_"

// EnvConfigPath names the variable holding a config file path.
const EnvConfigPath = EnvPrefix + "CONFIG"

// Config represents the complete bridge configuration.
type Config struct {
	Provider string        `json:"provider,omitempty" yaml:"provider" env:"PROVIDER"`
	NATS     NATSConfig    `json:"nats" yaml:"nats" envPrefix:"NATS_"`
	Bridge   BridgeConfig  `json:"bridge" yaml:"bridge" envPrefix:"BRIDGE_"`
	Metrics  MetricsConfig `json:"metrics" yaml:"metrics" envPrefix:"METRICS_"`
	Log      LogConfig     `json:"log" yaml:"log" envPrefix:"LOG_"`
	Viewer   ViewerConfig  `json:"viewer" yaml:"viewer" envPrefix:"VIEWER_"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty" yaml:"urls" env:"URLS" envSeparator:","`
	Name          string        `json:"name,omitempty" yaml:"name" env:"NAME"`
	CredsFile     string        `json:"creds_file,omitempty" yaml:"creds_file" env:"CREDS_FILE"`
	Username      string        `json:"username,omitempty" yaml:"username" env:"USERNAME"`
	Password      string        `json:"password,omitempty" yaml:"password" env:"PASSWORD"`
	Token         string        `json:"token,omitempty" yaml:"token" env:"TOKEN"`
	MaxReconnects int           `json:"max_reconnects,omitempty" yaml:"max_reconnects" env:"MAX_RECONNECTS"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty" yaml:"reconnect_wait" env:"RECONNECT_WAIT"`
	Timeout       time.Duration `json:"timeout,omitempty" yaml:"timeout" env:"TIMEOUT"`
	SubjectPrefix string        `json:"subject_prefix,omitempty" yaml:"subject_prefix" env:"SUBJECT_PREFIX"`
	StaticBucket  string        `json:"static_bucket,omitempty" yaml:"static_bucket" env:"STATIC_BUCKET"`
}

// BridgeConfig tunes the subject registry.
type BridgeConfig struct {
	LogEvery            int           `json:"log_every,omitempty" yaml:"log_every" env:"LOG_EVERY"`
	SourceRetryInterval time.Duration `json:"source_retry_interval,omitempty" yaml:"source_retry_interval" env:"SOURCE_RETRY_INTERVAL"`
	SourceTimeout       time.Duration `json:"source_timeout,omitempty" yaml:"source_timeout" env:"SOURCE_TIMEOUT"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" env:"ENABLED"`
	Port    int    `json:"port,omitempty" yaml:"port" env:"PORT"`
	Path    string `json:"path,omitempty" yaml:"path" env:"PATH"`
}

// LogConfig selects level, format and an optional file sink.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level" env:"LEVEL"`
	Format string `json:"format,omitempty" yaml:"format" env:"FORMAT"`
	File   string `json:"file,omitempty" yaml:"file" env:"FILE"`
}

// ViewerConfig is read by livebridge-viewer only.
type ViewerConfig struct {
	Listen string `json:"listen,omitempty" yaml:"listen" env:"LISTEN"`
	WSPath string `json:"ws_path,omitempty" yaml:"ws_path" env:"WS_PATH"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			Name:          "livebridge",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			Timeout:       5 * time.Second,
			SubjectPrefix: provider.DefaultPrefix,
			StaticBucket:  provider.DefaultStaticBucket,
		},
		Bridge: BridgeConfig{
			LogEvery:            registry.DefaultLogEvery,
			SourceRetryInterval: registry.DefaultSourceRetryInterval,
			SourceTimeout:       registry.DefaultSourceTimeout,
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Viewer: ViewerConfig{
			Listen: ":8080",
			WSPath: "/ws",
		},
	}
}

// Validate checks if the config is valid. Level and format are normalized to
// lower case.
func (c *Config) Validate() error {
	if len(c.NATS.URLs) == 0 {
		return fmt.Errorf("nats.urls: %w", errors.ErrMissingConfig)
	}
	for _, u := range c.NATS.URLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("nats.urls contains an empty entry: %w", errors.ErrInvalidConfig)
		}
	}
	if !isValidNATSSubjectPrefix(c.NATS.SubjectPrefix) {
		return fmt.Errorf("nats.subject_prefix %q is not a valid subject prefix: %w",
			c.NATS.SubjectPrefix, errors.ErrInvalidConfig)
	}
	if c.NATS.StaticBucket != "" && !isValidBucketName(c.NATS.StaticBucket) {
		return fmt.Errorf("nats.static_bucket %q is not a valid bucket name: %w",
			c.NATS.StaticBucket, errors.ErrInvalidConfig)
	}
	if c.NATS.Timeout < 0 || c.NATS.ReconnectWait < 0 {
		return fmt.Errorf("nats timeouts must not be negative: %w", errors.ErrInvalidConfig)
	}

	if c.Bridge.LogEvery < 1 {
		return fmt.Errorf("bridge.log_every must be at least 1, got %d: %w", c.Bridge.LogEvery, errors.ErrInvalidConfig)
	}
	if c.Bridge.SourceRetryInterval <= 0 {
		return fmt.Errorf("bridge.source_retry_interval must be positive: %w", errors.ErrInvalidConfig)
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port %d out of range: %w", c.Metrics.Port, errors.ErrInvalidConfig)
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q must be json or text: %w", c.Log.Format, errors.ErrInvalidConfig)
	}

	return nil
}

// ParseLevel maps a level name to slog. An empty name is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", level, errors.ErrInvalidConfig)
	}
}

// isValidNATSSubjectPrefix accepts dot separated tokens of alphanumerics,
// dashes and underscores.
func isValidNATSSubjectPrefix(s string) bool {
	if s == "" {
		return false
	}
	for _, tok := range strings.Split(s, ".") {
		if tok == "" {
			return false
		}
		for _, r := range tok {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
				return false
			}
		}
	}
	return true
}

func isValidBucketName(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// ServerURL joins the configured servers the way nats.Connect expects.
func (c *Config) ServerURL() string {
	return strings.Join(c.NATS.URLs, ",")
}

// ClientOptions translates the NATS section into client options.
func (c *Config) ClientOptions(logger *slog.Logger) []natsclient.ClientOption {
	opts := []natsclient.ClientOption{
		natsclient.WithMaxReconnects(c.NATS.MaxReconnects),
	}
	if c.NATS.Name != "" {
		opts = append(opts, natsclient.WithName(c.NATS.Name))
	}
	if c.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(c.NATS.ReconnectWait))
	}
	if c.NATS.Timeout > 0 {
		opts = append(opts, natsclient.WithTimeout(c.NATS.Timeout))
	}
	switch {
	case c.NATS.CredsFile != "":
		opts = append(opts, natsclient.WithCredsFile(c.NATS.CredsFile))
	case c.NATS.Token != "":
		opts = append(opts, natsclient.WithToken(c.NATS.Token))
	case c.NATS.Username != "":
		opts = append(opts, natsclient.WithCredentials(c.NATS.Username, c.NATS.Password))
	}
	if logger != nil {
		opts = append(opts, natsclient.WithSlog(logger))
	}
	return opts
}

// String returns a JSON representation with secrets masked.
func (c *Config) String() string {
	masked := *c
	masked.NATS.URLs = append([]string(nil), c.NATS.URLs...)
	if masked.NATS.Password != "" {
		masked.NATS.Password = "****"
	}
	if masked.NATS.Token != "" {
		masked.NATS.Token = "****"
	}
	data, _ := json.Marshal(masked)
	return string(data)
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Defaults()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	copied := *sc.config
	copied.NATS.URLs = append([]string(nil), sc.config.NATS.URLs...)
	return &copied
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil: %w", errors.ErrMissingConfig)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
