// Package config loads and validates coderoomd's runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/coderoom/engine/internal/bytesize"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the coderoomd configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (CODEROOM_*) (highest priority)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// No command-line flag is bound into Config.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing and profiling
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Gateway configures the HTTP/WebSocket session gateway
	Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`

	// Database configures the room store backend (memory, sqlite, postgres)
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Rooms contains room lifecycle and synchronization defaults
	Rooms RoomConfig `mapstructure:"rooms" yaml:"rooms"`

	// ShutdownTimeout is validated and defaulted but not read; the gateway
	// server bounds its graceful shutdown at a fixed 5 seconds.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// GatewayConfig configures the HTTP/WebSocket session gateway (C8).
type GatewayConfig struct {
	// Host is the address the gateway listens on
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the HTTP port for /health, /metrics and /ws
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// ReadTimeout bounds the time allowed to read an inbound request
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds the time allowed to write a response
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// MaxMessageSize bounds a single inbound WebSocket text message
	MaxMessageSize bytesize.ByteSize `mapstructure:"max_message_size" yaml:"max_message_size"`
}

// DatabaseConfig configures the room store (C1) backend.
type DatabaseConfig struct {
	// Type selects the store implementation: memory, sqlite, or postgres
	Type string `mapstructure:"type" validate:"required,oneof=memory sqlite postgres" yaml:"type"`

	// Path is the SQLite database file path (used when Type is sqlite)
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// Host is the PostgreSQL host (used when Type is postgres)
	Host string `mapstructure:"host" yaml:"host,omitempty"`

	// Port is the PostgreSQL port (used when Type is postgres)
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port,omitempty"`

	// User is the PostgreSQL user (used when Type is postgres)
	User string `mapstructure:"user" yaml:"user,omitempty"`

	// Password is the PostgreSQL password (used when Type is postgres)
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	// Name is the PostgreSQL database name (used when Type is postgres)
	Name string `mapstructure:"name" yaml:"name,omitempty"`

	// SSLMode is the PostgreSQL SSL mode (used when Type is postgres)
	SSLMode string `mapstructure:"ssl_mode" yaml:"ssl_mode,omitempty"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is registered
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the HTTP path the metrics handler is mounted on
	Path string `mapstructure:"path" yaml:"path"`
}

// RoomConfig contains defaults for room lifecycle and synchronization.
type RoomConfig struct {
	// DefaultTTL is how long an idle room is retained before the reaper removes it
	DefaultTTL time.Duration `mapstructure:"default_ttl" validate:"required,gt=0" yaml:"default_ttl"`

	// ReapInterval is how often the background reaper sweeps for expired rooms
	ReapInterval time.Duration `mapstructure:"reap_interval" validate:"required,gt=0" yaml:"reap_interval"`

	// SyncTokenTTL is the auto-renewing suppression window held by the sync arbiter
	SyncTokenTTL time.Duration `mapstructure:"sync_token_ttl" validate:"required,gt=0" yaml:"sync_token_ttl"`

	// WatcherPollInterval is the fsnotify debounce flush interval
	WatcherPollInterval time.Duration `mapstructure:"watcher_poll_interval" validate:"required,gt=0" yaml:"watcher_poll_interval"`

	// WatcherStabilityWindow is how long a path must be quiet before a change is reported
	WatcherStabilityWindow time.Duration `mapstructure:"watcher_stability_window" validate:"required,gt=0" yaml:"watcher_stability_window"`

	// MaxMembers bounds the number of concurrent members per room
	MaxMembers int `mapstructure:"max_members" validate:"required,gt=0" yaml:"max_members"`

	// MaxFileSize bounds the size of a single file tracked in the file tree
	MaxFileSize bytesize.ByteSize `mapstructure:"max_file_size" yaml:"max_file_size"`

	// WorkDirRoot is the parent directory under which per-room working directories are created
	WorkDirRoot string `mapstructure:"workdir_root" yaml:"workdir_root,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when no config file exists.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  coderoomd init\n\n"+
				"Or specify a custom config file:\n"+
				"  coderoomd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  coderoomd init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks a Config against its struct tags using go-playground/validator.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// SaveConfig saves the configuration to the specified file path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("CODEROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize so config
// files can use human-readable sizes like "1Gi", "500Mi", "100MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings and numbers to time.Duration so config files
// can use human-readable durations like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "coderoomd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "coderoomd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
