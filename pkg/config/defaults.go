package config

import (
	"strings"
	"time"

	"github.com/coderoom/engine/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyGatewayDefaults(&cfg.Gateway)
	applyDatabaseDefaults(&cfg.Database)
	applyMetricsDefaults(&cfg.Metrics)
	applyRoomDefaults(&cfg.Rooms)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

// applyGatewayDefaults sets gateway defaults.
func applyGatewayDefaults(cfg *GatewayConfig) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 1 * bytesize.MiB
	}
}

// applyDatabaseDefaults sets room store defaults.
func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Type == "sqlite" && cfg.Path == "" {
		cfg.Path = "coderoom.db"
	}
	if cfg.Type == "postgres" {
		if cfg.Host == "" {
			cfg.Host = "localhost"
		}
		if cfg.Port == 0 {
			cfg.Port = 5432
		}
		if cfg.SSLMode == "" {
			cfg.SSLMode = "disable"
		}
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
}

// applyRoomDefaults sets room lifecycle and synchronization defaults.
func applyRoomDefaults(cfg *RoomConfig) {
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 24 * time.Hour
	}
	if cfg.ReapInterval == 0 {
		cfg.ReapInterval = 5 * time.Minute
	}
	if cfg.SyncTokenTTL == 0 {
		cfg.SyncTokenTTL = 300 * time.Millisecond
	}
	if cfg.WatcherPollInterval == 0 {
		cfg.WatcherPollInterval = 100 * time.Millisecond
	}
	if cfg.WatcherStabilityWindow == 0 {
		cfg.WatcherStabilityWindow = 500 * time.Millisecond
	}
	if cfg.MaxMembers == 0 {
		cfg.MaxMembers = 32
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 5 * bytesize.MiB
	}
	if cfg.WorkDirRoot == "" {
		cfg.WorkDirRoot = "" // empty means os.TempDir()
	}
}

// GetDefaultConfig returns a Config populated entirely with defaults.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
