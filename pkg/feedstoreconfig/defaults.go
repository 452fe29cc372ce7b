package feedstoreconfig

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyHTTPAPIDefaults(&cfg.HTTPAPI)
	applyStorageDefaults(&cfg.Storage)
	applyTrieDefaults(&cfg.Trie)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
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

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyHTTPAPIDefaults sets HTTP API server defaults.
func applyHTTPAPIDefaults(cfg *HTTPAPIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Auth.Enabled {
		if cfg.Auth.AccessTokenDuration == 0 {
			cfg.Auth.AccessTokenDuration = 15 * time.Minute
		}
		if cfg.Auth.RefreshTokenDuration == 0 {
			cfg.Auth.RefreshTokenDuration = 7 * 24 * time.Hour
		}
	}
}

// applyStorageDefaults sets storage backend defaults.
func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	if cfg.Backend == "file" && cfg.Path == "" {
		cfg.Path = "/tmp/feedstore-data"
	}
	if cfg.Backend == "s3" && cfg.S3.Prefix == "" {
		cfg.S3.Prefix = "feeds/"
	}
}

// applyTrieDefaults sets metadata trie backend defaults.
func applyTrieDefaults(cfg *TrieConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	if cfg.Backend == "badger" && cfg.BadgerPath == "" {
		cfg.BadgerPath = "/tmp/feedstore-trie"
	}
	if cfg.Backend == "sql" {
		if cfg.SQL.Dialect == "" {
			cfg.SQL.Dialect = "sqlite"
		}
		if cfg.SQL.MaxOpenConns == 0 {
			cfg.SQL.MaxOpenConns = 10
		}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied,
// suitable for running against in-memory storage and trie backends without
// any external dependencies.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Storage: StorageConfig{Backend: "memory"},
		Trie:    TrieConfig{Backend: "memory"},
	}

	ApplyDefaults(cfg)
	return cfg
}
