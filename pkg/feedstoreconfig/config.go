// Package feedstoreconfig loads and validates the static configuration for
// a feedstore server: storage backend selection, trie backend selection,
// logging, telemetry, metrics, and the HTTP introspection API.
package feedstoreconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/feedstore/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the feedstore server configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (FEEDSTORE_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Storage selects and configures the feed log's underlying byte storage
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Trie selects and configures the feed descriptor metadata store
	Trie TrieConfig `mapstructure:"trie" yaml:"trie"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// HTTPAPI contains the introspection API server configuration
	HTTPAPI HTTPAPIConfig `mapstructure:"http_api" yaml:"http_api"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
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

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// HTTPAPIConfig configures the feedstore introspection REST API.
type HTTPAPIConfig struct {
	// Enabled controls whether the HTTP API server starts
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP API listen port
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout bounds how long reading a request may take
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds how long writing a response may take
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// Auth configures optional JWT bearer authentication for mutating endpoints
	Auth HTTPAuthConfig `mapstructure:"auth" yaml:"auth"`
}

// HTTPAuthConfig configures JWT bearer authentication for the HTTP API.
type HTTPAuthConfig struct {
	// Enabled controls whether bearer tokens are required
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Secret is the HMAC signing secret for access/refresh tokens
	Secret string `mapstructure:"secret" yaml:"secret,omitempty"`

	// AccessTokenDuration is the validity window of an access token
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" yaml:"access_token_duration"`

	// RefreshTokenDuration is the validity window of a refresh token
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" yaml:"refresh_token_duration"`
}

// StorageConfig selects and configures the feed log's byte storage backend.
type StorageConfig struct {
	// Backend selects the storage implementation: memory, file, s3
	Backend string `mapstructure:"backend" validate:"required,oneof=memory file s3" yaml:"backend"`

	// Path is the base directory used by the file backend
	Path string `mapstructure:"path" validate:"required_if=Backend file" yaml:"path,omitempty"`

	// S3 configures the S3 backend; only read when Backend is "s3"
	S3 S3StorageConfig `mapstructure:"s3" yaml:"s3,omitempty"`
}

// S3StorageConfig configures the S3-backed storage factory. Bucket is
// required when StorageConfig.Backend is "s3"; this is checked in Validate
// since go-playground/validator cannot reference a parent struct's field.
type S3StorageConfig struct {
	Bucket   string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	Region   string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// TrieConfig selects and configures the feed descriptor metadata store.
type TrieConfig struct {
	// Backend selects the trie implementation: memory, badger, sql
	Backend string `mapstructure:"backend" validate:"required,oneof=memory badger sql" yaml:"backend"`

	// BadgerPath is the data directory used by the badger backend
	BadgerPath string `mapstructure:"badger_path" validate:"required_if=Backend badger" yaml:"badger_path,omitempty"`

	// SQL configures the sql backend; only read when Backend is "sql"
	SQL SQLTrieConfig `mapstructure:"sql" yaml:"sql,omitempty"`
}

// SQLTrieConfig configures the SQL-backed trie. Dialect and DSN are required
// when TrieConfig.Backend is "sql"; this is checked in Validate since
// go-playground/validator cannot reference a parent struct's field.
type SQLTrieConfig struct {
	// Dialect selects the SQL dialect: postgres or sqlite
	Dialect string `mapstructure:"dialect" validate:"omitempty,oneof=postgres sqlite" yaml:"dialect,omitempty"`

	// DSN is the database connection string or sqlite file path
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`

	// MaxOpenConns bounds the connection pool size
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FEEDSTORE_*)
//  2. Configuration file
//  3. Default values
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

// MustLoad loads configuration with helpful error messages when the file is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  feedstore config init\n\n"+
				"Or specify a custom config file:\n"+
				"  feedstore <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  feedstore config init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
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
	v.SetEnvPrefix("FEEDSTORE")
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

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize,
// so config files can use human-readable sizes like "1Gi" or "500MB".
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

// durationDecodeHook converts strings to time.Duration, so config files can
// use human-readable durations like "30s" or "5m".
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
		return filepath.Join(xdgConfig, "feedstore")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "feedstore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the init command).
func GetConfigDir() string {
	return getConfigDir()
}
