package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete deskfs configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DESKFS_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each backend takes its own options map (store.badger, store.sqlite). Only
// the section matching store.type is decoded, by CreateStore.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains settings for the long-running serve command
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Store selects and configures the persistence engine
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Filesystem holds the file system behavior knobs
	Filesystem FilesystemConfig `mapstructure:"filesystem" yaml:"filesystem"`

	// Sweeper configures periodic lock expiry, trash retention and orphan collection
	Sweeper SweeperConfig `mapstructure:"sweeper" yaml:"sweeper"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Identity is the principal CLI operations run as
	Identity IdentityConfig `mapstructure:"identity" yaml:"identity"`

	// Snapshot configures remote snapshot targets
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains settings for deskfs serve.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`
}

// StoreConfig specifies the persistence engine.
type StoreConfig struct {
	// Type specifies which store implementation to use
	// Valid values: memory, badger, sqlite
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger sqlite"`

	// Badger contains BadgerDB-specific options
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// SQLite contains SQLite-specific options
	// Only used when Type = "sqlite"
	SQLite map[string]any `mapstructure:"sqlite" yaml:"sqlite"`
}

// FilesystemConfig holds vfs.Options that can be configured.
type FilesystemConfig struct {
	// SoftDelete moves deleted entries to the trash (default: true)
	SoftDelete *bool `mapstructure:"soft_delete" yaml:"soft_delete"`

	// LockTTL is how long an exclusive lock lasts (default: 5m)
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl" validate:"gt=0"`

	// MaxVersions caps stored versions per file; 0 is unlimited (default: 50)
	MaxVersions *int `mapstructure:"max_versions" yaml:"max_versions" validate:"required,gte=0"`

	// RecentLimit caps each principal's recent files list (default: 20)
	RecentLimit int `mapstructure:"recent_limit" yaml:"recent_limit" validate:"gt=0"`

	// RootMode is the root folder mode, symbolic or octal (default: rwxrwxrwx)
	RootMode string `mapstructure:"root_mode" yaml:"root_mode" validate:"required"`
}

// SweeperConfig configures the background housekeeping run by deskfs serve.
type SweeperConfig struct {
	// Enabled starts the sweeper with serve (default: false)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Interval is how often the sweeper runs (default: 1m)
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"gt=0"`

	// TrashRetention purges trash older than this; 0 keeps trash forever
	TrashRetention time.Duration `mapstructure:"trash_retention" yaml:"trash_retention" validate:"gte=0"`

	// DryRun reports orphaned rows without deleting them
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns on metric collection and the HTTP endpoint (default: false)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port the metrics server listens on (default: 9090)
	Port int `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
}

// IdentityConfig is the principal CLI commands act as.
type IdentityConfig struct {
	// Username is recorded as owner and author (default: current OS user)
	Username string `mapstructure:"username" yaml:"username" validate:"required"`

	// Role is user or admin (default: user)
	Role string `mapstructure:"role" yaml:"role" validate:"required,oneof=user admin"`

	// Groups lists the principal's group memberships
	Groups []string `mapstructure:"groups" yaml:"groups"`
}

// SnapshotConfig configures snapshot targets.
type SnapshotConfig struct {
	// RateLimit caps snapshot transfer throughput in bytes per second.
	// 0 means unlimited.
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"`

	// S3 configures the S3 target used by snapshot --s3
	S3 S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config configures an S3 or S3-compatible endpoint.
type S3Config struct {
	Region          string `mapstructure:"region" yaml:"region"`
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix" yaml:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=0"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DESKFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys lists the keys bound to environment variables. AutomaticEnv only
// consults the environment for keys viper already knows about, so keys
// absent from the config file are bound explicitly.
var envKeys = []string{
	"logging.level", "logging.format", "logging.output",
	"server.shutdown_timeout",
	"store.type",
	"filesystem.soft_delete", "filesystem.lock_ttl", "filesystem.max_versions",
	"filesystem.recent_limit", "filesystem.root_mode",
	"sweeper.enabled", "sweeper.interval", "sweeper.trash_retention", "sweeper.dry_run",
	"metrics.enabled", "metrics.port",
	"identity.username", "identity.role",
	"snapshot.rate_limit",
	"snapshot.s3.region", "snapshot.s3.bucket", "snapshot.s3.key_prefix", "snapshot.s3.endpoint",
	"snapshot.s3.access_key_id", "snapshot.s3.secret_access_key",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: DESKFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DESKFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/deskfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is reported by the OS, not viper.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "deskfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "deskfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
