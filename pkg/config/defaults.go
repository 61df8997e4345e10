package config

import (
	"os/user"
	"strings"
	"time"

	"github.com/marmos91/deskfs/pkg/vfs"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific option defaults are applied for config file generation
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyFilesystemDefaults(&cfg.Filesystem)
	applySweeperDefaults(&cfg.Sweeper)
	applyMetricsDefaults(&cfg.Metrics)
	applyIdentityDefaults(&cfg.Identity)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyStoreDefaults sets store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.SQLite == nil {
		cfg.SQLite = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/deskfs-badger"
	}
	if _, ok := cfg.SQLite["path"]; !ok {
		cfg.SQLite["path"] = "/tmp/deskfs.db"
	}
}

// applyFilesystemDefaults mirrors vfs.DefaultOptions.
func applyFilesystemDefaults(cfg *FilesystemConfig) {
	defaults := vfs.DefaultOptions()

	if cfg.SoftDelete == nil {
		soft := defaults.SoftDelete
		cfg.SoftDelete = &soft
	}
	if cfg.LockTTL == 0 {
		cfg.LockTTL = defaults.LockTTL
	}
	if cfg.MaxVersions == nil {
		maxVersions := defaults.MaxVersions
		cfg.MaxVersions = &maxVersions
	}
	if cfg.RecentLimit == 0 {
		cfg.RecentLimit = defaults.RecentLimit
	}
	if cfg.RootMode == "" {
		cfg.RootMode = defaults.RootMode.String()
	}
}

func applySweeperDefaults(cfg *SweeperConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	// TrashRetention defaults to 0 (keep trash until emptied)
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyIdentityDefaults acts as the current OS user when no username is set.
func applyIdentityDefaults(cfg *IdentityConfig) {
	if cfg.Username == "" {
		cfg.Username = vfs.SystemUser
		if u, err := user.Current(); err == nil && u.Username != "" {
			cfg.Username = u.Username
		}
	}
	if cfg.Role == "" {
		cfg.Role = string(vfs.RoleUser)
	}
	if cfg.Groups == nil {
		cfg.Groups = []string{}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
