package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Empty(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" || cfg.Logging.Format != "text" || cfg.Logging.Output != "stderr" {
		t.Errorf("Unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type memory, got %q", cfg.Store.Type)
	}
	if cfg.Store.Badger["db_path"] != "/tmp/deskfs-badger" {
		t.Errorf("Expected badger db_path default, got %v", cfg.Store.Badger["db_path"])
	}
	if cfg.Store.SQLite["path"] != "/tmp/deskfs.db" {
		t.Errorf("Expected sqlite path default, got %v", cfg.Store.SQLite["path"])
	}
	if cfg.Filesystem.RootMode != "rwxrwxrwx" {
		t.Errorf("Expected root mode rwxrwxrwx, got %q", cfg.Filesystem.RootMode)
	}
	if cfg.Filesystem.RecentLimit != 20 {
		t.Errorf("Expected recent limit 20, got %d", cfg.Filesystem.RecentLimit)
	}
	if cfg.Sweeper.Interval != time.Minute {
		t.Errorf("Expected sweeper interval 1m, got %v", cfg.Sweeper.Interval)
	}
	if cfg.Sweeper.TrashRetention != 0 {
		t.Errorf("Expected trash retention 0, got %v", cfg.Sweeper.TrashRetention)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected metrics port 9090, got %d", cfg.Metrics.Port)
	}
	if cfg.Identity.Username == "" {
		t.Error("Expected a default username")
	}
	if cfg.Identity.Groups == nil {
		t.Error("Expected groups to be initialized")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	soft := false
	zero := 0
	cfg := &Config{
		Logging:    LoggingConfig{Level: "debug", Format: "json", Output: "/var/log/deskfs.log"},
		Store:      StoreConfig{Type: "badger", Badger: map[string]any{"db_path": "/data"}},
		Filesystem: FilesystemConfig{SoftDelete: &soft, MaxVersions: &zero, LockTTL: time.Hour, RootMode: "rwxr-x---"},
		Sweeper:    SweeperConfig{Interval: 10 * time.Second},
		Identity:   IdentityConfig{Username: "bob", Role: "admin"},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "/var/log/deskfs.log" {
		t.Errorf("Expected output to be kept, got %q", cfg.Logging.Output)
	}
	if cfg.Store.Badger["db_path"] != "/data" {
		t.Errorf("Expected db_path to be kept, got %v", cfg.Store.Badger["db_path"])
	}
	if *cfg.Filesystem.SoftDelete {
		t.Error("Expected explicit soft_delete=false to be kept")
	}
	if *cfg.Filesystem.MaxVersions != 0 {
		t.Errorf("Expected explicit max_versions=0 to be kept, got %d", *cfg.Filesystem.MaxVersions)
	}
	if cfg.Filesystem.LockTTL != time.Hour || cfg.Filesystem.RootMode != "rwxr-x---" {
		t.Errorf("Unexpected filesystem config: %+v", cfg.Filesystem)
	}
	if cfg.Sweeper.Interval != 10*time.Second {
		t.Errorf("Expected interval to be kept, got %v", cfg.Sweeper.Interval)
	}
	if cfg.Identity.Username != "bob" || cfg.Identity.Role != "admin" {
		t.Errorf("Unexpected identity: %+v", cfg.Identity)
	}
}

func TestGetDefaultConfig_Validates(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}
