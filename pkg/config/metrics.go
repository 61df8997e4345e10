package config

import (
	"github.com/marmos91/deskfs/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Filesystem is the collector for file system operations (never nil, uses noop if disabled)
	Filesystem metrics.FilesystemMetrics

	// Snapshot is the collector for snapshot runs (never nil, uses noop if disabled)
	Snapshot metrics.SnapshotMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config, health metrics.HealthFunc) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Filesystem: metrics.NoopFilesystemMetrics(),
			Snapshot:   metrics.NoopSnapshotMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port:   cfg.Metrics.Port,
		Health: health,
	})

	return &MetricsResult{
		Server:     server,
		Filesystem: metrics.NewFilesystemMetrics(cfg.Store.Type),
		Snapshot:   metrics.NewSnapshotMetrics(),
	}
}
