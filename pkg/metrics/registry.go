// Package metrics provides Prometheus metrics for deskfs.
//
// Metrics are opt-in. Until InitRegistry runs, every constructor returns a
// no-op implementation, so the file system and the snapshotter never check
// whether metrics are enabled.
//
// Series carry the "deskfs_" prefix: file system operations, lock, trash and
// entry gauges (FilesystemMetrics), deskfs_snapshot_* for export and import
// runs (SnapshotMetrics), plus the Go runtime and deskfs_process_* collectors
// registered by InitRegistry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "deskfs"

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the process-wide registry with the Go runtime and
// process collectors. Later calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		)
		registry = reg
	})
}

// GetRegistry returns the registry, or nil while metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has run.
func IsEnabled() bool {
	return GetRegistry() != nil
}
