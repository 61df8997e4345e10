package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FilesystemMetrics provides observability for virtual file system operations.
//
// This interface is optional - if not provided to vfs.New, operations
// proceed without metrics collection (zero overhead).
//
// Example usage:
//
//	metrics.InitRegistry()
//	fs, err := vfs.New(ctx, st, vfs.Options{Metrics: metrics.NewFilesystemMetrics("badger")})
type FilesystemMetrics interface {
	// RecordOperation records a completed operation with its name,
	// duration, and outcome.
	//
	// Parameters:
	//   - operation: Operation name (e.g., "WriteFile", "Move", "EmptyTrash")
	//   - duration: Time taken to complete the operation
	//   - err: Error if operation failed, nil if successful
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordBytes records payload bytes read or written.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: Payload size
	RecordBytes(direction string, bytes int64)

	// RecordWatchDelivery records one watcher callback invocation.
	RecordWatchDelivery(panicked bool)

	// SetActiveLocks updates the number of unexpired locks.
	SetActiveLocks(count int64)

	// SetTrashItems updates the number of items in the trash.
	SetTrashItems(count int64)

	// SetEntries updates the number of live files and folders.
	SetEntries(files, folders int64)
}

type filesystemMetrics struct {
	storeType         string
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTotal        *prometheus.CounterVec
	watchDeliveries   *prometheus.CounterVec
	activeLocks       prometheus.Gauge
	trashItems        prometheus.Gauge
	entries           *prometheus.GaugeVec
}

// NewFilesystemMetrics creates a Prometheus-backed FilesystemMetrics
// registered on the global registry.
//
// Parameters:
//   - storeType: Type of persistence backend (e.g., "memory", "badger", "sqlite")
//     Used as a label to distinguish metrics from different backends.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewFilesystemMetrics(storeType string) FilesystemMetrics {
	if !IsEnabled() {
		return NoopFilesystemMetrics()
	}
	return NewFilesystemMetricsWith(GetRegistry(), storeType)
}

// NewFilesystemMetricsWith creates a FilesystemMetrics registered on reg.
func NewFilesystemMetricsWith(reg prometheus.Registerer, storeType string) FilesystemMetrics {
	return &filesystemMetrics{
		storeType: storeType,
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_operations_total",
				Help: "Total number of file system operations by store type, operation, and status",
			},
			[]string{"store_type", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "deskfs_operation_duration_seconds",
				Help: "Duration of file system operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"store_type", "operation"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_payload_bytes_total",
				Help: "Total payload bytes read and written",
			},
			[]string{"store_type", "direction"},
		),
		watchDeliveries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_watch_deliveries_total",
				Help: "Total number of watcher callback invocations by outcome",
			},
			[]string{"status"},
		),
		activeLocks: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name:        "deskfs_active_locks",
				Help:        "Current number of unexpired advisory locks",
				ConstLabels: prometheus.Labels{"store_type": storeType},
			},
		),
		trashItems: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name:        "deskfs_trash_items",
				Help:        "Current number of items in the trash",
				ConstLabels: prometheus.Labels{"store_type": storeType},
			},
		),
		entries: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "deskfs_entries",
				Help:        "Current number of live entries by kind",
				ConstLabels: prometheus.Labels{"store_type": storeType},
			},
			[]string{"kind"},
		),
	}
}

func (m *filesystemMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(m.storeType, operation, status).Inc()
	m.operationDuration.WithLabelValues(m.storeType, operation).Observe(duration.Seconds())
}

func (m *filesystemMetrics) RecordBytes(direction string, bytes int64) {
	m.bytesTotal.WithLabelValues(m.storeType, direction).Add(float64(bytes))
}

func (m *filesystemMetrics) RecordWatchDelivery(panicked bool) {
	status := "success"
	if panicked {
		status = "panic"
	}
	m.watchDeliveries.WithLabelValues(status).Inc()
}

func (m *filesystemMetrics) SetActiveLocks(count int64) {
	m.activeLocks.Set(float64(count))
}

func (m *filesystemMetrics) SetTrashItems(count int64) {
	m.trashItems.Set(float64(count))
}

func (m *filesystemMetrics) SetEntries(files, folders int64) {
	m.entries.WithLabelValues("file").Set(float64(files))
	m.entries.WithLabelValues("folder").Set(float64(folders))
}

// NoopFilesystemMetrics returns a FilesystemMetrics that records nothing.
func NoopFilesystemMetrics() FilesystemMetrics {
	return noopFilesystemMetrics{}
}

type noopFilesystemMetrics struct{}

func (noopFilesystemMetrics) RecordOperation(operation string, duration time.Duration, err error) {}
func (noopFilesystemMetrics) RecordBytes(direction string, bytes int64)                          {}
func (noopFilesystemMetrics) RecordWatchDelivery(panicked bool)                                  {}
func (noopFilesystemMetrics) SetActiveLocks(count int64)                                         {}
func (noopFilesystemMetrics) SetTrashItems(count int64)                                          {}
func (noopFilesystemMetrics) SetEntries(files, folders int64)                                    {}
