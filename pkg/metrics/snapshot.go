package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SnapshotMetrics tracks snapshot export and import runs.
type SnapshotMetrics interface {
	// RecordRun records a finished export or import.
	//
	// Parameters:
	//   - direction: "export" or "import"
	//   - target: "file" or "s3"
	//   - rows: Number of rows written or read
	//   - bytes: Compressed stream size
	//   - duration: Time taken
	//   - err: Error if the run failed
	RecordRun(direction, target string, rows, bytes int64, duration time.Duration, err error)
}

type snapshotMetrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	rowsTotal   *prometheus.CounterVec
	bytesTotal  *prometheus.CounterVec
}

// NewSnapshotMetrics creates a Prometheus-backed SnapshotMetrics on the
// global registry, or a no-op implementation when metrics are disabled.
func NewSnapshotMetrics() SnapshotMetrics {
	if !IsEnabled() {
		return noopSnapshotMetrics{}
	}

	reg := GetRegistry()

	return &snapshotMetrics{
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_snapshot_runs_total",
				Help: "Total number of snapshot runs by direction, target, and status",
			},
			[]string{"direction", "target", "status"},
		),
		runDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "deskfs_snapshot_duration_seconds",
				Help: "Duration of snapshot runs in seconds",
				Buckets: []float64{
					0.01, // 10ms
					0.1,  // 100ms
					0.5,  // 500ms
					1,    // 1s
					5,    // 5s
					30,   // 30s
					120,  // 2m
				},
			},
			[]string{"direction", "target"},
		),
		rowsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_snapshot_rows_total",
				Help: "Total number of rows exported or imported",
			},
			[]string{"direction"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskfs_snapshot_bytes_total",
				Help: "Total compressed snapshot bytes transferred",
			},
			[]string{"direction", "target"},
		),
	}
}

func (m *snapshotMetrics) RecordRun(direction, target string, rows, bytes int64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(direction, target, status).Inc()
	m.runDuration.WithLabelValues(direction, target).Observe(duration.Seconds())
	if err == nil {
		m.rowsTotal.WithLabelValues(direction).Add(float64(rows))
		m.bytesTotal.WithLabelValues(direction, target).Add(float64(bytes))
	}
}

type noopSnapshotMetrics struct{}

func (noopSnapshotMetrics) RecordRun(direction, target string, rows, bytes int64, duration time.Duration, err error) {
}

// NoopSnapshotMetrics returns a SnapshotMetrics that records nothing.
func NoopSnapshotMetrics() SnapshotMetrics {
	return noopSnapshotMetrics{}
}
