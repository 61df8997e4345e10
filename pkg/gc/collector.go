// Package gc runs the periodic housekeeping of a file system.
//
// Each run has three phases:
//   - Expired locks are released, so their files become writable again
//   - Trash items older than the retention window are purged
//   - Rows orphaned by interrupted or external writes are collected
//
// Lock expiry is also enforced lazily on access; the sweep keeps the lock
// table and its metrics accurate between accesses.
package gc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/vfs"
)

// Target is the subset of vfs.FileSystem the collector drives.
type Target interface {
	SweepLocks(ctx context.Context) (int, error)
	PurgeTrash(ctx context.Context, olderThan time.Duration) (int, error)
	CollectOrphans(ctx context.Context, remove bool) (*vfs.OrphanReport, error)
}

// Collector performs periodic housekeeping on a file system.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	target Target
	config Config
	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// Config contains configuration for the collector.
type Config struct {
	// Enabled controls whether the background worker runs (default: false)
	Enabled bool

	// Interval is how often to run (default: 1m)
	Interval time.Duration

	// TrashRetention is how long trash items are kept before purging.
	// Zero keeps trash until it is emptied explicitly.
	TrashRetention time.Duration

	// RunTimeout bounds a single background run (default: 10m)
	RunTimeout time.Duration

	// DryRun reports orphaned rows without deleting them. Locks and trash
	// are unaffected.
	DryRun bool
}

// NewCollector creates a collector. Call Start to begin background runs.
func NewCollector(target Target, config Config) *Collector {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 10 * time.Minute
	}

	return &Collector{
		target: target,
		config: config,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the background worker. It is a no-op when disabled, when
// already started, or after Stop.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Housekeeping disabled")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true

	logger.Info("Starting housekeeping: interval=%s trash_retention=%s dry_run=%v",
		c.config.Interval, c.config.TrashRetention, c.config.DryRun)

	go c.worker()
}

// Stop signals the worker and waits for the in-progress run to finish, or
// for ctx to expire. It returns at once if the worker never started and is
// safe to call more than once.
func (c *Collector) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.stopped = true
		c.mu.Unlock()
		return nil
	}
	if !c.stopped {
		c.stopped = true
		logger.Info("Stopping housekeeping...")
		close(c.stopCh)
	}
	c.mu.Unlock()

	select {
	case <-c.doneCh:
		logger.Info("Housekeeping stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Housekeeping shutdown timeout")
		return ctx.Err()
	}
}

// RunNow performs one run immediately and blocks until it completes.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Running housekeeping (manual trigger)...")
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.RunTimeout)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Housekeeping failed: %v", err)
			} else {
				logger.Debug("Housekeeping completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect runs the three phases. A failing phase aborts the run; earlier
// phases keep their effect.
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	released, err := c.target.SweepLocks(ctx)
	if err != nil {
		return stats, fmt.Errorf("sweep locks: %w", err)
	}
	stats.LocksReleased = released

	if c.config.TrashRetention > 0 {
		purged, err := c.target.PurgeTrash(ctx, c.config.TrashRetention)
		if err != nil {
			return stats, fmt.Errorf("purge trash: %w", err)
		}
		stats.TrashPurged = purged
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	report, err := c.target.CollectOrphans(ctx, !c.config.DryRun)
	if err != nil {
		return stats, fmt.Errorf("collect orphans: %w", err)
	}
	stats.Orphans = report.Total()
	if c.config.DryRun {
		if stats.Orphans > 0 {
			logger.Info("Housekeeping: DRY RUN - would delete %d orphaned rows (content=%d versions=%d locks=%d)",
				stats.Orphans, len(report.Content), len(report.Versions), len(report.Locks))
		}
	} else {
		stats.OrphansDeleted = stats.Orphans
	}

	return stats, nil
}

// Stats contains statistics from one run.
type Stats struct {
	StartTime      time.Time // When the run started
	EndTime        time.Time // When the run ended
	LocksReleased  int       // Expired locks released
	TrashPurged    int       // Trash items purged by retention
	Orphans        int       // Orphaned rows found
	OrphansDeleted int       // Orphaned rows deleted (zero on dry runs)
}

// Duration returns the run duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the run.
func (s *Stats) Summary() string {
	return fmt.Sprintf("locks_released=%d trash_purged=%d orphans=%d deleted=%d duration=%s",
		s.LocksReleased, s.TrashPurged, s.Orphans, s.OrphansDeleted, s.Duration())
}
