package config

import (
	"context"
	"fmt"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/events"
	"github.com/marmos91/deskfs/pkg/gc"
	"github.com/marmos91/deskfs/pkg/store"
	"github.com/marmos91/deskfs/pkg/vfs"
)

// Runtime holds every component built from one Config.
type Runtime struct {
	Config  *Config
	Store   store.Store
	FS      *vfs.FileSystem
	Bus     *events.Bus
	Metrics *MetricsResult
	Sweeper *gc.Collector
}

// InitializeRuntime creates a fully wired file system from the provided
// configuration.
//
// This function orchestrates the complete initialization process:
//  1. Initializes metrics (no-op when disabled)
//  2. Opens the configured store
//  3. Creates the event bus and the file system acting as cfg.Identity
//  4. Creates the sweeper (started separately by the caller)
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	rt, err := config.InitializeRuntime(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
func InitializeRuntime(ctx context.Context, cfg *Config) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Bus: events.NewBus()}

	s, err := CreateStore(ctx, &cfg.Store)
	if err != nil {
		return nil, err
	}
	rt.Store = s

	rt.Metrics = InitializeMetrics(cfg, func(ctx context.Context) error {
		return s.View(ctx, func(store.Tx) error { return nil })
	})

	opts, err := FilesystemOptions(&cfg.Filesystem)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	opts.Identity = vfs.StaticIdentity(Principal(&cfg.Identity))
	opts.Events = rt.Bus
	opts.Metrics = rt.Metrics.Filesystem

	fs, err := vfs.New(ctx, s, opts)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create file system: %w", err)
	}
	rt.FS = fs

	rt.Sweeper = gc.NewCollector(fs, gc.Config{
		Enabled:        cfg.Sweeper.Enabled,
		Interval:       cfg.Sweeper.Interval,
		TrashRetention: cfg.Sweeper.TrashRetention,
		DryRun:         cfg.Sweeper.DryRun,
	})

	logger.Debug("Runtime initialized: store=%s identity=%s role=%s",
		cfg.Store.Type, cfg.Identity.Username, cfg.Identity.Role)

	return rt, nil
}

// Close releases the store.
func (r *Runtime) Close() error {
	if r.Store == nil {
		return nil
	}
	if err := r.Store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
