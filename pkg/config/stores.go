package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/store"
	"github.com/marmos91/deskfs/pkg/store/badger"
	"github.com/marmos91/deskfs/pkg/store/memory"
	"github.com/marmos91/deskfs/pkg/store/sqlite"
)

// CreateStore creates the persistence engine selected by cfg.Type.
//
// The options map of the selected backend is decoded into that backend's
// configuration; the maps of other backends are ignored.
//
// Supported types:
//   - "memory": pkg/store/memory (ephemeral)
//   - "badger": pkg/store/badger (BadgerDB, persistent)
//   - "sqlite": pkg/store/sqlite (SQLite file, persistent)
func CreateStore(ctx context.Context, cfg *StoreConfig) (store.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		return memory.NewMemoryStore(), nil
	case "badger":
		return createBadgerStore(ctx, cfg.Badger)
	case "sqlite":
		return createSQLiteStore(ctx, cfg.SQLite)
	default:
		return nil, fmt.Errorf("unknown store type: %q (supported: memory, badger, sqlite)", cfg.Type)
	}
}

// createBadgerStore creates a BadgerDB-backed store.
func createBadgerStore(ctx context.Context, options map[string]any) (store.Store, error) {
	type BadgerStoreOptions struct {
		DBPath           string `mapstructure:"db_path"`
		InMemory         bool   `mapstructure:"in_memory"`
		SyncWrites       bool   `mapstructure:"sync_writes"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_mb"`
		IndexCacheSizeMB int64  `mapstructure:"index_cache_mb"`
	}

	var opts BadgerStoreOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger store options: %w", err)
	}

	if opts.DBPath == "" && !opts.InMemory {
		return nil, fmt.Errorf("badger store: db_path is required")
	}

	s, err := badger.NewBadgerStore(ctx, badger.BadgerStoreConfig{
		DBPath:           opts.DBPath,
		InMemory:         opts.InMemory,
		SyncWrites:       opts.SyncWrites,
		BlockCacheSizeMB: opts.BlockCacheSizeMB,
		IndexCacheSizeMB: opts.IndexCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger store: %w", err)
	}

	logger.Debug("Badger store opened: path=%s in_memory=%v", opts.DBPath, opts.InMemory)
	return s, nil
}

// createSQLiteStore creates a SQLite-backed store.
func createSQLiteStore(ctx context.Context, options map[string]any) (store.Store, error) {
	type SQLiteStoreOptions struct {
		Path          string `mapstructure:"path"`
		BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
	}

	var opts SQLiteStoreOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode sqlite store options: %w", err)
	}

	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}

	s, err := sqlite.NewSQLiteStore(ctx, sqlite.SQLiteStoreConfig{
		Path:          opts.Path,
		BusyTimeoutMS: opts.BusyTimeoutMS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite store: %w", err)
	}

	logger.Debug("SQLite store opened: path=%s", opts.Path)
	return s, nil
}
