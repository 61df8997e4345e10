// Package vfs implements a virtual hierarchical file system over a
// transactional table store.
//
// A FileSystem stores path-addressed files and folders with their payloads,
// keeps an append-only version history, moves deleted entries to a trash it
// can restore from, and enforces owner/group/other permissions and advisory
// locks. Every operation runs in a single store transaction; watcher
// callbacks and bus events fire after it commits.
package vfs

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/metrics"
	"github.com/marmos91/deskfs/pkg/store"
)

// Options configures a FileSystem.
//
// Start from DefaultOptions: the zero value disables soft delete.
type Options struct {
	// Identity supplies the acting principal (default: anonymous, acting as "system").
	Identity IdentityProvider

	// Events receives notifications after commits (default: discard).
	Events EventBus

	// Clock is the time source (default: RealClock).
	Clock Clock

	// IDs generates share and watch identifiers (default: UUIDGenerator).
	IDs IDGenerator

	// Metrics records operation metrics (default: no-op).
	Metrics metrics.FilesystemMetrics

	// SoftDelete moves deleted entries to the trash unless a caller asks
	// for permanent deletion.
	SoftDelete bool

	// LockTTL is how long a lock lives (default: 5m).
	LockTTL time.Duration

	// MaxVersions caps the snapshots kept per path; the oldest are pruned.
	// Zero keeps every version.
	MaxVersions int

	// RecentLimit caps each principal's recent-files list (default: 20).
	RecentLimit int

	// RootMode is the permission set of the implicit root folder.
	RootMode Mode
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		SoftDelete:  true,
		LockTTL:     5 * time.Minute,
		MaxVersions: 50,
		RecentLimit: 20,
		RootMode:    DefaultRootMode,
	}
}

func (o *Options) applyDefaults() {
	if o.Identity == nil {
		o.Identity = StaticIdentity{}
	}
	if o.Events == nil {
		o.Events = noopBus{}
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	if o.IDs == nil {
		o.IDs = UUIDGenerator{}
	}
	if o.Metrics == nil {
		o.Metrics = metrics.NoopFilesystemMetrics()
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 5 * time.Minute
	}
	if o.RecentLimit <= 0 {
		o.RecentLimit = 20
	}
	if o.MaxVersions < 0 {
		o.MaxVersions = 0
	}
}

// FileSystem is the virtual file system service.
//
// Thread Safety: safe for concurrent use. Isolation between operations is
// provided by the store's transactions; the watch registry has its own lock.
type FileSystem struct {
	store      store.Store
	opts       Options
	watches    *watchRegistry
	versionIDs *versionIDs
}

// New declares the file system tables on s and returns a ready FileSystem.
func New(ctx context.Context, s store.Store, opts Options) (*FileSystem, error) {
	opts.applyDefaults()

	if err := s.CreateTables(ctx, Schemas...); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	fs := &FileSystem{
		store:      s,
		opts:       opts,
		versionIDs: newVersionIDs(),
	}
	fs.watches = newWatchRegistry(opts.IDs, opts.Metrics)
	return fs, nil
}

// Store returns the underlying persistence engine.
func (fs *FileSystem) Store() store.Store {
	return fs.store
}

// Options returns the effective configuration.
func (fs *FileSystem) Options() Options {
	return fs.opts
}

func (fs *FileSystem) now() time.Time {
	return fs.opts.Clock.Now()
}

func (fs *FileSystem) principal(ctx context.Context) Principal {
	return fs.opts.Identity.CurrentUser(ctx)
}

// update runs fn in a read-write transaction, wrapping infrastructure
// errors as ErrStorage and recording the operation.
func (fs *FileSystem) update(ctx context.Context, op string, fn func(t txn) error) error {
	start := time.Now()
	err := fs.store.Update(ctx, func(tx store.Tx) error {
		return fn(txn{tx: tx})
	})
	err = storageError(op, err)
	fs.opts.Metrics.RecordOperation(op, time.Since(start), err)
	if err != nil && IsCode(err, ErrStorage) {
		logger.Error("%s: %v", op, err)
	}
	return err
}

// view runs fn in a read-only transaction.
func (fs *FileSystem) view(ctx context.Context, op string, fn func(t txn) error) error {
	start := time.Now()
	err := fs.store.View(ctx, func(tx store.Tx) error {
		return fn(txn{tx: tx})
	})
	err = storageError(op, err)
	fs.opts.Metrics.RecordOperation(op, time.Since(start), err)
	if err != nil && IsCode(err, ErrStorage) {
		logger.Error("%s: %v", op, err)
	}
	return err
}

// rootEntry synthesizes the implicit root folder.
func (fs *FileSystem) rootEntry() *Entry {
	return &Entry{
		Path:        RootPath,
		Name:        "",
		Parent:      "",
		Kind:        KindFolder,
		Owner:       SystemUser,
		Permissions: fs.opts.RootMode,
		Version:     1,
		Icon:        iconFor(KindFolder, ""),
	}
}

// lookup returns the entry at p, the synthesized root for "/", or nil.
func (fs *FileSystem) lookup(t txn, p string) (*Entry, error) {
	if p == RootPath {
		return fs.rootEntry(), nil
	}
	return t.entry(p)
}

// folder resolves p to an existing folder.
func (fs *FileSystem) folder(t txn, p string) (*Entry, error) {
	e, err := fs.lookup(t, p)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, notFound(p, "folder")
	}
	if !e.IsFolder() {
		return nil, invalidOperation(p, "not a folder")
	}
	return e, nil
}

// emit publishes an event on the bus.
func (fs *FileSystem) emit(topic string, payload any) {
	fs.opts.Events.Emit(topic, payload)
}

// announce notifies watchers and publishes a files:operation event.
func (fs *FileSystem) announce(op, p, oldPath, actor string, entry *Entry) {
	at := fs.now()
	ev := WatchEvent{Operation: op, Path: p, OldPath: oldPath, Entry: entry, Time: at}
	if oldPath != "" {
		fs.watches.notify(ev, p, oldPath)
	} else {
		fs.watches.notify(ev, p)
	}
	fs.emit(TopicOperation, OperationEvent{Operation: op, Path: p, OldPath: oldPath, Actor: actor, Time: at})
}
