package vfs

import (
	"sync"
	"time"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/metrics"
)

// WatchID identifies a watch subscription.
type WatchID string

// WatchEvent describes a committed change below a watched folder.
type WatchEvent struct {
	// Operation is one of the Op* constants.
	Operation string

	// Path is the changed entry (the destination for moves and copies).
	Path string

	// OldPath is the source of a move, empty otherwise.
	OldPath string

	// Entry is the entry after the change, nil for deletions.
	Entry *Entry

	Time time.Time
}

// WatchFunc receives change notifications.
type WatchFunc func(WatchEvent)

// watchRegistry maps folder paths to callbacks. In-memory only.
type watchRegistry struct {
	mu       sync.RWMutex
	ids      IDGenerator
	metrics  metrics.FilesystemMetrics
	watchers map[string]map[WatchID]WatchFunc
}

func newWatchRegistry(ids IDGenerator, m metrics.FilesystemMetrics) *watchRegistry {
	return &watchRegistry{
		ids:      ids,
		metrics:  m,
		watchers: make(map[string]map[WatchID]WatchFunc),
	}
}

func (r *watchRegistry) add(p string, fn WatchFunc) WatchID {
	id := WatchID(r.ids.New())

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watchers[p] == nil {
		r.watchers[p] = make(map[WatchID]WatchFunc)
	}
	r.watchers[p][id] = fn
	return id
}

func (r *watchRegistry) remove(p string, id WatchID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.watchers[p]
	if !ok {
		return false
	}
	if _, ok := subs[id]; !ok {
		return false
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(r.watchers, p)
	}
	return true
}

// notify delivers ev to watchers on the parent of each changed path and on
// every ancestor up to the root, nearest first. A folder shared by several
// chains is notified once.
func (r *watchRegistry) notify(ev WatchEvent, changed ...string) {
	seen := make(map[string]bool)
	var targets []WatchFunc

	r.mu.RLock()
	for _, p := range changed {
		for _, folder := range ancestors(p) {
			if seen[folder] {
				continue
			}
			seen[folder] = true
			for _, fn := range r.watchers[folder] {
				targets = append(targets, fn)
			}
		}
	}
	r.mu.RUnlock()

	for _, fn := range targets {
		r.deliver(fn, ev)
	}
}

func (r *watchRegistry) deliver(fn WatchFunc, ev WatchEvent) {
	panicked := false
	defer func() {
		if rec := recover(); rec != nil {
			panicked = true
			logger.Warn("Watch callback panicked for %s %s: %v", ev.Operation, ev.Path, rec)
		}
		r.metrics.RecordWatchDelivery(panicked)
	}()
	fn(ev)
}

// Watch registers fn for changes to entries inside folder p, at any depth.
// Callbacks run synchronously after the change commits, before the
// operation returns.
func (fs *FileSystem) Watch(p string, fn WatchFunc) (WatchID, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	return fs.watches.add(clean, fn), nil
}

// Unwatch removes a subscription. It reports whether one was removed.
func (fs *FileSystem) Unwatch(p string, id WatchID) bool {
	clean, err := CleanPath(p)
	if err != nil {
		return false
	}
	return fs.watches.remove(clean, id)
}
