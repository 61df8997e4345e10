package vfs

import (
	"context"
	"time"
)

// liveLock returns the unexpired lock on p, or nil. An expired lock row is
// removed and the entry's lock fields cleared in the same transaction.
func (fs *FileSystem) liveLock(t txn, p string, now time.Time) (*Lock, error) {
	l, err := t.lock(p)
	if err != nil || l == nil {
		return nil, err
	}
	if l.LiveAt(now) {
		return l, nil
	}
	if err := fs.releaseLock(t, p); err != nil {
		return nil, err
	}
	return nil, nil
}

// releaseLock drops the lock row of p and clears the entry lock fields.
func (fs *FileSystem) releaseLock(t txn, p string) error {
	if err := t.deleteLock(p); err != nil {
		return err
	}
	e, err := t.entry(p)
	if err != nil || e == nil {
		return err
	}
	if !e.Locked {
		return nil
	}
	e.clearLock()
	return t.putEntry(e)
}

// foreignLockBelow returns the first live lock on top or a descendant held by
// someone other than actor.
func (fs *FileSystem) foreignLockBelow(t txn, nodes []*Entry, actor string, now time.Time) (*Lock, error) {
	for _, n := range nodes {
		l, err := fs.liveLock(t, n.Path, now)
		if err != nil {
			return nil, err
		}
		if l != nil && l.Owner != actor {
			return l, nil
		}
	}
	return nil, nil
}

// LockFile acquires an advisory lock on p for the acting principal, or
// refreshes the expiry of a lock it already holds. Requires read permission.
func (fs *FileSystem) LockFile(ctx context.Context, p string) (*Lock, error) {
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	if p == RootPath {
		return nil, invalidOperation(p, "cannot lock the root folder")
	}
	actor := fs.principal(ctx)

	var acquired *Lock
	err = fs.update(ctx, "LockFile", func(t txn) error {
		e, err := t.entry(p)
		if err != nil {
			return err
		}
		if e == nil {
			return notFound(p, "entry")
		}
		if err := check(actor, e, PermRead); err != nil {
			return err
		}

		now := fs.now()
		held, err := fs.liveLock(t, p, now)
		if err != nil {
			return err
		}
		if held != nil && held.Owner != actor.Name() {
			return lockConflict(p, held.Owner)
		}

		l := &Lock{Path: p, Owner: actor.Name(), Acquired: now, Expires: now.Add(fs.opts.LockTTL)}
		if held != nil {
			l.Acquired = held.Acquired
		}
		if err := t.putLock(l); err != nil {
			return err
		}

		// Re-read: liveLock may have rewritten the entry.
		if e, err = t.entry(p); err != nil {
			return err
		}
		e.Locked = true
		e.LockOwner = l.Owner
		e.LockExpiry = l.Expires
		if err := t.putEntry(e); err != nil {
			return err
		}
		acquired = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.emit(TopicLocked, LockEvent{Path: p, Owner: acquired.Owner, Actor: actor.Name(), Expires: acquired.Expires})
	return acquired, nil
}

// UnlockFile releases the lock on p.
//
// The lock owner may always unlock. Anyone else fails with ErrLockConflict
// unless force is set, and force requires the admin role. Unlocking a path
// with no live lock fails with ErrInvalidOperation.
func (fs *FileSystem) UnlockFile(ctx context.Context, p string, force bool) error {
	p, err := CleanPath(p)
	if err != nil {
		return err
	}
	actor := fs.principal(ctx)

	var owner string
	err = fs.update(ctx, "UnlockFile", func(t txn) error {
		e, err := t.entry(p)
		if err != nil {
			return err
		}
		if e == nil {
			return notFound(p, "entry")
		}

		held, err := fs.liveLock(t, p, fs.now())
		if err != nil {
			return err
		}
		if held == nil {
			return invalidOperation(p, "not locked")
		}
		if held.Owner != actor.Name() {
			if !force {
				return lockConflict(p, held.Owner)
			}
			if !actor.IsAdmin() {
				return newError(ErrPermissionDenied, p, "forced unlock requires admin, not %s", actor.Name())
			}
		}
		owner = held.Owner
		return fs.releaseLock(t, p)
	})
	if err != nil {
		return err
	}

	fs.emit(TopicUnlocked, LockEvent{Path: p, Owner: owner, Actor: actor.Name()})
	return nil
}

// SweepLocks removes every lock whose expiry has passed and returns how many
// were released.
func (fs *FileSystem) SweepLocks(ctx context.Context) (int, error) {
	var expired []*Lock
	var active int64
	err := fs.update(ctx, "SweepLocks", func(t txn) error {
		var err error
		if expired, err = t.expiredLocks(fs.now()); err != nil {
			return err
		}
		for _, l := range expired {
			if err := fs.releaseLock(t, l.Path); err != nil {
				return err
			}
		}
		rows, err := t.tx.All(TableLocks)
		if err != nil {
			return err
		}
		active = int64(len(rows))
		return nil
	})
	if err != nil {
		return 0, err
	}

	fs.opts.Metrics.SetActiveLocks(active)
	for _, l := range expired {
		fs.emit(TopicUnlocked, LockEvent{Path: l.Path, Owner: l.Owner, Actor: SystemUser, Expires: l.Expires, Expired: true})
	}
	return len(expired), nil
}
