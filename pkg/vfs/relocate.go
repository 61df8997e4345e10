package vfs

import (
	"context"
	"time"
)

// relocation holds the validated endpoints of a Move or Copy.
type relocation struct {
	src, dst      string
	dstParentPath string
	dstName       string
}

func newRelocation(src, dst string) (relocation, error) {
	src, err := CleanPath(src)
	if err != nil {
		return relocation{}, err
	}
	dst, err = CleanPath(dst)
	if err != nil {
		return relocation{}, err
	}
	switch {
	case src == RootPath:
		return relocation{}, invalidOperation(src, "cannot relocate the root folder")
	case dst == RootPath:
		return relocation{}, invalidOperation(dst, "destination is the root folder")
	case dst != src && IsWithin(dst, src):
		return relocation{}, invalidOperation(dst, "destination is inside %s", src)
	}
	parent, name := SplitPath(dst)
	return relocation{src: src, dst: dst, dstParentPath: parent, dstName: name}, nil
}

// target maps a source subtree path to its destination path.
func (r relocation) target(p string) string {
	return rebase(p, r.src, r.dst)
}

// resolve loads the source entry and the destination folder, failing when
// the destination is occupied.
func (r relocation) resolve(fs *FileSystem, t txn) (src, dstParent *Entry, err error) {
	if src, err = t.entry(r.src); err != nil {
		return nil, nil, err
	}
	if src == nil {
		return nil, nil, notFound(r.src, "entry")
	}

	existing, err := t.entry(r.dst)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, alreadyExists(r.dst)
	}

	if dstParent, err = fs.lookup(t, r.dstParentPath); err != nil {
		return nil, nil, err
	}
	if dstParent == nil || !dstParent.IsFolder() {
		return nil, nil, invalidOperation(r.dstParentPath, "destination parent is not a folder")
	}
	return src, dstParent, nil
}

// place rewrites the path fields of a subtree node for its destination.
func (r relocation) place(n *Entry) *Entry {
	moved := n.Clone()
	moved.Path = r.target(n.Path)
	if n.Path == r.src {
		moved.Parent = r.dstParentPath
		moved.Name = r.dstName
		if moved.IsFile() {
			moved.Extension = ExtensionOf(r.dstName)
			moved.Icon = iconFor(KindFile, moved.Extension)
		}
	} else {
		moved.Parent = r.target(n.Parent)
	}
	return moved
}

// Move relocates src, and for folders its whole subtree, to dst.
//
// Requires the same rights as Delete on src and write permission on the
// destination parent. A live lock on any moved entry held by another
// principal fails with ErrLockConflict. Payloads, versions, locks and
// shares follow their entries.
func (fs *FileSystem) Move(ctx context.Context, src, dst string) (*Entry, error) {
	r, err := newRelocation(src, dst)
	if err != nil {
		return nil, err
	}
	actor := fs.principal(ctx)

	var moved *Entry
	err = fs.update(ctx, "Move", func(t txn) error {
		top, dstParent, err := r.resolve(fs, t)
		if err != nil {
			return err
		}
		srcParent, err := fs.folder(t, top.Parent)
		if err != nil {
			return err
		}
		if err := checkRemove(actor, srcParent, top); err != nil {
			return err
		}
		if err := check(actor, dstParent, PermWrite); err != nil {
			return err
		}

		now := fs.now()
		nodes, err := t.subtree(top)
		if err != nil {
			return err
		}
		if l, err := fs.foreignLockBelow(t, nodes, actor.Name(), now); err != nil {
			return err
		} else if l != nil {
			return lockConflict(l.Path, l.Owner)
		}

		// liveLock may have cleared expired lock fields; reload the nodes.
		if top, err = t.entry(r.src); err != nil {
			return err
		}
		if nodes, err = t.subtree(top); err != nil {
			return err
		}

		for _, n := range nodes {
			next := r.place(n)
			if n.Path == r.src {
				next.Modified = now
				moved = next
			}
			if err := fs.relocateRows(t, n.Path, next.Path); err != nil {
				return err
			}
			if err := t.deleteEntry(n.Path); err != nil {
				return err
			}
			if err := t.putEntry(next); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.announce(OpMove, r.dst, r.src, actor.Name(), moved.Clone())
	return moved, nil
}

// relocateRows rekeys the payload, versions, lock and shares of from.
func (fs *FileSystem) relocateRows(t txn, from, to string) error {
	payload, err := t.content(from)
	if err != nil {
		return err
	}
	if payload != nil {
		if err := t.putContent(to, payload); err != nil {
			return err
		}
		if err := t.deleteContent(from); err != nil {
			return err
		}
	}

	versions, err := t.versions(from)
	if err != nil {
		return err
	}
	for _, v := range versions {
		v.Path = to
		v.Entry.Path = to
		if err := t.putVersion(v); err != nil {
			return err
		}
	}

	l, err := t.lock(from)
	if err != nil {
		return err
	}
	if l != nil {
		if err := t.deleteLock(from); err != nil {
			return err
		}
		l.Path = to
		if err := t.putLock(l); err != nil {
			return err
		}
	}

	shares, err := t.sharesBy(idxPath, from)
	if err != nil {
		return err
	}
	for _, s := range shares {
		s.Path = to
		if err := t.putShare(s); err != nil {
			return err
		}
	}
	return nil
}

// Copy duplicates src, and for folders its whole subtree, at dst.
//
// Requires read permission on the source and write permission on the
// destination parent. Copies belong to the acting principal, start at
// version 1 with fresh timestamps, and carry no share, lock or version
// history.
func (fs *FileSystem) Copy(ctx context.Context, src, dst string) (*Entry, error) {
	r, err := newRelocation(src, dst)
	if err != nil {
		return nil, err
	}
	actor := fs.principal(ctx)

	var copied *Entry
	err = fs.update(ctx, "Copy", func(t txn) error {
		top, dstParent, err := r.resolve(fs, t)
		if err != nil {
			return err
		}
		if err := check(actor, top, PermRead); err != nil {
			return err
		}
		if err := check(actor, dstParent, PermWrite); err != nil {
			return err
		}

		nodes, err := t.subtree(top)
		if err != nil {
			return err
		}
		now := fs.now()
		for _, n := range nodes {
			next := r.place(n)
			resetCopy(next, actor.Name(), now)
			if n.IsFile() {
				payload, err := t.content(n.Path)
				if err != nil {
					return err
				}
				if err := t.putContent(next.Path, payload); err != nil {
					return err
				}
			}
			if err := t.putEntry(next); err != nil {
				return err
			}
			if n.Path == r.src {
				copied = next
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.announce(OpCopy, r.dst, "", actor.Name(), copied.Clone())
	return copied, nil
}

func resetCopy(e *Entry, owner string, now time.Time) {
	e.Owner = owner
	e.Shared = false
	e.SharedWith = nil
	e.clearLock()
	e.Version = 1
	e.Created = now
	e.Modified = now
	e.Accessed = now
}
