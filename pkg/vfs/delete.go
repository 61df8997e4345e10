package vfs

import (
	"context"
	"slices"
	"time"
)

// Delete removes the entry at p and everything below it.
//
// Requires delete permission on the parent folder, and ownership of the entry
// or its parent or write permission on the entry. When soft delete is
// enabled and permanent is false, every removed node becomes a trash item
// carrying its payload, in the same transaction; version history is kept so
// a restored file keeps its past. Otherwise entries, payloads, versions and
// locks are erased.
func (fs *FileSystem) Delete(ctx context.Context, p string, permanent bool) error {
	p, err := CleanPath(p)
	if err != nil {
		return err
	}
	if p == RootPath {
		return invalidOperation(p, "cannot delete the root folder")
	}
	actor := fs.principal(ctx)
	soft := fs.opts.SoftDelete && !permanent

	err = fs.update(ctx, "Delete", func(t txn) error {
		e, err := t.entry(p)
		if err != nil {
			return err
		}
		if e == nil {
			return notFound(p, "entry")
		}
		parent, err := fs.folder(t, e.Parent)
		if err != nil {
			return err
		}
		if err := checkRemove(actor, parent, e); err != nil {
			return err
		}

		nodes, err := t.subtree(e)
		if err != nil {
			return err
		}
		if soft {
			return fs.moveToTrash(t, nodes, actor.Name(), fs.now())
		}
		return fs.erase(t, nodes)
	})
	if err != nil {
		return err
	}

	op := OpDelete
	if soft {
		op = OpTrash
	}
	fs.announce(op, p, "", actor.Name(), nil)
	return nil
}

func (fs *FileSystem) moveToTrash(t txn, nodes []*Entry, actor string, now time.Time) error {
	for _, n := range nodes {
		item := &TrashItem{
			OriginalPath: n.Path,
			DeletedBy:    actor,
			DeletedAt:    now,
		}
		if n.IsFile() {
			payload, err := t.content(n.Path)
			if err != nil {
				return err
			}
			item.Payload = payload
		}
		trashed := n.Clone()
		trashed.clearLock()
		item.Entry = *trashed

		if err := t.putTrash(item); err != nil {
			return err
		}
		if err := t.deleteContent(n.Path); err != nil {
			return err
		}
		if err := t.deleteLock(n.Path); err != nil {
			return err
		}
		if err := t.deleteEntry(n.Path); err != nil {
			return err
		}
	}
	return nil
}

// erase removes nodes with their payloads, versions and locks, children
// before parents.
func (fs *FileSystem) erase(t txn, nodes []*Entry) error {
	for _, n := range slices.Backward(nodes) {
		if err := t.deleteContent(n.Path); err != nil {
			return err
		}
		if _, err := t.deleteVersions(n.Path); err != nil {
			return err
		}
		if err := t.deleteLock(n.Path); err != nil {
			return err
		}
		if err := t.deleteEntry(n.Path); err != nil {
			return err
		}
	}
	return nil
}
