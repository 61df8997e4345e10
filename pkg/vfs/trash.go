package vfs

import (
	"context"
	"time"

	"github.com/marmos91/deskfs/pkg/store"
)

// GetTrash returns every trash item, most recently deleted first.
func (fs *FileSystem) GetTrash(ctx context.Context) ([]*TrashItem, error) {
	var out []*TrashItem
	err := fs.view(ctx, "GetTrash", func(t txn) error {
		rows, err := t.tx.Scan(TableTrash, idxDeletedAt, store.Range{Reverse: true})
		if err != nil {
			return err
		}
		out, err = t.decodeTrash(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RestoreFromTrash puts the trash item at originalPath back in place,
// together with every trashed descendant, and removes them from the trash.
//
// Fails with ErrAlreadyExists when any restored path is occupied, and with
// ErrNotFound when the parent folder no longer exists. Requires write
// permission on the parent.
func (fs *FileSystem) RestoreFromTrash(ctx context.Context, originalPath string) (*Entry, error) {
	p, err := CleanPath(originalPath)
	if err != nil {
		return nil, err
	}
	actor := fs.principal(ctx)

	var restored *Entry
	err = fs.update(ctx, "RestoreFromTrash", func(t txn) error {
		item, err := t.trashItem(p)
		if err != nil {
			return err
		}
		if item == nil {
			return notFound(p, "trash item")
		}
		parent, err := fs.folder(t, item.Entry.Parent)
		if err != nil {
			return err
		}
		if err := check(actor, parent, PermWrite); err != nil {
			return err
		}

		items, err := t.trashSubtree(item)
		if err != nil {
			return err
		}
		for _, it := range items {
			existing, err := t.entry(it.OriginalPath)
			if err != nil {
				return err
			}
			if existing != nil {
				return alreadyExists(it.OriginalPath)
			}
		}

		for _, it := range items {
			e := it.Entry.Clone()
			if e.IsFile() {
				if err := t.putContent(e.Path, it.Payload); err != nil {
					return err
				}
			}
			if err := t.putEntry(e); err != nil {
				return err
			}
			if err := t.deleteTrash(it.OriginalPath); err != nil {
				return err
			}
		}
		restored = item.Entry.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.announce(OpRestore, p, "", actor.Name(), restored.Clone())
	return restored, nil
}

// EmptyTrash irreversibly removes every trash item and the version history
// of paths that have no live entry. It returns the number of items removed.
func (fs *FileSystem) EmptyTrash(ctx context.Context) (int, error) {
	return fs.purgeTrash(ctx, "EmptyTrash", time.Time{})
}

// PurgeTrash removes trash items deleted more than olderThan ago, like
// EmptyTrash does for all of them.
func (fs *FileSystem) PurgeTrash(ctx context.Context, olderThan time.Duration) (int, error) {
	return fs.purgeTrash(ctx, "PurgeTrash", fs.now().Add(-olderThan))
}

func (fs *FileSystem) purgeTrash(ctx context.Context, op string, cutoff time.Time) (int, error) {
	var purged int
	var remaining int64
	err := fs.update(ctx, op, func(t txn) error {
		items, err := t.trashBefore(cutoff)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := t.deleteTrash(it.OriginalPath); err != nil {
				return err
			}
			live, err := t.entry(it.OriginalPath)
			if err != nil {
				return err
			}
			if live == nil {
				if _, err := t.deleteVersions(it.OriginalPath); err != nil {
					return err
				}
			}
		}
		purged = len(items)

		rows, err := t.tx.All(TableTrash)
		if err != nil {
			return err
		}
		remaining = int64(len(rows))
		return nil
	})
	if err != nil {
		return 0, err
	}

	fs.opts.Metrics.SetTrashItems(remaining)
	return purged, nil
}
