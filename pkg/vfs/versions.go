package vfs

import (
	"context"
	"slices"
	"time"
)

// Metadata keys set by RestoreVersion.
const (
	MetaRestoredFrom = "restoredFrom"
	MetaRestoredAt   = "restoredAt"
)

// saveVersion snapshots prior and its current payload, then prunes the
// oldest snapshots beyond MaxVersions.
func (fs *FileSystem) saveVersion(t txn, prior *Entry, author string, now time.Time) error {
	payload, err := t.content(prior.Path)
	if err != nil {
		return err
	}
	v := &Version{
		ID:        fs.versionIDs.next(now),
		Path:      prior.Path,
		Timestamp: now,
		Author:    author,
		Payload:   payload,
		Entry:     *prior.Clone().projectAt(now),
	}
	if err := t.putVersion(v); err != nil {
		return err
	}

	if fs.opts.MaxVersions == 0 {
		return nil
	}
	all, err := t.versions(prior.Path)
	if err != nil {
		return err
	}
	for len(all) > fs.opts.MaxVersions {
		if err := t.tx.Delete(TableVersions, all[0].ID); err != nil {
			return err
		}
		all = all[1:]
	}
	return nil
}

// GetVersions returns the stored snapshots of p, newest first.
//
// Snapshots outlive their entry: the history of a deleted path stays
// readable until the trash is emptied. Read permission is checked when the
// entry exists.
func (fs *FileSystem) GetVersions(ctx context.Context, p string) ([]*Version, error) {
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	actor := fs.principal(ctx)

	var out []*Version
	err = fs.view(ctx, "GetVersions", func(t txn) error {
		e, err := t.entry(p)
		if err != nil {
			return err
		}
		if e != nil {
			if err := check(actor, e, PermRead); err != nil {
				return err
			}
		}
		if out, err = t.versions(p); err != nil {
			return err
		}
		slices.Reverse(out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RestoreVersion rewrites p with the payload of snapshot id through
// WriteFile, so the current content becomes a new snapshot in turn. The
// restored entry carries restoredFrom and restoredAt metadata.
func (fs *FileSystem) RestoreVersion(ctx context.Context, p, id string) (*Entry, error) {
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}

	var v *Version
	err = fs.view(ctx, "RestoreVersion", func(t txn) error {
		var err error
		if v, err = t.version(id); err != nil {
			return err
		}
		if v == nil || v.Path != p {
			return newError(ErrNotFound, p, "version %s not found", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fs.WriteFile(ctx, p, v.Payload, WriteOptions{
		Metadata: map[string]string{
			MetaRestoredFrom: id,
			MetaRestoredAt:   fs.now().UTC().Format(time.RFC3339),
		},
	})
}
