package vfs

import (
	"cmp"
	"context"
	"slices"
	"time"
)

// ShareOptions customizes ShareFile.
type ShareOptions struct {
	// Level defaults to ShareRead.
	Level ShareLevel

	// ExpiresAt ends the grant; nil never expires.
	ExpiresAt *time.Time
}

// ShareFile grants recipient access to the entry at p. Only the owner or
// an admin may share.
func (fs *FileSystem) ShareFile(ctx context.Context, p, recipient string, opts ShareOptions) (*Share, error) {
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	if recipient == "" {
		return nil, invalidOperation(p, "share recipient is empty")
	}
	level := opts.Level
	if level == "" {
		level = ShareRead
	}
	if level != ShareRead && level != ShareWrite {
		return nil, invalidOperation(p, "unknown share level %q", level)
	}
	actor := fs.principal(ctx)

	var grant *Share
	err = fs.update(ctx, "ShareFile", func(t txn) error {
		e, err := t.entry(p)
		if err != nil {
			return err
		}
		if e == nil {
			return notFound(p, "entry")
		}
		if err := checkOwner(actor, e); err != nil {
			return err
		}

		now := fs.now()
		if opts.ExpiresAt != nil && !opts.ExpiresAt.After(now) {
			return invalidOperation(p, "share expiry is in the past")
		}
		grant = &Share{
			ID:        fs.opts.IDs.New(),
			Path:      p,
			Owner:     actor.Name(),
			Recipient: recipient,
			Level:     level,
			Created:   now,
			Expires:   opts.ExpiresAt,
		}
		if err := t.putShare(grant); err != nil {
			return err
		}

		e.Shared = true
		if !slices.Contains(e.SharedWith, recipient) {
			e.SharedWith = append(e.SharedWith, recipient)
		}
		return t.putEntry(e)
	})
	if err != nil {
		return nil, err
	}

	fs.emit(TopicShared, *grant)
	return grant, nil
}

// GetSharedWithUser returns the live grants to recipient joined with their
// target entries, oldest grant first. Expired grants and grants whose
// target no longer exists are skipped.
func (fs *FileSystem) GetSharedWithUser(ctx context.Context, recipient string) ([]SharedFile, error) {
	var out []SharedFile
	err := fs.view(ctx, "GetSharedWithUser", func(t txn) error {
		grants, err := t.sharesBy(idxRecipient, recipient)
		if err != nil {
			return err
		}
		now := fs.now()
		for _, s := range grants {
			if s.ExpiredAt(now) {
				continue
			}
			e, err := t.entry(s.Path)
			if err != nil {
				return err
			}
			if e == nil {
				continue
			}
			out = append(out, SharedFile{Share: *s, Name: e.Name, Path: e.Path, Size: e.Size, Modified: e.Modified})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b SharedFile) int {
		if c := a.Share.Created.Compare(b.Share.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.Share.ID, b.Share.ID)
	})
	return out, nil
}

// Unshare revokes a grant. The entry owner, the grantor and admins may
// revoke.
func (fs *FileSystem) Unshare(ctx context.Context, id string) error {
	actor := fs.principal(ctx)

	return fs.update(ctx, "Unshare", func(t txn) error {
		s, err := t.share(id)
		if err != nil {
			return err
		}
		if s == nil {
			return newError(ErrNotFound, "", "share %s not found", id)
		}
		e, err := t.entry(s.Path)
		if err != nil {
			return err
		}
		if s.Owner != actor.Name() {
			if e == nil {
				if !actor.IsAdmin() {
					return newError(ErrPermissionDenied, s.Path, "only the grantor may revoke, not %s", actor.Name())
				}
			} else if err := checkOwner(actor, e); err != nil {
				return err
			}
		}
		if err := t.tx.Delete(TableShares, id); err != nil {
			return err
		}
		if e == nil {
			return nil
		}

		remaining, err := t.sharesBy(idxPath, s.Path)
		if err != nil {
			return err
		}
		e.SharedWith = e.SharedWith[:0]
		for _, r := range remaining {
			if !slices.Contains(e.SharedWith, r.Recipient) {
				e.SharedWith = append(e.SharedWith, r.Recipient)
			}
		}
		e.Shared = len(e.SharedWith) > 0
		if !e.Shared {
			e.SharedWith = nil
		}
		return t.putEntry(e)
	})
}
