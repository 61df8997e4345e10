package vfs

import (
	"context"
	"maps"
)

// Attributes lists the entry fields SetAttributes may change. Nil fields
// are left untouched.
type Attributes struct {
	Hidden      *bool
	Tags        []string
	Metadata    map[string]string
	Permissions *Mode
	Group       *string

	// ReplaceTags replaces the tag set with Tags instead of adding to it.
	ReplaceTags bool
}

// SetAttributes updates the descriptive fields of the entry at p. Only the
// owner or an admin may change them. An empty metadata value removes the
// key.
func (fs *FileSystem) SetAttributes(ctx context.Context, p string, attrs Attributes) (*Entry, error) {
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	if p == RootPath {
		return nil, invalidOperation(p, "cannot change the root folder")
	}
	actor := fs.principal(ctx)

	var updated *Entry
	err = fs.update(ctx, "SetAttributes", func(t txn) error {
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

		if attrs.Hidden != nil {
			e.Hidden = *attrs.Hidden
		}
		if attrs.Permissions != nil {
			e.Permissions = *attrs.Permissions
		}
		if attrs.Group != nil {
			e.Group = *attrs.Group
		}
		if attrs.ReplaceTags {
			e.Tags = nil
		}
		e.addTags(attrs.Tags...)
		if len(attrs.Metadata) > 0 {
			if e.Metadata == nil {
				e.Metadata = make(map[string]string, len(attrs.Metadata))
			}
			maps.Copy(e.Metadata, attrs.Metadata)
			maps.DeleteFunc(e.Metadata, func(_, v string) bool { return v == "" })
		}
		e.Modified = fs.now()

		if err := t.putEntry(e); err != nil {
			return err
		}
		updated = e.projectAt(e.Modified)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.announce(OpUpdate, p, "", actor.Name(), updated.Clone())
	return updated, nil
}
