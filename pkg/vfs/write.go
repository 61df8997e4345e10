package vfs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"strings"
)

// FolderOptions customizes CreateFolder.
type FolderOptions struct {
	// Permissions overrides DefaultFolderMode.
	Permissions *Mode

	// Group sets the entry group.
	Group string

	// Hidden marks the folder hidden. Names starting with "." are always hidden.
	Hidden bool

	Tags     []string
	Metadata map[string]string
}

// WriteOptions customizes WriteFile.
type WriteOptions struct {
	// Permissions sets the mode of a new file (default DefaultFileMode) or
	// replaces the mode of an existing one.
	Permissions *Mode

	// Group sets the entry group of a new file.
	Group string

	// Hidden marks the file hidden. Names starting with "." are always hidden.
	Hidden bool

	// Tags are added to the file's tag set.
	Tags []string

	// Metadata is merged into the file's metadata map.
	Metadata map[string]string
}

// Digest returns the hex SHA-256 of a payload, as stored in ContentHash.
func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// CreateFolder creates the folder name inside parentPath.
//
// Fails with ErrAlreadyExists if the path is occupied, ErrNotFound or
// ErrInvalidOperation if the parent is missing or not a folder, and
// ErrPermissionDenied without write permission on the parent.
func (fs *FileSystem) CreateFolder(ctx context.Context, parentPath, name string, opts FolderOptions) (*Entry, error) {
	parentPath, err := CleanPath(parentPath)
	if err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	p := JoinPath(parentPath, name)
	actor := fs.principal(ctx)

	var created *Entry
	err = fs.update(ctx, "CreateFolder", func(t txn) error {
		existing, err := t.entry(p)
		if err != nil {
			return err
		}
		if existing != nil {
			return alreadyExists(p)
		}

		parent, err := fs.folder(t, parentPath)
		if err != nil {
			return err
		}
		if err := check(actor, parent, PermWrite); err != nil {
			return err
		}

		now := fs.now()
		mode := DefaultFolderMode
		if opts.Permissions != nil {
			mode = *opts.Permissions
		}
		e := &Entry{
			Path:        p,
			Name:        name,
			Parent:      parentPath,
			Kind:        KindFolder,
			Created:     now,
			Modified:    now,
			Accessed:    now,
			Owner:       actor.Name(),
			Group:       opts.Group,
			Permissions: mode,
			Hidden:      opts.Hidden || strings.HasPrefix(name, "."),
			Metadata:    maps.Clone(opts.Metadata),
			Version:     1,
			Icon:        iconFor(KindFolder, ""),
		}
		e.addTags(opts.Tags...)

		if err := t.putEntry(e); err != nil {
			return err
		}
		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.announce(OpCreate, p, "", actor.Name(), created.Clone())
	return created, nil
}

// WriteFile creates or overwrites the file at p.
//
// The parent folder must exist and grant write permission. A live lock held
// by another principal fails with ErrLockConflict. When the payload digest
// differs from the stored one, the prior payload is kept as a Version and
// the entry version is incremented; an identical payload only refreshes the
// timestamps. Tags, metadata and share state of an existing file carry over.
func (fs *FileSystem) WriteFile(ctx context.Context, p string, payload []byte, opts WriteOptions) (*Entry, error) {
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	if p == RootPath {
		return nil, invalidOperation(p, "cannot write the root folder")
	}
	parentPath, name := SplitPath(p)
	actor := fs.principal(ctx)
	digest := Digest(payload)

	var (
		written *Entry
		isNew   bool
		recent  []RecentFile
	)
	err = fs.update(ctx, "WriteFile", func(t txn) error {
		prior, err := t.entry(p)
		if err != nil {
			return err
		}
		if prior != nil && prior.IsFolder() {
			return invalidOperation(p, "cannot write a folder")
		}

		parent, err := fs.folder(t, parentPath)
		if err != nil {
			return err
		}
		if err := check(actor, parent, PermWrite); err != nil {
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

		var e *Entry
		if prior == nil {
			isNew = true
			mode := DefaultFileMode
			if opts.Permissions != nil {
				mode = *opts.Permissions
			}
			e = &Entry{
				Path:        p,
				Name:        name,
				Parent:      parentPath,
				Kind:        KindFile,
				Extension:   ExtensionOf(name),
				Created:     now,
				Owner:       actor.Name(),
				Group:       opts.Group,
				Permissions: mode,
				Hidden:      strings.HasPrefix(name, "."),
				Version:     1,
			}
		} else {
			e = prior.Clone()
			if held == nil {
				e.clearLock()
			}
			if opts.Permissions != nil {
				e.Permissions = *opts.Permissions
			}
			if prior.ContentHash != digest {
				if err := fs.saveVersion(t, prior, actor.Name(), now); err != nil {
					return err
				}
				e.Version++
			}
		}

		e.Size = int64(len(payload))
		e.ContentHash = digest
		e.Modified = now
		e.Accessed = now
		e.MimeType = mimeTypeFor(e.Extension, payload)
		e.Icon = iconFor(KindFile, e.Extension)
		e.Hidden = e.Hidden || opts.Hidden
		e.addTags(opts.Tags...)
		if len(opts.Metadata) > 0 {
			if e.Metadata == nil {
				e.Metadata = make(map[string]string, len(opts.Metadata))
			}
			maps.Copy(e.Metadata, opts.Metadata)
		}

		if err := t.putContent(p, payload); err != nil {
			return err
		}
		if err := t.putEntry(e); err != nil {
			return err
		}
		if recent, err = fs.touchRecent(t, actor.Name(), e, now); err != nil {
			return err
		}
		written = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.opts.Metrics.RecordBytes("write", int64(len(payload)))
	op := OpWrite
	if isNew {
		op = OpCreate
	}
	fs.announce(op, p, "", actor.Name(), written.Clone())
	fs.emit(TopicRecentUpdated, RecentEvent{User: actor.Name(), Files: recent})
	return written, nil
}
