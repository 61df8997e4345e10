package vfs

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// SortKey selects the ListDirectory ordering.
type SortKey string

const (
	SortByName      SortKey = "name"
	SortBySize      SortKey = "size"
	SortByModified  SortKey = "modified"
	SortByCreated   SortKey = "created"
	SortByKind      SortKey = "kind"
	SortByExtension SortKey = "extension"
)

// ListOptions customizes ListDirectory.
type ListOptions struct {
	// SortBy defaults to SortByName. Folders always precede files.
	SortBy SortKey

	// Descending reverses the order within folders and within files.
	Descending bool

	// IncludeHidden lists hidden entries too.
	IncludeHidden bool

	// Pattern keeps only names matching a doublestar glob such as "*.{md,txt}".
	Pattern string

	// Predicate keeps only entries for which it returns true.
	Predicate func(*Entry) bool
}

// Get returns the entry at p, or nil when nothing exists there. It performs
// no permission check and does not touch access times.
func (fs *FileSystem) Get(ctx context.Context, p string) (*Entry, error) {
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}

	var e *Entry
	err = fs.view(ctx, "Get", func(t txn) error {
		var err error
		e, err = fs.lookup(t, p)
		return err
	})
	if err != nil || e == nil {
		return nil, err
	}
	return e.projectAt(fs.now()), nil
}

// ReadFile returns the payload of the file at p and refreshes its access
// time. Requires read permission.
func (fs *FileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	actor := fs.principal(ctx)

	var (
		payload []byte
		recent  []RecentFile
	)
	err = fs.update(ctx, "ReadFile", func(t txn) error {
		e, err := fs.lookup(t, p)
		if err != nil {
			return err
		}
		if e == nil {
			return notFound(p, "file")
		}
		if !e.IsFile() {
			return invalidOperation(p, "cannot read a folder")
		}
		if err := check(actor, e, PermRead); err != nil {
			return err
		}

		data, err := t.content(p)
		if err != nil {
			return err
		}
		payload = bytes.Clone(data)

		now := fs.now()
		e.Accessed = now
		if err := t.putEntry(e); err != nil {
			return err
		}
		recent, err = fs.touchRecent(t, actor.Name(), e, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	fs.opts.Metrics.RecordBytes("read", int64(len(payload)))
	fs.emit(TopicRecentUpdated, RecentEvent{User: actor.Name(), Files: recent})
	if payload == nil {
		payload = []byte{}
	}
	return payload, nil
}

// ReadParsed reads the file at p and decodes it by extension: json, yaml,
// yml and toml are supported. Other extensions and malformed payloads fail
// with ErrInvalidOperation.
func (fs *FileSystem) ReadParsed(ctx context.Context, p string) (any, error) {
	payload, err := fs.ReadFile(ctx, p)
	if err != nil {
		return nil, err
	}

	var v any
	switch ext := ExtensionOf(p); ext {
	case "json":
		err = json.Unmarshal(payload, &v)
	case "yaml", "yml":
		err = yaml.Unmarshal(payload, &v)
	case "toml":
		var m map[string]any
		err = toml.Unmarshal(payload, &m)
		v = m
	default:
		return nil, invalidOperation(p, "no parser for extension %q", ext)
	}
	if err != nil {
		return nil, &Error{Code: ErrInvalidOperation, Message: "failed to parse payload", Path: p, Err: err}
	}
	return v, nil
}

// ListDirectory returns the children of folder p. Requires read permission
// on the folder.
func (fs *FileSystem) ListDirectory(ctx context.Context, p string, opts ListOptions) ([]*Entry, error) {
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	if opts.Pattern != "" && !doublestar.ValidatePattern(opts.Pattern) {
		return nil, invalidOperation(p, "invalid pattern %q", opts.Pattern)
	}
	actor := fs.principal(ctx)

	var children []*Entry
	err = fs.view(ctx, "ListDirectory", func(t txn) error {
		dir, err := fs.folder(t, p)
		if err != nil {
			return err
		}
		if err := check(actor, dir, PermRead); err != nil {
			return err
		}
		children, err = t.children(p)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := fs.now()
	out := children[:0]
	for _, e := range children {
		e = e.projectAt(now)
		if e.Hidden && !opts.IncludeHidden {
			continue
		}
		if opts.Pattern != "" {
			if ok, _ := doublestar.Match(opts.Pattern, e.Name); !ok {
				continue
			}
		}
		if opts.Predicate != nil && !opts.Predicate(e) {
			continue
		}
		out = append(out, e)
	}
	sortEntries(out, opts.SortBy, opts.Descending)
	return out, nil
}

func sortEntries(entries []*Entry, key SortKey, desc bool) {
	byKey := func(a, b *Entry) int {
		switch key {
		case SortBySize:
			return cmp.Compare(a.Size, b.Size)
		case SortByModified:
			return a.Modified.Compare(b.Modified)
		case SortByCreated:
			return a.Created.Compare(b.Created)
		case SortByKind:
			return cmp.Compare(a.MimeType, b.MimeType)
		case SortByExtension:
			return cmp.Compare(a.Extension, b.Extension)
		default:
			return 0
		}
	}

	slices.SortStableFunc(entries, func(a, b *Entry) int {
		if a.IsFolder() != b.IsFolder() {
			if a.IsFolder() {
				return -1
			}
			return 1
		}
		c := byKey(a, b)
		if c == 0 {
			c = cmp.Compare(a.Name, b.Name)
		}
		if desc {
			return -c
		}
		return c
	})
}
