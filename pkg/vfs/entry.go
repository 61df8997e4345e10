package vfs

import (
	"maps"
	"slices"
	"time"
)

// Kind distinguishes files from folders.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Entry is the metadata record of one path.
type Entry struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Parent    string `json:"parent"`
	Kind      Kind   `json:"kind"`
	Extension string `json:"extension,omitempty"`
	Size      int64  `json:"size"`

	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Accessed time.Time `json:"accessed"`

	Owner       string `json:"owner"`
	Group       string `json:"group,omitempty"`
	Permissions Mode   `json:"permissions"`

	Hidden   bool              `json:"hidden,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`

	Shared     bool     `json:"shared,omitempty"`
	SharedWith []string `json:"shared_with,omitempty"`

	Locked     bool      `json:"locked,omitempty"`
	LockOwner  string    `json:"lock_owner,omitempty"`
	LockExpiry time.Time `json:"lock_expiry,omitzero"`

	Version     int    `json:"version"`
	ContentHash string `json:"content_hash,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

func (e *Entry) IsFolder() bool { return e.Kind == KindFolder }
func (e *Entry) IsFile() bool   { return e.Kind == KindFile }

// LockedAt reports whether the entry carries a lock that has not expired at t.
func (e *Entry) LockedAt(t time.Time) bool {
	return e.Locked && t.Before(e.LockExpiry)
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Tags = slices.Clone(e.Tags)
	c.SharedWith = slices.Clone(e.SharedWith)
	c.Metadata = maps.Clone(e.Metadata)
	return &c
}

func (e *Entry) clearLock() {
	e.Locked = false
	e.LockOwner = ""
	e.LockExpiry = time.Time{}
}

// projectAt hides a lock that has logically expired at t.
func (e *Entry) projectAt(t time.Time) *Entry {
	if e.Locked && !e.LockedAt(t) {
		e.clearLock()
	}
	return e
}

// addTags merges tags into the entry's tag set, keeping it sorted.
func (e *Entry) addTags(tags ...string) {
	for _, tag := range tags {
		if tag != "" && !slices.Contains(e.Tags, tag) {
			e.Tags = append(e.Tags, tag)
		}
	}
	slices.Sort(e.Tags)
}

// Lock is an advisory exclusive lock on a path.
type Lock struct {
	Path     string    `json:"path"`
	Owner    string    `json:"owner"`
	Acquired time.Time `json:"acquired"`
	Expires  time.Time `json:"expires"`
}

// LiveAt reports whether the lock is still held at t.
func (l *Lock) LiveAt(t time.Time) bool {
	return t.Before(l.Expires)
}

// ShareLevel is the access granted by a share.
type ShareLevel string

const (
	ShareRead  ShareLevel = "read"
	ShareWrite ShareLevel = "write"
)

// Share is a grant of access to one path for one recipient.
type Share struct {
	ID        string     `json:"id"`
	Path      string     `json:"path"`
	Owner     string     `json:"owner"`
	Recipient string     `json:"recipient"`
	Level     ShareLevel `json:"level"`
	Created   time.Time  `json:"created"`
	Expires   *time.Time `json:"expires,omitempty"`
}

// ExpiredAt reports whether the grant has expired at t.
func (s *Share) ExpiredAt(t time.Time) bool {
	return s.Expires != nil && !t.Before(*s.Expires)
}

// SharedFile joins a grant with a projection of its target entry.
type SharedFile struct {
	Share    Share
	Name     string
	Path     string
	Size     int64
	Modified time.Time
}

// Version is a snapshot of a file taken before a differing overwrite.
type Version struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Payload   []byte    `json:"payload"`
	Entry     Entry     `json:"entry"`
}

// TrashItem is a soft-deleted entry, with its payload for files.
type TrashItem struct {
	OriginalPath string    `json:"original_path"`
	Entry        Entry     `json:"entry"`
	Payload      []byte    `json:"payload,omitempty"`
	DeletedBy    string    `json:"deleted_by"`
	DeletedAt    time.Time `json:"deleted_at"`
}

// RecentFile is one element of a principal's recently used list.
type RecentFile struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Accessed time.Time `json:"accessed"`
}

// Stats aggregates counts over the whole tree.
type Stats struct {
	Files       int64
	Folders     int64
	TotalSize   int64
	TrashItems  int64
	Versions    int64
	ActiveLocks int64
	Shares      int64
}
