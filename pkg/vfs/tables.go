package vfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/deskfs/pkg/store"
)

// Persisted tables and their secondary indices.
const (
	TableEntries  = "entries"
	TableContent  = "content"
	TableVersions = "versions"
	TableTrash    = "trash"
	TableShares   = "shares"
	TableLocks    = "locks"
	TableRecent   = "recent"
)

const (
	idxName      = "name"
	idxParent    = "parent"
	idxKind      = "kind"
	idxExtension = "extension"
	idxSize      = "size"
	idxModified  = "modified"
	idxOwner     = "owner"
	idxPath      = "path"
	idxTimestamp = "timestamp"
	idxDeletedAt = "deleted_at"
	idxRecipient = "recipient"
	idxExpiry    = "expiry"
)

// Schemas lists every table the FileSystem declares on its store.
var Schemas = []store.TableSchema{
	{Name: TableEntries, Indexes: []string{idxName, idxParent, idxKind, idxExtension, idxSize, idxModified, idxOwner}},
	{Name: TableContent},
	{Name: TableVersions, Indexes: []string{idxPath, idxTimestamp}},
	{Name: TableTrash, Indexes: []string{idxDeletedAt, idxParent}},
	{Name: TableShares, Indexes: []string{idxPath, idxRecipient}},
	{Name: TableLocks, Indexes: []string{idxOwner, idxExpiry}},
	{Name: TableRecent},
}

// txn wraps a store transaction with typed accessors for every table.
// Accessors return raw store errors; operations wrap them once at the
// boundary.
type txn struct {
	tx store.Tx
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return nil
}

// get loads and decodes a row. It reports false when the key is absent.
func (t txn) get(table, key string, v any) (bool, error) {
	row, err := t.tx.Get(table, key)
	if errors.Is(err, store.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, decode(row.Value, v)
}

// ============================================================================
// Entries
// ============================================================================

func (t txn) entry(p string) (*Entry, error) {
	var e Entry
	ok, err := t.get(TableEntries, p, &e)
	if err != nil || !ok {
		return nil, err
	}
	return &e, nil
}

func (t txn) putEntry(e *Entry) error {
	data, err := encode(e)
	if err != nil {
		return err
	}
	index := map[string]string{
		idxName:     e.Name,
		idxParent:   e.Parent,
		idxKind:     string(e.Kind),
		idxSize:     store.IndexInt(e.Size),
		idxModified: store.IndexTime(e.Modified),
		idxOwner:    e.Owner,
	}
	if e.IsFile() {
		index[idxExtension] = e.Extension
	}
	return t.tx.Put(TableEntries, store.Row{Key: e.Path, Value: data, Index: index})
}

func (t txn) deleteEntry(p string) error {
	return t.tx.Delete(TableEntries, p)
}

func (t txn) decodeEntries(rows []store.Row) ([]*Entry, error) {
	out := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		var e Entry
		if err := decode(row.Value, &e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, nil
}

func (t txn) children(parent string) ([]*Entry, error) {
	rows, err := t.tx.Lookup(TableEntries, idxParent, parent)
	if err != nil {
		return nil, err
	}
	return t.decodeEntries(rows)
}

// subtree returns top and all its descendants, parents before children.
// Traversal uses an explicit worklist over the parent index.
func (t txn) subtree(top *Entry) ([]*Entry, error) {
	out := []*Entry{top}
	for i := 0; i < len(out); i++ {
		if !out[i].IsFolder() {
			continue
		}
		kids, err := t.children(out[i].Path)
		if err != nil {
			return nil, err
		}
		out = append(out, kids...)
	}
	return out, nil
}

// ============================================================================
// Content
// ============================================================================

func (t txn) content(p string) ([]byte, error) {
	row, err := t.tx.Get(TableContent, p)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.Value, nil
}

func (t txn) putContent(p string, payload []byte) error {
	return t.tx.Put(TableContent, store.Row{Key: p, Value: payload})
}

func (t txn) deleteContent(p string) error {
	return t.tx.Delete(TableContent, p)
}

// ============================================================================
// Versions
// ============================================================================

func (t txn) putVersion(v *Version) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return t.tx.Put(TableVersions, store.Row{
		Key:   v.ID,
		Value: data,
		Index: map[string]string{idxPath: v.Path, idxTimestamp: store.IndexTime(v.Timestamp)},
	})
}

func (t txn) version(id string) (*Version, error) {
	var v Version
	ok, err := t.get(TableVersions, id, &v)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// versions returns the snapshots of a path oldest first. Version IDs are
// ULIDs, so primary key order is creation order.
func (t txn) versions(p string) ([]*Version, error) {
	rows, err := t.tx.Lookup(TableVersions, idxPath, p)
	if err != nil {
		return nil, err
	}
	out := make([]*Version, 0, len(rows))
	for _, row := range rows {
		var v Version
		if err := decode(row.Value, &v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, nil
}

func (t txn) deleteVersions(p string) (int, error) {
	rows, err := t.tx.Lookup(TableVersions, idxPath, p)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		if err := t.tx.Delete(TableVersions, row.Key); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

// ============================================================================
// Trash
// ============================================================================

func (t txn) trashItem(p string) (*TrashItem, error) {
	var item TrashItem
	ok, err := t.get(TableTrash, p, &item)
	if err != nil || !ok {
		return nil, err
	}
	return &item, nil
}

func (t txn) putTrash(item *TrashItem) error {
	data, err := encode(item)
	if err != nil {
		return err
	}
	return t.tx.Put(TableTrash, store.Row{
		Key:   item.OriginalPath,
		Value: data,
		Index: map[string]string{idxDeletedAt: store.IndexTime(item.DeletedAt), idxParent: item.Entry.Parent},
	})
}

func (t txn) deleteTrash(p string) error {
	return t.tx.Delete(TableTrash, p)
}

func (t txn) decodeTrash(rows []store.Row) ([]*TrashItem, error) {
	out := make([]*TrashItem, 0, len(rows))
	for _, row := range rows {
		var item TrashItem
		if err := decode(row.Value, &item); err != nil {
			return nil, err
		}
		out = append(out, &item)
	}
	return out, nil
}

// trashSubtree returns the trash item top and every trashed descendant,
// parents before children.
func (t txn) trashSubtree(top *TrashItem) ([]*TrashItem, error) {
	out := []*TrashItem{top}
	for i := 0; i < len(out); i++ {
		if !out[i].Entry.IsFolder() {
			continue
		}
		rows, err := t.tx.Lookup(TableTrash, idxParent, out[i].OriginalPath)
		if err != nil {
			return nil, err
		}
		kids, err := t.decodeTrash(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, kids...)
	}
	return out, nil
}

// trashBefore returns trash items deleted strictly before cutoff, oldest
// first. A zero cutoff returns everything.
func (t txn) trashBefore(cutoff time.Time) ([]*TrashItem, error) {
	r := store.Range{}
	if !cutoff.IsZero() {
		r.To = store.IndexTime(cutoff)
	}
	rows, err := t.tx.Scan(TableTrash, idxDeletedAt, r)
	if err != nil {
		return nil, err
	}
	return t.decodeTrash(rows)
}

// ============================================================================
// Locks
// ============================================================================

func (t txn) lock(p string) (*Lock, error) {
	var l Lock
	ok, err := t.get(TableLocks, p, &l)
	if err != nil || !ok {
		return nil, err
	}
	return &l, nil
}

func (t txn) putLock(l *Lock) error {
	data, err := encode(l)
	if err != nil {
		return err
	}
	return t.tx.Put(TableLocks, store.Row{
		Key:   l.Path,
		Value: data,
		Index: map[string]string{idxOwner: l.Owner, idxExpiry: store.IndexTime(l.Expires)},
	})
}

func (t txn) deleteLock(p string) error {
	return t.tx.Delete(TableLocks, p)
}

// expiredLocks returns locks whose expiry is at or before now.
func (t txn) expiredLocks(now time.Time) ([]*Lock, error) {
	rows, err := t.tx.Scan(TableLocks, idxExpiry, store.Range{To: store.IndexTime(now.Add(time.Nanosecond))})
	if err != nil {
		return nil, err
	}
	out := make([]*Lock, 0, len(rows))
	for _, row := range rows {
		var l Lock
		if err := decode(row.Value, &l); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, nil
}

// ============================================================================
// Shares
// ============================================================================

func (t txn) share(id string) (*Share, error) {
	var s Share
	ok, err := t.get(TableShares, id, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (t txn) putShare(s *Share) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	return t.tx.Put(TableShares, store.Row{
		Key:   s.ID,
		Value: data,
		Index: map[string]string{idxPath: s.Path, idxRecipient: s.Recipient},
	})
}

func (t txn) sharesBy(index, value string) ([]*Share, error) {
	rows, err := t.tx.Lookup(TableShares, index, value)
	if err != nil {
		return nil, err
	}
	out := make([]*Share, 0, len(rows))
	for _, row := range rows {
		var s Share
		if err := decode(row.Value, &s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, nil
}

// ============================================================================
// Recent
// ============================================================================

func (t txn) recent(user string) ([]RecentFile, error) {
	var files []RecentFile
	if _, err := t.get(TableRecent, user, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (t txn) putRecent(user string, files []RecentFile) error {
	data, err := encode(files)
	if err != nil {
		return err
	}
	return t.tx.Put(TableRecent, store.Row{Key: user, Value: data})
}
