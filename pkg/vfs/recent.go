package vfs

import (
	"context"
	"time"
)

// touchRecent moves e to the front of user's recent list.
func (fs *FileSystem) touchRecent(t txn, user string, e *Entry, now time.Time) ([]RecentFile, error) {
	files, err := t.recent(user)
	if err != nil {
		return nil, err
	}

	out := make([]RecentFile, 0, len(files)+1)
	out = append(out, RecentFile{Path: e.Path, Name: e.Name, Accessed: now})
	for _, f := range files {
		if f.Path != e.Path {
			out = append(out, f)
		}
	}
	if len(out) > fs.opts.RecentLimit {
		out = out[:fs.opts.RecentLimit]
	}

	if err := t.putRecent(user, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRecentFiles returns the acting principal's recently written or read
// files, most recent first. Paths that no longer exist are skipped.
func (fs *FileSystem) GetRecentFiles(ctx context.Context) ([]RecentFile, error) {
	user := fs.principal(ctx).Name()

	var out []RecentFile
	err := fs.view(ctx, "GetRecentFiles", func(t txn) error {
		files, err := t.recent(user)
		if err != nil {
			return err
		}
		out = make([]RecentFile, 0, len(files))
		for _, f := range files {
			e, err := t.entry(f.Path)
			if err != nil {
				return err
			}
			if e != nil && e.IsFile() {
				out = append(out, f)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
