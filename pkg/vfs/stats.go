package vfs

import "context"

// GetStats walks the tree from the root and counts the auxiliary tables.
// It also refreshes the entry, trash and lock gauges.
func (fs *FileSystem) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := fs.view(ctx, "GetStats", func(t txn) error {
		nodes, err := t.subtree(fs.rootEntry())
		if err != nil {
			return err
		}
		for _, n := range nodes[1:] {
			if n.IsFolder() {
				st.Folders++
				continue
			}
			st.Files++
			st.TotalSize += n.Size
		}

		trash, err := t.tx.All(TableTrash)
		if err != nil {
			return err
		}
		st.TrashItems = int64(len(trash))

		versions, err := t.tx.All(TableVersions)
		if err != nil {
			return err
		}
		st.Versions = int64(len(versions))

		shares, err := t.tx.All(TableShares)
		if err != nil {
			return err
		}
		st.Shares = int64(len(shares))

		rows, err := t.tx.All(TableLocks)
		if err != nil {
			return err
		}
		now := fs.now()
		for _, row := range rows {
			var l Lock
			if err := decode(row.Value, &l); err != nil {
				return err
			}
			if l.LiveAt(now) {
				st.ActiveLocks++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fs.opts.Metrics.SetEntries(st.Files, st.Folders)
	fs.opts.Metrics.SetTrashItems(st.TrashItems)
	fs.opts.Metrics.SetActiveLocks(st.ActiveLocks)
	return &st, nil
}
