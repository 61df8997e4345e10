package vfs

import "context"

// OrphanReport lists rows whose owning entry no longer exists.
type OrphanReport struct {
	// Content holds payload rows without a file entry.
	Content []string

	// Versions holds IDs of snapshots whose path has neither a live entry
	// nor a trash item.
	Versions []string

	// Locks holds lock rows without an entry.
	Locks []string
}

// Total returns the number of orphaned rows.
func (r *OrphanReport) Total() int {
	return len(r.Content) + len(r.Versions) + len(r.Locks)
}

// CollectOrphans finds rows left behind by interrupted or external writes to
// the store, and deletes them when remove is set.
func (fs *FileSystem) CollectOrphans(ctx context.Context, remove bool) (*OrphanReport, error) {
	report := &OrphanReport{}
	scan := func(t txn) error {
		rows, err := t.tx.All(TableContent)
		if err != nil {
			return err
		}
		for _, row := range rows {
			e, err := t.entry(row.Key)
			if err != nil {
				return err
			}
			if e == nil || !e.IsFile() {
				report.Content = append(report.Content, row.Key)
			}
		}

		rows, err = t.tx.All(TableVersions)
		if err != nil {
			return err
		}
		referenced := make(map[string]bool)
		for _, row := range rows {
			var v Version
			if err := decode(row.Value, &v); err != nil {
				return err
			}
			p := v.Path
			live, seen := referenced[p]
			if !seen {
				if live, err = fs.referenced(t, p); err != nil {
					return err
				}
				referenced[p] = live
			}
			if !live {
				report.Versions = append(report.Versions, row.Key)
			}
		}

		rows, err = t.tx.All(TableLocks)
		if err != nil {
			return err
		}
		for _, row := range rows {
			e, err := t.entry(row.Key)
			if err != nil {
				return err
			}
			if e == nil {
				report.Locks = append(report.Locks, row.Key)
			}
		}

		if !remove {
			return nil
		}
		for _, p := range report.Content {
			if err := t.deleteContent(p); err != nil {
				return err
			}
		}
		for _, id := range report.Versions {
			if err := t.tx.Delete(TableVersions, id); err != nil {
				return err
			}
		}
		for _, p := range report.Locks {
			if err := t.deleteLock(p); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if remove {
		err = fs.update(ctx, "CollectOrphans", scan)
	} else {
		err = fs.view(ctx, "CollectOrphans", scan)
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// referenced reports whether p has a live entry or a trash item.
func (fs *FileSystem) referenced(t txn, p string) (bool, error) {
	e, err := t.entry(p)
	if err != nil || e != nil {
		return e != nil, err
	}
	item, err := t.trashItem(p)
	return item != nil, err
}
