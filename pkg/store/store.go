// Package store defines the persistence engine used by deskfs.
//
// A Store holds named tables. Every table row has a string primary key, an
// opaque value and an optional set of secondary index values. Indices are
// declared per table in a TableSchema and support exact lookups and ordered
// range scans. All reads and writes happen inside transactions obtained from
// View (read-only) or Update (read-write); an Update either commits every
// write made by its callback or none of them.
//
// Implementations:
//   - memory: maps guarded by a single mutex, undo log for rollback
//   - badger: BadgerDB with namespaced row and index keys
//   - sqlite: SQLite through database/sql with embedded migrations
package store

import (
	"context"
)

// TableSchema declares a table and the secondary indices its rows may carry.
type TableSchema struct {
	// Name is the table name. Must be unique within a store.
	Name string

	// Indexes lists the secondary index names rows of this table may set.
	Indexes []string
}

// HasIndex reports whether the schema declares the named index.
func (s TableSchema) HasIndex(name string) bool {
	for _, idx := range s.Indexes {
		if idx == name {
			return true
		}
	}
	return false
}

// Row is a single record of a table.
type Row struct {
	// Key is the primary key, unique within the table.
	Key string

	// Value is the encoded record. The store never interprets it.
	Value []byte

	// Index maps declared index names to the value this row is indexed under.
	// Indices missing from the map are not set for this row.
	Index map[string]string
}

// Range bounds an ordered index scan.
//
// A row matches when From <= value and, if To is non-empty, value < To.
// Results are ordered by (index value, primary key), reversed when Reverse is
// set. Limit caps the number of returned rows; zero means unlimited.
type Range struct {
	From    string
	To      string
	Reverse bool
	Limit   int
}

// Contains reports whether value falls inside the range bounds.
func (r Range) Contains(value string) bool {
	if value < r.From {
		return false
	}
	return r.To == "" || value < r.To
}

// Tx is a transaction view over all tables of a store.
//
// A Tx must not be used after the View or Update callback that received it
// returns. Write methods return ErrReadOnly inside a View.
type Tx interface {
	// Get returns the row stored under key, or ErrKeyNotFound.
	Get(table, key string) (*Row, error)

	// Put inserts or replaces the row with the same key, replacing its
	// index values as well.
	Put(table string, row Row) error

	// Delete removes the row with the given key. Deleting a missing key is
	// not an error.
	Delete(table, key string) error

	// All returns every row of the table ordered by primary key.
	All(table string) ([]Row, error)

	// Lookup returns the rows whose index value equals value, ordered by
	// primary key.
	Lookup(table, index, value string) ([]Row, error)

	// Scan returns the rows whose index value falls in r.
	Scan(table, index string, r Range) ([]Row, error)
}

// Store is a transactional multi-table persistence engine.
type Store interface {
	// CreateTables declares tables. Declaring an existing table again with
	// the same or a wider set of indices is allowed.
	CreateTables(ctx context.Context, schemas ...TableSchema) error

	// Tables returns the declared schemas ordered by table name.
	Tables() []TableSchema

	// View runs fn inside a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error

	// Update runs fn inside a read-write transaction. When fn returns an
	// error every write it made is discarded and the error is returned.
	Update(ctx context.Context, fn func(Tx) error) error

	// Close releases the resources held by the store.
	Close() error
}

// CloneIndex returns a copy of an index map so callers can keep it after the
// transaction ends.
func CloneIndex(index map[string]string) map[string]string {
	if index == nil {
		return nil
	}
	out := make(map[string]string, len(index))
	for k, v := range index {
		out[k] = v
	}
	return out
}
