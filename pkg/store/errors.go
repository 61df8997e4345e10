package store

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by Tx.Get when no row has the requested key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnknownTable is returned when a transaction touches a table that was
	// never declared with CreateTables.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownIndex is returned when a row or a query names an index that
	// its table schema does not declare.
	ErrUnknownIndex = errors.New("unknown index")

	// ErrReadOnly is returned by write methods called inside View.
	ErrReadOnly = errors.New("transaction is read-only")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// UnknownTable wraps ErrUnknownTable with the table name.
func UnknownTable(table string) error {
	return fmt.Errorf("%w: %s", ErrUnknownTable, table)
}

// UnknownIndex wraps ErrUnknownIndex with the table and index names.
func UnknownIndex(table, index string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownIndex, table, index)
}

// ValidateRow checks that a row only sets indices its schema declares.
func ValidateRow(schema TableSchema, row Row) error {
	if row.Key == "" {
		return fmt.Errorf("empty primary key in table %s", schema.Name)
	}
	for name := range row.Index {
		if !schema.HasIndex(name) {
			return UnknownIndex(schema.Name, name)
		}
	}
	return nil
}
