package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/deskfs/pkg/store"
	"github.com/marmos91/deskfs/pkg/store/sqlite/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements store.Store on a single SQLite database.
//
// All tables share three physical tables created by the embedded migrations:
// kv_schemas (declared schemas), kv_rows (row values) and kv_index (one row
// per secondary index entry). Text comparison uses SQLite's BINARY collation,
// which orders index values the same way Go compares strings.
//
// The connection pool is limited to one connection, so transactions are
// serialized. This also keeps ":memory:" databases alive across calls.
type SQLiteStore struct {
	db   *sql.DB
	path string

	mu      sync.RWMutex
	schemas map[string]store.TableSchema
}

// SQLiteStoreConfig configures a SQLiteStore.
type SQLiteStoreConfig struct {
	// Path is the database file, or ":memory:".
	Path string

	// BusyTimeoutMS is how long SQLite waits on a locked database (default: 5000).
	BusyTimeoutMS int
}

// NewSQLiteStore opens the database, applies migrations and loads the
// declared table schemas.
func NewSQLiteStore(ctx context.Context, config SQLiteStoreConfig) (*SQLiteStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := OpenConnection(config.Path, config.BusyTimeoutMS)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db:      db,
		path:    config.Path,
		schemas: make(map[string]store.TableSchema),
	}
	if err := s.loadSchemas(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string, busyTimeoutMS int) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite store requires a path")
	}
	if busyTimeoutMS <= 0 {
		busyTimeoutMS = 5000
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	return db, nil
}

func (s *SQLiteStore) loadSchemas(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, "SELECT name, indexes FROM kv_schemas")
	if err != nil {
		return fmt.Errorf("failed to load schemas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, indexes string
		if err := rows.Scan(&name, &indexes); err != nil {
			return fmt.Errorf("failed to scan schema: %w", err)
		}
		schema := store.TableSchema{Name: name}
		if err := json.Unmarshal([]byte(indexes), &schema.Indexes); err != nil {
			return fmt.Errorf("failed to decode schema %q: %w", name, err)
		}
		s.schemas[name] = schema
	}
	return rows.Err()
}

// CreateTables declares and persists table schemas.
func (s *SQLiteStore) CreateTables(ctx context.Context, schemas ...store.TableSchema) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]store.TableSchema, len(schemas))
	for _, schema := range schemas {
		current, ok := merged[schema.Name]
		if !ok {
			current, ok = s.schemas[schema.Name]
		}
		if !ok {
			current = store.TableSchema{Name: schema.Name}
		}
		for _, idx := range schema.Indexes {
			if !current.HasIndex(idx) {
				current.Indexes = append(current.Indexes, idx)
			}
		}
		merged[schema.Name] = current
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, schema := range merged {
		indexes, err := json.Marshal(schema.Indexes)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to encode schema %q: %w", schema.Name, err)
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO kv_schemas (name, indexes) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET indexes = excluded.indexes",
			schema.Name, string(indexes))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to store schema %q: %w", schema.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schemas: %w", err)
	}

	for name, schema := range merged {
		s.schemas[name] = schema
	}
	return nil
}

// Tables returns the declared schemas sorted by name.
func (s *SQLiteStore) Tables() []store.TableSchema {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.TableSchema, 0, len(s.schemas))
	for _, schema := range s.schemas {
		out = append(out, store.TableSchema{Name: schema.Name, Indexes: append([]string(nil), schema.Indexes...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// View runs fn inside a read-only SQL transaction.
func (s *SQLiteStore) View(ctx context.Context, fn func(store.Tx) error) error {
	return s.run(ctx, true, fn)
}

// Update runs fn inside a read-write SQL transaction.
func (s *SQLiteStore) Update(ctx context.Context, fn func(store.Tx) error) error {
	return s.run(ctx, false, fn)
}

func (s *SQLiteStore) run(ctx context.Context, readOnly bool, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// A cancelled caller context must not abort a transaction that has
	// already started.
	txCtx := context.WithoutCancel(ctx)

	sqlTx, err := s.db.BeginTx(txCtx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			sqlTx.Rollback()
			panic(r)
		}
	}()

	tx := &sqliteTx{s: s, tx: sqlTx, ctx: txCtx, readOnly: readOnly}
	if err := fn(tx); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (s *SQLiteStore) schema(table string) (store.TableSchema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schema, ok := s.schemas[table]
	if !ok {
		return store.TableSchema{}, store.UnknownTable(table)
	}
	return schema, nil
}

// ============================================================================
// Transaction
// ============================================================================

type sqliteTx struct {
	s        *SQLiteStore
	tx       *sql.Tx
	ctx      context.Context
	readOnly bool
}

func (tx *sqliteTx) Get(table, key string) (*store.Row, error) {
	if _, err := tx.s.schema(table); err != nil {
		return nil, err
	}

	var value []byte
	err := tx.tx.QueryRowContext(tx.ctx, "SELECT value FROM kv_rows WHERE tbl = ? AND key = ?", table, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", table, key, err)
	}

	index, err := tx.indexOf(table, key)
	if err != nil {
		return nil, err
	}
	return &store.Row{Key: key, Value: value, Index: index}, nil
}

func (tx *sqliteTx) indexOf(table, key string) (map[string]string, error) {
	rows, err := tx.tx.QueryContext(tx.ctx, "SELECT name, value FROM kv_index WHERE tbl = ? AND key = ?", table, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read index of %s/%s: %w", table, key, err)
	}
	defer rows.Close()

	var index map[string]string
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan index of %s/%s: %w", table, key, err)
		}
		if index == nil {
			index = make(map[string]string)
		}
		index[name] = value
	}
	return index, rows.Err()
}

func (tx *sqliteTx) Put(table string, row store.Row) error {
	if tx.readOnly {
		return store.ErrReadOnly
	}
	schema, err := tx.s.schema(table)
	if err != nil {
		return err
	}
	if err := store.ValidateRow(schema, row); err != nil {
		return err
	}

	_, err = tx.tx.ExecContext(tx.ctx,
		"INSERT INTO kv_rows (tbl, key, value) VALUES (?, ?, ?) ON CONFLICT(tbl, key) DO UPDATE SET value = excluded.value",
		table, row.Key, row.Value)
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", table, row.Key, err)
	}

	if _, err := tx.tx.ExecContext(tx.ctx, "DELETE FROM kv_index WHERE tbl = ? AND key = ?", table, row.Key); err != nil {
		return fmt.Errorf("failed to unindex %s/%s: %w", table, row.Key, err)
	}
	for name, value := range row.Index {
		_, err := tx.tx.ExecContext(tx.ctx,
			"INSERT INTO kv_index (tbl, name, value, key) VALUES (?, ?, ?, ?)",
			table, name, value, row.Key)
		if err != nil {
			return fmt.Errorf("failed to index %s/%s on %s: %w", table, row.Key, name, err)
		}
	}
	return nil
}

func (tx *sqliteTx) Delete(table, key string) error {
	if tx.readOnly {
		return store.ErrReadOnly
	}
	if _, err := tx.s.schema(table); err != nil {
		return err
	}
	if _, err := tx.tx.ExecContext(tx.ctx, "DELETE FROM kv_index WHERE tbl = ? AND key = ?", table, key); err != nil {
		return fmt.Errorf("failed to unindex %s/%s: %w", table, key, err)
	}
	if _, err := tx.tx.ExecContext(tx.ctx, "DELETE FROM kv_rows WHERE tbl = ? AND key = ?", table, key); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", table, key, err)
	}
	return nil
}

func (tx *sqliteTx) All(table string) ([]store.Row, error) {
	if _, err := tx.s.schema(table); err != nil {
		return nil, err
	}
	return tx.queryRows(table, "SELECT key, value FROM kv_rows WHERE tbl = ? ORDER BY key ASC", table)
}

func (tx *sqliteTx) Lookup(table, index, value string) ([]store.Row, error) {
	return tx.Scan(table, index, store.Range{From: value, To: value + "\x00"})
}

func (tx *sqliteTx) Scan(table, index string, r store.Range) ([]store.Row, error) {
	schema, err := tx.s.schema(table)
	if err != nil {
		return nil, err
	}
	if !schema.HasIndex(index) {
		return nil, store.UnknownIndex(table, index)
	}

	var q strings.Builder
	q.WriteString(`SELECT r.key, r.value FROM kv_index i
		JOIN kv_rows r ON r.tbl = i.tbl AND r.key = i.key
		WHERE i.tbl = ? AND i.name = ? AND i.value >= ?`)
	args := []any{table, index, r.From}
	if r.To != "" {
		q.WriteString(" AND i.value < ?")
		args = append(args, r.To)
	}
	if r.Reverse {
		q.WriteString(" ORDER BY i.value DESC, i.key DESC")
	} else {
		q.WriteString(" ORDER BY i.value ASC, i.key ASC")
	}
	if r.Limit > 0 {
		q.WriteString(" LIMIT ?")
		args = append(args, r.Limit)
	}

	return tx.queryRows(table, q.String(), args...)
}

// queryRows runs a query returning (key, value) pairs and attaches each
// row's index map.
func (tx *sqliteTx) queryRows(table, query string, args ...any) ([]store.Row, error) {
	rows, err := tx.tx.QueryContext(tx.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	var out []store.Row
	for rows.Next() {
		var row store.Row
		if err := rows.Scan(&row.Key, &row.Value); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
	}
	rows.Close()

	// Index maps are read after the cursor is closed: the pool has a
	// single connection.
	for i := range out {
		index, err := tx.indexOf(table, out[i].Key)
		if err != nil {
			return nil, err
		}
		out[i].Index = index
	}
	return out, nil
}
