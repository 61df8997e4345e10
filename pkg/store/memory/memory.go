package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/marmos91/deskfs/pkg/store"
)

// MemoryStore implements store.Store with in-process maps.
//
// All data is lost when the process exits. It is intended for tests,
// development and short-lived CLI sessions.
//
// Thread Safety:
// A single read-write mutex serializes Update transactions and lets View
// transactions run concurrently. Rollback replays an undo log recorded by
// the write transaction in reverse order.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*table
	closed bool
}

type table struct {
	schema store.TableSchema
	rows   map[string]store.Row
}

// undoRecord captures the state of one key before it was first written in
// a transaction. prev is nil when the key did not exist.
type undoRecord struct {
	table string
	key   string
	prev  *store.Row
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*table),
	}
}

// CreateTables declares tables, merging index lists of existing tables.
func (s *MemoryStore) CreateTables(ctx context.Context, schemas ...store.TableSchema) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	for _, schema := range schemas {
		t, ok := s.tables[schema.Name]
		if !ok {
			s.tables[schema.Name] = &table{
				schema: store.TableSchema{Name: schema.Name, Indexes: append([]string(nil), schema.Indexes...)},
				rows:   make(map[string]store.Row),
			}
			continue
		}
		for _, idx := range schema.Indexes {
			if !t.schema.HasIndex(idx) {
				t.schema.Indexes = append(t.schema.Indexes, idx)
			}
		}
	}
	return nil
}

// Tables returns declared schemas sorted by name.
func (s *MemoryStore) Tables() []store.TableSchema {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.TableSchema, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, store.TableSchema{Name: t.schema.Name, Indexes: append([]string(nil), t.schema.Indexes...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// View runs fn with a read-only transaction.
func (s *MemoryStore) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrClosed
	}

	return fn(&memoryTx{s: s, readOnly: true})
}

// Update runs fn with a read-write transaction, rolling back on error.
func (s *MemoryStore) Update(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	tx := &memoryTx{s: s, touched: make(map[string]struct{})}

	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// Close marks the store closed and drops its data.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tables = make(map[string]*table)
	return nil
}

// ============================================================================
// Transaction
// ============================================================================

type memoryTx struct {
	s        *MemoryStore
	readOnly bool
	undo     []undoRecord
	touched  map[string]struct{}
}

func (tx *memoryTx) table(name string) (*table, error) {
	t, ok := tx.s.tables[name]
	if !ok {
		return nil, store.UnknownTable(name)
	}
	return t, nil
}

// remember records the pre-image of a key the first time it is written.
func (tx *memoryTx) remember(t *table, key string) {
	id := t.schema.Name + "\x00" + key
	if _, ok := tx.touched[id]; ok {
		return
	}
	tx.touched[id] = struct{}{}

	rec := undoRecord{table: t.schema.Name, key: key}
	if prev, ok := t.rows[key]; ok {
		p := prev
		rec.prev = &p
	}
	tx.undo = append(tx.undo, rec)
}

func (tx *memoryTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		rec := tx.undo[i]
		t := tx.s.tables[rec.table]
		if rec.prev == nil {
			delete(t.rows, rec.key)
		} else {
			t.rows[rec.key] = *rec.prev
		}
	}
	tx.undo = nil
}

func (tx *memoryTx) Get(tableName, key string) (*store.Row, error) {
	t, err := tx.table(tableName)
	if err != nil {
		return nil, err
	}
	row, ok := t.rows[key]
	if !ok {
		return nil, store.ErrKeyNotFound
	}
	out := copyRow(row)
	return &out, nil
}

func (tx *memoryTx) Put(tableName string, row store.Row) error {
	if tx.readOnly {
		return store.ErrReadOnly
	}
	t, err := tx.table(tableName)
	if err != nil {
		return err
	}
	if err := store.ValidateRow(t.schema, row); err != nil {
		return err
	}
	tx.remember(t, row.Key)
	t.rows[row.Key] = copyRow(row)
	return nil
}

func (tx *memoryTx) Delete(tableName, key string) error {
	if tx.readOnly {
		return store.ErrReadOnly
	}
	t, err := tx.table(tableName)
	if err != nil {
		return err
	}
	if _, ok := t.rows[key]; !ok {
		return nil
	}
	tx.remember(t, key)
	delete(t.rows, key)
	return nil
}

func (tx *memoryTx) All(tableName string) ([]store.Row, error) {
	t, err := tx.table(tableName)
	if err != nil {
		return nil, err
	}
	out := make([]store.Row, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, copyRow(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (tx *memoryTx) Lookup(tableName, index, value string) ([]store.Row, error) {
	return tx.Scan(tableName, index, store.Range{From: value, To: value + "\x00"})
}

func (tx *memoryTx) Scan(tableName, index string, r store.Range) ([]store.Row, error) {
	t, err := tx.table(tableName)
	if err != nil {
		return nil, err
	}
	if !t.schema.HasIndex(index) {
		return nil, store.UnknownIndex(tableName, index)
	}

	var out []store.Row
	for _, row := range t.rows {
		v, ok := row.Index[index]
		if !ok || !r.Contains(v) {
			continue
		}
		out = append(out, copyRow(row))
	}

	sort.Slice(out, func(i, j int) bool {
		vi, vj := out[i].Index[index], out[j].Index[index]
		if vi != vj {
			return vi < vj
		}
		return out[i].Key < out[j].Key
	})

	if r.Reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if r.Limit > 0 && len(out) > r.Limit {
		out = out[:r.Limit]
	}
	return out, nil
}

func copyRow(row store.Row) store.Row {
	return store.Row{
		Key:   row.Key,
		Value: append([]byte(nil), row.Value...),
		Index: store.CloneIndex(row.Index),
	}
}
