package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/deskfs/pkg/store"
)

// BadgerStore implements store.Store on top of BadgerDB.
//
// Rows, index entries and table schemas live in one keyspace (see keys.go).
// Each View or Update maps onto a single Badger transaction, so the
// all-or-nothing guarantee of Update comes from Badger itself: a callback
// error discards the transaction.
//
// Thread Safety:
// BadgerDB transactions are MVCC and safe for concurrent use. Concurrent
// Updates touching the same keys can fail with badger.ErrConflict, which is
// returned to the caller wrapped.
type BadgerStore struct {
	db *badger.DB

	// schemas caches declared table schemas. Persisted under s\x00<table>.
	mu      sync.RWMutex
	schemas map[string]store.TableSchema
}

// BadgerStoreConfig configures a BadgerStore.
type BadgerStoreConfig struct {
	// DBPath is the directory holding the database files.
	// Ignored when InMemory is set.
	DBPath string

	// InMemory runs Badger without touching disk.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// BlockCacheSizeMB is Badger's block cache size in MB (default: 64)
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is Badger's index cache size in MB (default: 32)
	IndexCacheSizeMB int64
}

// NewBadgerStore opens (or creates) a BadgerDB-backed store.
//
// Previously declared table schemas are loaded from the database, so a
// reopened store answers Tables() without CreateTables being called again.
//
// Parameters:
//   - ctx: Context for cancellation
//   - config: Database location and tuning
//
// Returns:
//   - *BadgerStore: A store ready for use
//   - error: Error if the database cannot be opened
func NewBadgerStore(ctx context.Context, config BadgerStoreConfig) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.DBPath == "" {
			return nil, errors.New("badger store requires a db path")
		}
		opts = badger.DefaultOptions(config.DBPath)
	}

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}

	opts = opts.
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None).
		WithSyncWrites(config.SyncWrites).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	s := &BadgerStore{
		db:      db,
		schemas: make(map[string]store.TableSchema),
	}

	if err := s.loadSchemas(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *BadgerStore) loadSchemas() error {
	return s.db.View(func(txn *badger.Txn) error {
		prefix := schemaPrefix()
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true})
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read schema: %w", err)
			}
			schema, err := decodeSchema(data)
			if err != nil {
				return err
			}
			s.schemas[schema.Name] = schema
		}
		return nil
	})
}

// CreateTables declares and persists table schemas.
func (s *BadgerStore) CreateTables(ctx context.Context, schemas ...store.TableSchema) error {
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

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, schema := range merged {
			data, err := encodeSchema(schema)
			if err != nil {
				return err
			}
			if err := txn.Set(schemaKey(schema.Name), data); err != nil {
				return fmt.Errorf("failed to store schema %q: %w", schema.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for name, schema := range merged {
		s.schemas[name] = schema
	}
	return nil
}

// Tables returns the declared schemas sorted by name.
func (s *BadgerStore) Tables() []store.TableSchema {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.TableSchema, 0, len(s.schemas))
	for _, schema := range s.schemas {
		out = append(out, store.TableSchema{Name: schema.Name, Indexes: append([]string(nil), schema.Indexes...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// View runs fn inside a read-only Badger transaction.
func (s *BadgerStore) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{s: s, txn: txn, readOnly: true})
	})
}

// Update runs fn inside a read-write Badger transaction.
func (s *BadgerStore) Update(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{s: s, txn: txn})
	})
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("transaction conflict: %w", err)
	}
	return err
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

func (s *BadgerStore) schema(table string) (store.TableSchema, error) {
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

type badgerTx struct {
	s        *BadgerStore
	txn      *badger.Txn
	readOnly bool
}

func (tx *badgerTx) Get(table, key string) (*store.Row, error) {
	if _, err := tx.s.schema(table); err != nil {
		return nil, err
	}
	row, err := tx.getRow(table, key)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (tx *badgerTx) getRow(table, key string) (store.Row, error) {
	item, err := tx.txn.Get(rowKey(table, key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.Row{}, store.ErrKeyNotFound
		}
		return store.Row{}, fmt.Errorf("failed to get %s/%s: %w", table, key, err)
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return store.Row{}, fmt.Errorf("failed to read %s/%s: %w", table, key, err)
	}
	return decodeRow(key, data)
}

func (tx *badgerTx) Put(table string, row store.Row) error {
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

	if err := tx.dropIndexEntries(table, row.Key); err != nil {
		return err
	}

	data, err := encodeRow(row)
	if err != nil {
		return err
	}
	if err := tx.txn.Set(rowKey(table, row.Key), data); err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", table, row.Key, err)
	}

	for name, value := range row.Index {
		if err := tx.txn.Set(indexKey(table, name, value, row.Key), nil); err != nil {
			return fmt.Errorf("failed to index %s/%s on %s: %w", table, row.Key, name, err)
		}
	}
	return nil
}

// dropIndexEntries removes the index entries of the currently stored version
// of a row, if any.
func (tx *badgerTx) dropIndexEntries(table, key string) error {
	prev, err := tx.getRow(table, key)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for name, value := range prev.Index {
		if err := tx.txn.Delete(indexKey(table, name, value, key)); err != nil {
			return fmt.Errorf("failed to unindex %s/%s on %s: %w", table, key, name, err)
		}
	}
	return nil
}

func (tx *badgerTx) Delete(table, key string) error {
	if tx.readOnly {
		return store.ErrReadOnly
	}
	if _, err := tx.s.schema(table); err != nil {
		return err
	}
	if err := tx.dropIndexEntries(table, key); err != nil {
		return err
	}
	if err := tx.txn.Delete(rowKey(table, key)); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", table, key, err)
	}
	return nil
}

func (tx *badgerTx) All(table string) ([]store.Row, error) {
	if _, err := tx.s.schema(table); err != nil {
		return nil, err
	}

	prefix := rowPrefix(table)
	it := tx.txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true})
	defer it.Close()

	var out []store.Row
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := string(item.Key()[len(prefix):])
		data, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s/%s: %w", table, key, err)
		}
		row, err := decodeRow(key, data)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (tx *badgerTx) Lookup(table, index, value string) ([]store.Row, error) {
	return tx.Scan(table, index, store.Range{From: value, To: value + sep})
}

func (tx *badgerTx) Scan(table, index string, r store.Range) ([]store.Row, error) {
	schema, err := tx.s.schema(table)
	if err != nil {
		return nil, err
	}
	if !schema.HasIndex(index) {
		return nil, store.UnknownIndex(table, index)
	}

	prefix := indexPrefix(table, index)
	it := tx.txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: false})
	defer it.Close()

	var keys []string
	for it.Seek(append(append([]byte(nil), prefix...), r.From...)); it.ValidForPrefix(prefix); it.Next() {
		value, key, ok := splitIndexKey(prefix, it.Item().KeyCopy(nil))
		if !ok {
			continue
		}
		if r.To != "" && value >= r.To {
			break
		}
		if !r.Contains(value) {
			continue
		}
		keys = append(keys, key)
		if !r.Reverse && r.Limit > 0 && len(keys) == r.Limit {
			break
		}
	}

	if r.Reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
		if r.Limit > 0 && len(keys) > r.Limit {
			keys = keys[:r.Limit]
		}
	}

	out := make([]store.Row, 0, len(keys))
	for _, key := range keys {
		row, err := tx.getRow(table, key)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}
