package testing

import (
	"context"
	"testing"

	"github.com/marmos91/deskfs/pkg/store"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a conformance suite for store.Store implementations.
// It tests the interface contract, not implementation details, so every
// backend (memory, badger, sqlite) runs the same assertions.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func() store.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func() store.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Tables", suite.RunTableTests)
	t.Run("Rows", suite.RunRowTests)
	t.Run("Indexes", suite.RunIndexTests)
	t.Run("Transactions", suite.RunTransactionTests)
}

const (
	testTable = "items"
	idxColor  = "color"
	idxSize   = "size"
)

func testContext() context.Context {
	return context.Background()
}

// newStoreWithTable returns a fresh store with the items table declared.
func (suite *StoreTestSuite) newStoreWithTable(t *testing.T) store.Store {
	t.Helper()
	s := suite.NewStore()
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.CreateTables(testContext(), store.TableSchema{
		Name:    testTable,
		Indexes: []string{idxColor, idxSize},
	}))
	return s
}

func mustPut(t *testing.T, s store.Store, rows ...store.Row) {
	t.Helper()
	err := s.Update(testContext(), func(tx store.Tx) error {
		for _, row := range rows {
			if err := tx.Put(testTable, row); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func item(key, color string, size int64) store.Row {
	return store.Row{
		Key:   key,
		Value: []byte("value-" + key),
		Index: map[string]string{idxColor: color, idxSize: store.IndexInt(size)},
	}
}

func keysOf(rows []store.Row) []string {
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.Key)
	}
	return keys
}
