package testing

import (
	"testing"

	"github.com/marmos91/deskfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunIndexTests executes secondary index tests.
func (suite *StoreTestSuite) RunIndexTests(t *testing.T) {
	t.Run("Lookup_Exact", suite.testLookupExact)
	t.Run("Lookup_PrefixIsNotMatch", suite.testLookupNotPrefix)
	t.Run("Scan_Range", suite.testScanRange)
	t.Run("Scan_ReverseLimit", suite.testScanReverseLimit)
	t.Run("UnknownIndex", suite.testUnknownIndex)
}

func (suite *StoreTestSuite) seedSizes(t *testing.T) store.Store {
	s := suite.newStoreWithTable(t)
	mustPut(t, s,
		item("a", "red", 10),
		item("b", "blue", 5),
		item("c", "red", 20),
		item("d", "green", 5),
		item("e", "red", 100),
	)
	return s
}

func (suite *StoreTestSuite) testLookupExact(t *testing.T) {
	s := suite.seedSizes(t)

	err := s.View(testContext(), func(tx store.Tx) error {
		rows, err := tx.Lookup(testTable, idxColor, "red")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c", "e"}, keysOf(rows))
		assert.Equal(t, []byte("value-c"), rows[1].Value)
		return nil
	})
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testLookupNotPrefix(t *testing.T) {
	s := suite.newStoreWithTable(t)
	mustPut(t, s,
		store.Row{Key: "1", Index: map[string]string{idxColor: "/docs"}},
		store.Row{Key: "2", Index: map[string]string{idxColor: "/docs/sub"}},
		store.Row{Key: "3", Index: map[string]string{idxColor: "/docs2"}},
	)

	err := s.View(testContext(), func(tx store.Tx) error {
		rows, err := tx.Lookup(testTable, idxColor, "/docs")
		require.NoError(t, err)
		assert.Equal(t, []string{"1"}, keysOf(rows))
		return nil
	})
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testScanRange(t *testing.T) {
	s := suite.seedSizes(t)

	err := s.View(testContext(), func(tx store.Tx) error {
		rows, err := tx.Scan(testTable, idxSize, store.Range{From: store.IndexInt(5), To: store.IndexInt(21)})
		require.NoError(t, err)
		// Ties on the index value are ordered by key.
		assert.Equal(t, []string{"b", "d", "a", "c"}, keysOf(rows))

		all, err := tx.Scan(testTable, idxSize, store.Range{})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "d", "a", "c", "e"}, keysOf(all))
		return nil
	})
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testScanReverseLimit(t *testing.T) {
	s := suite.seedSizes(t)

	err := s.View(testContext(), func(tx store.Tx) error {
		rows, err := tx.Scan(testTable, idxSize, store.Range{Reverse: true, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"e", "c"}, keysOf(rows))

		first, err := tx.Scan(testTable, idxSize, store.Range{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, keysOf(first))
		return nil
	})
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testUnknownIndex(t *testing.T) {
	s := suite.newStoreWithTable(t)

	err := s.Update(testContext(), func(tx store.Tx) error {
		return tx.Put(testTable, store.Row{Key: "k", Index: map[string]string{"weight": "1"}})
	})
	assert.ErrorIs(t, err, store.ErrUnknownIndex)

	err = s.View(testContext(), func(tx store.Tx) error {
		_, err := tx.Scan(testTable, "weight", store.Range{})
		return err
	})
	assert.ErrorIs(t, err, store.ErrUnknownIndex)
}
