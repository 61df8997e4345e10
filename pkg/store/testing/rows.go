package testing

import (
	"testing"

	"github.com/marmos91/deskfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRowTests executes primary-key operation tests.
func (suite *StoreTestSuite) RunRowTests(t *testing.T) {
	t.Run("PutGet", suite.testPutGet)
	t.Run("Get_NotFound", suite.testGetNotFound)
	t.Run("Put_Overwrite", suite.testPutOverwrite)
	t.Run("Delete", suite.testDelete)
	t.Run("Delete_Idempotent", suite.testDeleteIdempotent)
	t.Run("All_OrderedByKey", suite.testAllOrdered)
}

func (suite *StoreTestSuite) testPutGet(t *testing.T) {
	s := suite.newStoreWithTable(t)
	mustPut(t, s, item("a", "red", 3))

	err := s.View(testContext(), func(tx store.Tx) error {
		row, err := tx.Get(testTable, "a")
		require.NoError(t, err)
		assert.Equal(t, "a", row.Key)
		assert.Equal(t, []byte("value-a"), row.Value)
		assert.Equal(t, "red", row.Index[idxColor])
		assert.Equal(t, store.IndexInt(3), row.Index[idxSize])
		return nil
	})
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testGetNotFound(t *testing.T) {
	s := suite.newStoreWithTable(t)

	err := s.View(testContext(), func(tx store.Tx) error {
		_, err := tx.Get(testTable, "nope")
		return err
	})
	assert.ErrorIs(t, err, store.ErrKeyNotFound)
}

func (suite *StoreTestSuite) testPutOverwrite(t *testing.T) {
	s := suite.newStoreWithTable(t)
	mustPut(t, s, item("a", "red", 3))
	mustPut(t, s, store.Row{Key: "a", Value: []byte("new"), Index: map[string]string{idxColor: "blue"}})

	err := s.View(testContext(), func(tx store.Tx) error {
		row, err := tx.Get(testTable, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), row.Value)
		assert.Equal(t, map[string]string{idxColor: "blue"}, row.Index)

		red, err := tx.Lookup(testTable, idxColor, "red")
		require.NoError(t, err)
		assert.Empty(t, red, "stale index entry must be removed")

		sized, err := tx.Scan(testTable, idxSize, store.Range{})
		require.NoError(t, err)
		assert.Empty(t, sized, "dropped index must be removed")
		return nil
	})
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	s := suite.newStoreWithTable(t)
	mustPut(t, s, item("a", "red", 1), item("b", "red", 2))

	require.NoError(t, s.Update(testContext(), func(tx store.Tx) error {
		return tx.Delete(testTable, "a")
	}))

	err := s.View(testContext(), func(tx store.Tx) error {
		_, err := tx.Get(testTable, "a")
		assert.ErrorIs(t, err, store.ErrKeyNotFound)

		red, err := tx.Lookup(testTable, idxColor, "red")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, keysOf(red))
		return nil
	})
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testDeleteIdempotent(t *testing.T) {
	s := suite.newStoreWithTable(t)

	err := s.Update(testContext(), func(tx store.Tx) error {
		return tx.Delete(testTable, "never-existed")
	})
	assert.NoError(t, err)
}

func (suite *StoreTestSuite) testAllOrdered(t *testing.T) {
	s := suite.newStoreWithTable(t)
	mustPut(t, s, item("c", "red", 1), item("a", "red", 1), item("b", "blue", 1))

	err := s.View(testContext(), func(tx store.Tx) error {
		rows, err := tx.All(testTable)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, keysOf(rows))
		return nil
	})
	require.NoError(t, err)
}
