package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/deskfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTransactionTests executes atomicity and isolation tests.
func (suite *StoreTestSuite) RunTransactionTests(t *testing.T) {
	t.Run("Update_RollbackOnError", suite.testRollback)
	t.Run("Update_ReadYourWrites", suite.testReadYourWrites)
	t.Run("View_ReadOnly", suite.testViewReadOnly)
	t.Run("CancelledContext", suite.testCancelledContext)
	t.Run("MultiTable", suite.testMultiTable)
}

func (suite *StoreTestSuite) testRollback(t *testing.T) {
	s := suite.newStoreWithTable(t)
	mustPut(t, s, item("a", "red", 1))

	boom := errors.New("boom")
	err := s.Update(testContext(), func(tx store.Tx) error {
		require.NoError(t, tx.Put(testTable, item("a", "blue", 2)))
		require.NoError(t, tx.Put(testTable, item("b", "blue", 2)))
		require.NoError(t, tx.Delete(testTable, "a"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.View(testContext(), func(tx store.Tx) error {
		row, err := tx.Get(testTable, "a")
		require.NoError(t, err)
		assert.Equal(t, "red", row.Index[idxColor])

		_, err = tx.Get(testTable, "b")
		assert.ErrorIs(t, err, store.ErrKeyNotFound)

		blue, err := tx.Lookup(testTable, idxColor, "blue")
		require.NoError(t, err)
		assert.Empty(t, blue)
		return nil
	})
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testReadYourWrites(t *testing.T) {
	s := suite.newStoreWithTable(t)

	err := s.Update(testContext(), func(tx store.Tx) error {
		require.NoError(t, tx.Put(testTable, item("a", "red", 1)))

		row, err := tx.Get(testTable, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("value-a"), row.Value)

		red, err := tx.Lookup(testTable, idxColor, "red")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, keysOf(red))
		return nil
	})
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testViewReadOnly(t *testing.T) {
	s := suite.newStoreWithTable(t)

	err := s.View(testContext(), func(tx store.Tx) error {
		return tx.Put(testTable, item("a", "red", 1))
	})
	assert.ErrorIs(t, err, store.ErrReadOnly)

	err = s.View(testContext(), func(tx store.Tx) error {
		return tx.Delete(testTable, "a")
	})
	assert.ErrorIs(t, err, store.ErrReadOnly)
}

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	s := suite.newStoreWithTable(t)

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	called := false
	err := s.Update(ctx, func(tx store.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func (suite *StoreTestSuite) testMultiTable(t *testing.T) {
	s := suite.newStoreWithTable(t)
	require.NoError(t, s.CreateTables(testContext(), store.TableSchema{Name: "other"}))

	boom := errors.New("boom")
	err := s.Update(testContext(), func(tx store.Tx) error {
		require.NoError(t, tx.Put(testTable, item("a", "red", 1)))
		require.NoError(t, tx.Put("other", store.Row{Key: "x", Value: []byte("1")}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.Update(testContext(), func(tx store.Tx) error {
		if err := tx.Put(testTable, item("a", "red", 1)); err != nil {
			return err
		}
		return tx.Put("other", store.Row{Key: "x", Value: []byte("1")})
	})
	require.NoError(t, err)

	err = s.View(testContext(), func(tx store.Tx) error {
		_, err := tx.Get(testTable, "a")
		require.NoError(t, err)
		row, err := tx.Get("other", "x")
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), row.Value)
		return nil
	})
	require.NoError(t, err)
}
