package testing

import (
	"testing"

	"github.com/marmos91/deskfs/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTableTests executes schema declaration tests.
func (suite *StoreTestSuite) RunTableTests(t *testing.T) {
	t.Run("CreateTables", suite.testCreateTables)
	t.Run("CreateTables_MergesIndexes", suite.testCreateTablesMerges)
	t.Run("UnknownTable", suite.testUnknownTable)
}

func (suite *StoreTestSuite) testCreateTables(t *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	err := s.CreateTables(testContext(),
		store.TableSchema{Name: "b", Indexes: []string{"x"}},
		store.TableSchema{Name: "a"},
	)
	require.NoError(t, err)

	tables := s.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "a", tables[0].Name)
	assert.Equal(t, "b", tables[1].Name)
	assert.Equal(t, []string{"x"}, tables[1].Indexes)
}

func (suite *StoreTestSuite) testCreateTablesMerges(t *testing.T) {
	s := suite.NewStore()
	defer s.Close()

	require.NoError(t, s.CreateTables(testContext(), store.TableSchema{Name: "a", Indexes: []string{"x"}}))
	require.NoError(t, s.CreateTables(testContext(), store.TableSchema{Name: "a", Indexes: []string{"x", "y"}}))

	tables := s.Tables()
	require.Len(t, tables, 1)
	assert.ElementsMatch(t, []string{"x", "y"}, tables[0].Indexes)
}

func (suite *StoreTestSuite) testUnknownTable(t *testing.T) {
	s := suite.newStoreWithTable(t)

	err := s.View(testContext(), func(tx store.Tx) error {
		_, err := tx.Get("missing", "k")
		return err
	})
	assert.ErrorIs(t, err, store.ErrUnknownTable)

	err = s.Update(testContext(), func(tx store.Tx) error {
		return tx.Put("missing", store.Row{Key: "k"})
	})
	assert.ErrorIs(t, err, store.ErrUnknownTable)
}
