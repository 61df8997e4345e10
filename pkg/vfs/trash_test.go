package vfs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree creates /Docs with two files and a nested folder holding one.
func buildTree(t *testing.T, f *fixture) {
	t.Helper()
	f.mkdir(t, "/", "Docs")
	f.mkdir(t, "/Docs", "sub")
	f.write(t, "/Docs/a.txt", "a")
	f.write(t, "/Docs/b.txt", "b")
	f.write(t, "/Docs/sub/c.txt", "c")
}

func TestDelete_SoftIsRecursive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buildTree(t, f)

	require.NoError(t, f.fs.Delete(ctx, "/Docs", false))

	for _, p := range []string{"/Docs", "/Docs/a.txt", "/Docs/b.txt", "/Docs/sub", "/Docs/sub/c.txt"} {
		assert.False(t, f.exists(t, p), p)
	}

	trash, err := f.fs.GetTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 5)
	byPath := make(map[string]*TrashItem)
	for _, it := range trash {
		byPath[it.OriginalPath] = it
		assert.Equal(t, "alice", it.DeletedBy)
		assert.Equal(t, f.clock.Now(), it.DeletedAt)
	}
	assert.Equal(t, []byte("c"), byPath["/Docs/sub/c.txt"].Payload)
	assert.Nil(t, byPath["/Docs/sub"].Payload)

	err = f.fs.store.View(ctx, func(tx storeTx) error {
		rows, err := tx.All(TableContent)
		require.NoError(t, err)
		assert.Empty(t, rows)
		return nil
	})
	require.NoError(t, err)

	entry, err := f.fs.RestoreFromTrash(ctx, "/Docs")
	require.NoError(t, err)
	assert.Equal(t, "/Docs", entry.Path)
	assert.Equal(t, "c", f.read(t, "/Docs/sub/c.txt"))
	assert.Equal(t, "a", f.read(t, "/Docs/a.txt"))

	trash, err = f.fs.GetTrash(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash)
}

func TestDelete_Permanent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buildTree(t, f)
	f.write(t, "/Docs/a.txt", "a2")

	require.NoError(t, f.fs.Delete(ctx, "/Docs", true))

	assert.False(t, f.exists(t, "/Docs/sub/c.txt"))
	trash, err := f.fs.GetTrash(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash)
	versions, err := f.fs.GetVersions(ctx, "/Docs/a.txt")
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestDelete_SoftDeleteDisabled(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.SoftDelete = false })
	ctx := context.Background()
	f.write(t, "/a.txt", "a")

	require.NoError(t, f.fs.Delete(ctx, "/a.txt", false))
	trash, err := f.fs.GetTrash(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash)
}

func TestDelete_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requireCode(t, f.fs.Delete(ctx, "/", false), ErrInvalidOperation)
	requireCode(t, f.fs.Delete(ctx, "/missing", false), ErrNotFound)

	_, err := f.fs.CreateFolder(ctx, "/", "keep", FolderOptions{Permissions: modePtr("rwxr--r--")})
	require.NoError(t, err)
	f.write(t, "/keep/a.txt", "a")
	requireCode(t, f.fs.Delete(as(bob), "/keep/a.txt", false), ErrPermissionDenied)

	// The execute bit of the parent is not enough to remove someone else's
	// entry.
	f.mkdir(t, "/", "open")
	f.write(t, "/open/a.txt", "a")
	requireCode(t, f.fs.Delete(as(bob), "/open/a.txt", true), ErrPermissionDenied)
	requireCode(t, f.fs.Delete(as(bob), "/open", true), ErrPermissionDenied)
	assert.True(t, f.exists(t, "/open/a.txt"))
}

func TestDelete_RemovalRights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.fs.CreateFolder(ctx, "/", "shared", FolderOptions{Permissions: modePtr("rwxrwxrwx")})
	require.NoError(t, err)

	_, err = f.fs.WriteFile(as(bob), "/shared/bob.txt", []byte("b"), WriteOptions{})
	require.NoError(t, err)
	_, err = f.fs.WriteFile(ctx, "/shared/alice.txt", []byte("a"), WriteOptions{})
	require.NoError(t, err)
	_, err = f.fs.WriteFile(ctx, "/shared/team.txt", []byte("t"), WriteOptions{
		Group:       "team",
		Permissions: modePtr("rw-rw-r--"),
	})
	require.NoError(t, err)
	_, err = f.fs.WriteFile(ctx, "/shared/other.txt", []byte("o"), WriteOptions{})
	require.NoError(t, err)

	// Owner of the entry.
	require.NoError(t, f.fs.Delete(as(bob), "/shared/bob.txt", false))
	// Write permission on the entry through its group.
	require.NoError(t, f.fs.Delete(as(bob), "/shared/team.txt", false))
	// Neither owner nor writer.
	requireCode(t, f.fs.Delete(as(bob), "/shared/alice.txt", false), ErrPermissionDenied)
	_, err = f.fs.Move(as(bob), "/shared/alice.txt", "/shared/stolen.txt")
	requireCode(t, err, ErrPermissionDenied)
	assert.True(t, f.exists(t, "/shared/alice.txt"))

	// Owner of the parent folder removes entries it does not own.
	_, err = f.fs.WriteFile(as(bob), "/shared/bob2.txt", []byte("b"), WriteOptions{})
	require.NoError(t, err)
	require.NoError(t, f.fs.Delete(ctx, "/shared/bob2.txt", true))

	require.NoError(t, f.fs.Delete(as(root), "/shared/other.txt", true))
}

func TestRestoreFromTrash_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buildTree(t, f)

	t.Run("NotInTrash", func(t *testing.T) {
		_, err := f.fs.RestoreFromTrash(ctx, "/Docs/a.txt")
		requireCode(t, err, ErrNotFound)
	})

	t.Run("Occupied", func(t *testing.T) {
		require.NoError(t, f.fs.Delete(ctx, "/Docs/a.txt", false))
		f.write(t, "/Docs/a.txt", "replacement")
		_, err := f.fs.RestoreFromTrash(ctx, "/Docs/a.txt")
		requireCode(t, err, ErrAlreadyExists)
		assert.Equal(t, "replacement", f.read(t, "/Docs/a.txt"))
	})

	t.Run("ParentGone", func(t *testing.T) {
		require.NoError(t, f.fs.Delete(ctx, "/Docs/sub/c.txt", false))
		require.NoError(t, f.fs.Delete(ctx, "/Docs/sub", true))
		_, err := f.fs.RestoreFromTrash(ctx, "/Docs/sub/c.txt")
		requireCode(t, err, ErrNotFound)
	})
}

func TestEmptyTrash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "/gone.txt", "1")
	f.write(t, "/gone.txt", "2")
	f.write(t, "/kept.txt", "1")
	f.write(t, "/kept.txt", "2")
	require.NoError(t, f.fs.Delete(ctx, "/gone.txt", false))

	n, err := f.fs.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	trash, err := f.fs.GetTrash(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash)

	gone, err := f.fs.GetVersions(ctx, "/gone.txt")
	require.NoError(t, err)
	assert.Empty(t, gone)
	kept, err := f.fs.GetVersions(ctx, "/kept.txt")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestPurgeTrash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "/old.txt", "o")
	f.write(t, "/new.txt", "n")

	require.NoError(t, f.fs.Delete(ctx, "/old.txt", false))
	f.clock.Advance(48 * time.Hour)
	require.NoError(t, f.fs.Delete(ctx, "/new.txt", false))
	f.clock.Advance(time.Hour)

	n, err := f.fs.PurgeTrash(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	trash, err := f.fs.GetTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, "/new.txt", trash[0].OriginalPath)
}

func TestGetTrash_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"/1.txt", "/2.txt", "/3.txt"} {
		f.write(t, name, name)
	}
	for _, name := range []string{"/2.txt", "/3.txt", "/1.txt"} {
		require.NoError(t, f.fs.Delete(ctx, name, false))
		f.clock.Advance(time.Second)
	}

	trash, err := f.fs.GetTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 3)
	assert.Equal(t, "/1.txt", trash[0].OriginalPath)
	assert.Equal(t, "/3.txt", trash[1].OriginalPath)
	assert.Equal(t, "/2.txt", trash[2].OriginalPath)
}
