package vfs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove_Subtree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buildTree(t, f)
	f.write(t, "/Docs/sub/c.txt", "c2")
	f.mkdir(t, "/", "Archive")
	_, err := f.fs.LockFile(ctx, "/Docs/a.txt")
	require.NoError(t, err)
	share, err := f.fs.ShareFile(ctx, "/Docs/b.txt", "bob", ShareOptions{})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	moved, err := f.fs.Move(ctx, "/Docs", "/Archive/Papers")
	require.NoError(t, err)
	assert.Equal(t, "/Archive/Papers", moved.Path)
	assert.Equal(t, "Papers", moved.Name)
	assert.Equal(t, "/Archive", moved.Parent)
	assert.Equal(t, f.clock.Now(), moved.Modified)

	for _, p := range []string{"/Docs", "/Docs/a.txt", "/Docs/sub", "/Docs/sub/c.txt"} {
		assert.False(t, f.exists(t, p), p)
	}

	c, err := f.fs.Get(ctx, "/Archive/Papers/sub/c.txt")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "/Archive/Papers/sub", c.Parent)
	assert.Equal(t, "c2", f.read(t, "/Archive/Papers/sub/c.txt"))

	versions, err := f.fs.GetVersions(ctx, "/Archive/Papers/sub/c.txt")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "c", string(versions[0].Payload))

	a, err := f.fs.Get(ctx, "/Archive/Papers/a.txt")
	require.NoError(t, err)
	assert.True(t, a.Locked)
	require.NoError(t, f.fs.UnlockFile(ctx, "/Archive/Papers/a.txt", false))

	shared, err := f.fs.GetSharedWithUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, share.ID, shared[0].Share.ID)
	assert.Equal(t, "/Archive/Papers/b.txt", shared[0].Path)

	children, err := f.fs.ListDirectory(ctx, "/Archive/Papers", ListOptions{})
	require.NoError(t, err)
	assert.Len(t, children, 3)
}

func TestMove_RenameFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "/notes.txt", "n")

	moved, err := f.fs.Move(ctx, "/notes.txt", "/notes.md")
	require.NoError(t, err)
	assert.Equal(t, "md", moved.Extension)
	assert.Equal(t, "n", f.read(t, "/notes.md"))
}

func TestMove_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buildTree(t, f)
	f.write(t, "/x.txt", "x")

	cases := []struct {
		name     string
		src, dst string
		code     ErrorCode
	}{
		{"Root", "/", "/elsewhere", ErrInvalidOperation},
		{"OntoRoot", "/Docs", "/", ErrInvalidOperation},
		{"IntoOwnSubtree", "/Docs", "/Docs/sub/Docs", ErrInvalidOperation},
		{"OntoItself", "/Docs", "/Docs", ErrAlreadyExists},
		{"FileOntoItself", "/x.txt", "/x.txt", ErrAlreadyExists},
		{"MissingOntoItself", "/nope", "/nope", ErrNotFound},
		{"MissingSource", "/nope", "/nope2", ErrNotFound},
		{"Occupied", "/x.txt", "/Docs/a.txt", ErrAlreadyExists},
		{"MissingDestinationParent", "/x.txt", "/nowhere/x.txt", ErrInvalidOperation},
		{"DestinationParentIsFile", "/x.txt", "/Docs/a.txt/x.txt", ErrInvalidOperation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.fs.Move(ctx, tc.src, tc.dst)
			requireCode(t, err, tc.code)
		})
	}
	assert.True(t, f.exists(t, "/Docs/sub/c.txt"))
}

func TestMove_ForeignLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.fs.CreateFolder(ctx, "/", "team", FolderOptions{Permissions: modePtr("rwxrwxrwx")})
	require.NoError(t, err)
	f.mkdir(t, "/team", "proj")
	_, err = f.fs.WriteFile(ctx, "/team/proj/plan.txt", []byte("p"), WriteOptions{Permissions: modePtr("rw-rw-rw-")})
	require.NoError(t, err)

	_, err = f.fs.LockFile(as(bob), "/team/proj/plan.txt")
	require.NoError(t, err)

	_, err = f.fs.Move(ctx, "/team/proj", "/team/moved")
	requireCode(t, err, ErrLockConflict)
	assert.True(t, f.exists(t, "/team/proj/plan.txt"))

	f.clock.Advance(f.fs.Options().LockTTL)
	_, err = f.fs.Move(ctx, "/team/proj", "/team/moved")
	require.NoError(t, err)
	plan, err := f.fs.Get(ctx, "/team/moved/plan.txt")
	require.NoError(t, err)
	assert.False(t, plan.Locked)
}

func TestMove_Permissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.fs.CreateFolder(ctx, "/", "src", FolderOptions{Permissions: modePtr("rwxr--r--")})
	require.NoError(t, err)
	f.write(t, "/src/a.txt", "a")
	_, err = f.fs.CreateFolder(as(bob), "/", "bobs", FolderOptions{})
	require.NoError(t, err)

	_, err = f.fs.Move(as(bob), "/src/a.txt", "/bobs/a.txt")
	requireCode(t, err, ErrPermissionDenied)

	_, err = f.fs.Move(ctx, "/src/a.txt", "/bobs/a.txt")
	requireCode(t, err, ErrPermissionDenied)

	_, err = f.fs.Move(as(root), "/src/a.txt", "/bobs/a.txt")
	require.NoError(t, err)
}

func TestCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buildTree(t, f)
	f.write(t, "/Docs/a.txt", "a2")
	f.clock.Advance(time.Hour)
	_, err := f.fs.ShareFile(ctx, "/Docs/a.txt", "bob", ShareOptions{})
	require.NoError(t, err)
	_, err = f.fs.LockFile(ctx, "/Docs/a.txt")
	require.NoError(t, err)
	_, err = f.fs.CreateFolder(ctx, "/", "pub", FolderOptions{Permissions: modePtr("rwxrwxrwx")})
	require.NoError(t, err)

	copied, err := f.fs.Copy(as(bob), "/Docs", "/pub/Docs")
	require.NoError(t, err)
	assert.Equal(t, "bob", copied.Owner)
	assert.Equal(t, f.clock.Now(), copied.Created)

	a, err := f.fs.Get(ctx, "/pub/Docs/a.txt")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "bob", a.Owner)
	assert.Equal(t, 1, a.Version)
	assert.False(t, a.Shared)
	assert.Empty(t, a.SharedWith)
	assert.False(t, a.Locked)
	assert.Equal(t, "a2", f.read(t, "/pub/Docs/a.txt"))
	assert.Equal(t, "c", f.read(t, "/pub/Docs/sub/c.txt"))

	versions, err := f.fs.GetVersions(ctx, "/pub/Docs/a.txt")
	require.NoError(t, err)
	assert.Empty(t, versions)

	// The source is untouched.
	src, err := f.fs.Get(ctx, "/Docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, src.Version)
	assert.True(t, src.Shared)
	assert.True(t, src.Locked)
}

func TestCopy_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buildTree(t, f)
	_, err := f.fs.WriteFile(ctx, "/private.txt", []byte("p"), WriteOptions{Permissions: modePtr("rw-------")})
	require.NoError(t, err)

	_, err = f.fs.Copy(ctx, "/Docs", "/Docs/sub/copy")
	requireCode(t, err, ErrInvalidOperation)

	_, err = f.fs.Copy(ctx, "/Docs/a.txt", "/Docs/b.txt")
	requireCode(t, err, ErrAlreadyExists)

	_, err = f.fs.Copy(ctx, "/Docs", "/Docs")
	requireCode(t, err, ErrAlreadyExists)

	_, err = f.fs.Copy(as(bob), "/private.txt", "/mine.txt")
	requireCode(t, err, ErrPermissionDenied)

	_, err = f.fs.Copy(ctx, "/", "/rootcopy")
	requireCode(t, err, ErrInvalidOperation)
}
