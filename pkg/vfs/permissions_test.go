package vfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	e := &Entry{Path: "/f", Owner: "alice", Group: "team", Permissions: MustParseMode("rw-r-----")}
	carol := Principal{Username: "carol"}

	tests := []struct {
		name string
		who  Principal
		want Permission
		ok   bool
	}{
		{"OwnerRead", alice, PermRead, true},
		{"OwnerWrite", alice, PermWrite, true},
		{"OwnerDelete", alice, PermDelete, false},
		{"GroupRead", bob, PermRead, true},
		{"GroupWrite", bob, PermWrite, false},
		{"OtherRead", carol, PermRead, false},
		{"AdminBypass", root, PermAll, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, Allowed(tt.who, e, tt.want))
		})
	}
}

func TestAllowed_OwnerTripletWinsOverGroup(t *testing.T) {
	// Owner bits are consulted even when they are narrower than the group's.
	e := &Entry{Owner: "bob", Group: "team", Permissions: MustParseMode("---rwx---")}
	assert.False(t, Allowed(bob, e, PermRead))
}

func TestPermissions_Enforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.fs.CreateFolder(ctx, "/", "team", FolderOptions{Permissions: modePtr("rwxrwx---"), Group: "team"})
	require.NoError(t, err)
	_, err = f.fs.WriteFile(ctx, "/team/doc.txt", []byte("d"), WriteOptions{Permissions: modePtr("rw-r-----"), Group: "team"})
	require.NoError(t, err)

	carol := as(Principal{Username: "carol"})

	// Group members may read and create files.
	_, err = f.fs.ReadFile(as(bob), "/team/doc.txt")
	require.NoError(t, err)
	_, err = f.fs.WriteFile(as(bob), "/team/bob.txt", []byte("b"), WriteOptions{})
	require.NoError(t, err)

	// Everyone else is shut out of the folder.
	_, err = f.fs.ListDirectory(carol, "/team", ListOptions{})
	requireCode(t, err, ErrPermissionDenied)
	_, err = f.fs.ReadFile(carol, "/team/doc.txt")
	requireCode(t, err, ErrPermissionDenied)
	_, err = f.fs.WriteFile(carol, "/team/carol.txt", []byte("c"), WriteOptions{})
	requireCode(t, err, ErrPermissionDenied)

	// Admins bypass everything.
	_, err = f.fs.ReadFile(as(root), "/team/doc.txt")
	require.NoError(t, err)

	// Get is never permission checked.
	e, err := f.fs.Get(carol, "/team/doc.txt")
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestPermissions_DefaultIdentity(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Identity = nil })
	e, err := f.fs.CreateFolder(context.Background(), "/", "sys", FolderOptions{})
	require.NoError(t, err)
	assert.Equal(t, SystemUser, e.Owner)
}

func TestPermissions_RestrictedRoot(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RootMode = MustParseMode("rwxr-xr-x") })

	_, err := f.fs.CreateFolder(context.Background(), "/", "x", FolderOptions{})
	requireCode(t, err, ErrPermissionDenied)

	_, err = f.fs.CreateFolder(as(root), "/", "x", FolderOptions{})
	require.NoError(t, err)
}
