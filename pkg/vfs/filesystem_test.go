package vfs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_DocsFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.mkdir(t, "/", "Docs")

	e := f.write(t, "/Docs/a.txt", "hello")
	assert.Equal(t, 1, e.Version)

	e = f.write(t, "/Docs/a.txt", "hello")
	assert.Equal(t, 1, e.Version)
	versions, err := f.fs.GetVersions(ctx, "/Docs/a.txt")
	require.NoError(t, err)
	assert.Empty(t, versions)

	e = f.write(t, "/Docs/a.txt", "world")
	assert.Equal(t, 2, e.Version)
	versions, err = f.fs.GetVersions(ctx, "/Docs/a.txt")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "hello", string(versions[0].Payload))

	require.NoError(t, f.fs.Delete(ctx, "/Docs/a.txt", false))
	trash, err := f.fs.GetTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, "/Docs/a.txt", trash[0].OriginalPath)
	assert.False(t, f.exists(t, "/Docs/a.txt"))

	_, err = f.fs.RestoreFromTrash(ctx, "/Docs/a.txt")
	require.NoError(t, err)
	assert.True(t, f.exists(t, "/Docs/a.txt"))
	assert.Equal(t, "world", f.read(t, "/Docs/a.txt"))
}

func TestNew_DeclaresTables(t *testing.T) {
	f := newFixture(t)

	names := make([]string, 0, len(Schemas))
	for _, s := range f.fs.Store().Tables() {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{
		TableEntries, TableContent, TableVersions, TableTrash, TableShares, TableLocks, TableRecent,
	}, names)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Root", func(t *testing.T) {
		e, err := f.fs.Get(ctx, "/")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.True(t, e.IsFolder())
		assert.Equal(t, SystemUser, e.Owner)
	})

	t.Run("Absent", func(t *testing.T) {
		e, err := f.fs.Get(ctx, "/missing")
		require.NoError(t, err)
		assert.Nil(t, e)
	})

	t.Run("RelativePath", func(t *testing.T) {
		_, err := f.fs.Get(ctx, "docs")
		requireCode(t, err, ErrInvalidOperation)
	})

	t.Run("CleansPath", func(t *testing.T) {
		f.mkdir(t, "/", "Docs")
		e, err := f.fs.Get(ctx, "/Docs/./")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, "/Docs", e.Path)
	})
}

func TestCreateFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	docs := f.mkdir(t, "/", "Docs")
	assert.Equal(t, "/Docs", docs.Path)
	assert.Equal(t, "/", docs.Parent)
	assert.Equal(t, KindFolder, docs.Kind)
	assert.Equal(t, "alice", docs.Owner)
	assert.Equal(t, "rwxr-xr-x", docs.Permissions.String())
	assert.Equal(t, 1, docs.Version)
	assert.Empty(t, docs.ContentHash)
	assert.Equal(t, "folder", docs.Icon)

	t.Run("Occupied", func(t *testing.T) {
		_, err := f.fs.CreateFolder(ctx, "/", "Docs", FolderOptions{})
		requireCode(t, err, ErrAlreadyExists)
	})

	t.Run("MissingParent", func(t *testing.T) {
		_, err := f.fs.CreateFolder(ctx, "/nope", "x", FolderOptions{})
		requireCode(t, err, ErrNotFound)
	})

	t.Run("ParentIsFile", func(t *testing.T) {
		f.write(t, "/Docs/a.txt", "a")
		_, err := f.fs.CreateFolder(ctx, "/Docs/a.txt", "x", FolderOptions{})
		requireCode(t, err, ErrInvalidOperation)
	})

	t.Run("InvalidName", func(t *testing.T) {
		_, err := f.fs.CreateFolder(ctx, "/", "a/b", FolderOptions{})
		requireCode(t, err, ErrInvalidOperation)
	})

	t.Run("NoWritePermission", func(t *testing.T) {
		_, err := f.fs.CreateFolder(as(bob), "/Docs", "mine", FolderOptions{})
		requireCode(t, err, ErrPermissionDenied)
	})

	t.Run("Options", func(t *testing.T) {
		e, err := f.fs.CreateFolder(ctx, "/", ".config", FolderOptions{
			Permissions: modePtr("rwx------"),
			Group:       "team",
			Tags:        []string{"b", "a", "b"},
			Metadata:    map[string]string{"k": "v"},
		})
		require.NoError(t, err)
		assert.True(t, e.Hidden)
		assert.Equal(t, "rwx------", e.Permissions.String())
		assert.Equal(t, "team", e.Group)
		assert.Equal(t, []string{"a", "b"}, e.Tags)
		assert.Equal(t, "v", e.Metadata["k"])
	})
}

func TestWriteFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mkdir(t, "/", "Docs")

	t.Run("RoundTrip", func(t *testing.T) {
		payload := []byte("round trip payload")
		e, err := f.fs.WriteFile(ctx, "/Docs/Notes.TXT", payload, WriteOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), e.Size)
		assert.Equal(t, Digest(payload), e.ContentHash)
		assert.Equal(t, "txt", e.Extension)
		assert.Equal(t, "text", e.Icon)
		assert.Contains(t, e.MimeType, "text/plain")
		assert.Equal(t, "rw-r--r--", e.Permissions.String())

		got, err := f.fs.ReadFile(ctx, "/Docs/Notes.TXT")
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("EmptyPayload", func(t *testing.T) {
		f.write(t, "/Docs/empty.md", "")
		got, err := f.fs.ReadFile(ctx, "/Docs/empty.md")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("PreservesTagsAndMetadata", func(t *testing.T) {
		_, err := f.fs.WriteFile(ctx, "/Docs/tagged.txt", []byte("v1"), WriteOptions{
			Tags:     []string{"draft"},
			Metadata: map[string]string{"author": "alice"},
		})
		require.NoError(t, err)
		e, err := f.fs.WriteFile(ctx, "/Docs/tagged.txt", []byte("v2"), WriteOptions{Tags: []string{"final"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"draft", "final"}, e.Tags)
		assert.Equal(t, "alice", e.Metadata["author"])
	})

	t.Run("UpdatesModified", func(t *testing.T) {
		first := f.write(t, "/Docs/clock.txt", "a")
		f.clock.Advance(time.Minute)
		second := f.write(t, "/Docs/clock.txt", "b")
		assert.True(t, second.Modified.After(first.Modified))
		assert.Equal(t, first.Created, second.Created)
	})

	t.Run("Root", func(t *testing.T) {
		_, err := f.fs.WriteFile(ctx, "/", []byte("x"), WriteOptions{})
		requireCode(t, err, ErrInvalidOperation)
	})

	t.Run("Folder", func(t *testing.T) {
		_, err := f.fs.WriteFile(ctx, "/Docs", []byte("x"), WriteOptions{})
		requireCode(t, err, ErrInvalidOperation)
	})

	t.Run("MissingParent", func(t *testing.T) {
		_, err := f.fs.WriteFile(ctx, "/nope/a.txt", []byte("x"), WriteOptions{})
		requireCode(t, err, ErrNotFound)
	})

	t.Run("NoWritePermission", func(t *testing.T) {
		_, err := f.fs.WriteFile(as(bob), "/Docs/b.txt", []byte("x"), WriteOptions{})
		requireCode(t, err, ErrPermissionDenied)
	})

	t.Run("EmitsEvents", func(t *testing.T) {
		ops := f.bus.topic(TopicOperation)
		require.NotEmpty(t, ops)
		last := ops[len(ops)-1].(OperationEvent)
		assert.Equal(t, "alice", last.Actor)
		assert.NotEmpty(t, f.bus.topic(TopicRecentUpdated))
	})
}

func TestReadFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mkdir(t, "/", "Docs")
	f.write(t, "/Docs/a.txt", "a")

	t.Run("Missing", func(t *testing.T) {
		_, err := f.fs.ReadFile(ctx, "/Docs/none.txt")
		requireCode(t, err, ErrNotFound)
	})

	t.Run("Folder", func(t *testing.T) {
		_, err := f.fs.ReadFile(ctx, "/Docs")
		requireCode(t, err, ErrInvalidOperation)
	})

	t.Run("UpdatesAccessed", func(t *testing.T) {
		f.clock.Advance(time.Minute)
		f.read(t, "/Docs/a.txt")
		e, err := f.fs.Get(ctx, "/Docs/a.txt")
		require.NoError(t, err)
		assert.Equal(t, f.clock.Now(), e.Accessed)
	})
}

func TestReadParsed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mkdir(t, "/", "cfg")
	f.write(t, "/cfg/a.json", `{"name":"deskfs","size":3}`)
	f.write(t, "/cfg/b.yaml", "name: deskfs\nlist: [1, 2]\n")
	f.write(t, "/cfg/c.toml", "name = \"deskfs\"\n[server]\nport = 8080\n")
	f.write(t, "/cfg/d.txt", "plain")
	f.write(t, "/cfg/e.json", "{broken")

	v, err := f.fs.ReadParsed(ctx, "/cfg/a.json")
	require.NoError(t, err)
	assert.Equal(t, "deskfs", v.(map[string]any)["name"])

	v, err = f.fs.ReadParsed(ctx, "/cfg/b.yaml")
	require.NoError(t, err)
	assert.Equal(t, "deskfs", v.(map[string]any)["name"])

	v, err = f.fs.ReadParsed(ctx, "/cfg/c.toml")
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, "deskfs", m["name"])
	assert.Equal(t, int64(8080), m["server"].(map[string]any)["port"])

	_, err = f.fs.ReadParsed(ctx, "/cfg/d.txt")
	requireCode(t, err, ErrInvalidOperation)

	_, err = f.fs.ReadParsed(ctx, "/cfg/e.json")
	requireCode(t, err, ErrInvalidOperation)

	// Stored bytes are untouched.
	assert.Equal(t, `{"name":"deskfs","size":3}`, f.read(t, "/cfg/a.json"))
}

func TestListDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mkdir(t, "/", "d")
	f.mkdir(t, "/d", "zeta")
	f.mkdir(t, "/d", "Alpha")
	f.write(t, "/d/b.txt", "12345")
	f.write(t, "/d/a.md", "1")
	f.write(t, "/d/c.txt", "123")
	f.write(t, "/d/.hidden", "h")

	names := func(entries []*Entry) []string {
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			out = append(out, e.Name)
		}
		return out
	}

	t.Run("DefaultOrder", func(t *testing.T) {
		entries, err := f.fs.ListDirectory(ctx, "/d", ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha", "zeta", "a.md", "b.txt", "c.txt"}, names(entries))
	})

	t.Run("Descending", func(t *testing.T) {
		entries, err := f.fs.ListDirectory(ctx, "/d", ListOptions{Descending: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"zeta", "Alpha", "c.txt", "b.txt", "a.md"}, names(entries))
	})

	t.Run("BySize", func(t *testing.T) {
		entries, err := f.fs.ListDirectory(ctx, "/d", ListOptions{SortBy: SortBySize})
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha", "zeta", "a.md", "c.txt", "b.txt"}, names(entries))
	})

	t.Run("IncludeHidden", func(t *testing.T) {
		entries, err := f.fs.ListDirectory(ctx, "/d", ListOptions{IncludeHidden: true})
		require.NoError(t, err)
		assert.Contains(t, names(entries), ".hidden")
	})

	t.Run("Pattern", func(t *testing.T) {
		entries, err := f.fs.ListDirectory(ctx, "/d", ListOptions{Pattern: "*.txt"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b.txt", "c.txt"}, names(entries))
	})

	t.Run("InvalidPattern", func(t *testing.T) {
		_, err := f.fs.ListDirectory(ctx, "/d", ListOptions{Pattern: "a["})
		requireCode(t, err, ErrInvalidOperation)
	})

	t.Run("Predicate", func(t *testing.T) {
		entries, err := f.fs.ListDirectory(ctx, "/d", ListOptions{Predicate: func(e *Entry) bool { return e.Size > 2 }})
		require.NoError(t, err)
		assert.Equal(t, []string{"b.txt", "c.txt"}, names(entries))
	})

	t.Run("Root", func(t *testing.T) {
		entries, err := f.fs.ListDirectory(ctx, "/", ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"d"}, names(entries))
	})

	t.Run("NotAFolder", func(t *testing.T) {
		_, err := f.fs.ListDirectory(ctx, "/d/a.md", ListOptions{})
		requireCode(t, err, ErrInvalidOperation)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := f.fs.ListDirectory(ctx, "/x", ListOptions{})
		requireCode(t, err, ErrNotFound)
	})
}

func TestSetAttributes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mkdir(t, "/", "Docs")
	_, err := f.fs.WriteFile(ctx, "/Docs/a.txt", []byte("a"), WriteOptions{
		Tags:     []string{"old"},
		Metadata: map[string]string{"drop": "x", "keep": "y"},
	})
	require.NoError(t, err)

	hidden := true
	group := "team"
	e, err := f.fs.SetAttributes(ctx, "/Docs/a.txt", Attributes{
		Hidden:      &hidden,
		Tags:        []string{"new"},
		ReplaceTags: true,
		Metadata:    map[string]string{"drop": ""},
		Permissions: modePtr("rw-r-----"),
		Group:       &group,
	})
	require.NoError(t, err)
	assert.True(t, e.Hidden)
	assert.Equal(t, []string{"new"}, e.Tags)
	assert.Equal(t, map[string]string{"keep": "y"}, e.Metadata)
	assert.Equal(t, "rw-r-----", e.Permissions.String())
	assert.Equal(t, "team", e.Group)

	_, err = f.fs.SetAttributes(as(bob), "/Docs/a.txt", Attributes{Hidden: &hidden})
	requireCode(t, err, ErrPermissionDenied)

	_, err = f.fs.SetAttributes(as(root), "/Docs/a.txt", Attributes{Tags: []string{"admin"}})
	require.NoError(t, err)
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mkdir(t, "/", "Docs")
	f.mkdir(t, "/Docs", "sub")
	f.write(t, "/Docs/a.txt", "hello")
	f.write(t, "/Docs/a.txt", "hello world")
	f.write(t, "/Docs/sub/b.txt", "bye")
	f.write(t, "/c.txt", "c")
	require.NoError(t, f.fs.Delete(ctx, "/c.txt", false))
	_, err := f.fs.LockFile(ctx, "/Docs/a.txt")
	require.NoError(t, err)
	_, err = f.fs.ShareFile(ctx, "/Docs/a.txt", "bob", ShareOptions{})
	require.NoError(t, err)

	st, err := f.fs.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{
		Files:       2,
		Folders:     2,
		TotalSize:   int64(len("hello world") + len("bye")),
		TrashItems:  1,
		Versions:    1,
		ActiveLocks: 1,
		Shares:      1,
	}, st)

	f.clock.Advance(f.fs.Options().LockTTL)
	st, err = f.fs.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.ActiveLocks)
}
