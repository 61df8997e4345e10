package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/deskfs/internal/testutil"
	"github.com/marmos91/deskfs/pkg/store/memory"
	"github.com/marmos91/deskfs/pkg/vfs"
)

func newEngine(t *testing.T) (*Engine, *vfs.FileSystem) {
	t.Helper()
	ctx := context.Background()

	opts := vfs.DefaultOptions()
	opts.Identity = vfs.StaticIdentity{Username: "alice"}
	opts.Clock = testutil.FixedClock()
	fs, err := vfs.New(ctx, memory.NewMemoryStore(), opts)
	require.NoError(t, err)

	for _, dir := range []string{"src", "dst"} {
		_, err := fs.CreateFolder(ctx, "/", dir, vfs.FolderOptions{})
		require.NoError(t, err)
	}
	_, err = fs.WriteFile(ctx, "/src/report.txt", []byte("r"), vfs.WriteOptions{})
	require.NoError(t, err)
	_, err = fs.CreateFolder(ctx, "/src", "photos", vfs.FolderOptions{})
	require.NoError(t, err)
	_, err = fs.WriteFile(ctx, "/src/photos/cat.png", []byte("png"), vfs.WriteOptions{})
	require.NoError(t, err)

	return NewEngine(fs, opts.Clock), fs
}

func exists(t *testing.T, fs *vfs.FileSystem, p string) bool {
	t.Helper()
	e, err := fs.Get(context.Background(), p)
	require.NoError(t, err)
	return e != nil
}

func TestCopyPaste_CollisionSafe(t *testing.T) {
	eng, fs := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.CopyToClipboard(ctx, []string{"/src/report.txt"}, ActionCopy))

	for _, want := range []string{"report.txt", "report (1).txt", "report (2).txt"} {
		pasted, err := eng.Paste(ctx, "/dst")
		require.NoError(t, err)
		require.Len(t, pasted, 1)
		assert.Equal(t, want, pasted[0].Name)
	}

	// Pasting into the source folder also gets a fresh name.
	pasted, err := eng.Paste(ctx, "/src")
	require.NoError(t, err)
	assert.Equal(t, "/src/report (1).txt", pasted[0].Path)

	assert.NotNil(t, eng.Clipboard(), "copy keeps the clipboard")
	assert.True(t, exists(t, fs, "/src/report.txt"))
}

func TestCutPaste(t *testing.T) {
	eng, fs := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.CopyToClipboard(ctx, []string{"/src/report.txt", "/src/photos"}, ActionCut))
	clip := eng.Clipboard()
	require.NotNil(t, clip)
	assert.Equal(t, ActionCut, clip.Action)
	assert.Len(t, clip.Items, 2)

	pasted, err := eng.Paste(ctx, "/dst")
	require.NoError(t, err)
	require.Len(t, pasted, 2)

	assert.False(t, exists(t, fs, "/src/report.txt"))
	assert.False(t, exists(t, fs, "/src/photos"))
	assert.True(t, exists(t, fs, "/dst/report.txt"))
	assert.True(t, exists(t, fs, "/dst/photos/cat.png"))
	assert.Nil(t, eng.Clipboard(), "cut clears the clipboard")
}

func TestCutPaste_CollisionKeepsClipboard(t *testing.T) {
	eng, fs := newEngine(t)
	ctx := context.Background()
	_, err := fs.WriteFile(ctx, "/dst/report.txt", []byte("taken"), vfs.WriteOptions{})
	require.NoError(t, err)

	require.NoError(t, eng.CopyToClipboard(ctx, []string{"/src/report.txt"}, ActionCut))
	_, err = eng.Paste(ctx, "/dst")
	assert.True(t, vfs.IsCode(err, vfs.ErrAlreadyExists))
	assert.NotNil(t, eng.Clipboard())
	assert.True(t, exists(t, fs, "/src/report.txt"))
}

func TestCutPaste_SameFolder(t *testing.T) {
	eng, fs := newEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.CopyToClipboard(ctx, []string{"/src/report.txt"}, ActionCut))
	pasted, err := eng.Paste(ctx, "/src")
	require.NoError(t, err)
	require.Len(t, pasted, 1)
	assert.Equal(t, "/src/report.txt", pasted[0].Path)
	assert.True(t, exists(t, fs, "/src/report.txt"))
}

func TestPaste_Errors(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	_, err := eng.Paste(ctx, "/dst")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidOperation), "empty clipboard")

	require.NoError(t, eng.CopyToClipboard(ctx, []string{"/src/report.txt"}, ActionCopy))
	_, err = eng.Paste(ctx, "/missing")
	assert.True(t, vfs.IsCode(err, vfs.ErrNotFound))
	_, err = eng.Paste(ctx, "/src/report.txt")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidOperation))

	eng.Clear()
	assert.Nil(t, eng.Clipboard())
}

func TestCopyToClipboard_Errors(t *testing.T) {
	eng, _ := newEngine(t)
	ctx := context.Background()

	assert.True(t, vfs.IsCode(eng.CopyToClipboard(ctx, []string{"/nope"}, ActionCopy), vfs.ErrNotFound))
	assert.True(t, vfs.IsCode(eng.CopyToClipboard(ctx, nil, ActionCopy), vfs.ErrInvalidOperation))
	assert.True(t, vfs.IsCode(eng.CopyToClipboard(ctx, []string{"/"}, ActionCut), vfs.ErrInvalidOperation))
	assert.True(t, vfs.IsCode(eng.CopyToClipboard(ctx, []string{"/src"}, "move"), vfs.ErrInvalidOperation))
	assert.Nil(t, eng.Clipboard())
}

func TestGetUniqueName(t *testing.T) {
	eng, fs := newEngine(t)
	ctx := context.Background()
	for _, name := range []string{".env", "archive.tar.gz", "Makefile", "a.ȺȺȺ", "ab.İ", "notes."} {
		_, err := fs.WriteFile(ctx, "/dst/"+name, []byte("x"), vfs.WriteOptions{})
		require.NoError(t, err)
	}

	for name, want := range map[string]string{
		"free.txt":       "free.txt",
		".env":           ".env (1)",
		"archive.tar.gz": "archive.tar (1).gz",
		"Makefile":       "Makefile (1)",
		"a.ȺȺȺ":          "a (1).ȺȺȺ",
		"ab.İ":           "ab (1).İ",
		"notes.":         "notes. (1)",
	} {
		got, err := eng.GetUniqueName(ctx, "/dst", name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("cut")
	require.NoError(t, err)
	assert.Equal(t, ActionCut, a)
	_, err = ParseAction("paste")
	assert.Error(t, err)
}
