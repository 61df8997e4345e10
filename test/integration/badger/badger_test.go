//go:build integration

package badger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/deskfs/pkg/snapshot"
	"github.com/marmos91/deskfs/pkg/store"
	"github.com/marmos91/deskfs/pkg/store/badger"
	"github.com/marmos91/deskfs/pkg/store/sqlite"
	"github.com/marmos91/deskfs/pkg/vfs"
)

func openFS(t *testing.T, s store.Store) *vfs.FileSystem {
	t.Helper()
	opts := vfs.DefaultOptions()
	opts.Identity = vfs.StaticIdentity{Username: "alice"}
	fs, err := vfs.New(context.Background(), s, opts)
	if err != nil {
		t.Fatalf("Failed to create file system: %v", err)
	}
	return fs
}

// TestBadgerStore_Integration verifies that a file system on an on-disk
// Badger store survives a restart.
//
// Prerequisites:
//   - None (BadgerDB is embedded, no external services needed)
//   - Run with: go test -tags=integration ./test/integration/badger/...
func TestBadgerStore_Integration(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "deskfs.badger")

	open := func(t *testing.T) *badger.BadgerStore {
		t.Helper()
		s, err := badger.NewBadgerStore(ctx, badger.BadgerStoreConfig{DBPath: dbPath, SyncWrites: true})
		if err != nil {
			t.Fatalf("Failed to open BadgerStore: %v", err)
		}
		return s
	}

	t.Run("WriteTree", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		fs := openFS(t, s)

		if _, err := fs.CreateFolder(ctx, "/", "Projects", vfs.FolderOptions{}); err != nil {
			t.Fatalf("CreateFolder failed: %v", err)
		}
		if _, err := fs.WriteFile(ctx, "/Projects/plan.md", []byte("# v1"), vfs.WriteOptions{}); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if _, err := fs.WriteFile(ctx, "/Projects/plan.md", []byte("# v2"), vfs.WriteOptions{}); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if _, err := fs.WriteFile(ctx, "/Projects/old.txt", []byte("bye"), vfs.WriteOptions{}); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if err := fs.Delete(ctx, "/Projects/old.txt", false); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
	})

	t.Run("ReopenAndRead", func(t *testing.T) {
		s := open(t)
		defer s.Close()
		fs := openFS(t, s)

		data, err := fs.ReadFile(ctx, "/Projects/plan.md")
		if err != nil {
			t.Fatalf("ReadFile after restart failed: %v", err)
		}
		if string(data) != "# v2" {
			t.Errorf("Expected '# v2', got %q", data)
		}

		versions, err := fs.GetVersions(ctx, "/Projects/plan.md")
		if err != nil {
			t.Fatalf("GetVersions failed: %v", err)
		}
		if len(versions) != 1 || string(versions[0].Payload) != "# v1" {
			t.Errorf("Expected one '# v1' version, got %d", len(versions))
		}

		trash, err := fs.GetTrash(ctx)
		if err != nil {
			t.Fatalf("GetTrash failed: %v", err)
		}
		if len(trash) != 1 || trash[0].OriginalPath != "/Projects/old.txt" {
			t.Errorf("Expected /Projects/old.txt in trash, got %+v", trash)
		}

		stats, err := fs.GetStats(ctx)
		if err != nil {
			t.Fatalf("GetStats failed: %v", err)
		}
		if stats.Files != 1 || stats.Folders != 1 {
			t.Errorf("Expected 1 file and 1 folder, got %d/%d", stats.Files, stats.Folders)
		}
	})

	t.Run("SnapshotToSQLite", func(t *testing.T) {
		src := open(t)
		defer src.Close()

		snapPath := filepath.Join(t.TempDir(), "deskfs.dkfs")
		target := snapshot.FileTarget{Path: snapPath}
		if _, err := snapshot.New(src, nil).Export(ctx, target); err != nil {
			t.Fatalf("Export failed: %v", err)
		}

		dst, err := sqlite.NewSQLiteStore(ctx, sqlite.SQLiteStoreConfig{Path: filepath.Join(t.TempDir(), "deskfs.db")})
		if err != nil {
			t.Fatalf("Failed to open SQLiteStore: %v", err)
		}
		defer dst.Close()

		if _, err := snapshot.New(dst, nil).Import(ctx, target); err != nil {
			t.Fatalf("Import failed: %v", err)
		}

		data, err := openFS(t, dst).ReadFile(ctx, "/Projects/plan.md")
		if err != nil {
			t.Fatalf("ReadFile on imported store failed: %v", err)
		}
		if string(data) != "# v2" {
			t.Errorf("Expected '# v2', got %q", data)
		}
	})
}
