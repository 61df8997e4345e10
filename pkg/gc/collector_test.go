package gc

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/deskfs/internal/testutil"
	"github.com/marmos91/deskfs/pkg/store"
	"github.com/marmos91/deskfs/pkg/store/memory"
	"github.com/marmos91/deskfs/pkg/vfs"
)

func newFS(t *testing.T) (*vfs.FileSystem, *testutil.StubClock) {
	t.Helper()
	clock := testutil.FixedClock()
	opts := vfs.DefaultOptions()
	opts.Identity = vfs.StaticIdentity{Username: "alice"}
	opts.Clock = clock
	opts.IDs = testutil.NewStubIDGenerator()

	fs, err := vfs.New(context.Background(), memory.NewMemoryStore(), opts)
	require.NoError(t, err)
	return fs, clock
}

func write(t *testing.T, fs *vfs.FileSystem, p string) {
	t.Helper()
	_, err := fs.WriteFile(context.Background(), p, []byte(p), vfs.WriteOptions{})
	require.NoError(t, err)
}

func TestRunNow_ReleasesLocksAndPurgesTrash(t *testing.T) {
	fs, clock := newFS(t)
	ctx := context.Background()

	write(t, fs, "/a.txt")
	write(t, fs, "/old.txt")
	write(t, fs, "/new.txt")
	_, err := fs.LockFile(ctx, "/a.txt")
	require.NoError(t, err)

	require.NoError(t, fs.Delete(ctx, "/old.txt", false))
	clock.Advance(47 * time.Hour)
	require.NoError(t, fs.Delete(ctx, "/new.txt", false))
	clock.Advance(time.Hour)

	c := NewCollector(fs, Config{TrashRetention: 24 * time.Hour})
	stats, err := c.RunNow(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.LocksReleased)
	assert.Equal(t, 1, stats.TrashPurged)
	assert.Zero(t, stats.Orphans)
	assert.Contains(t, stats.Summary(), "locks_released=1")

	trash, err := fs.GetTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, "/new.txt", trash[0].OriginalPath)

	e, err := fs.Get(ctx, "/a.txt")
	require.NoError(t, err)
	assert.False(t, e.Locked)
}

func TestRunNow_ZeroRetentionKeepsTrash(t *testing.T) {
	fs, clock := newFS(t)
	ctx := context.Background()

	write(t, fs, "/old.txt")
	require.NoError(t, fs.Delete(ctx, "/old.txt", false))
	clock.Advance(365 * 24 * time.Hour)

	stats, err := NewCollector(fs, Config{}).RunNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TrashPurged)

	trash, err := fs.GetTrash(ctx)
	require.NoError(t, err)
	assert.Len(t, trash, 1)
}

func plantOrphans(t *testing.T, fs *vfs.FileSystem) {
	t.Helper()
	err := fs.Store().Update(context.Background(), func(tx store.Tx) error {
		if err := tx.Put(vfs.TableContent, store.Row{Key: "/ghost.txt", Value: []byte("boo")}); err != nil {
			return err
		}
		if err := tx.Put(vfs.TableVersions, store.Row{
			Key:   "stale-version",
			Value: []byte(`{"id":"stale-version","path":"/ghost.txt"}`),
			Index: map[string]string{"path": "/ghost.txt"},
		}); err != nil {
			return err
		}
		return tx.Put(vfs.TableLocks, store.Row{Key: "/ghost.txt", Value: []byte(`{"path":"/ghost.txt"}`)})
	})
	require.NoError(t, err)
}

func TestRunNow_Orphans(t *testing.T) {
	fs, _ := newFS(t)
	ctx := context.Background()
	write(t, fs, "/kept.txt")
	plantOrphans(t, fs)

	stats, err := NewCollector(fs, Config{DryRun: true}).RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Orphans)
	assert.Zero(t, stats.OrphansDeleted)

	stats, err = NewCollector(fs, Config{}).RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Orphans)
	assert.Equal(t, 3, stats.OrphansDeleted)

	report, err := fs.CollectOrphans(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, report.Total())

	data, err := fs.ReadFile(ctx, "/kept.txt")
	require.NoError(t, err)
	assert.Equal(t, "/kept.txt", string(data))
}

type countingTarget struct {
	sweeps atomic.Int32
}

func (c *countingTarget) SweepLocks(context.Context) (int, error) {
	c.sweeps.Add(1)
	return 0, nil
}

func (c *countingTarget) PurgeTrash(context.Context, time.Duration) (int, error) {
	return 0, nil
}

func (c *countingTarget) CollectOrphans(context.Context, bool) (*vfs.OrphanReport, error) {
	return &vfs.OrphanReport{}, nil
}

func TestStartStop(t *testing.T) {
	target := &countingTarget{}
	c := NewCollector(target, Config{Enabled: true, Interval: 5 * time.Millisecond})
	c.Start()

	require.Eventually(t, func() bool { return target.sweeps.Load() >= 2 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Stop(ctx))

	sweeps := target.sweeps.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, sweeps, target.sweeps.Load())
}

func TestStop_NeverStarted(t *testing.T) {
	c := NewCollector(&countingTarget{}, Config{Enabled: true, Interval: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, ctx.Err())

	// A stopped collector does not start again.
	c.Start()
	require.NoError(t, c.Stop(ctx))
}

func TestStop_Disabled(t *testing.T) {
	c := NewCollector(&countingTarget{}, Config{})
	c.Start()
	assert.NoError(t, c.Stop(context.Background()))
}
