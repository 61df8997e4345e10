package vfs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/deskfs/internal/testutil"
	"github.com/marmos91/deskfs/pkg/store"
	"github.com/marmos91/deskfs/pkg/store/memory"
)

var (
	alice = Principal{Username: "alice", Role: RoleUser}
	bob   = Principal{Username: "bob", Role: RoleUser, Groups: []string{"team"}}
	root  = Principal{Username: "root", Role: RoleAdmin}
)

type storeTx = store.Tx

type emitted struct {
	topic   string
	payload any
}

// recordingBus captures every emitted event.
type recordingBus struct {
	mu     sync.Mutex
	events []emitted
}

func (b *recordingBus) Emit(topic string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, emitted{topic: topic, payload: payload})
}

func (b *recordingBus) topic(topic string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []any
	for _, e := range b.events {
		if e.topic == topic {
			out = append(out, e.payload)
		}
	}
	return out
}

type fixture struct {
	fs    *FileSystem
	clock *testutil.StubClock
	bus   *recordingBus
}

// newFixture builds a FileSystem over a memory store. Operations run as
// alice unless the context carries another principal.
func newFixture(t *testing.T, configure ...func(*Options)) *fixture {
	t.Helper()
	return newFixtureOn(t, memory.NewMemoryStore(), configure...)
}

func newFixtureOn(t *testing.T, s store.Store, configure ...func(*Options)) *fixture {
	t.Helper()

	clock := testutil.FixedClock()
	bus := &recordingBus{}
	opts := DefaultOptions()
	opts.Identity = ContextIdentity{Fallback: alice}
	opts.Events = bus
	opts.Clock = clock
	opts.IDs = testutil.NewStubIDGenerator()
	for _, fn := range configure {
		fn(&opts)
	}

	fs, err := New(context.Background(), s, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return &fixture{fs: fs, clock: clock, bus: bus}
}

func as(p Principal) context.Context {
	return WithPrincipal(context.Background(), p)
}

func modePtr(s string) *Mode {
	m := MustParseMode(s)
	return &m
}

func (f *fixture) mkdir(t *testing.T, parent, name string) *Entry {
	t.Helper()
	e, err := f.fs.CreateFolder(context.Background(), parent, name, FolderOptions{})
	require.NoError(t, err)
	return e
}

func (f *fixture) write(t *testing.T, p, payload string) *Entry {
	t.Helper()
	e, err := f.fs.WriteFile(context.Background(), p, []byte(payload), WriteOptions{})
	require.NoError(t, err)
	return e
}

func (f *fixture) read(t *testing.T, p string) string {
	t.Helper()
	data, err := f.fs.ReadFile(context.Background(), p)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) exists(t *testing.T, p string) bool {
	t.Helper()
	e, err := f.fs.Get(context.Background(), p)
	require.NoError(t, err)
	return e != nil
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	got, ok := CodeOf(err)
	require.True(t, ok, "not a vfs error: %v", err)
	require.Equal(t, code, got, "unexpected error: %v", err)
}
