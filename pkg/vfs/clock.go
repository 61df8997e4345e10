package vfs

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Clock abstracts time retrieval so lock expiry and version ordering are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces identifiers for shares and watch subscriptions.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// versionIDs produces ULIDs that sort in creation order, even for several
// versions created within the same millisecond.
type versionIDs struct {
	mu      sync.Mutex
	entropy io.Reader
}

func newVersionIDs() *versionIDs {
	return &versionIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *versionIDs) next(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}
