package vfs

import "time"

// EventBus receives fire-and-forget notifications after operations commit.
type EventBus interface {
	Emit(topic string, payload any)
}

// Bus topics.
const (
	TopicOperation     = "files:operation"
	TopicRecentUpdated = "files:recent_updated"
	TopicShared        = "file:shared"
	TopicLocked        = "file:locked"
	TopicUnlocked      = "file:unlocked"
)

// Operation names carried by OperationEvent and WatchEvent.
const (
	OpCreate  = "create"
	OpWrite   = "write"
	OpDelete  = "delete"
	OpTrash   = "trash"
	OpMove    = "move"
	OpCopy    = "copy"
	OpRestore = "restore"
	OpUpdate  = "update"
)

// OperationEvent is the payload of TopicOperation.
type OperationEvent struct {
	Operation string
	Path      string
	OldPath   string
	Actor     string
	Time      time.Time
}

// RecentEvent is the payload of TopicRecentUpdated.
type RecentEvent struct {
	User  string
	Files []RecentFile
}

// LockEvent is the payload of TopicLocked and TopicUnlocked.
type LockEvent struct {
	Path    string
	Owner   string
	Actor   string
	Expires time.Time
	Expired bool
}

type noopBus struct{}

func (noopBus) Emit(string, any) {}
