// Package events provides the in-process publish/subscribe bus the file
// system reports committed changes on.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/marmos91/deskfs/internal/logger"
)

// Wildcard subscribes to every topic.
const Wildcard = "*"

// Handler receives one event.
type Handler func(topic string, payload any)

// Subscription identifies a registered handler.
type Subscription struct {
	topic string
	id    uint64
}

// Bus is a synchronous, fire-and-forget event bus. Handlers run on the
// emitting goroutine in subscription order; a panicking handler is logged
// and does not affect the others.
//
// Thread Safety: safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]registered
	emitted  atomic.Uint64
}

type registered struct {
	id uint64
	fn Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]registered)}
}

// Subscribe registers fn for topic, or for every topic with Wildcard.
func (b *Bus) Subscribe(topic string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[topic] = append(b.handlers[topic], registered{id: b.nextID, fn: fn})
	return Subscription{topic: topic, id: b.nextID}
}

// Unsubscribe removes a handler. It reports whether one was removed.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.handlers[sub.topic]
	for i, r := range list {
		if r.id != sub.id {
			continue
		}
		b.handlers[sub.topic] = append(list[:i:i], list[i+1:]...)
		if len(b.handlers[sub.topic]) == 0 {
			delete(b.handlers, sub.topic)
		}
		return true
	}
	return false
}

// Emit delivers payload to the handlers of topic, then to wildcard handlers.
func (b *Bus) Emit(topic string, payload any) {
	b.mu.RLock()
	targets := make([]registered, 0, len(b.handlers[topic])+len(b.handlers[Wildcard]))
	targets = append(targets, b.handlers[topic]...)
	if topic != Wildcard {
		targets = append(targets, b.handlers[Wildcard]...)
	}
	b.mu.RUnlock()

	b.emitted.Add(1)
	for _, r := range targets {
		deliver(r, topic, payload)
	}
}

// Emitted returns how many events have been emitted.
func (b *Bus) Emitted() uint64 {
	return b.emitted.Load()
}

func deliver(r registered, topic string, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("Event handler %d panicked on %s: %v", r.id, topic, rec)
		}
	}()
	r.fn(topic, payload)
}
