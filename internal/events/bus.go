// Package events: bus.go implements a synchronous publish/subscribe broker.
//
// Publish runs every handler registered for the event name, in
// registration order, on the publisher's goroutine. There is no queue,
// no retry and no recover: a slow handler delays the publisher and a
// panicking handler propagates to it. Handlers own their error handling.
package events

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handler reacts to a published event.
type Handler func(ctx context.Context, e Event)

// SubscriptionID identifies a registered handler for Unsubscribe.
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus is the event broker. The zero value is not usable; call NewBus.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers handler for events named name.
func (b *Bus) Subscribe(name string, handler Handler) SubscriptionID {
	id := SubscriptionID(b.nextID.Add(1))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: handler})
	return id
}

// On is an alias of Subscribe.
func (b *Bus) On(name string, handler Handler) SubscriptionID {
	return b.Subscribe(name, handler)
}

// Unsubscribe removes one handler. Unknown ids are ignored.
func (b *Bus) Unsubscribe(name string, id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		// copy instead of in-place delete: a running Publish may hold the old slice
		out := make([]subscription, 0, len(subs)-1)
		out = append(out, subs[:i]...)
		out = append(out, subs[i+1:]...)
		if len(out) == 0 {
			delete(b.subs, name)
		} else {
			b.subs[name] = out
		}
		return
	}
}

// Off is an alias of Unsubscribe.
func (b *Bus) Off(name string, id SubscriptionID) {
	b.Unsubscribe(name, id)
}

// Publish delivers e to every handler subscribed to e.Name().
// The handler list is snapshotted first, so handlers may subscribe,
// unsubscribe or publish without deadlocking.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := b.subs[e.Name()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(ctx, e)
	}
}

// Emit is an alias of Publish.
func (b *Bus) Emit(ctx context.Context, e Event) {
	b.Publish(ctx, e)
}

// HandlerCount returns the number of handlers registered for name.
func (b *Bus) HandlerCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}
