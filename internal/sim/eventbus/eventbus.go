// Package eventbus is a synchronous, type-keyed publish/subscribe bus.
// It is a structuring device for decoupling simulation components from
// their listeners, not a message broker: no queuing, no goroutines, no
// cross-thread delivery.
package eventbus

import "reflect"

type handler struct {
	id uint64
	fn func(any)
}

// Bus dispatches published events to handlers registered for the event's
// exact dynamic type. Dispatch runs handlers in reverse registration order
// so a handler may unsubscribe itself (or others) during dispatch without
// corrupting iteration.
type Bus struct {
	handlers map[reflect.Type][]handler
	nextID   uint64
}

func New() *Bus {
	return &Bus{handlers: map[reflect.Type][]handler{}}
}

// Subscription identifies a registered handler for later removal.
type Subscription struct {
	t  reflect.Type
	id uint64
}

// Subscribe registers fn for events of type T and returns a subscription
// token usable with Unsubscribe.
func Subscribe[T any](b *Bus, fn func(T)) Subscription {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.nextID++
	h := handler{id: b.nextID, fn: func(ev any) { fn(ev.(T)) }}
	b.handlers[t] = append(b.handlers[t], h)
	return Subscription{t: t, id: h.id}
}

// Unsubscribe removes the handler identified by sub. Unknown or already
// removed subscriptions are a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	hs := b.handlers[sub.t]
	for i, h := range hs {
		if h.id == sub.id {
			b.handlers[sub.t] = append(hs[:i:i], hs[i+1:]...)
			return
		}
	}
}

// Publish synchronously invokes every handler registered for ev's exact
// type, newest subscriber first. Publishing an event type with no
// subscribers is a no-op, never an error.
func (b *Bus) Publish(ev any) {
	t := reflect.TypeOf(ev)
	// Snapshot the handler list, then re-check membership before each
	// call: handlers unsubscribed during dispatch (themselves or others)
	// must not run, and handlers subscribed during dispatch must not run
	// until the next publish.
	snap := append([]handler(nil), b.handlers[t]...)
	for i := len(snap) - 1; i >= 0; i-- {
		if !b.registered(t, snap[i].id) {
			continue
		}
		snap[i].fn(ev)
	}
}

func (b *Bus) registered(t reflect.Type, id uint64) bool {
	for _, h := range b.handlers[t] {
		if h.id == id {
			return true
		}
	}
	return false
}

// Clear drops every registered handler.
func (b *Bus) Clear() {
	b.handlers = map[reflect.Type][]handler{}
}
