// Package dispatcher implements the per-entity synchronous event bus.
// Every step and workflow owns one, pre-registered with the fixed channel
// vocabulary for its entity type; subscribing to a name outside that set
// is a configuration error.
package dispatcher

import (
	"fmt"
	"sync"

	"github.com/cascadeflow/cascade/pkg/events"
)

// Handler receives the payload emitted on a channel.
type Handler func(payload any)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	channel events.EventType
	id      uint64
}

type subscriber struct {
	id      uint64
	handler Handler
	once    bool
}

// Dispatcher delivers events synchronously, in registration order, to all
// subscribers of a channel. It is safe for concurrent use.
type Dispatcher struct {
	mu       sync.Mutex
	nextID   uint64
	channels map[events.EventType][]subscriber
}

// New creates a dispatcher with the given closed channel set.
func New(channels []events.EventType) *Dispatcher {
	m := make(map[events.EventType][]subscriber, len(channels))
	for _, name := range channels {
		m[name] = nil
	}

	return &Dispatcher{channels: m}
}

// On registers a durable subscriber on the named channel.
func (d *Dispatcher) On(name events.EventType, handler Handler) (Subscription, error) {
	return d.subscribe(name, handler, false)
}

// Once registers a subscriber that is removed after its first delivery.
func (d *Dispatcher) Once(name events.EventType, handler Handler) (Subscription, error) {
	return d.subscribe(name, handler, true)
}

func (d *Dispatcher) subscribe(name events.EventType, handler Handler, once bool) (Subscription, error) {
	if handler == nil {
		return Subscription{}, fmt.Errorf("nil handler for channel %q", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.channels[name]; !ok {
		return Subscription{}, fmt.Errorf("unknown event channel %q", name)
	}

	d.nextID++
	d.channels[name] = append(d.channels[name], subscriber{
		id:      d.nextID,
		handler: handler,
		once:    once,
	})

	return Subscription{channel: name, id: d.nextID}, nil
}

// Off removes a previously registered subscription. Removing a
// subscription twice is a no-op.
func (d *Dispatcher) Off(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.channels[sub.channel]
	for i, s := range subs {
		if s.id == sub.id {
			d.channels[sub.channel] = append(subs[:i:i], subs[i+1:]...)

			return
		}
	}
}

// Emit synchronously invokes all subscribers of the named channel in
// registration order, passing payload to each. It reports whether the
// channel exists and delivery ran; emitting on an unknown channel is
// suppressed and returns false.
func (d *Dispatcher) Emit(name events.EventType, payload any) bool {
	d.mu.Lock()

	subs, ok := d.channels[name]
	if !ok {
		d.mu.Unlock()

		return false
	}

	// Copy so handlers can subscribe/unsubscribe without deadlocking.
	toRun := make([]subscriber, len(subs))
	copy(toRun, subs)

	remaining := subs[:0:0]

	for _, s := range subs {
		if !s.once {
			remaining = append(remaining, s)
		}
	}

	d.channels[name] = remaining
	d.mu.Unlock()

	for _, s := range toRun {
		s.handler(payload)
	}

	return true
}

// SubscriberCount returns the number of live subscribers on a channel.
func (d *Dispatcher) SubscriberCount(name events.EventType) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.channels[name])
}
