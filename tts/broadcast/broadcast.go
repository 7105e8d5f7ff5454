// Package broadcast delivers progress events to any number of observers
// without letting a slow or dead observer block producers.
package broadcast

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Event is the JSON-serializable progress payload observers receive.
type Event struct {
	Type    string   `json:"type"`
	Stage   string   `json:"stage,omitempty"`
	Message string   `json:"message,omitempty"`
	Percent *float64 `json:"percent,omitempty"`
}

// Progress builds a progress event with a percent value.
func Progress(stage, message string, percent float64) Event {
	return Event{Type: "progress", Stage: stage, Message: message, Percent: &percent}
}

// Observer receives published events. Deliver returns an error when the
// observer can no longer accept events; the broadcaster then drops it.
type Observer interface {
	Deliver(Event) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event) error

// Deliver implements Observer.
func (f ObserverFunc) Deliver(e Event) error { return f(e) }

// Handle identifies a subscription for later removal.
type Handle uint64

// Broadcaster fans events out to all current subscribers. Subscribers
// joining after a publish never see it retroactively.
type Broadcaster struct {
	mu          sync.Mutex
	next        Handle
	subscribers map[Handle]Observer
}

// New creates an empty broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subscribers: make(map[Handle]Observer)}
}

// Subscribe adds an observer and returns its handle.
func (b *Broadcaster) Subscribe(o Observer) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	h := b.next
	b.subscribers[h] = o
	log.Debug("Observer subscribed", "handle", h, "active", len(b.subscribers))
	return h
}

// Unsubscribe removes an observer. Unknown handles are ignored.
func (b *Broadcaster) Unsubscribe(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[h]; ok {
		delete(b.subscribers, h)
		log.Debug("Observer unsubscribed", "handle", h, "active", len(b.subscribers))
	}
}

// Len returns the number of current subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Publish delivers the event to every current subscriber. Delivery to one
// observer is never blocked by a failure delivering to another: a failing
// observer is logged, removed, and skipped for the rest of the call.
// Iteration runs over a snapshot so observers may unsubscribe mid-publish.
func (b *Broadcaster) Publish(event Event) {
	b.mu.Lock()
	type sub struct {
		h Handle
		o Observer
	}
	snapshot := make([]sub, 0, len(b.subscribers))
	for h, o := range b.subscribers {
		snapshot = append(snapshot, sub{h, o})
	}
	b.mu.Unlock()

	var dead []Handle
	for _, s := range snapshot {
		if err := s.o.Deliver(event); err != nil {
			log.Warn("Dropping failed observer", "handle", s.h, "error", err)
			dead = append(dead, s.h)
		}
	}

	if len(dead) > 0 {
		b.mu.Lock()
		for _, h := range dead {
			delete(b.subscribers, h)
		}
		b.mu.Unlock()
	}
}
