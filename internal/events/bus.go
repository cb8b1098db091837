// Package events provides the in-process publish/subscribe fabric connecting
// detection, execution, persistence, and notification. Publishing never
// blocks: a subscriber that falls behind loses events rather than stalling
// the engine.
package events

import (
	"sync"
	"time"
)

// Type identifies an engine event.
type Type string

const (
	TypeOpportunityFound Type = "opportunityFound"
	TypeTradeCompleted   Type = "tradeCompleted"
	TypeTradeFailed      Type = "tradeFailed"
	TypeStarted          Type = "started"
	TypeStopped          Type = "stopped"
)

// Event is a single engine event. Payload holds the domain value the event
// describes: an ArbitrageOpportunity for opportunityFound, a Trade for the
// trade events, and nil for started/stopped.
type Event struct {
	Type    Type
	Payload any
	At      time.Time
}

const subscriberBuffer = 64

// Bus fans events out to subscribers over buffered channels.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its channel together with
// a cancel function. The channel is closed when cancel is called or the bus
// shuts down.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking. Events are
// dropped for subscribers whose buffer is full.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close shuts the bus down and closes all subscriber channels. Publish and
// Subscribe become no-ops afterwards.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
