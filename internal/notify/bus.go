// Package notify provides a process-wide best-effort event bus.
// Cart updates are announced on it so host integrations (badge
// counters, mini-cart refreshes) can react without coupling to the
// popup flow. Delivery is best effort: a slow subscriber loses events
// rather than stalling a publish.
package notify

import (
	"sync"
	"time"
)

// ChannelCartUpdated carries an event after every successful cart add.
const ChannelCartUpdated = "quickshop:cart:updated"

// Event is one bus notification.
type Event struct {
	Channel   string    `json:"channel"`
	VariantID int64     `json:"variant_id"`
	Quantity  int       `json:"quantity"`
	Bundled   bool      `json:"bundled"`
	At        time.Time `json:"at"`
}

// Bus fans events out to channel subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe registers a buffered subscriber on channel. The returned
// cancel func removes the subscription and closes the event channel.
func (b *Bus) Subscribe(channel string, buf int) (<-chan Event, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Event, buf)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[channel]
		for i, sub := range subs {
			if sub == ch {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of ev.Channel without
// blocking. Subscribers with full buffers miss the event.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.Channel] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Default is the process-wide bus. Session publisher capabilities fall
// back to it when the host wires nothing else.
var Default = NewBus()

// Publish delivers ev on the Default bus.
func Publish(ev Event) {
	Default.Publish(ev)
}

// Subscribe registers on the Default bus.
func Subscribe(channel string, buf int) (<-chan Event, func()) {
	return Default.Subscribe(channel, buf)
}
