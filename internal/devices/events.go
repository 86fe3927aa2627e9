package devices

import (
	"sync"

	"github.com/google/uuid"
)

// EventHub fans the device-changed notification out to subscribers. Each
// subscriber gets a buffered channel; a subscriber that stops reading
// misses events rather than blocking the poller.
type EventHub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]chan []Record
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[uuid.UUID]chan []Record)}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the consumer goes away.
func (h *EventHub) Subscribe() (<-chan []Record, func()) {
	ch := make(chan []Record, 4)
	id := uuid.New()

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the latest enumeration to every subscriber. Slow
// subscribers with a full buffer are skipped.
func (h *EventHub) Publish(latest []Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- latest:
		default:
		}
	}
}
