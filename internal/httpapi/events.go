package httpapi

import (
	"sync"
	"time"

	"github.com/lukasbauer/speakd/internal/eventlog"
)

// TaskEvent is a speech task lifecycle notification pushed to /events.
type TaskEvent struct {
	TaskID string             `json:"task_id"`
	Type   eventlog.EventType `json:"type"`
	Driver string             `json:"driver"`
	Data   map[string]any     `json:"data,omitempty"`
	At     time.Time          `json:"at"`
}

const subscriberBuffer = 32

// EventHub fans task events out to live subscribers. Slow subscribers
// miss events instead of blocking publishers.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan TaskEvent]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan TaskEvent]struct{})}
}

// Subscribe registers a subscriber. The returned func unsubscribes and
// closes the channel.
func (h *EventHub) Subscribe() (<-chan TaskEvent, func()) {
	ch := make(chan TaskEvent, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber that has room.
func (h *EventHub) Publish(e TaskEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
