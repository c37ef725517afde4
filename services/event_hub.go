package services

import (
	"context"
	"sync"
)

const hubBufferSize = 32

// EventHub delivers events to in-process subscribers, keyed by topic.
// A subscriber that falls behind misses events instead of blocking publishers.
type EventHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns a channel of events for topic and a function that must be
// called to release it.
func (h *EventHub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, hubBufferSize)

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan Event]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[topic], ch)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *EventHub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.Topic] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *EventHub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
