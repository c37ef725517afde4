package services

import (
	"bufio"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

const sseKeepAlive = 15 * time.Second

// StreamMatchEventsSSE streams every event published for the match in the :id
// route param until the client goes away.
func (h *EventHub) StreamMatchEventsSSE(c *fiber.Ctx) error {
	matchID := c.Params("id")
	topic := MatchTopic(matchID)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	events, unsubscribe := h.Subscribe(topic)
	// c is recycled once the handler returns
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		log.Printf("📡 [SSE] Client subscribed to %s (%d listeners)", topic, h.Subscribers(topic))
		writeEventStream(w, events, done, sseKeepAlive)
		log.Printf("📡 [SSE] Client left %s", topic)
	})

	return nil
}

// writeEventStream frames events as SSE until the channel closes, done fires or
// a write fails. Comment lines keep idle proxies from closing the stream.
func writeEventStream(w *bufio.Writer, events <-chan Event, done <-chan struct{}, keepAlive time.Duration) {
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	w.WriteString(":\n\n")
	if err := w.Flush(); err != nil {
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Payload)
			if err := w.Flush(); err != nil {
				return
			}

		case <-ticker.C:
			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
