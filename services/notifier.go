package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

const (
	EventMatchCreated   = "match_created"
	EventPlayerJoined   = "player_joined"
	EventGameStarted    = "game_started"
	EventScoreUpdate    = "score_update"
	EventQuestionUpdate = "question_update"
	EventMatchEnded     = "match_ended"
)

// MatchTopic is the channel subscribers of a single match listen on.
func MatchTopic(matchID string) string {
	return "match:" + matchID
}

// Event is the envelope every sink receives.
type Event struct {
	Topic   string          `json:"topic"`
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

func NewEvent(topic, name string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{Topic: topic, Name: name, Payload: raw, At: time.Now().UTC()}, nil
}

// EventNotifier broadcasts that something about a match changed. Delivery is best effort.
type EventNotifier interface {
	Publish(ctx context.Context, ev Event) error
}

// MultiNotifier fans an event out to every sink and joins their errors.
type MultiNotifier []EventNotifier

func (m MultiNotifier) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier only writes events to the log. Used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Publish(_ context.Context, ev Event) error {
	log.Printf("📣 [EVENTS] %s %s %s", ev.Topic, ev.Name, ev.Payload)
	return nil
}

// publishMatchEvent never fails the caller. Notification errors are logged and dropped.
func publishMatchEvent(ctx context.Context, n EventNotifier, matchID, name string, payload any) {
	if n == nil {
		return
	}
	ev, err := NewEvent(MatchTopic(matchID), name, payload)
	if err != nil {
		log.Printf("⚠️ [EVENTS] %v", err)
		return
	}
	if err := n.Publish(ctx, ev); err != nil {
		log.Printf("⚠️ [EVENTS] Failed to publish %s for match %s: %v", name, matchID, err)
	}
}
