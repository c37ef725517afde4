package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
)

// RedisNotifier publishes every event on its match topic through Redis pub/sub
// for consumers outside this service. Nothing here subscribes back, so SSE
// clients only see events of the instance they are connected to.
type RedisNotifier struct {
	Rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{Rdb: rdb}
}

func (n *RedisNotifier) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := n.Rdb.Publish(ctx, ev.Topic, body).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.Topic, err)
	}
	return nil
}

// AMQPNotifier pushes events onto a durable queue for downstream consumers
// (leaderboards, analytics). Only the events listed in Events are forwarded;
// an empty list forwards everything.
type AMQPNotifier struct {
	mu     sync.Mutex
	ch     amqpPublisher
	queue  string
	Events map[string]bool
}

// amqpPublisher is the part of *amqp.Channel the notifier publishes through.
type amqpPublisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NewAMQPNotifier declares the queue and returns a notifier bound to it.
func NewAMQPNotifier(ch *amqp.Channel, queue string, events ...string) (*AMQPNotifier, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	n := &AMQPNotifier{ch: ch, queue: queue}
	if len(events) > 0 {
		n.Events = make(map[string]bool, len(events))
		for _, e := range events {
			n.Events[e] = true
		}
	}
	return n, nil
}

func (n *AMQPNotifier) Publish(_ context.Context, ev Event) error {
	if n.Events != nil && !n.Events[ev.Name] {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.ch.Publish("", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Name,
		Timestamp:    ev.At,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", ev.Name, err)
	}
	return nil
}
