package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"quiz-match-service/config"

	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
)

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	log.Printf("✅ [REDIS] Connected to %s", cfg.Addr)
	return rdb, nil
}

// DialAMQP opens a connection and a channel on it. Closing the connection
// closes the channel too.
func DialAMQP(cfg config.MQConfig) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("MQ connect failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("MQ channel failed: %w", err)
	}

	log.Printf("✅ [MQ] Connected, publishing to queue %q", cfg.QueueName)
	return conn, ch, nil
}
