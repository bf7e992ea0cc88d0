// Package redis publishes mirrored room events over Redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/session"
)

// Publisher PUBLISHes every room broadcast on the room's channel
type Publisher struct {
	client *redis.Client
	clock  clock.Clock
}

var _ session.Mirror = (*Publisher)(nil)

// New connects to Redis and verifies the connection
func New(cfg Config, clock clock.Clock) (*Publisher, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewWithClient(client, clock), nil
}

// NewWithClient creates a Publisher with an existing client (for testing)
func NewWithClient(client *redis.Client, clock clock.Clock) *Publisher {
	return &Publisher{
		client: client,
		clock:  clock,
	}
}

// Close closes the Redis connection
func (p *Publisher) Close() error {
	return p.client.Close()
}

// Publish sends the event to the room's channel
func (p *Publisher) Publish(ctx context.Context, code model.RoomCode, event model.EventName, payload any) error {
	msg, err := events.NewMessage(code, event, payload, p.clock.Now())
	if err != nil {
		return fmt.Errorf("encoding mirrored %s: %w", event, err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, RoomChannel(code), data).Err()
}
