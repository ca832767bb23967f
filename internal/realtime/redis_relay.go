package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const DefaultRelayChannel = "live:events"

// RedisRelay fans deliveries out across server instances. Publish sends the
// delivery to a redis channel and every instance running Run hands what it
// receives to its local hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewRedisRelay(client *redis.Client, hub *Hub) *RedisRelay {
	return &RedisRelay{client: client, channel: DefaultRelayChannel, hub: hub}
}

var _ Publisher = (*RedisRelay)(nil)

func (r *RedisRelay) Publish(ctx context.Context, d Delivery) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode delivery: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to relay %s event: %w", d.Event.Type, err)
	}
	return nil
}

// Run subscribes to the relay channel and blocks until ctx is canceled.
// A non-nil ready is closed once the subscription is confirmed.
func (r *RedisRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var d Delivery
			if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
				logger.Log.WithError(err).Warn("Dropping malformed relay payload")
				continue
			}
			_ = r.hub.Publish(ctx, d)
		}
	}
}
