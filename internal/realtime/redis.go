package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tourdesk/service-booking/internal/common/domain"
)

// ChannelPrefix prefixes the Redis Pub/Sub channel of every booking request.
const ChannelPrefix = "booking:status:"

var errHubClosed = errors.New("hub closed")

// ChannelName returns the Redis channel carrying updates for id.
func ChannelName(id uuid.UUID) string {
	return ChannelPrefix + id.String()
}

// RedisChannel shares status updates between service instances. Publish goes
// to Redis only; Run relays every instance's updates into the local Hub, which
// serves the subscribers connected to this process.
type RedisChannel struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
}

// NewRedisChannel creates a RedisChannel delivering through hub.
func NewRedisChannel(client *redis.Client, hub *Hub, logger *zap.Logger) *RedisChannel {
	return &RedisChannel{client: client, hub: hub, logger: logger}
}

// Publish implements Publisher.
func (c *RedisChannel) Publish(ctx context.Context, update StatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}
	if err := c.client.Publish(ctx, ChannelName(update.ID), payload).Err(); err != nil {
		return domain.NewExternalServiceError("redis", err)
	}
	return nil
}

// Subscribe implements Subscriber.
func (c *RedisChannel) Subscribe(ctx context.Context, id uuid.UUID, afterVersion int64) (<-chan StatusUpdate, error) {
	return c.hub.Subscribe(ctx, id, afterVersion)
}

// Run relays Redis messages into the hub until ctx is cancelled.
func (c *RedisChannel) Run(ctx context.Context) error {
	pubsub := c.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return domain.NewExternalServiceError("redis", err)
	}
	c.logger.Info("realtime relay subscribed", zap.String("pattern", ChannelPrefix+"*"))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			update, err := decodeUpdate(msg.Channel, msg.Payload)
			if err != nil {
				c.logger.Warn("discarding malformed status update",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			_ = c.hub.Publish(ctx, update)
		}
	}
}

func decodeUpdate(channel, payload string) (StatusUpdate, error) {
	var update StatusUpdate
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		return StatusUpdate{}, fmt.Errorf("failed to unmarshal status update: %w", err)
	}
	if strings.TrimPrefix(channel, ChannelPrefix) != update.ID.String() {
		return StatusUpdate{}, fmt.Errorf("update for %s published on %s", update.ID, channel)
	}
	return update, nil
}
