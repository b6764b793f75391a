package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// envelope is the wire format on the fan-out channel.
type envelope struct {
	Audience string  `json:"audience"`
	Message  Message `json:"message"`
}

// RedisBroker fans pushes out to every instance through a Redis channel;
// each instance delivers to its own hub.
type RedisBroker struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *zap.Logger
}

// NewRedisBroker constructs a broker publishing on channel.
func NewRedisBroker(client *redis.Client, channel string, hub *Hub, logger *zap.Logger) *RedisBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{client: client, channel: channel, hub: hub, logger: logger}
}

// Push publishes msg for audience. When Redis is unreachable the message is
// still delivered to local connections and the publish error is returned.
func (b *RedisBroker) Push(ctx context.Context, audience string, msg Message) error {
	payload, err := json.Marshal(envelope{Audience: audience, Message: msg})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.hub.Deliver(audience, msg)
		return err
	}
	return nil
}

// Run subscribes to the channel until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription closed")
			}
			b.handle(msg.Payload)
		}
	}
}

func (b *RedisBroker) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("discarding malformed push envelope", zap.Error(err))
		return
	}
	if env.Audience == "" {
		return
	}
	b.hub.Deliver(env.Audience, env.Message)
}
