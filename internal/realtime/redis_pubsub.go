package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/techmigo/backend/internal/events"
)

// RedisSubscriber implements Subscriber on the course channels written by events.Publisher.
type RedisSubscriber struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSubscriber creates a Redis pub/sub bridge for course events.
func NewRedisSubscriber(client *redis.Client, logger *zap.Logger) *RedisSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSubscriber{client: client, logger: logger}
}

// SubscribeCourse subscribes to the course channel and calls handler with each raw envelope.
// The returned cancel stops the subscription.
func (r *RedisSubscriber) SubscribeCourse(courseID uuid.UUID, handler func(envelope []byte)) (func(), error) {
	channel := events.Channel(courseID)
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
	r.logger.Debug("subscribed to course channel", zap.String("channel", channel))
	return cancel, nil
}
