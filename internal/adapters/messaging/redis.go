package messaging

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/learnova/portal-service/internal/config"
	"github.com/learnova/portal-service/internal/core/domain"
	"github.com/learnova/portal-service/internal/core/ports"
)

// RedisTransport implements ports.Transport over Redis PUBLISH/SUBSCRIBE.
type RedisTransport struct {
	client  *redis.Client
	channel string
	cb      *gobreaker.CircuitBreaker
}

var _ ports.Transport = (*RedisTransport)(nil)

func NewRedisTransport(addr, password, channel string) *RedisTransport {
	return &RedisTransport{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		channel: channel,
		cb:      config.NewCircuitBreaker("Redis-Sync"),
	}
}

// Client exposes the underlying connection for health probes.
func (r *RedisTransport) Client() *redis.Client { return r.client }

func (r *RedisTransport) Publish(ctx context.Context, change domain.SlotChange) error {
	body, err := encodeChange(change)
	if err != nil {
		return err
	}
	_, err = r.cb.Execute(func() (interface{}, error) {
		return nil, r.client.Publish(ctx, r.channel, body).Err()
	})
	return err
}

func (r *RedisTransport) Receive(ctx context.Context, deliver func([]byte)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reading messages.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("redis: subscription closed")
			}
			deliver([]byte(msg.Payload))
		}
	}
}

func (r *RedisTransport) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisTransport) Close() error {
	return r.client.Close()
}
