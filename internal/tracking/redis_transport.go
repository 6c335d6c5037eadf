package tracking

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisTransport carries campaign topics over Redis pub/sub. go-redis
// re-establishes dropped connections and their subscriptions on its own,
// which gives the channel its silent auto-reconnect behaviour.
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport wraps a Redis client.
func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

// Publish sends a payload to every subscriber of the topic.
func (t *RedisTransport) Publish(ctx context.Context, topic string, payload []byte) error {
	return t.client.Publish(ctx, topic, payload).Err()
}

// Subscribe opens a subscription on the topic.
func (t *RedisTransport) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := t.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSubscription{ps: ps, out: make(chan []byte, 64)}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	out  chan []byte
	once sync.Once
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ps.Close()
	})
	return err
}

func (s *redisSubscription) pump() {
	// ps.Channel() closes once the subscription is closed, which in turn
	// closes out and ends the channel reader.
	for msg := range s.ps.Channel() {
		s.out <- []byte(msg.Payload)
	}
	close(s.out)
}
