package realtime

import (
	"context"

	"github.com/redis/go-redis/v9"

	"devlink/internal/config"
)

// RedisBus implements Bus over Redis pub/sub.
type RedisBus struct {
	client *redis.Client
}

func NewRedisClient(cnf *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cnf.Redis.Addr,
		Password: cnf.Redis.Password,
		DB:       cnf.Redis.DB,
	})
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return b.client.Publish(ctx, channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)

	// Receive forces the SUBSCRIBE round-trip so a failed connect surfaces
	// here instead of silently on the message channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	sub := &redisSubscription{
		pubsub:   pubsub,
		messages: make(chan []byte, 64),
	}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	pubsub   *redis.PubSub
	messages chan []byte
}

func (s *redisSubscription) pump() {
	defer close(s.messages)
	for msg := range s.pubsub.Channel() {
		s.messages <- []byte(msg.Payload)
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}

// RedisStateStore implements StateStore on a Redis hash.
type RedisStateStore struct {
	client *redis.Client
	key    string
}

func NewRedisStateStore(client *redis.Client, key string) *RedisStateStore {
	return &RedisStateStore{client: client, key: key}
}

func (s *RedisStateStore) Put(ctx context.Context, field string, value []byte) error {
	return s.client.HSet(ctx, s.key, field, value).Err()
}

func (s *RedisStateStore) Remove(ctx context.Context, field string) error {
	return s.client.HDel(ctx, s.key, field).Err()
}

func (s *RedisStateStore) All(ctx context.Context) (map[string][]byte, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for k, v := range raw {
		out[k] = []byte(v)
	}
	return out, nil
}
