// storage/redis/storage.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ludopad/ludopad/storage"
)

const keyPrefix = "ludopad"

// changeChannel carries change signals between store instances.
const changeChannel = keyPrefix + ":changes"

// changeEvent is the pub/sub payload for a mutated key. Origin lets each
// subscriber drop its own writes, so signals stay cross-instance only.
type changeEvent struct {
	Key    string    `json:"key"`
	Origin uuid.UUID `json:"origin"`
}

// Storage is a Redis-backed durable store with pub/sub change signaling.
type Storage struct {
	client *redis.Client
	origin uuid.UUID
	log    *logrus.Logger
}

var _ storage.WatchableStore = (*Storage)(nil)

// New connects to Redis and verifies the connection.
func New(cfg Config, log *logrus.Logger) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewWithClient(client, log), nil
}

// NewWithClient wraps an existing client (used by tests with miniredis).
func NewWithClient(client *redis.Client, log *logrus.Logger) *Storage {
	if log == nil {
		log = logrus.New()
	}
	return &Storage{client: client, origin: uuid.New(), log: log}
}

// Close closes the Redis connection.
func (s *Storage) Close() error {
	return s.client.Close()
}

func dataKey(key string) string {
	return fmt.Sprintf("%s:kv:%s", keyPrefix, key)
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, dataKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, dataKey(key), value, 0).Err(); err != nil {
		return err
	}
	s.publishChange(ctx, key)
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	removed, err := s.client.Del(ctx, dataKey(key)).Result()
	if err != nil {
		return err
	}
	if removed > 0 {
		s.publishChange(ctx, key)
	}
	return nil
}

// publishChange emits the change signal. A failed publish only loses the
// notification, never the write, so it is logged and swallowed.
func (s *Storage) publishChange(ctx context.Context, key string) {
	payload, err := json.Marshal(changeEvent{Key: key, Origin: s.origin})
	if err != nil {
		s.log.Warnf("redis store: failed to marshal change event for %q: %v", key, err)
		return
	}
	if err := s.client.Publish(ctx, changeChannel, payload).Err(); err != nil {
		s.log.Warnf("redis store: failed to publish change for %q: %v", key, err)
	}
}

// Watch subscribes to change signals for key. Events published by this
// instance are filtered out.
func (s *Storage) Watch(ctx context.Context, key string, fn func(storage.Change)) (func(), error) {
	pubsub := s.client.Subscribe(ctx, changeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to change channel: %w", err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var ev changeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.log.Warnf("redis store: bad change payload: %v", err)
				continue
			}
			if ev.Origin == s.origin || ev.Key != key {
				continue
			}
			fn(storage.Change{Key: ev.Key})
		}
	}()

	cancel := func() {
		if err := pubsub.Close(); err != nil {
			s.log.Debugf("redis store: pubsub close: %v", err)
		}
	}
	return cancel, nil
}
