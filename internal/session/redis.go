package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a token survives in Redis.
const DefaultTTL = 24 * time.Hour

// RedisStore keeps tokens under <namespace>:token:<key>, shared by every
// console pointed at the same Redis.
type RedisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func NewRedisStore(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, namespace: namespace, ttl: ttl}
}

func (s *RedisStore) createKey(kind Kind) (string, error) {
	key := kind.Key()
	if key == "" {
		return "", ErrUnknownKind
	}
	return fmt.Sprintf("%s:token:%s", s.namespace, key), nil
}

func (s *RedisStore) Get(ctx context.Context, kind Kind) (string, error) {
	key, err := s.createKey(kind)
	if err != nil {
		return "", err
	}
	token, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && token == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return token, nil
}

func (s *RedisStore) Set(ctx context.Context, kind Kind, token string) error {
	key, err := s.createKey(kind)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, token, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, kind Kind) error {
	key, err := s.createKey(kind)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, key).Err()
}
