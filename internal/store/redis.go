package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hwalton/keap-console/pkg/keap"
)

const redisKeyPrefix = "keap:"

// RedisStore keeps the token pair as JSON under one key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore stores the pair at "keap:<slot>".
func NewRedisStore(client *redis.Client, slot string) *RedisStore {
	return &RedisStore{client: client, key: redisKeyPrefix + slot}
}

func (s *RedisStore) Read(ctx context.Context) (keap.TokenPair, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return keap.TokenPair{}, nil
	}
	if err != nil {
		return keap.TokenPair{}, fmt.Errorf("store: redis get %s: %w", s.key, err)
	}
	var pair keap.TokenPair
	if err := json.Unmarshal(b, &pair); err != nil {
		return keap.TokenPair{}, fmt.Errorf("store: decode %s: %w", s.key, err)
	}
	return pair, nil
}

// Write sets the key without expiry; the refresh token outlives the access token.
func (s *RedisStore) Write(ctx context.Context, pair keap.TokenPair) error {
	b, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("store: encode tokens: %w", err)
	}
	if err := s.client.Set(ctx, s.key, b, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("store: redis del %s: %w", s.key, err)
	}
	return nil
}
