package store

import (
	"context"
	"errors"
	"fmt"

	"nullchat/configs"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps values under configs.RedisKeyPrefix in a Redis instance.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	if err := validName(name); err != nil {
		return nil, false, err
	}
	b, err := s.client.Get(ctx, fmt.Sprintf(configs.RedisKeyPrefix, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, name string, value []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	return s.client.Set(ctx, fmt.Sprintf(configs.RedisKeyPrefix, name), value, 0).Err()
}

var _ KVStore = (*RedisStore)(nil)
