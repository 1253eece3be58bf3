package kvstore

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const (
	redisValueField   = "value"
	redisVersionField = "version"
)

// RedisStore keeps each key as a hash holding the value and its version.
// The client is owned by the caller and is not closed by Close.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	fields, err := s.client.HMGet(ctx, key, redisValueField, redisVersionField).Result()
	if err != nil {
		return Entry{}, err
	}
	if len(fields) != 2 || fields[0] == nil {
		return Entry{}, ErrNotFound
	}
	value, _ := fields[0].(string)
	entry := Entry{Value: []byte(value)}
	if raw, ok := fields[1].(string); ok {
		entry.Version, _ = strconv.ParseInt(raw, 10, 64)
	}
	return entry, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, redisValueField, value)
		pipe.HIncrBy(ctx, key, redisVersionField, 1)
		return nil
	})
	return err
}

// SetIfVersion uses WATCH/MULTI so a concurrent writer aborts the transaction.
func (s *RedisStore) SetIfVersion(ctx context.Context, key string, value []byte, version int64) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, redisVersionField).Int64()
		switch {
		case errors.Is(err, redis.Nil):
			current = 0
		case err != nil:
			return err
		}
		if current != version {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, redisValueField, value, redisVersionField, version+1)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Close() error {
	return nil
}
