package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each resource in a hash at "<prefix><resource>" with the
// fields "body" and "version". Conditional writes run inside WATCH/MULTI, so a
// concurrent writer aborts the transaction and Put reports ErrVersionConflict.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Conditional() bool { return true }

func (s *RedisStore) key(resource string) string { return s.prefix + resource }

func (s *RedisStore) Get(ctx context.Context, resource string) (*Document, error) {
	vals, err := s.rdb.HMGet(ctx, s.key(resource), "body", "version").Result()
	if err != nil {
		return nil, fmt.Errorf("hmget %s: %w", s.key(resource), err)
	}
	body, ok := vals[0].(string)
	if !ok {
		return nil, ErrNotFound
	}
	version, _ := vals[1].(string)
	return &Document{Body: []byte(body), Version: version}, nil
}

func (s *RedisStore) Put(ctx context.Context, resource string, body []byte, cond Condition) (string, error) {
	key := s.key(resource)
	var newVersion int64

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "version").Result()
		exists := true
		if errors.Is(err, redis.Nil) {
			exists = false
		} else if err != nil {
			return err
		}

		if cond.IfAbsent && exists {
			return ErrVersionConflict
		}
		if cond.IfMatch != "" && (!exists || current != cond.IfMatch) {
			return ErrVersionConflict
		}

		var incr *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "body", string(body))
			incr = pipe.HIncrBy(ctx, key, "version", 1)
			return nil
		})
		if err != nil {
			return err
		}
		newVersion = incr.Val()
		return nil
	}

	err := s.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) || errors.Is(err, ErrVersionConflict) {
		return "", ErrVersionConflict
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return strconv.FormatInt(newVersion, 10), nil
}
