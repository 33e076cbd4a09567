// Package cache remembers responses to requests that carry an
// Idempotency-Key, so a retried purchase returns the first result instead of
// buying twice.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInFlight means another request with the same key is still running.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

type Idempotency interface {
	// Begin returns the stored result for key if there is one. Otherwise it
	// reserves key for the caller, who must later call Complete or Abort.
	Begin(ctx context.Context, key string, dest interface{}) (found bool, err error)
	Complete(ctx context.Context, key string, value interface{}) error
	Abort(ctx context.Context, key string) error
}

type RedisIdempotency struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func NewRedisIdempotency(client *redis.Client, ttl time.Duration) *RedisIdempotency {
	return &RedisIdempotency{client: client, ttl: ttl, lockTTL: 30 * time.Second}
}

func resultKey(key string) string { return "idempotency:" + key }
func lockKey(key string) string   { return "idempotency:lock:" + key }

func (r *RedisIdempotency) Begin(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, resultKey(key)).Bytes()
	if err == nil {
		if err := json.Unmarshal(data, dest); err != nil {
			return false, fmt.Errorf("decode cached result: %w", err)
		}
		return true, nil
	}
	if err != redis.Nil {
		return false, fmt.Errorf("get cached result: %w", err)
	}

	ok, err := r.client.SetNX(ctx, lockKey(key), "1", r.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if !ok {
		return false, ErrInFlight
	}

	return false, nil
}

func (r *RedisIdempotency) Complete(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, resultKey(key), data, r.ttl)
		pipe.Del(ctx, lockKey(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

func (r *RedisIdempotency) Abort(ctx context.Context, key string) error {
	return r.client.Del(ctx, lockKey(key)).Err()
}

// Disabled never finds a stored result. It is used when Redis is not
// configured.
type Disabled struct{}

func (Disabled) Begin(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Disabled) Complete(context.Context, string, interface{}) error      { return nil }
func (Disabled) Abort(context.Context, string) error                      { return nil }
