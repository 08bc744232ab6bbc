package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/metricgraph/pkg/graph"
)

// RedisConfig holds the Redis connection configuration.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "metricgraph:",
	}
}

// maxTxAttempts bounds optimistic-lock retries in Update.
const maxTxAttempts = 5

// RedisBackend stores each project as a JSON string under
// <prefix>project:<id> and tracks project IDs in the set <prefix>projects.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	err := retry(ctx, func() error {
		return retryable(client.Ping(ctx).Err())
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisBackendFromClient(client, cfg.KeyPrefix), nil
}

// NewRedisBackendFromClient wraps an existing client. The backend takes
// ownership of the client and closes it on Close.
func NewRedisBackendFromClient(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(projectID string) string { return b.prefix + "project:" + projectID }
func (b *RedisBackend) indexKey() string            { return b.prefix + "projects" }

// Name implements Backend.
func (b *RedisBackend) Name() string { return "redis" }

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, projectID string) (*graph.Snapshot, error) {
	var data []byte
	err := retry(ctx, func() error {
		var err error
		data, err = b.client.Get(ctx, b.key(projectID)).Bytes()
		return retryable(err)
	})
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

// Put implements Backend.
func (b *RedisBackend) Put(ctx context.Context, s *graph.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return retry(ctx, func() error {
		_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, b.key(s.ProjectID), data, 0)
			pipe.SAdd(ctx, b.indexKey(), s.ProjectID)
			return nil
		})
		return retryable(err)
	})
}

// Update implements Updater with WATCH/MULTI so concurrent writers from
// other processes never lose each other's changes.
func (b *RedisBackend) Update(ctx context.Context, projectID string, fn func(*graph.Snapshot) error) error {
	key := b.key(projectID)
	txf := func(tx *redis.Tx) error {
		s := &graph.Snapshot{}
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if s, err = decodeSnapshot(data); err != nil {
				return err
			}
		}

		if err := fn(s); err != nil {
			return err
		}
		out, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			pipe.SAdd(ctx, b.indexKey(), projectID)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxAttempts; i++ {
		err := b.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("update %s: too much contention", projectID)
}

// Remove implements Backend.
func (b *RedisBackend) Remove(ctx context.Context, projectID string) error {
	return retry(ctx, func() error {
		_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, b.key(projectID))
			pipe.SRem(ctx, b.indexKey(), projectID)
			return nil
		})
		return retryable(err)
	})
}

// Keys implements Backend.
func (b *RedisBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := retry(ctx, func() error {
		var err error
		keys, err = b.client.SMembers(ctx, b.indexKey()).Result()
		return retryable(err)
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(keys)
	return keys, nil
}

// Close closes the client.
func (b *RedisBackend) Close() error { return b.client.Close() }

func decodeSnapshot(data []byte) (*graph.Snapshot, error) {
	var s graph.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &s, nil
}

// retryable marks transport failures for retry. A missing key
// and a cancelled context are final.
func retryable(err error) error {
	if err == nil || errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return transient(err)
}

var (
	_ Backend = (*RedisBackend)(nil)
	_ Updater = (*RedisBackend)(nil)
)
