package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore implements Repository on Redis. Keys expire after the
// configured TTL, refreshed on every read and write.
type RedisStore struct {
	client *redis.Client
	opts   options
}

// NewRedis connects to the Redis server at addr.
func NewRedis(addr, password string, db int, opts ...Option) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis store: address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisWithClient(client, opts...), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, opts ...Option) *RedisStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, opts: o}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// Create implements Repository.
func (s *RedisStore) Create(ctx context.Context) (*domain.Session, error) {
	for range maxCreateAttempts {
		session := domain.NewSession(s.opts.newID(), s.opts.now())
		val, err := json.Marshal(session)
		if err != nil {
			return nil, fmt.Errorf("encode session: %w", err)
		}
		ok, err := s.client.SetNX(ctx, redisKey(session.ID), val, s.opts.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		if ok {
			return session, nil
		}
	}
	return nil, errIDExhausted
}

// Get implements Repository.
func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	key := redisKey(id)
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}

	s.refreshTTL(ctx, key)

	return &session, nil
}

// Put implements Repository.
func (s *RedisStore) Put(ctx context.Context, session *domain.Session) error {
	key := redisKey(session.ID)
	val, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if n == 0 {
			return notFound(session.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, val, s.opts.ttl)
			return nil
		})
		return err
	}, key)
}

// Delete implements Repository.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisKey(id)).Err()
}

// DeleteIdle implements Repository. Redis expires idle keys on its own, so
// there is nothing to sweep.
func (s *RedisStore) DeleteIdle(context.Context, time.Duration) ([]string, error) {
	return nil, nil
}

// Ping implements Repository.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Repository.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// refreshTTL extends the key's lifetime after a read. Failures are logged.
func (s *RedisStore) refreshTTL(ctx context.Context, key string) {
	if err := s.client.Expire(ctx, key, s.opts.ttl).Err(); err != nil {
		slog.Warn("Failed to refresh session TTL", "key", key, "error", err)
	}
}
