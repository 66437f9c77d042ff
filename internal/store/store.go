// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the interface for persisting interview sessions.
type Repository interface {
	// Create stores a new session in the initial state under a fresh id.
	Create(ctx context.Context) (*domain.Session, error)

	// Get returns a snapshot of the session. Unknown ids yield an error
	// wrapping domain.ErrSessionNotFound.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Put overwrites an existing session with the given value.
	Put(ctx context.Context, session *domain.Session) error

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteIdle removes sessions not updated within ttl and returns their ids.
	DeleteIdle(ctx context.Context, ttl time.Duration) ([]string, error)

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// maxCreateAttempts bounds id regeneration on collision.
const maxCreateAttempts = 5

// Option configures a store.
type Option func(*options)

type options struct {
	newID func() string
	now   func() time.Time
	ttl   time.Duration
}

func defaultOptions() options {
	return options{
		newID: uuid.NewString,
		now:   time.Now,
		ttl:   24 * time.Hour,
	}
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithClock overrides the time source used for timestamps and idle checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTTL sets the key expiry used by backends that expire records themselves.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// Config selects and configures a backend.
type Config struct {
	Driver        string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open returns the repository selected by cfg.Driver.
func Open(cfg Config, opts ...Option) (Repository, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(opts...), nil
	case DriverSQLite:
		return NewSQLite(cfg.DBPath, opts...)
	case DriverRedis:
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func notFound(id string) error {
	return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
}
