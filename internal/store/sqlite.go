package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/ashureev/chef-interview/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. Sessions are stored as a
// JSON payload next to the columns needed for lookups and idle sweeps.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite store: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	store := &SQLiteStore{db: db, opts: o}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a new session, regenerating the id on a primary key clash.
func (s *SQLiteStore) Create(ctx context.Context) (*domain.Session, error) {
	query := `
	INSERT INTO sessions (session_id, state, payload_json, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)`

	for range maxCreateAttempts {
		session := domain.NewSession(s.opts.newID(), s.opts.now())
		payload, err := json.Marshal(session)
		if err != nil {
			return nil, fmt.Errorf("encode session: %w", err)
		}

		err = withBusyRetry(ctx, "create session", func() error {
			_, err := s.db.ExecContext(ctx, query,
				session.ID, string(session.State), string(payload),
				session.CreatedAt.Unix(), session.UpdatedAt.Unix(),
			)
			return err
		})
		if shared.IsSQLiteConstraintError(err) {
			slog.Warn("Session id collision, regenerating", "session_id", session.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert session: %w", err)
		}
		return session, nil
	}
	return nil, errIDExhausted
}

// Get retrieves a session by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT payload_json FROM sessions WHERE session_id = ?`

	var payload string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, nil
}

// Put overwrites an existing session.
func (s *SQLiteStore) Put(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	query := `UPDATE sessions SET state = ?, payload_json = ?, updated_at = ? WHERE session_id = ?`

	var rows int64
	err = withBusyRetry(ctx, "put session", func() error {
		result, err := s.db.ExecContext(ctx, query,
			string(session.State), string(payload), session.UpdatedAt.Unix(), session.ID)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if rows == 0 {
		return notFound(session.ID)
	}
	return nil
}

// Delete removes a session.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	err := withBusyRetry(ctx, "delete session", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteIdle removes sessions whose last update is older than ttl.
func (s *SQLiteStore) DeleteIdle(ctx context.Context, ttl time.Duration) ([]string, error) {
	cutoff := s.opts.now().Add(-ttl).Unix()

	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query idle sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan idle session: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate idle sessions: %w", err)
	}
	rows.Close()

	deleted := ids[:0]
	for _, id := range ids {
		ok, err := s.deleteIfIdle(ctx, id, cutoff)
		if err != nil {
			slog.Warn("Failed to delete idle session", "session_id", id, "error", err)
			continue
		}
		if ok {
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// deleteIfIdle removes id only if it was not updated since cutoff, so a
// Put racing the sweep keeps its session.
func (s *SQLiteStore) deleteIfIdle(ctx context.Context, id string, cutoff int64) (bool, error) {
	var n int64
	err := withBusyRetry(ctx, "delete idle session", func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM sessions WHERE session_id = ? AND updated_at < ?`, id, cutoff)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n == 1, err
}

// withBusyRetry runs fn, retrying SQLITE_BUSY and locked errors with
// exponential backoff: 50ms, 100ms, 200ms.
func withBusyRetry(ctx context.Context, op string, fn func() error) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", op, maxRetries, err)
}
