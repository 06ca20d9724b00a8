package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/scripture-companion/internal/domain"
	"github.com/ashureev/scripture-companion/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 50 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db         *sql.DB
	maxRetries int
	baseDelay  time.Duration
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithRetry sets how often busy writes are retried and the first backoff.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(s *SQLiteStore) {
		if maxRetries > 0 {
			s.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			s.baseDelay = baseDelay
		}
	}
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string, opts ...Option) (*SQLiteStore, error) {
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
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, maxRetries: defaultMaxRetries, baseDelay: defaultBaseDelay}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kv (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, key)
	);

	CREATE TABLE IF NOT EXISTS visit_marks (
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		notified_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_visit_marks_notified ON visit_marks(notified_at);
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
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	return s.execWithRetry(ctx, "upsert user", query,
		user.UserID, user.Username,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}
	return nil
}

// GetValue reads a per-user key.
func (s *SQLiteStore) GetValue(ctx context.Context, userID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE user_id = ? AND key = ?`, userID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read value %q: %w", key, err)
	}
	return value, true, nil
}

// PutValue writes a per-user key.
func (s *SQLiteStore) PutValue(ctx context.Context, userID, key, value string) error {
	query := `
	INSERT INTO kv (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	return s.execWithRetry(ctx, "put value", query, userID, key, value, time.Now().Unix())
}

// VisitNotified reports whether the session was already announced.
func (s *SQLiteStore) VisitNotified(ctx context.Context, userID, sessionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM visit_marks WHERE user_id = ? AND session_id = ?`, userID, sessionID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read visit mark: %w", err)
	}
	return true, nil
}

// MarkVisitNotified records the announcement. Marking twice is a no-op.
func (s *SQLiteStore) MarkVisitNotified(ctx context.Context, userID, sessionID string, at time.Time) error {
	query := `
	INSERT INTO visit_marks (user_id, session_id, notified_at) VALUES (?, ?, ?)
	ON CONFLICT(user_id, session_id) DO NOTHING`

	return s.execWithRetry(ctx, "mark visit", query, userID, sessionID, at.Unix())
}

// CleanupVisitMarks removes visit marks older than ttl.
func (s *SQLiteStore) CleanupVisitMarks(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM visit_marks WHERE notified_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup visit marks: %w", err)
	}
	return result.RowsAffected()
}

// execWithRetry runs a write, retrying SQLITE_BUSY with exponential backoff.
func (s *SQLiteStore) execWithRetry(ctx context.Context, op, query string, args ...any) error {
	var err error
	for i := 0; i < s.maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == s.maxRetries-1 {
			break
		}

		delay := s.baseDelay * time.Duration(1<<i)
		slog.Debug("SQLite write busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ Repository = (*SQLiteStore)(nil)
