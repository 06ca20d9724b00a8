// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/scripture-companion/internal/domain"
)

// Repository defines the interface for persisting visitor state.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns nil, nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetValue reads a per-user key. ok is false when the key was never written.
	GetValue(ctx context.Context, userID, key string) (value string, ok bool, err error)

	// PutValue writes a per-user key, replacing any previous value.
	PutValue(ctx context.Context, userID, key, value string) error

	// VisitNotified reports whether a visit was already announced for the session.
	VisitNotified(ctx context.Context, userID, sessionID string) (bool, error)

	// MarkVisitNotified records that the session's visit was announced.
	MarkVisitNotified(ctx context.Context, userID, sessionID string, at time.Time) error

	// CleanupVisitMarks removes visit marks older than ttl.
	CleanupVisitMarks(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
