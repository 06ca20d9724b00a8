// Package notes keeps each visitor's saved reflections.
//
// The list lives in memory and is mirrored to a per-user key in the
// repository: loaded once on first use and written back on every mutation.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/scripture-companion/internal/domain"
	"github.com/google/uuid"
)

// StorageKey is the repository key holding a user's notes.
const StorageKey = "notes"

// SourceAIInsight labels notes saved from a companion reply.
const SourceAIInsight = "AI Insight"

var (
	// ErrNotFound is returned when deleting an unknown note.
	ErrNotFound = errors.New("note not found")
	// ErrEmptyContent is returned when adding a blank note.
	ErrEmptyContent = errors.New("note content is empty")
)

// KV is the persistent key-value storage notes are mirrored to.
type KV interface {
	GetValue(ctx context.Context, userID, key string) (string, bool, error)
	PutValue(ctx context.Context, userID, key, value string) error
}

// Store holds one user's notes, newest first.
type Store struct {
	kv     KV
	userID string
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	loaded bool
	notes  []domain.Note
}

func newStore(kv KV, userID string, logger *slog.Logger) *Store {
	return &Store{kv: kv, userID: userID, logger: logger, now: time.Now}
}

// load reads the persisted list once. Unreadable data is logged and
// treated as an empty list. Callers hold s.mu.
func (s *Store) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	raw, ok, err := s.kv.GetValue(ctx, s.userID, StorageKey)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	s.loaded = true
	if !ok || raw == "" {
		return nil
	}

	var saved []domain.Note
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		s.logger.Error("Failed to parse notes", "user_id", s.userID, "error", err)
		return nil
	}
	s.notes = saved
	return nil
}

// persist writes next and adopts it only once stored. Callers hold s.mu.
func (s *Store) persist(ctx context.Context, next []domain.Note) error {
	if next == nil {
		next = []domain.Note{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	if err := s.kv.PutValue(ctx, s.userID, StorageKey, string(data)); err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	s.notes = next
	return nil
}

// List returns a copy of the notes, newest first.
func (s *Store) List(ctx context.Context) ([]domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return append([]domain.Note{}, s.notes...), nil
}

// Add prepends a new note. source may be empty.
func (s *Store) Add(ctx context.Context, content, source string) (domain.Note, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Note{}, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return domain.Note{}, err
	}

	note := domain.Note{
		ID:        uuid.NewString(),
		Content:   content,
		Source:    source,
		CreatedAt: s.now().UTC(),
	}
	next := make([]domain.Note, 0, len(s.notes)+1)
	next = append(next, note)
	next = append(next, s.notes...)
	if err := s.persist(ctx, next); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

// Delete removes the note with id. There is no undo.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return err
	}

	next := make([]domain.Note, 0, len(s.notes))
	found := false
	for _, n := range s.notes {
		if n.ID == id {
			found = true
			continue
		}
		next = append(next, n)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.persist(ctx, next)
}

// Registry hands out one Store per user.
type Registry struct {
	kv     KV
	logger *slog.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates a registry over kv.
func NewRegistry(kv KV, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{kv: kv, logger: logger, stores: make(map[string]*Store)}
}

// For returns the user's store, creating it on first use.
func (r *Registry) For(userID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[userID]
	if !ok {
		s = newStore(r.kv, userID, r.logger.With("component", "notes"))
		r.stores[userID] = s
	}
	return s
}

// Retain drops the stores of users for whom live reports false and
// returns how many were dropped.
func (r *Registry) Retain(live func(userID string) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for userID := range r.stores {
		if !live(userID) {
			delete(r.stores, userID)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of cached stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
