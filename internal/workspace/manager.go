package workspace

import (
	"log/slog"
	"sync"
	"time"
)

type key struct {
	userID    string
	sessionID string
}

// Manager owns the live workspaces, one per user and tab session.
type Manager struct {
	deps Deps
	now  func() time.Time

	mu    sync.Mutex
	items map[key]*Workspace
}

// NewManager creates an empty manager.
func NewManager(deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{deps: deps, now: time.Now, items: make(map[key]*Workspace)}
}

// Get returns the workspace for the pair, creating it on first use, and
// marks it as recently used.
func (m *Manager) Get(userID, sessionID string) *Workspace {
	now := m.now()
	k := key{userID: userID, sessionID: sessionID}

	m.mu.Lock()
	w, ok := m.items[k]
	if !ok {
		w = newWorkspace(m.deps, userID, sessionID, now)
		m.items[k] = w
		m.mu.Unlock()
		m.deps.Logger.Debug("Workspace created", "user_id", userID, "session_id", sessionID)
		return w
	}
	m.mu.Unlock()

	w.touch(now)
	return w
}

// Len returns the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Evict drops workspaces unused for longer than ttl and returns how many
// were removed. Notes stores of users left without a workspace are released
// too; holding m.mu keeps a concurrent Get from reusing one mid-release.
func (m *Manager) Evict(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for k, w := range m.items {
		if w.idleSince().Before(cutoff) {
			delete(m.items, k)
			evicted++
		}
	}
	if evicted == 0 || m.deps.Notes == nil {
		return evicted
	}

	users := make(map[string]bool, len(m.items))
	for k := range m.items {
		users[k.userID] = true
	}
	if released := m.deps.Notes.Retain(func(userID string) bool { return users[userID] }); released > 0 {
		m.deps.Logger.Debug("Released notes stores", "count", released)
	}
	return evicted
}
