package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/mcp-training/marsrover/mission/engine"
	"github.com/wricardo/mcp-training/marsrover/mission/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager keeps live mission sessions in memory, keyed by lower-cased ID.
// Sessions handed to callers are copies taken under mu, so their timestamps
// never change underneath them. The Mission pointer is shared.
type Manager struct {
	sessions map[string]*service.Session
	options  []engine.Option
	now      func() time.Time
	mu       sync.RWMutex
}

func key(id string) string {
	return strings.ToLower(id)
}

// snapshot copies a stored session. Callers hold mu.
func snapshot(s *service.Session) *service.Session {
	c := *s
	return &c
}

// NewManager creates a new session manager. The options are applied to the
// mission of every session it creates.
func NewManager(opts ...engine.Option) *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		options:  opts,
		now:      time.Now,
	}
}

// Create creates a new session with the given ID and deploys every rover of
// the plan. An empty ID is replaced by a generated one.
func (m *Manager) Create(id string, plan *engine.MissionPlan) (*service.Session, error) {
	if strings.ContainsAny(id, " /\\?#") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
	}

	if _, exists := m.sessions[key(id)]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionAlreadyExists, id)
	}

	mission, err := engine.NewMissionFromPlan(plan, m.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}

	now := m.now()
	session := &service.Session{
		ID:             id,
		Mission:        mission,
		Plan:           plan,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.sessions[key(id)] = session
	return snapshot(session), nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[key(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return snapshot(session), nil
}

// List returns all active sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, snapshot(session))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[key(id)]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key(id))
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[key(id)]
	if !exists {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = m.now()
	return nil
}

// CleanupExpiredSessions drops sessions idle for longer than maxAge and
// returns how many were removed
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	var removed int
	for k, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, k)
			removed++
		}
	}
	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID returns the first block of a random UUID, retrying on
// the unlikely clash with a live session. Callers hold mu.
func (m *Manager) generateSessionID() string {
	for {
		id := strings.SplitN(uuid.NewString(), "-", 2)[0]
		if _, exists := m.sessions[key(id)]; !exists {
			return id
		}
	}
}
