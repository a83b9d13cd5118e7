package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openport-labs/swapquote/metrics"
)

// Session is one live quote session.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time
	*Engine
}

// Manager owns the set of live sessions for the API surface.
type Manager struct {
	newEngine func() (*Engine, error)

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a Manager that builds engines with the given factory.
func NewManager(newEngine func() (*Engine, error)) *Manager {
	return &Manager{
		newEngine: newEngine,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// Create starts a fresh session.
func (m *Manager) Create() (*Session, error) {
	eng, err := m.newEngine()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		Engine:    eng,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	log.Info().Stringer("session", s.ID).Msg("session created")
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete stops and removes a session. Returns false when it does not exist.
func (m *Manager) Delete(id uuid.UUID) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	metrics.ActiveSessions.Dec()
	log.Info().Stringer("session", id).Msg("session closed")
	return true
}

// CloseAll stops every session; used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		metrics.ActiveSessions.Dec()
	}
}
