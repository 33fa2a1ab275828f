package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Manager struct {
	sessions map[string]*Session
	mu       sync.Mutex
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (m *Manager) CreateSession(userID string, duration time.Duration) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}
	m.sessions[session.ID] = session
	return session
}

// GetSession returns live sessions only; an expired session is removed on
// lookup.
func (m *Manager) GetSession(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, false
	}
	if session.Expired(m.now()) {
		delete(m.sessions, sessionID)
		return nil, false
	}
	return session, true
}

func (m *Manager) DeleteSession(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return exists
}

func (m *Manager) CleanupExpiredSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
