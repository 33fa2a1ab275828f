package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	m := NewManager()
	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	s := m.CreateSession("office", time.Hour)
	other := m.CreateSession("office", time.Hour)
	assert.NotEqual(t, s.ID, other.ID)

	got, ok := m.GetSession(s.ID)
	require.True(t, ok)
	assert.Equal(t, "office", got.UserID)

	assert.True(t, m.DeleteSession(s.ID))
	assert.False(t, m.DeleteSession(s.ID))
	_, ok = m.GetSession(s.ID)
	assert.False(t, ok)

	clock = clock.Add(time.Hour)
	_, ok = m.GetSession(other.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Count())
}

func TestCleanupExpiredSessions(t *testing.T) {
	m := NewManager()
	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	m.CreateSession("a", time.Minute)
	m.CreateSession("b", time.Hour)
	clock = clock.Add(2 * time.Minute)

	assert.Equal(t, 1, m.CleanupExpiredSessions())
	assert.Equal(t, 1, m.Count())
}
