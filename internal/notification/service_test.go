package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationsNewestFirstAndBounded(t *testing.T) {
	ns := NewNotificationService(2)
	ns.AddNotification(LevelInfo, "one", "")
	ns.AddNotification(LevelWarning, "two", "")
	ns.AddNotification(LevelError, "three", "run-3")

	got := ns.GetNotifications()
	require.Len(t, got, 2)
	assert.Equal(t, "three", got[0].Message)
	assert.Equal(t, "run-3", got[0].RunID)
	assert.Equal(t, "two", got[1].Message)
}

func TestNotificationsPrune(t *testing.T) {
	ns := NewNotificationService(10)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ns.now = func() time.Time { return clock }

	ns.AddNotification(LevelInfo, "old", "")
	clock = clock.Add(48 * time.Hour)
	ns.AddNotification(LevelInfo, "new", "")

	assert.Equal(t, 1, ns.Prune(24*time.Hour))
	got := ns.GetNotifications()
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Message)

	ns.ClearNotifications()
	assert.Empty(t, ns.GetNotifications())
}
