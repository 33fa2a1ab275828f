package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationService holds the latest operator messages in memory, newest
// last, dropping the oldest once limit is reached.
type NotificationService struct {
	mu            sync.Mutex
	notifications []Notification
	limit         int
	now           func() time.Time
}

func NewNotificationService(limit int) *NotificationService {
	if limit <= 0 {
		limit = 100
	}
	return &NotificationService{
		notifications: make([]Notification, 0),
		limit:         limit,
		now:           time.Now,
	}
}

func (ns *NotificationService) AddNotification(level Level, message, runID string) Notification {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	n := Notification{
		ID:        uuid.New(),
		Level:     level,
		Message:   message,
		RunID:     runID,
		CreatedAt: ns.now().UTC(),
	}
	ns.notifications = append(ns.notifications, n)
	if over := len(ns.notifications) - ns.limit; over > 0 {
		ns.notifications = append([]Notification(nil), ns.notifications[over:]...)
	}
	return n
}

// GetNotifications returns a copy, newest first.
func (ns *NotificationService) GetNotifications() []Notification {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := make([]Notification, len(ns.notifications))
	for i, n := range ns.notifications {
		out[len(out)-1-i] = n
	}
	return out
}

// Prune drops notifications older than maxAge and returns how many were
// removed.
func (ns *NotificationService) Prune(maxAge time.Duration) int {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	cutoff := ns.now().UTC().Add(-maxAge)
	kept := ns.notifications[:0]
	for _, n := range ns.notifications {
		if n.CreatedAt.After(cutoff) {
			kept = append(kept, n)
		}
	}
	removed := len(ns.notifications) - len(kept)
	ns.notifications = kept
	return removed
}

func (ns *NotificationService) ClearNotifications() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.notifications = []Notification{}
}
