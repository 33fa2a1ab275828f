package jobs

import (
	"fmt"
	"log"
	"time"

	"SchoolPortal/internal/config"
	"SchoolPortal/internal/logger"

	"github.com/robfig/cron/v3"
)

// SessionSweeper is satisfied by *auth.AuthService.
type SessionSweeper interface {
	CleanupExpired() int
}

// NotificationPruner is satisfied by *notification.NotificationService.
type NotificationPruner interface {
	Prune(maxAge time.Duration) int
}

// CronService runs the housekeeping schedules.
type CronService struct {
	config   map[string]interface{}
	sessions SessionSweeper
	notes    NotificationPruner
	cron     *cron.Cron
}

func NewCronService(cfg map[string]interface{}, sessions SessionSweeper, notes NotificationPruner) *CronService {
	return &CronService{
		config:   cfg,
		sessions: sessions,
		notes:    notes,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	tz := config.StringFromConfig(s.config, "time_zone", config.DefaultTimeZone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	if s.sessions != nil {
		schedule := config.StringFromConfig(s.config, "session_sweep_schedule", config.DefaultSessionSweepSchedule)
		if _, err := c.AddFunc(schedule, s.sweepSessions); err != nil {
			return fmt.Errorf("unable to schedule session sweep: %v", err)
		}
		logger.Audit("Session sweep scheduled (%s)", schedule)
	}

	if s.notes != nil {
		schedule := config.StringFromConfig(s.config, "notification_prune_schedule", config.DefaultNotificationSchedule)
		if _, err := c.AddFunc(schedule, s.pruneNotifications); err != nil {
			return fmt.Errorf("unable to schedule notification pruning: %v", err)
		}
		logger.Audit("Notification pruning scheduled (%s)", schedule)
	}

	c.Start()
	s.cron = c
	log.Println("Cron service started")
	return nil
}

func (s *CronService) Stop() error {
	if s.cron == nil {
		return nil
	}
	<-s.cron.Stop().Done()
	log.Println("Cron service stopped.")
	return nil
}

func (s *CronService) sweepSessions() {
	if n := s.sessions.CleanupExpired(); n > 0 {
		logger.Audit("Session sweep removed %d sessions", n)
	}
}

func (s *CronService) pruneNotifications() {
	retention := config.DurationFromConfig(s.config, "notification_retention", config.DefaultNotificationRetention)
	if n := s.notes.Prune(retention); n > 0 {
		logger.Audit("Pruned %d notifications older than %s", n, retention)
	}
}
