package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/example/studydeck/internal/logger"
	"github.com/example/studydeck/pkg/models"
	"github.com/go-co-op/gocron"
)

// Notifier sends due-item reminders to a user
type Notifier interface {
	SendReminders(ctx context.Context, user models.User, count int) error
}

// UserSource looks up users to remind
type UserSource interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error)
}

// DueCounter counts a user's due items
type DueCounter interface {
	CountDueForUser(ctx context.Context, userID int64, asOf models.Date) (int, error)
}

// Config holds the reminder window and the time zone the hours are in
type Config struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	users     UserSource
	due       DueCounter
	cfg       Config
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(cfg Config, notifier Notifier, users UserSource, due DueCounter, log *logger.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		notifier:  notifier,
		users:     users,
		due:       due,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start(ctx context.Context) error {
	// Schedule hourly check for users who need notifications
	_, err := s.scheduler.Every(1).Hour().StartAt(nextHour(s.now().In(s.cfg.Location))).Do(func() {
		if _, err := s.CheckReminders(ctx); err != nil {
			s.log.Error("reminder check failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", "start_hour", s.cfg.StartHour, "end_hour", s.cfg.EndHour)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// CheckReminders notifies every user whose reminder hour is now and who has due items.
// It returns the number of reminders sent.
func (s *Scheduler) CheckReminders(ctx context.Context) (int, error) {
	now := s.now().In(s.cfg.Location)
	currentHour := now.Hour()

	// Проверяем, находится ли текущий час в диапазоне времени для отправки уведомлений
	if currentHour < s.cfg.StartHour || currentHour > s.cfg.EndHour {
		s.log.Debug("outside notification hours, skipping reminders",
			"hour", currentHour, "start_hour", s.cfg.StartHour, "end_hour", s.cfg.EndHour)
		return 0, nil
	}

	users, err := s.users.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		return 0, fmt.Errorf("failed to get users for notification: %w", err)
	}

	sent := 0
	today := models.DateOf(now)
	for _, user := range users {
		ok, err := s.remind(ctx, user, today)
		if err != nil {
			s.log.Warn("reminder not sent", "user_id", user.ID, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// RunManualCheck forces a check for a specific user regardless of the hour
func (s *Scheduler) RunManualCheck(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.remind(ctx, *user, models.DateOf(s.now().In(s.cfg.Location)))
}

func (s *Scheduler) remind(ctx context.Context, user models.User, today models.Date) (bool, error) {
	count, err := s.due.CountDueForUser(ctx, user.ID, today)
	if err != nil {
		return false, fmt.Errorf("failed to count due items: %w", err)
	}
	if count == 0 {
		return false, nil
	}
	if err := s.notifier.SendReminders(ctx, user, count); err != nil {
		return false, fmt.Errorf("failed to send reminder: %w", err)
	}
	return true, nil
}

// nextHour returns the start of the hour after t
func nextHour(t time.Time) time.Time {
	return t.Truncate(time.Hour).Add(time.Hour)
}
