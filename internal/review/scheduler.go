package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/studydeck/internal/database"
	"github.com/example/studydeck/internal/logger"
	"github.com/example/studydeck/internal/spaced_repetition"
	"github.com/example/studydeck/pkg/models"
)

// ItemStore is the persistence the scheduler needs. UpdateSchedule must run fn and
// append the returned attempt in one transaction with the item locked.
type ItemStore interface {
	UpdateSchedule(ctx context.Context, itemID int64, fn database.ReviewFunc) (*models.ReviewItem, error)
	DueItems(ctx context.Context, subjectID int64, asOf models.Date, limit int) ([]models.ReviewItem, error)
}

// GradeResult is what a caller needs to show after grading
type GradeResult struct {
	ItemID       int64
	Quality      int
	IsCorrect    bool
	DueDate      models.Date
	IntervalDays int
	Easiness     float64
	Repetitions  int
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithLogger sets the logger used for grading events
func WithLogger(log *logger.Logger) Option {
	return func(s *Scheduler) {
		s.log = log
	}
}

// Scheduler is the only code path that changes an item's schedule
type Scheduler struct {
	store ItemStore
	sm2   *spaced_repetition.SM2
	now   func() time.Time
	log   *logger.Logger
}

// NewScheduler creates a scheduler over the given store
func NewScheduler(store ItemStore, opts ...Option) *Scheduler {
	s := &Scheduler{
		store: store,
		sm2:   spaced_repetition.NewSM2(),
		now:   time.Now,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the scheduler's current calendar date
func (s *Scheduler) Today() models.Date {
	return models.DateOf(s.now())
}

// Grade applies one SM-2 review to the item and appends the attempt in the same transaction.
func (s *Scheduler) Grade(ctx context.Context, itemID, userID int64, quality int) (*GradeResult, error) {
	q := spaced_repetition.QualityResponse(quality)
	if err := q.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	item, err := s.store.UpdateSchedule(ctx, itemID, func(item *models.ReviewItem) (*models.Attempt, error) {
		if err := s.sm2.Process(&item.Schedule, q, now); err != nil {
			return nil, err
		}
		return &models.Attempt{
			UserID:    userID,
			IsCorrect: q.IsCorrect(),
			Quality:   quality,
			CreatedAt: now,
		}, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrUserNotFound):
			return nil, fmt.Errorf("%w: id %d", ErrUserNotFound, userID)
		case errors.Is(err, database.ErrNotFound):
			return nil, fmt.Errorf("%w: id %d", ErrItemNotFound, itemID)
		case errors.Is(err, ErrInvalidQuality), errors.Is(err, ErrDueDateOutOfRange):
			return nil, err
		}
		s.log.Error("grade failed", "item_id", itemID, "user_id", userID, "error", err)
		return nil, &StorageError{Op: "grade", Err: err}
	}

	s.log.Debug("item graded",
		"item_id", itemID,
		"quality", quality,
		"interval_days", item.IntervalDays,
		"due_date", item.DueDate.String(),
	)

	return &GradeResult{
		ItemID:       item.ID,
		Quality:      quality,
		IsCorrect:    q.IsCorrect(),
		DueDate:      item.DueDate,
		IntervalDays: item.IntervalDays,
		Easiness:     item.Easiness,
		Repetitions:  item.Repetitions,
	}, nil
}

// DueItems returns up to limit items of the subject due on or before asOf, by due date then id.
// It never changes scheduling state.
func (s *Scheduler) DueItems(ctx context.Context, subjectID int64, asOf models.Date, limit int) ([]models.ReviewItem, error) {
	if limit <= 0 {
		return []models.ReviewItem{}, nil
	}
	items, err := s.store.DueItems(ctx, subjectID, asOf, limit)
	if err != nil {
		return nil, &StorageError{Op: "due items", Err: err}
	}
	return items, nil
}

// StartSession fetches today's due queue once and returns it as a session snapshot.
// Multiple-choice items are left out; they are answered in quiz mode.
func (s *Scheduler) StartSession(ctx context.Context, subjectID int64, limit int) (*Session, error) {
	due, err := s.DueItems(ctx, subjectID, s.Today(), limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.ReviewItem, 0, len(due))
	for _, item := range due {
		if item.Kind == models.KindMultipleChoice {
			continue
		}
		items = append(items, item)
	}
	return NewSession(subjectID, items), nil
}
