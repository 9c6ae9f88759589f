package spaced_repetition

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/studydeck/pkg/models"
)

// ErrInvalidQuality is returned for quality ratings outside 0-5
var ErrInvalidQuality = errors.New("quality must be an integer between 0 and 5")

// ErrDueDateOutOfRange is returned when the next interval would move the due date past models.MaxDate
var ErrDueDateOutOfRange = errors.New("next due date is out of range")

const (
	// InitialEasiness is the easiness factor of a never-reviewed item
	InitialEasiness = 2.5
	// MinEasiness is the floor of the easiness factor
	MinEasiness = 1.3

	// An item is mastered after MasteredRepetitions successful reviews in a row
	// once its interval reached MasteredIntervalDays
	MasteredRepetitions  = 5
	MasteredIntervalDays = 30
)

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// Validate returns ErrInvalidQuality when q is outside 0-5
func (q QualityResponse) Validate() error {
	if q < QualityBlackout || q > QualityPerfect {
		return fmt.Errorf("%w: got %d", ErrInvalidQuality, int(q))
	}
	return nil
}

// IsCorrect reports whether q counts as a successful recall
func (q QualityResponse) IsCorrect() bool {
	return q >= QualityCorrectDifficult
}

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Ответы PassThreshold и выше считаются успешными
	PassThreshold QualityResponse
	// Интервалы для первых двух успешных повторений
	FirstInterval  int
	SecondInterval int
}

// NewSM2 создает новый экземпляр SM2 с настройками по умолчанию
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:  QualityCorrectDifficult,
		FirstInterval:  1,
		SecondInterval: 6,
	}
}

// InitialSchedule returns the scheduling state of a freshly created item: due immediately.
func InitialSchedule(today models.Date) models.Schedule {
	return models.Schedule{
		Easiness:     InitialEasiness,
		IntervalDays: 0,
		Repetitions:  0,
		DueDate:      today,
	}
}

// Process applies one review of the given quality to the schedule.
// The schedule is left untouched when quality is invalid or the due date would overflow.
func (sm *SM2) Process(s *models.Schedule, quality QualityResponse, now time.Time) error {
	if err := quality.Validate(); err != nil {
		return err
	}

	today := models.DateOf(now)
	repetitions, interval, lapses := s.Repetitions, s.IntervalDays, s.LapseCount
	if quality < sm.PassThreshold {
		repetitions = 0
		interval = 1
		lapses++
	} else {
		// the interval is derived from the pre-update repetitions, interval and easiness
		switch {
		case s.Repetitions == 0:
			interval = sm.FirstInterval
		case s.Repetitions == 1:
			interval = sm.SecondInterval
		default:
			next := math.RoundToEven(float64(s.IntervalDays) * s.Easiness)
			// compared as float so huge products never reach the int conversion
			if math.IsNaN(next) || next > float64(models.MaxDate.DaysSince(today.Date)) {
				return fmt.Errorf("%w: interval of %.0f days from %s", ErrDueDateOutOfRange, next, today)
			}
			interval = int(next)
		}
		repetitions++
	}

	due := today.AddDays(interval)
	if due.After(models.MaxDate) {
		return fmt.Errorf("%w: %d days from %s", ErrDueDateOutOfRange, interval, today)
	}

	s.Repetitions = repetitions
	s.IntervalDays = interval
	s.LapseCount = lapses
	s.Easiness = NextEasiness(s.Easiness, quality)
	s.DueDate = due
	reviewed := now
	s.LastReviewedAt = &reviewed
	return nil
}

// NextEasiness computes EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02)), floored at MinEasiness.
func NextEasiness(ef float64, quality QualityResponse) float64 {
	d := 5.0 - float64(quality)
	next := ef + (0.1 - d*(0.08+d*0.02))
	if next < MinEasiness {
		next = MinEasiness // Не опускаем ниже 1.3
	}
	return next
}

// IsMastered determines if an item is considered "mastered"
func (sm *SM2) IsMastered(s models.Schedule) bool {
	return s.Repetitions >= MasteredRepetitions && s.IntervalDays >= MasteredIntervalDays
}

// IsDue reports whether the schedule is due on or before asOf
func IsDue(s models.Schedule, asOf models.Date) bool {
	return !s.DueDate.After(asOf)
}
