package database

import (
	"context"
	"fmt"

	"github.com/example/studydeck/internal/spaced_repetition"
	"github.com/example/studydeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

// StatisticsRepository answers reporting queries over items and the attempt ledger
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// SubjectSummary returns item and attempt aggregates of one subject for a user
func (r *StatisticsRepository) SubjectSummary(ctx context.Context, subjectID, userID int64, asOf models.Date) (*models.SubjectStats, error) {
	stats := models.SubjectStats{SubjectID: subjectID}

	query := `
		SELECT COUNT(*) AS total_items,
		       COALESCE(SUM(CASE WHEN due_date <= ? THEN 1 ELSE 0 END), 0) AS due_items,
		       COALESCE(SUM(CASE WHEN repetitions >= ? AND interval_days >= ? THEN 1 ELSE 0 END), 0) AS mastered_items,
		       COALESCE(AVG(easiness), 0) AS avg_easiness
		FROM items
		WHERE subject_id = ?
	`
	var items struct {
		TotalItems    int     `db:"total_items"`
		DueItems      int     `db:"due_items"`
		MasteredItems int     `db:"mastered_items"`
		AvgEasiness   float64 `db:"avg_easiness"`
	}
	if err := r.db.GetContext(ctx, &items, r.db.Rebind(query),
		asOf, spaced_repetition.MasteredRepetitions, spaced_repetition.MasteredIntervalDays, subjectID); err != nil {
		return nil, fmt.Errorf("failed to summarise items of subject %d: %w", subjectID, err)
	}
	stats.TotalItems = items.TotalItems
	stats.DueItems = items.DueItems
	stats.MasteredItems = items.MasteredItems
	stats.AvgEasiness = items.AvgEasiness

	attempts := NewAttemptRepository(r.db)
	total, correct, err := attempts.CountBySubject(ctx, subjectID, userID)
	if err != nil {
		return nil, err
	}
	stats.TotalAttempts = total
	stats.CorrectAttempts = correct

	return &stats, nil
}

// CountDueForUser returns how many items across all of a user's subjects are due on or before asOf
func (r *StatisticsRepository) CountDueForUser(ctx context.Context, userID int64, asOf models.Date) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM items i
		JOIN subjects s ON s.id = i.subject_id
		WHERE s.user_id = ? AND i.due_date <= ?
	`
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(query), userID, asOf); err != nil {
		return 0, fmt.Errorf("failed to count due items: %w", err)
	}
	return count, nil
}
