package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/studydeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

// AttemptRepository is the append-only attempt ledger
type AttemptRepository struct {
	db *sqlx.DB
}

// NewAttemptRepository creates a new repository instance
func NewAttemptRepository(db *sqlx.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Insert appends an attempt on its own, without touching the item's schedule
func (r *AttemptRepository) Insert(ctx context.Context, attempt *models.Attempt) error {
	return insertAttempt(ctx, r.db, attempt)
}

func insertAttempt(ctx context.Context, q sqlx.ExtContext, attempt *models.Attempt) error {
	if attempt.Quality < 0 || attempt.Quality > 5 {
		return fmt.Errorf("attempt quality %d out of range", attempt.Quality)
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	var users int
	if err := sqlx.GetContext(ctx, q, &users, q.Rebind("SELECT COUNT(*) FROM users WHERE id = ?"), attempt.UserID); err != nil {
		return fmt.Errorf("failed to check user %d: %w", attempt.UserID, err)
	}
	if users == 0 {
		return fmt.Errorf("%w: id %d", ErrUserNotFound, attempt.UserID)
	}

	id, err := insertReturningID(ctx, q, `
		INSERT INTO attempts (item_id, subject_id, user_id, is_correct, quality, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		attempt.ItemID,
		attempt.SubjectID,
		attempt.UserID,
		attempt.IsCorrect,
		attempt.Quality,
		attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt for item %d: %w", attempt.ItemID, err)
	}
	attempt.ID = id
	return nil
}

// CountByItem returns the number of attempts and correct attempts of a user on one item
func (r *AttemptRepository) CountByItem(ctx context.Context, itemID, userID int64) (total, correct int, err error) {
	return r.count(ctx, "item_id = ? AND user_id = ?", itemID, userID)
}

// CountBySubject returns the number of attempts and correct attempts of a user in one subject
func (r *AttemptRepository) CountBySubject(ctx context.Context, subjectID, userID int64) (total, correct int, err error) {
	return r.count(ctx, "subject_id = ? AND user_id = ?", subjectID, userID)
}

func (r *AttemptRepository) count(ctx context.Context, condition string, args ...interface{}) (int, int, error) {
	var row struct {
		Total   int `db:"total"`
		Correct int `db:"correct"`
	}
	query := `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0) AS correct
		FROM attempts
		WHERE ` + condition
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...); err != nil {
		return 0, 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return row.Total, row.Correct, nil
}

// ListByItem returns a user's attempts on one item, oldest first
func (r *AttemptRepository) ListByItem(ctx context.Context, itemID, userID int64) ([]models.Attempt, error) {
	attempts := []models.Attempt{}
	err := r.db.SelectContext(ctx, &attempts, r.db.Rebind(`
		SELECT id, item_id, subject_id, user_id, is_correct, quality, created_at
		FROM attempts
		WHERE item_id = ? AND user_id = ?
		ORDER BY id ASC`), itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}
