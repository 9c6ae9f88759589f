package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/studydeck/internal/spaced_repetition"
	"github.com/example/studydeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

const itemColumns = `id, subject_id, kind, question, answer, choices, source, location,
	easiness, interval_days, repetitions, due_date, last_reviewed_at, lapse_count, created_at`

// ReviewFunc mutates the schedule of a locked item and returns the attempt to append with it.
// Returning an error aborts the whole update.
type ReviewFunc func(item *models.ReviewItem) (*models.Attempt, error)

// ItemRepository handles database operations for review items
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new repository instance
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new item. An item without a due date gets the initial schedule, due today.
func (r *ItemRepository) Create(ctx context.Context, item *models.ReviewItem) error {
	if item.Kind == "" {
		item.Kind = models.KindFlashcard
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("unknown item kind %q", item.Kind)
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if !item.DueDate.IsValid() {
		item.Schedule = spaced_repetition.InitialSchedule(models.DateOf(item.CreatedAt))
	}

	id, err := insertReturningID(ctx, r.db, `
		INSERT INTO items (
			subject_id, kind, question, answer, choices, source, location,
			easiness, interval_days, repetitions, due_date, last_reviewed_at, lapse_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.SubjectID,
		item.Kind,
		item.Question,
		item.Answer,
		item.Choices,
		item.Source,
		item.Location,
		item.Easiness,
		item.IntervalDays,
		item.Repetitions,
		item.DueDate,
		item.LastReviewedAt,
		item.LapseCount,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	item.ID = id
	return nil
}

// GetByID returns an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*models.ReviewItem, error) {
	var item models.ReviewItem
	err := r.db.GetContext(ctx, &item, r.db.Rebind("SELECT "+itemColumns+" FROM items WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}
	return &item, nil
}

// ListBySubject returns all items of a subject ordered by id
func (r *ItemRepository) ListBySubject(ctx context.Context, subjectID int64) ([]models.ReviewItem, error) {
	items := []models.ReviewItem{}
	err := r.db.SelectContext(ctx, &items,
		r.db.Rebind("SELECT "+itemColumns+" FROM items WHERE subject_id = ? ORDER BY id ASC"), subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// DueItems returns at most limit items of the subject due on or before asOf,
// ordered by due date and then id.
func (r *ItemRepository) DueItems(ctx context.Context, subjectID int64, asOf models.Date, limit int) ([]models.ReviewItem, error) {
	items := []models.ReviewItem{}
	if limit <= 0 {
		return items, nil
	}
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE subject_id = ? AND due_date <= ?
		ORDER BY due_date ASC, id ASC
		LIMIT ?
	`
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), subjectID, asOf, limit); err != nil {
		return nil, fmt.Errorf("failed to get due items: %w", err)
	}
	return items, nil
}

// UpdateSchedule is the only write path for scheduling state. It locks the item row,
// lets fn compute the new schedule, then writes the schedule and the attempt in one
// transaction. Nothing is persisted if any step fails.
func (r *ItemRepository) UpdateSchedule(ctx context.Context, itemID int64, fn ReviewFunc) (*models.ReviewItem, error) {
	var updated models.ReviewItem
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := "SELECT " + itemColumns + " FROM items WHERE id = ?"
		if isPostgres(tx) {
			query += " FOR UPDATE"
		}

		var item models.ReviewItem
		if err := tx.GetContext(ctx, &item, tx.Rebind(query), itemID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load item %d: %w", itemID, err)
		}

		attempt, err := fn(&item)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE items SET
				easiness = ?,
				interval_days = ?,
				repetitions = ?,
				due_date = ?,
				last_reviewed_at = ?,
				lapse_count = ?
			WHERE id = ?`),
			item.Easiness,
			item.IntervalDays,
			item.Repetitions,
			item.DueDate,
			item.LastReviewedAt,
			item.LapseCount,
			item.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update schedule of item %d: %w", itemID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrNotFound
		}

		if attempt != nil {
			attempt.ItemID = item.ID
			attempt.SubjectID = item.SubjectID
			if err := insertAttempt(ctx, tx, attempt); err != nil {
				return err
			}
		}

		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes one of the user's items together with its attempts.
// Items of other users are reported as ErrNotFound.
func (r *ItemRepository) Delete(ctx context.Context, userID, id int64) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var owner int64
		err := tx.GetContext(ctx, &owner, tx.Rebind(`
			SELECT s.user_id FROM items i
			JOIN subjects s ON s.id = i.subject_id
			WHERE i.id = ?`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load owner of item %d: %w", id, err)
		}
		if owner != userID {
			return ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM attempts WHERE item_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete attempts of item %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM items WHERE id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete item %d: %w", id, err)
		}
		return nil
	})
}
