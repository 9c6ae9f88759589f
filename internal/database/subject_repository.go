package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/studydeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

// SubjectRepository handles database operations for subjects
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// GetOrCreate returns the user's subject with this name, creating it if needed.
// Concurrent callers with the same name all get the same row.
func (r *SubjectRepository) GetOrCreate(ctx context.Context, userID int64, name string) (*models.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("subject name cannot be empty")
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO subjects (user_id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT (name, user_id) DO NOTHING`),
		userID, name, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to create subject: %w", err)
	}
	return r.GetByName(ctx, userID, name)
}

// GetByID returns a subject by ID
func (r *SubjectRepository) GetByID(ctx context.Context, id int64) (*models.Subject, error) {
	var subject models.Subject
	err := r.db.GetContext(ctx, &subject,
		r.db.Rebind("SELECT id, user_id, name, created_at FROM subjects WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return &subject, nil
}

// GetByName returns the user's subject with this name
func (r *SubjectRepository) GetByName(ctx context.Context, userID int64, name string) (*models.Subject, error) {
	var subject models.Subject
	err := r.db.GetContext(ctx, &subject,
		r.db.Rebind("SELECT id, user_id, name, created_at FROM subjects WHERE user_id = ? AND name = ?"),
		userID, strings.TrimSpace(name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subject by name: %w", err)
	}
	return &subject, nil
}

// ListByUser returns all subjects of a user ordered by name
func (r *SubjectRepository) ListByUser(ctx context.Context, userID int64) ([]models.Subject, error) {
	subjects := []models.Subject{}
	err := r.db.SelectContext(ctx, &subjects,
		r.db.Rebind("SELECT id, user_id, name, created_at FROM subjects WHERE user_id = ? ORDER BY name"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subjects: %w", err)
	}
	return subjects, nil
}

// Delete removes a subject with all its items and attempts
func (r *SubjectRepository) Delete(ctx context.Context, userID, subjectID int64) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM attempts WHERE subject_id = ?"), subjectID); err != nil {
			return fmt.Errorf("failed to delete attempts: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM items WHERE subject_id = ?"), subjectID); err != nil {
			return fmt.Errorf("failed to delete items: %w", err)
		}
		result, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM subjects WHERE id = ? AND user_id = ?"), subjectID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete subject: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrNotFound
		}
		return nil
	})
}
