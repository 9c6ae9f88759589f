package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/studydeck/pkg/models"
	"github.com/jmoiron/sqlx"
)

const userColumns = "id, telegram_id, username, notification_enabled, notification_hour, created_at"

// DefaultNotificationHour is the reminder hour given to new users
const DefaultNotificationHour = 9

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	id, err := insertReturningID(ctx, r.db, `
		INSERT INTO users (telegram_id, username, notification_enabled, notification_hour, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.TelegramID,
		user.Username,
		user.NotificationEnabled,
		user.NotificationHour,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return nil
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByTelegramID returns the user bound to a Telegram chat
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return r.getOne(ctx, "telegram_id = ?", telegramID)
}

// GetOrCreateByTelegramID returns the user bound to a Telegram chat, registering it on first contact
func (r *UserRepository) GetOrCreateByTelegramID(ctx context.Context, telegramID int64, username string) (*models.User, error) {
	user, err := r.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user = &models.User{
		TelegramID:          &telegramID,
		Username:            username,
		NotificationEnabled: true,
		NotificationHour:    DefaultNotificationHour,
	}
	if err := r.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateNotification sets the reminder preferences of a user
func (r *UserRepository) UpdateNotification(ctx context.Context, userID int64, enabled bool, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("notification hour %d out of range", hour)
	}
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE users SET notification_enabled = ?, notification_hour = ? WHERE id = ?"),
		enabled, hour, userID)
	if err != nil {
		return fmt.Errorf("failed to update notification settings: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUsersForNotification returns users who have notifications enabled at the given hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users,
		r.db.Rebind("SELECT "+userColumns+" FROM users WHERE notification_enabled = ? AND notification_hour = ? ORDER BY id"),
		true, hour)
	if err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}

func (r *UserRepository) getOne(ctx context.Context, condition string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind("SELECT "+userColumns+" FROM users WHERE "+condition), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
