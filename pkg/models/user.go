package models

import "time"

// User is a learner. Authentication lives outside this module; the bot identifies users by chat id.
type User struct {
	ID                  int64     `json:"id" db:"id"`
	TelegramID          *int64    `json:"telegram_id" db:"telegram_id"`
	Username            string    `json:"username" db:"username"`
	NotificationEnabled bool      `json:"notification_enabled" db:"notification_enabled"`
	NotificationHour    int       `json:"notification_hour" db:"notification_hour"` // Hour of day for reminders (0-23)
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}
