package models

import "time"

// Attempt is one append-only record of a user answering an item
type Attempt struct {
	ID        int64     `json:"id" db:"id"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	SubjectID int64     `json:"subject_id" db:"subject_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	IsCorrect bool      `json:"is_correct" db:"is_correct"`
	Quality   int       `json:"quality" db:"quality"` // 0-5
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
