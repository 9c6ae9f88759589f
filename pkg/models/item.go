package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ItemKind is the presentation style of a review item
type ItemKind string

const (
	KindFlashcard      ItemKind = "flashcard"
	KindShortAnswer    ItemKind = "short_answer"
	KindFillInBlank    ItemKind = "fill_in_blank"
	KindMultipleChoice ItemKind = "multiple_choice"
)

// Valid reports whether k is one of the known kinds
func (k ItemKind) Valid() bool {
	switch k {
	case KindFlashcard, KindShortAnswer, KindFillInBlank, KindMultipleChoice:
		return true
	}
	return false
}

// Choices is the ordered option list of a multiple-choice item, persisted as JSON text
type Choices []string

// Scan implements sql.Scanner
func (c *Choices) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into Choices", src)
	}
	if len(raw) == 0 {
		*c = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(c))
}

// Value implements driver.Valuer
func (c Choices) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(c))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Schedule is the spaced-repetition state of an item. Only the review scheduler writes it.
type Schedule struct {
	Easiness       float64    `json:"easiness" db:"easiness"`
	IntervalDays   int        `json:"interval_days" db:"interval_days"`
	Repetitions    int        `json:"repetitions" db:"repetitions"`
	DueDate        Date       `json:"due_date" db:"due_date"`
	LastReviewedAt *time.Time `json:"last_reviewed_at" db:"last_reviewed_at"`
	LapseCount     int        `json:"lapse_count" db:"lapse_count"`
}

// ReviewItem is a single question/answer unit of study content
type ReviewItem struct {
	ID        int64     `json:"id" db:"id"`
	SubjectID int64     `json:"subject_id" db:"subject_id"`
	Kind      ItemKind  `json:"kind" db:"kind"`
	Question  string    `json:"question" db:"question"`
	Answer    string    `json:"answer" db:"answer"`
	Choices   Choices   `json:"choices" db:"choices"`
	Source    string    `json:"source" db:"source"`     // e.g. uploaded file name or "manual"
	Location  int       `json:"location" db:"location"` // e.g. page number
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Schedule
}
