package models

// SubjectStats summarises a user's progress in one subject
type SubjectStats struct {
	SubjectID       int64   `json:"subject_id" db:"subject_id"`
	TotalItems      int     `json:"total_items" db:"total_items"`
	DueItems        int     `json:"due_items" db:"due_items"`
	MasteredItems   int     `json:"mastered_items" db:"mastered_items"`
	AvgEasiness     float64 `json:"avg_easiness" db:"avg_easiness"`
	TotalAttempts   int     `json:"total_attempts" db:"total_attempts"`
	CorrectAttempts int     `json:"correct_attempts" db:"correct_attempts"`
}

// Accuracy returns the share of correct attempts, or 0 when nothing was attempted
func (s SubjectStats) Accuracy() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.CorrectAttempts) / float64(s.TotalAttempts)
}
