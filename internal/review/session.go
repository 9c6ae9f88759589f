package review

import "github.com/example/studydeck/pkg/models"

// Session is a caller-owned snapshot of the due queue taken at the start of a sitting.
// It is not re-queried after grading, so an item answered correctly comes round again
// until the session ends. A Session is not safe for concurrent use.
type Session struct {
	SubjectID int64
	items     []models.ReviewItem
	pos       int
	graded    int
}

// NewSession wraps an already fetched queue
func NewSession(subjectID int64, items []models.ReviewItem) *Session {
	return &Session{SubjectID: subjectID, items: items}
}

// Len returns the number of items in the snapshot
func (s *Session) Len() int {
	return len(s.items)
}

// Empty reports whether there is nothing to review
func (s *Session) Empty() bool {
	return len(s.items) == 0
}

// Position returns the index of the current item
func (s *Session) Position() int {
	return s.pos
}

// Graded returns how many times Advance was called
func (s *Session) Graded() int {
	return s.graded
}

// Current returns the item under review, or false if the session is empty
func (s *Session) Current() (models.ReviewItem, bool) {
	if s.Empty() {
		return models.ReviewItem{}, false
	}
	return s.items[s.pos], true
}

// Advance moves to the next item, wrapping around at the end of the snapshot
func (s *Session) Advance() {
	if s.Empty() {
		return
	}
	s.graded++
	s.pos = (s.pos + 1) % len(s.items)
}

// Remove drops an item from the snapshot, e.g. after it was deleted
func (s *Session) Remove(itemID int64) bool {
	for i, item := range s.items {
		if item.ID != itemID {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		if i < s.pos {
			s.pos--
		}
		if len(s.items) == 0 || s.pos >= len(s.items) {
			s.pos = 0
		}
		return true
	}
	return false
}
