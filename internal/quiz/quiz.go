package quiz

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/example/studydeck/internal/spaced_repetition"
	"github.com/example/studydeck/pkg/models"
)

// ItemLister reads the items of a subject
type ItemLister interface {
	ListBySubject(ctx context.Context, subjectID int64) ([]models.ReviewItem, error)
}

// AttemptRecorder appends to the attempt ledger
type AttemptRecorder interface {
	Insert(ctx context.Context, attempt *models.Attempt) error
}

const (
	// Quiz answers are scored on a fixed scale, they do not move the review schedule
	correctQuality = spaced_repetition.QualityCorrectHesitation
	wrongQuality   = spaced_repetition.QualityIncorrectFamiliar
)

// Question is one quiz question ready to be shown
type Question struct {
	Item         models.ReviewItem
	Options      []string // shuffled choices, multiple choice only
	CorrectIndex int      // index of the right answer in Options, -1 if none
}

// Result is the outcome of one submitted answer
type Result struct {
	Correct bool
	Quality int
	Answer  string // the expected answer, shown back to the user
	Attempt *models.Attempt
}

// Quiz handles quiz mode: answers are checked and recorded, schedules are left alone
type Quiz struct {
	items    ItemLister
	attempts AttemptRecorder
	now      func() time.Time
	rnd      *rand.Rand
}

// NewQuiz creates a new quiz module
func NewQuiz(items ItemLister, attempts AttemptRecorder) *Quiz {
	return &Quiz{
		items:    items,
		attempts: attempts,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// IsQuizKind reports whether items of kind k are asked in quiz mode
func IsQuizKind(k models.ItemKind) bool {
	switch k {
	case models.KindShortAnswer, models.KindFillInBlank, models.KindMultipleChoice:
		return true
	}
	return false
}

// Items returns the quiz-able items of a subject in id order
func (q *Quiz) Items(ctx context.Context, subjectID int64) ([]models.ReviewItem, error) {
	all, err := q.items.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz items: %w", err)
	}
	items := make([]models.ReviewItem, 0, len(all))
	for _, item := range all {
		if IsQuizKind(item.Kind) {
			items = append(items, item)
		}
	}
	return items, nil
}

// Questions builds shuffled questions from the quiz items of a subject
func (q *Quiz) Questions(ctx context.Context, subjectID int64) ([]Question, error) {
	items, err := q.Items(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	questions := make([]Question, 0, len(items))
	for _, item := range items {
		questions = append(questions, NewQuestion(item, q.rnd))
	}
	return questions, nil
}

// NewQuestion prepares an item for display, shuffling multiple-choice options
func NewQuestion(item models.ReviewItem, rnd *rand.Rand) Question {
	question := Question{Item: item, CorrectIndex: -1}
	if item.Kind != models.KindMultipleChoice || len(item.Choices) == 0 {
		return question
	}

	options := make([]string, len(item.Choices))
	copy(options, item.Choices)
	if rnd != nil {
		rnd.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
	}
	for i, option := range options {
		if strings.TrimSpace(option) == strings.TrimSpace(item.Answer) {
			question.CorrectIndex = i
			break
		}
	}
	question.Options = options
	return question
}

// CheckAnswer compares a user's answer with the item's. Multiple choice must match exactly
// after trimming; other kinds ignore case.
func CheckAnswer(item models.ReviewItem, answer string) bool {
	given := strings.TrimSpace(answer)
	expected := strings.TrimSpace(item.Answer)
	if item.Kind == models.KindMultipleChoice && len(item.Choices) > 0 {
		return given == expected
	}
	return strings.EqualFold(given, expected)
}

// Submit checks the answer and records it in the attempt ledger
func (q *Quiz) Submit(ctx context.Context, item models.ReviewItem, userID int64, answer string) (*Result, error) {
	correct := CheckAnswer(item, answer)
	quality := wrongQuality
	if correct {
		quality = correctQuality
	}

	attempt := &models.Attempt{
		ItemID:    item.ID,
		SubjectID: item.SubjectID,
		UserID:    userID,
		IsCorrect: correct,
		Quality:   int(quality),
		CreatedAt: q.now(),
	}
	if err := q.attempts.Insert(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to record quiz answer: %w", err)
	}

	return &Result{
		Correct: correct,
		Quality: int(quality),
		Answer:  item.Answer,
		Attempt: attempt,
	}, nil
}
