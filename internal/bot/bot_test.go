package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/studydeck/internal/database"
	"github.com/example/studydeck/internal/quiz"
	"github.com/example/studydeck/internal/review"
	"github.com/example/studydeck/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data    string
		want    callbackAction
		wantErr bool
	}{
		{data: "subjects", want: callbackAction{Kind: callbackSubjects}},
		{data: "show", want: callbackAction{Kind: callbackShowAnswer}},
		{data: reviewData(12), want: callbackAction{Kind: actionReview, ID: 12}},
		{data: quizData(3), want: callbackAction{Kind: actionQuiz, ID: 3}},
		{data: gradeData(42, 5), want: callbackAction{Kind: actionGrade, ID: 42, Value: 5}},
		{data: answerData(7, 0), want: callbackAction{Kind: actionAnswer, ID: 7, Value: 0}},
		{data: cardData(9), want: callbackAction{Kind: actionCard, ID: 9}},
		{data: deleteData(9), want: callbackAction{Kind: actionDelete, ID: 9}},
		{data: "del_", wantErr: true},
		{data: "review_x", wantErr: true},
		{data: "grade_42", wantErr: true},
		{data: "grade_42_x", wantErr: true},
		{data: "complete_1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, err := parseCallback(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseCallback(%q) = %+v, want error", tt.data, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCallback(%q): %v", tt.data, err)
			}
			if got != tt.want {
				t.Errorf("parseCallback(%q) = %+v, want %+v", tt.data, got, tt.want)
			}
		})
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := pluralize(1, "card", "cards"); got != "1 card" {
		t.Errorf("pluralize(1) = %q", got)
	}
	if got := pluralize(0, "card", "cards"); got != "0 cards" {
		t.Errorf("pluralize(0) = %q", got)
	}

	due, _ := models.ParseDate("2024-03-16")
	got := formatGradeResult(&review.GradeResult{IsCorrect: true, IntervalDays: 6, DueDate: due, Easiness: 2.7})
	if !strings.Contains(got, "6 days") || !strings.Contains(got, "2024-03-16") || !strings.Contains(got, "2.70") {
		t.Errorf("formatGradeResult = %q", got)
	}

	stats := &models.SubjectStats{TotalItems: 4, DueItems: 2, TotalAttempts: 4, CorrectAttempts: 3, AvgEasiness: 2.5}
	if got := formatSubjectStats("Biology", stats); !strings.Contains(got, "(75%)") {
		t.Errorf("formatSubjectStats = %q", got)
	}

	item := models.ReviewItem{Source: "bio.pdf", Location: 3}
	if got := formatSource(item); got != "📄 bio.pdf, page 3" {
		t.Errorf("formatSource = %q", got)
	}
}

// fakeAPI records everything the bot sends
type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("nothing sent")
	}
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("last sent is %T", f.sent[len(f.sent)-1])
	}
	return msg.Text
}

// texts returns the texts of all messages sent since index from
func (f *fakeAPI) texts(from int) []string {
	var out []string
	for _, c := range f.sent[from:] {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

type harness struct {
	bot      *Bot
	api      *fakeAPI
	items    *database.ItemRepository
	attempts *database.AttemptRepository
	subjects *database.SubjectRepository
	users    *database.UserRepository
}

const chatID = 555

var now = time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.ConnectSQLite(":memory:")
	if err != nil {
		t.Fatalf("ConnectSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &harness{
		api:      &fakeAPI{},
		items:    database.NewItemRepository(db),
		attempts: database.NewAttemptRepository(db),
		subjects: database.NewSubjectRepository(db),
		users:    database.NewUserRepository(db),
	}
	h.bot = newBot(h.api, DefaultConfig(), Deps{
		Users:    h.users,
		Subjects: h.subjects,
		Items:    h.items,
		Attempts: h.attempts,
		Stats:    database.NewStatisticsRepository(db),
		Review:   review.NewScheduler(h.items, review.WithClock(func() time.Time { return now })),
		Quiz:     quiz.NewQuiz(h.items, h.attempts),
	})
	return h
}

func (h *harness) command(t *testing.T, text string) {
	t.Helper()
	cmd := strings.Fields(text)[0]
	msg := &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: chatID, UserName: "tester"},
		Chat: &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd)},
		},
	}
	if err := h.bot.HandleCommand(context.Background(), msg); err != nil {
		t.Fatalf("HandleCommand(%q): %v", text, err)
	}
}

func (h *harness) press(t *testing.T, data string) {
	t.Helper()
	cb := &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}
	if err := h.bot.HandleCallback(context.Background(), cb); err != nil {
		t.Fatalf("HandleCallback(%q): %v", data, err)
	}
}

func (h *harness) text(t *testing.T, text string) {
	t.Helper()
	msg := &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: chatID},
		Chat: &tgbotapi.Chat{ID: chatID},
	}
	if err := h.bot.HandleText(context.Background(), msg); err != nil {
		t.Fatalf("HandleText(%q): %v", text, err)
	}
}

// seed registers the chat's user and gives it a subject with the given items
func (h *harness) seed(t *testing.T, items ...models.ReviewItem) (*models.User, *models.Subject, []models.ReviewItem) {
	t.Helper()
	ctx := context.Background()
	user, err := h.users.GetOrCreateByTelegramID(ctx, chatID, "tester")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	subject, err := h.subjects.GetOrCreate(ctx, user.ID, "Biology")
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	created := make([]models.ReviewItem, 0, len(items))
	for _, item := range items {
		item.SubjectID = subject.ID
		item.CreatedAt = now
		if err := h.items.Create(ctx, &item); err != nil {
			t.Fatalf("create item: %v", err)
		}
		created = append(created, item)
	}
	return user, subject, created
}

func TestBot_ReviewFlow(t *testing.T) {
	h := newHarness(t)
	user, _, items := h.seed(t,
		models.ReviewItem{Question: "What is ATP?", Answer: "Energy carrier"},
		models.ReviewItem{Question: "What is DNA?", Answer: "Genetic material"},
		models.ReviewItem{Kind: models.KindMultipleChoice, Question: "Cell powerhouse?", Answer: "Mitochondria", Choices: models.Choices{"Nucleus", "Mitochondria"}},
	)
	ctx := context.Background()

	h.command(t, "/review Biology")
	if got := h.api.lastText(t); !strings.Contains(got, "Card 1 of 2") || !strings.Contains(got, "What is ATP?") {
		t.Fatalf("first card = %q", got)
	}

	// grading before the answer is shown is ignored
	h.press(t, gradeData(items[0].ID, 5))
	if got := h.api.lastText(t); !strings.Contains(got, "no longer on screen") {
		t.Errorf("early grade reply = %q", got)
	}

	h.press(t, callbackShowAnswer)
	if got := h.api.lastText(t); !strings.Contains(got, "Energy carrier") {
		t.Fatalf("answer = %q", got)
	}

	from := len(h.api.sent)
	h.press(t, gradeData(items[0].ID, 5))
	texts := h.api.texts(from)
	if len(texts) != 2 || !strings.Contains(texts[0], "Next review in 1 day") || !strings.Contains(texts[1], "What is DNA?") {
		t.Fatalf("after grading = %q", texts)
	}

	stored, err := h.items.GetByID(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Repetitions != 1 || stored.IntervalDays != 1 {
		t.Errorf("schedule after grading = %+v", stored.Schedule)
	}
	total, correct, err := h.attempts.CountByItem(ctx, items[0].ID, user.ID)
	if err != nil || total != 1 || correct != 1 {
		t.Errorf("attempts = %d/%d, %v", correct, total, err)
	}

	// a stale button for the first card no longer applies
	h.press(t, gradeData(items[0].ID, 0))
	if got := h.api.lastText(t); !strings.Contains(got, "no longer on screen") {
		t.Errorf("stale grade reply = %q", got)
	}

	h.press(t, callbackShowAnswer)
	h.press(t, gradeData(items[1].ID, 1))
	// the snapshot wraps around to the first card again
	if got := h.api.lastText(t); !strings.Contains(got, "What is ATP?") {
		t.Errorf("after wrap = %q", got)
	}

	h.command(t, "/end")
	if got := h.api.lastText(t); !strings.Contains(got, "2 cards") {
		t.Errorf("end = %q", got)
	}
}

func TestBot_ReviewUnknownSubject(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.command(t, "/review Chemistry")
	if got := h.api.lastText(t); !strings.Contains(got, "not found") {
		t.Errorf("reply = %q", got)
	}
	h.command(t, "/review Biology")
	if got := h.api.lastText(t); !strings.Contains(got, "Nothing is due") {
		t.Errorf("reply = %q", got)
	}
}

func TestBot_QuizFlow(t *testing.T) {
	h := newHarness(t)
	user, subject, items := h.seed(t,
		models.ReviewItem{Question: "Flashcard only", Answer: "skip"},
		models.ReviewItem{Kind: models.KindShortAnswer, Question: "Capital of France?", Answer: "Paris"},
		models.ReviewItem{Kind: models.KindMultipleChoice, Question: "Largest planet?", Answer: "Jupiter", Choices: models.Choices{"Mars", "Jupiter"}},
	)
	ctx := context.Background()

	h.press(t, quizData(subject.ID))
	if got := h.api.lastText(t); !strings.Contains(got, "Question 1 of 2") || !strings.Contains(got, "Capital of France?") {
		t.Fatalf("first question = %q", got)
	}
	h.text(t, "  paris ")
	if got := h.api.lastText(t); !strings.HasPrefix(got, "✅ Correct!") {
		t.Errorf("answer reply = %q", got)
	}

	h.press(t, callbackQuizNext)
	state := h.bot.chat(chatID)
	question := state.quiz.questions[state.quiz.idx]
	wrong := 0
	if question.CorrectIndex == 0 {
		wrong = 1
	}
	h.press(t, answerData(items[2].ID, wrong))
	if got := h.api.lastText(t); !strings.HasPrefix(got, "❌ Incorrect.") || !strings.Contains(got, "Jupiter") {
		t.Errorf("option reply = %q", got)
	}

	h.press(t, callbackEnd)
	if got := h.api.lastText(t); !strings.Contains(got, "Quiz finished") {
		t.Errorf("end = %q", got)
	}

	total, correct, err := h.attempts.CountBySubject(ctx, subject.ID, user.ID)
	if err != nil || total != 2 || correct != 1 {
		t.Errorf("attempts = %d/%d, %v", correct, total, err)
	}
	stored, err := h.items.GetByID(ctx, items[1].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Repetitions != 0 || stored.LastReviewedAt != nil {
		t.Errorf("quiz changed the schedule: %+v", stored.Schedule)
	}
}

func TestBot_NotifyAndDelete(t *testing.T) {
	h := newHarness(t)
	user, subject, _ := h.seed(t, models.ReviewItem{Question: "q", Answer: "a"})
	ctx := context.Background()

	h.command(t, "/notify 19")
	got, err := h.users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.NotificationEnabled || got.NotificationHour != 19 {
		t.Errorf("after /notify 19: %+v", got)
	}
	h.command(t, "/notify off")
	got, _ = h.users.GetByID(ctx, user.ID)
	if got.NotificationEnabled || got.NotificationHour != 19 {
		t.Errorf("after /notify off: %+v", got)
	}
	h.command(t, "/notify 25")
	if reply := h.api.lastText(t); !strings.HasPrefix(reply, "Usage") {
		t.Errorf("bad hour reply = %q", reply)
	}

	h.command(t, "/stats")
	if reply := h.api.lastText(t); !strings.Contains(reply, "Biology") || !strings.Contains(reply, "due: 1") {
		t.Errorf("stats = %q", reply)
	}

	h.command(t, "/delete Biology")
	if _, err := h.subjects.GetByID(ctx, subject.ID); err == nil {
		t.Error("subject still exists after /delete")
	}
}

func TestBot_CardsAndDeleteCard(t *testing.T) {
	h := newHarness(t)
	user, _, items := h.seed(t,
		models.ReviewItem{Question: "What is ATP?", Answer: "Energy carrier"},
		models.ReviewItem{Question: "What is DNA?", Answer: "Genetic material"},
	)
	ctx := context.Background()

	h.command(t, "/review Biology")
	h.press(t, callbackShowAnswer)
	h.press(t, gradeData(items[0].ID, 2))

	h.command(t, "/cards Biology")
	listing := h.api.lastText(t)
	for _, want := range []string{"1. What is ATP?", "0/1 correct (0%)", "next 2024-03-11", "2. What is DNA?", "not answered yet", "due now"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}

	h.press(t, cardData(items[0].ID))
	if got := h.api.lastText(t); !strings.Contains(got, "Energy carrier") || !strings.Contains(got, "❌ 2024-03-10 10:00, grade 2") {
		t.Errorf("card detail = %q", got)
	}

	// another user's card is invisible
	otherUser, err := h.users.GetOrCreateByTelegramID(ctx, 999, "other")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	otherSubject, err := h.subjects.GetOrCreate(ctx, otherUser.ID, "Secrets")
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	foreign := models.ReviewItem{SubjectID: otherSubject.ID, Question: "private", Answer: "x", CreatedAt: now}
	if err := h.items.Create(ctx, &foreign); err != nil {
		t.Fatalf("create item: %v", err)
	}
	h.press(t, cardData(foreign.ID))
	if got := h.api.lastText(t); got != "Card not found." {
		t.Errorf("foreign card detail = %q", got)
	}
	h.press(t, deleteData(foreign.ID))
	if _, err := h.items.GetByID(ctx, foreign.ID); err != nil {
		t.Errorf("foreign card deleted: %v", err)
	}

	// the session is on the DNA card; deleting it moves on to the remaining card
	from := len(h.api.sent)
	h.press(t, deleteData(items[1].ID))
	texts := h.api.texts(from)
	if len(texts) != 2 || texts[0] != "🗑 Card deleted." || !strings.Contains(texts[1], "What is ATP?") {
		t.Fatalf("after delete = %q", texts)
	}
	if _, err := h.items.GetByID(ctx, items[1].ID); err == nil {
		t.Error("card still exists after delete")
	}
	if n := h.bot.chat(chatID).review.Len(); n != 1 {
		t.Errorf("session has %d cards, want 1", n)
	}

	h.press(t, deleteData(items[1].ID))
	if got := h.api.lastText(t); got != "Card not found." {
		t.Errorf("second delete = %q", got)
	}
	total, _, err := h.attempts.CountBySubject(ctx, items[0].SubjectID, user.ID)
	if err != nil || total != 1 {
		t.Errorf("attempts after delete = %d, %v", total, err)
	}
}

func TestBot_SendReminders(t *testing.T) {
	h := newHarness(t)
	id := int64(chatID)
	if err := h.bot.SendReminders(context.Background(), models.User{ID: 1, TelegramID: &id}, 3); err != nil {
		t.Fatalf("SendReminders: %v", err)
	}
	if got := h.api.lastText(t); !strings.Contains(got, "3 cards") {
		t.Errorf("reminder = %q", got)
	}
	if err := h.bot.SendReminders(context.Background(), models.User{ID: 2}, 1); err == nil {
		t.Error("expected error for user without chat")
	}
}
