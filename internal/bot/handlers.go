package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/studydeck/internal/database"
	"github.com/example/studydeck/internal/review"
	"github.com/example/studydeck/internal/spaced_repetition"
	"github.com/example/studydeck/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "📖 How to use the bot\n\n" +
	"/subjects - list your subjects\n" +
	"/review <subject> - review the cards due today\n" +
	"/quiz <subject> - answer quiz questions\n" +
	"/end - finish the current session\n" +
	"/stats - show your progress\n" +
	"/cards <subject> - list cards with your results\n" +
	"/notify <hour|on|off> - set daily reminders\n" +
	"/due - check for due cards now\n" +
	"/delete <subject> - delete a subject with all its cards\n\n" +
	"Grade each card from 0 (forgot completely) to 5 (perfect). " +
	"Cards you remember come back after longer and longer intervals."

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message == nil || message.From == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}

	// Создаем пользователя при первом взаимодействии
	user, err := b.users.GetOrCreateByTelegramID(ctx, message.From.ID, message.From.UserName)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	chatID := message.Chat.ID
	state := b.chat(chatID)
	state.mu.Lock()
	defer state.mu.Unlock()

	args := strings.TrimSpace(message.CommandArguments())
	switch message.Command() {
	case "start":
		return b.handleStart(chatID)
	case "help":
		return b.sendText(chatID, helpText)
	case "subjects":
		return b.handleListSubjects(ctx, chatID, user)
	case "review":
		if args == "" {
			return b.handleListSubjects(ctx, chatID, user)
		}
		subject, ok, err := b.findSubject(ctx, chatID, user, args)
		if !ok || err != nil {
			return err
		}
		return b.startReview(ctx, chatID, user, state, subject.ID)
	case "quiz":
		if args == "" {
			return b.handleListSubjects(ctx, chatID, user)
		}
		subject, ok, err := b.findSubject(ctx, chatID, user, args)
		if !ok || err != nil {
			return err
		}
		return b.startQuiz(ctx, chatID, user, state, subject.ID)
	case "end":
		return b.endSession(chatID, state)
	case "stats":
		return b.handleStats(ctx, chatID, user)
	case "cards":
		return b.handleCards(ctx, chatID, user, args)
	case "notify":
		return b.handleNotify(ctx, chatID, user, args)
	case "due":
		return b.handleDue(ctx, chatID, user)
	case "delete":
		return b.handleDeleteSubject(ctx, chatID, user, state, args)
	default:
		return b.sendText(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

// HandleText handles plain messages, which are only meaningful as quiz answers
func (b *Bot) HandleText(ctx context.Context, message *tgbotapi.Message) error {
	if message == nil || message.From == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}
	chatID := message.Chat.ID
	state := b.chat(chatID)
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.quiz == nil || state.quiz.answered {
		return b.sendText(chatID, "I don't understand. Use /help to see what I can do.")
	}
	question := state.quiz.questions[state.quiz.idx]
	if len(question.Options) > 0 {
		return b.sendText(chatID, "Please pick one of the options above.")
	}

	user, err := b.users.GetOrCreateByTelegramID(ctx, message.From.ID, message.From.UserName)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	return b.answerQuiz(ctx, chatID, user, state, message.Text)
}

// HandleCallback handles inline button presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.Message.Chat == nil || callback.From == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	// Always send an answer to the callback query to remove the loading state
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}

	chatID := callback.Message.Chat.ID
	action, err := parseCallback(callback.Data)
	if err != nil {
		b.log.Warn("bad callback", "data", callback.Data, "error", err)
		return b.sendText(chatID, "⚠️ Unknown action")
	}

	user, err := b.users.GetOrCreateByTelegramID(ctx, callback.From.ID, callback.From.UserName)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	state := b.chat(chatID)
	state.mu.Lock()
	defer state.mu.Unlock()

	switch action.Kind {
	case callbackSubjects:
		return b.handleListSubjects(ctx, chatID, user)
	case callbackStats:
		return b.handleStats(ctx, chatID, user)
	case callbackHelp:
		return b.sendText(chatID, helpText)
	case callbackShowAnswer:
		return b.revealAnswer(chatID, state)
	case callbackEnd:
		return b.endSession(chatID, state)
	case callbackQuizNext:
		return b.nextQuestion(chatID, state)
	case actionReview:
		return b.startReview(ctx, chatID, user, state, action.ID)
	case actionQuiz:
		return b.startQuiz(ctx, chatID, user, state, action.ID)
	case actionGrade:
		return b.gradeCard(ctx, chatID, user, state, action.ID, action.Value)
	case actionAnswer:
		return b.pickOption(ctx, chatID, user, state, action.ID, action.Value)
	case actionCard:
		return b.showCardDetail(ctx, chatID, user, action.ID)
	case actionDelete:
		return b.handleDeleteCard(ctx, chatID, user, state, action.ID)
	}
	return b.sendText(chatID, "⚠️ Unknown action")
}

func (b *Bot) handleStart(chatID int64) error {
	text := "👋 Welcome to Study Deck!\n\n" +
		"I show you your cards at the right time so you remember them longer.\n\n" +
		"🔹 How it works:\n" +
		"1. Pick a subject and start a review\n" +
		"2. Try to recall the answer, then reveal it\n" +
		"3. Grade yourself from 0 to 5\n" +
		"4. Come back when I remind you"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) handleListSubjects(ctx context.Context, chatID int64, user *models.User) error {
	subjects, err := b.subjects.ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(subjects) == 0 {
		return b.sendText(chatID, "You have no subjects yet. Import a spreadsheet of cards to get started.")
	}

	buttons := make([][]MenuButton, 0, len(subjects))
	for _, s := range subjects {
		buttons = append(buttons, []MenuButton{
			{Text: "▶️ " + s.Name, CallbackData: reviewData(s.ID)},
			{Text: "📝 Quiz", CallbackData: quizData(s.ID)},
		})
	}
	msg := tgbotapi.NewMessage(chatID, "📚 Your subjects:")
	msg.ReplyMarkup = createKeyboard(buttons)
	return b.sendMessage(msg)
}

// findSubject looks a subject up by name and tells the user when it does not exist
func (b *Bot) findSubject(ctx context.Context, chatID int64, user *models.User, name string) (*models.Subject, bool, error) {
	subject, err := b.subjects.GetByName(ctx, user.ID, name)
	if errors.Is(err, database.ErrNotFound) {
		return nil, false, b.sendText(chatID, fmt.Sprintf("Subject %q not found. Use /subjects to see your subjects.", name))
	}
	if err != nil {
		return nil, false, err
	}
	return subject, true, nil
}

// ownedSubject loads a subject by id and checks it belongs to the user
func (b *Bot) ownedSubject(ctx context.Context, user *models.User, subjectID int64) (*models.Subject, error) {
	subject, err := b.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if subject.UserID != user.ID {
		return nil, database.ErrNotFound
	}
	return subject, nil
}

func (b *Bot) startReview(ctx context.Context, chatID int64, user *models.User, state *chatState, subjectID int64) error {
	subject, err := b.ownedSubject(ctx, user, subjectID)
	if errors.Is(err, database.ErrNotFound) {
		return b.sendText(chatID, "Subject not found.")
	}
	if err != nil {
		return err
	}

	session, err := b.scheduler.StartSession(ctx, subject.ID, b.config.DueQueueLimit)
	if err != nil {
		return err
	}
	if session.Empty() {
		return b.sendText(chatID, fmt.Sprintf("🎉 Nothing is due in %s. Come back later!", subject.Name))
	}

	state.review = session
	state.revealed = false
	state.quiz = nil
	b.log.Debug("review session started", "chat_id", chatID, "subject_id", subject.ID, "cards", session.Len())
	return b.showCard(chatID, state)
}

func (b *Bot) showCard(chatID int64, state *chatState) error {
	item, ok := state.review.Current()
	if !ok {
		return b.endSession(chatID, state)
	}
	state.revealed = false

	msg := tgbotapi.NewMessage(chatID, formatCardFront(state.review, item))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "👀 Show answer", CallbackData: callbackShowAnswer}},
		{{Text: "⏹ End session", CallbackData: callbackEnd}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) revealAnswer(chatID int64, state *chatState) error {
	if state.review == nil {
		return b.sendText(chatID, "No active review. Use /subjects to start one.")
	}
	item, ok := state.review.Current()
	if !ok {
		return b.endSession(chatID, state)
	}
	state.revealed = true

	grades := make([]MenuButton, 0, len(qualityLabels))
	for q, label := range qualityLabels {
		grades = append(grades, MenuButton{Text: label, CallbackData: gradeData(item.ID, q)})
	}
	msg := tgbotapi.NewMessage(chatID, formatCardBack(state.review, item, b.config.ShowSource))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		grades[:3],
		grades[3:],
		{{Text: "⏹ End session", CallbackData: callbackEnd}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) gradeCard(ctx context.Context, chatID int64, user *models.User, state *chatState, itemID int64, quality int) error {
	if state.review == nil {
		return b.sendText(chatID, "No active review. Use /subjects to start one.")
	}
	item, ok := state.review.Current()
	if !ok || item.ID != itemID || !state.revealed {
		// stale button from an earlier card
		return b.sendText(chatID, "⚠️ That card is no longer on screen.")
	}

	res, err := b.scheduler.Grade(ctx, itemID, user.ID, quality)
	switch {
	case errors.Is(err, review.ErrItemNotFound):
		state.review.Remove(itemID)
		if err := b.sendText(chatID, "This card was deleted, skipping it."); err != nil {
			return err
		}
		return b.showCard(chatID, state)
	case errors.Is(err, review.ErrInvalidQuality):
		return b.sendText(chatID, "⚠️ Grades go from 0 to 5.")
	case errors.Is(err, review.ErrDueDateOutOfRange):
		// the schedule cannot grow any further, so the card leaves this session unchanged
		state.review.Remove(itemID)
		if err := b.sendText(chatID, "🏆 This card is already scheduled as far ahead as possible."); err != nil {
			return err
		}
		return b.showCard(chatID, state)
	case err != nil:
		if sendErr := b.sendText(chatID, "❌ Couldn't save your answer. Please try again."); sendErr != nil {
			b.log.Warn("failed to report grading error", "error", sendErr)
		}
		return err
	}

	state.review.Advance()
	if err := b.sendText(chatID, formatGradeResult(res)); err != nil {
		return err
	}
	return b.showCard(chatID, state)
}

// endSession finishes whatever review or quiz is running in the chat
func (b *Bot) endSession(chatID int64, state *chatState) error {
	var text string
	switch {
	case state.review != nil:
		text = fmt.Sprintf("🏁 Session finished. You graded %s.", pluralize(state.review.Graded(), "card", "cards"))
	case state.quiz != nil:
		text = "🏁 Quiz finished."
	default:
		text = "There is no active session."
	}
	state.review = nil
	state.revealed = false
	state.quiz = nil

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}

func (b *Bot) startQuiz(ctx context.Context, chatID int64, user *models.User, state *chatState, subjectID int64) error {
	subject, err := b.ownedSubject(ctx, user, subjectID)
	if errors.Is(err, database.ErrNotFound) {
		return b.sendText(chatID, "Subject not found.")
	}
	if err != nil {
		return err
	}

	questions, err := b.quizzes.Questions(ctx, subject.ID)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return b.sendText(chatID, fmt.Sprintf("No quiz questions in %s yet.", subject.Name))
	}

	state.review = nil
	state.quiz = &quizState{questions: questions}
	return b.showQuestion(chatID, state)
}

func (b *Bot) showQuestion(chatID int64, state *chatState) error {
	qs := state.quiz
	qs.answered = false
	question := qs.questions[qs.idx]

	text := fmt.Sprintf("📝 Question %d of %d (%s)\n\n❓ %s",
		qs.idx+1, len(qs.questions), kindLabel(question.Item.Kind), question.Item.Question)

	var buttons [][]MenuButton
	if len(question.Options) > 0 {
		for i, option := range question.Options {
			buttons = append(buttons, []MenuButton{{Text: option, CallbackData: answerData(question.Item.ID, i)}})
		}
	} else {
		text += "\n\n✍️ Type your answer."
	}
	buttons = append(buttons, []MenuButton{{Text: "⏹ End quiz", CallbackData: callbackEnd}})

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(buttons)
	return b.sendMessage(msg)
}

func (b *Bot) pickOption(ctx context.Context, chatID int64, user *models.User, state *chatState, itemID int64, option int) error {
	if state.quiz == nil || state.quiz.answered {
		return b.sendText(chatID, "⚠️ That question is no longer on screen.")
	}
	question := state.quiz.questions[state.quiz.idx]
	if question.Item.ID != itemID || option < 0 || option >= len(question.Options) {
		return b.sendText(chatID, "⚠️ That question is no longer on screen.")
	}
	return b.answerQuiz(ctx, chatID, user, state, question.Options[option])
}

func (b *Bot) answerQuiz(ctx context.Context, chatID int64, user *models.User, state *chatState, answer string) error {
	question := state.quiz.questions[state.quiz.idx]
	res, err := b.quizzes.Submit(ctx, question.Item, user.ID, answer)
	if err != nil {
		return err
	}
	state.quiz.answered = true

	var sb strings.Builder
	if res.Correct {
		sb.WriteString("✅ Correct!")
	} else {
		sb.WriteString("❌ Incorrect.")
	}
	sb.WriteString("\nCorrect answer: ")
	sb.WriteString(res.Answer)
	if b.config.ShowSource {
		if source := formatSource(question.Item); source != "" {
			sb.WriteString("\n")
			sb.WriteString(source)
		}
	}

	var buttons [][]MenuButton
	if state.quiz.idx+1 < len(state.quiz.questions) {
		buttons = append(buttons, []MenuButton{{Text: "Next ➡️", CallbackData: callbackQuizNext}})
	}
	buttons = append(buttons, []MenuButton{{Text: "⏹ End quiz", CallbackData: callbackEnd}})

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = createKeyboard(buttons)
	return b.sendMessage(msg)
}

func (b *Bot) nextQuestion(chatID int64, state *chatState) error {
	if state.quiz == nil {
		return b.sendText(chatID, "No active quiz. Use /subjects to start one.")
	}
	if state.quiz.idx+1 >= len(state.quiz.questions) {
		return b.endSession(chatID, state)
	}
	state.quiz.idx++
	return b.showQuestion(chatID, state)
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, user *models.User) error {
	subjects, err := b.subjects.ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(subjects) == 0 {
		return b.sendText(chatID, "📊 No statistics yet: you have no subjects.")
	}

	today := b.scheduler.Today()
	parts := make([]string, 0, len(subjects)+1)
	parts = append(parts, "📊 Your progress")
	for _, s := range subjects {
		stats, err := b.stats.SubjectSummary(ctx, s.ID, user.ID, today)
		if err != nil {
			return err
		}
		parts = append(parts, formatSubjectStats(s.Name, stats))
	}
	return b.sendText(chatID, strings.Join(parts, "\n\n"))
}

func (b *Bot) handleNotify(ctx context.Context, chatID int64, user *models.User, args string) error {
	const usage = "Usage: /notify <hour 0-23|on|off>"

	enabled, hour := user.NotificationEnabled, user.NotificationHour
	switch strings.ToLower(args) {
	case "":
		return b.sendText(chatID, fmt.Sprintf("Reminders are %s at %d:00.\n%s",
			boolToEnabledString(enabled), hour, usage))
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		h, err := strconv.Atoi(args)
		if err != nil || h < 0 || h > 23 {
			return b.sendText(chatID, usage)
		}
		enabled, hour = true, h
	}

	if err := b.users.UpdateNotification(ctx, user.ID, enabled, hour); err != nil {
		return err
	}
	if !enabled {
		return b.sendText(chatID, "🔕 Reminders are off.")
	}
	return b.sendText(chatID, fmt.Sprintf("🔔 Reminders are on, daily at %d:00.", hour))
}

func (b *Bot) handleDue(ctx context.Context, chatID int64, user *models.User) error {
	if b.reminders == nil {
		return b.sendText(chatID, "Reminders are disabled on this server.")
	}
	sent, err := b.reminders.RunManualCheck(ctx, user.ID)
	if err != nil {
		return err
	}
	if !sent {
		return b.sendText(chatID, "🎉 Nothing is due right now.")
	}
	return nil
}

func (b *Bot) handleDeleteSubject(ctx context.Context, chatID int64, user *models.User, state *chatState, name string) error {
	if name == "" {
		return b.sendText(chatID, "Usage: /delete <subject>")
	}
	subject, ok, err := b.findSubject(ctx, chatID, user, name)
	if !ok || err != nil {
		return err
	}
	if err := b.subjects.Delete(ctx, user.ID, subject.ID); err != nil {
		return err
	}
	if state.review != nil && state.review.SubjectID == subject.ID {
		state.review = nil
	}
	if state.quiz != nil && len(state.quiz.questions) > 0 && state.quiz.questions[0].Item.SubjectID == subject.ID {
		state.quiz = nil
	}
	return b.sendText(chatID, fmt.Sprintf("🗑 Subject %s deleted.", subject.Name))
}

const cardButtonsPerRow = 5

func (b *Bot) handleCards(ctx context.Context, chatID int64, user *models.User, name string) error {
	if name == "" {
		return b.sendText(chatID, "Usage: /cards <subject>")
	}
	subject, ok, err := b.findSubject(ctx, chatID, user, name)
	if !ok || err != nil {
		return err
	}

	items, err := b.items.ListBySubject(ctx, subject.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return b.sendText(chatID, fmt.Sprintf("No cards in %s yet.", subject.Name))
	}

	sm := spaced_repetition.NewSM2()
	today := b.scheduler.Today()
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, fmt.Sprintf("🗂 Cards in %s:", subject.Name))
	var buttons [][]MenuButton
	for i, item := range items {
		total, correct, err := b.attempts.CountByItem(ctx, item.ID, user.ID)
		if err != nil {
			return err
		}
		lines = append(lines, formatCardLine(i+1, item, total, correct,
			sm.IsMastered(item.Schedule), spaced_repetition.IsDue(item.Schedule, today)))

		if i%cardButtonsPerRow == 0 {
			buttons = append(buttons, nil)
		}
		row := len(buttons) - 1
		buttons[row] = append(buttons[row], MenuButton{Text: "🔎 " + strconv.Itoa(i+1), CallbackData: cardData(item.ID)})
	}

	msg := tgbotapi.NewMessage(chatID, strings.Join(lines, "\n"))
	msg.ReplyMarkup = createKeyboard(buttons)
	return b.sendMessage(msg)
}

// ownedItem loads an item and checks it belongs to one of the user's subjects
func (b *Bot) ownedItem(ctx context.Context, user *models.User, itemID int64) (*models.ReviewItem, error) {
	item, err := b.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := b.ownedSubject(ctx, user, item.SubjectID); err != nil {
		return nil, err
	}
	return item, nil
}

const recentAttempts = 5

func (b *Bot) showCardDetail(ctx context.Context, chatID int64, user *models.User, itemID int64) error {
	item, err := b.ownedItem(ctx, user, itemID)
	if errors.Is(err, database.ErrNotFound) {
		return b.sendText(chatID, "Card not found.")
	}
	if err != nil {
		return err
	}

	attempts, err := b.attempts.ListByItem(ctx, item.ID, user.ID)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, formatCardDetail(*item, attempts, recentAttempts))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "🗑 Delete card", CallbackData: deleteData(item.ID)}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) handleDeleteCard(ctx context.Context, chatID int64, user *models.User, state *chatState, itemID int64) error {
	err := b.items.Delete(ctx, user.ID, itemID)
	if errors.Is(err, database.ErrNotFound) {
		return b.sendText(chatID, "Card not found.")
	}
	if err != nil {
		return err
	}
	b.log.Info("card deleted", "user_id", user.ID, "item_id", itemID)

	text := "🗑 Card deleted."
	if state.quiz != nil {
		for _, q := range state.quiz.questions {
			if q.Item.ID == itemID {
				state.quiz = nil
				text += " The running quiz was ended."
				break
			}
		}
	}

	showNext := false
	if state.review != nil {
		current, _ := state.review.Current()
		if state.review.Remove(itemID) && current.ID == itemID {
			state.revealed = false
			showNext = true
		}
		if state.review.Empty() {
			state.review = nil
			showNext = false
		}
	}

	if err := b.sendText(chatID, text); err != nil {
		return err
	}
	if showNext {
		return b.showCard(chatID, state)
	}
	return nil
}

// boolToEnabledString converts a boolean to a human-readable enabled/disabled string
func boolToEnabledString(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
