package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/studydeck/internal/database"
	"github.com/example/studydeck/internal/logger"
	"github.com/example/studydeck/internal/quiz"
	"github.com/example/studydeck/internal/review"
	"github.com/example/studydeck/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// sender is the part of tgbotapi.BotAPI the bot uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// reminderChecker runs an on-demand reminder for one user
type reminderChecker interface {
	RunManualCheck(ctx context.Context, userID int64) (bool, error)
}

// Deps are the services the bot works with
type Deps struct {
	Users    *database.UserRepository
	Subjects *database.SubjectRepository
	Items    *database.ItemRepository
	Attempts *database.AttemptRepository
	Stats    *database.StatisticsRepository
	Review   *review.Scheduler
	Quiz     *quiz.Quiz
	Log      *logger.Logger
}

// quizState tracks a chat's progress through a quiz
type quizState struct {
	questions []quiz.Question
	idx       int
	answered  bool
}

// chatState is everything the bot remembers about one chat. mu serializes updates of the chat.
type chatState struct {
	mu       sync.Mutex
	review   *review.Session
	revealed bool
	quiz     *quizState
}

// Bot represents the Telegram bot application
type Bot struct {
	api       sender
	token     string
	config    BotConfig
	users     *database.UserRepository
	subjects  *database.SubjectRepository
	items     *database.ItemRepository
	attempts  *database.AttemptRepository
	stats     *database.StatisticsRepository
	scheduler *review.Scheduler
	quizzes   *quiz.Quiz
	reminders reminderChecker
	log       *logger.Logger

	mu    sync.Mutex
	chats map[int64]*chatState
	wg    sync.WaitGroup
}

// New creates a new bot instance. The Telegram connection is made in Start.
func New(token string, config BotConfig, deps Deps) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is not set")
	}
	b := newBot(nil, config, deps)
	b.token = token
	return b, nil
}

func newBot(api sender, config BotConfig, deps Deps) *Bot {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if config.DueQueueLimit <= 0 {
		config.DueQueueLimit = DefaultConfig().DueQueueLimit
	}
	return &Bot{
		api:       api,
		config:    config,
		users:     deps.Users,
		subjects:  deps.Subjects,
		items:     deps.Items,
		attempts:  deps.Attempts,
		stats:     deps.Stats,
		scheduler: deps.Review,
		quizzes:   deps.Quiz,
		log:       deps.Log,
		chats:     make(map[int64]*chatState),
	}
}

// SetReminderChecker enables the /due command
func (b *Bot) SetReminderChecker(c reminderChecker) {
	b.reminders = c
}

// Start connects to Telegram and handles updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	// Initialize the bot with the given token
	botAPI, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("unable to create bot: %w", err)
	}
	b.api = botAPI
	b.log.Info("authorized on account", "account", botAPI.Self.UserName)

	// Set up the update configuration
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout
	updates := botAPI.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			b.wg.Wait()
			b.log.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}(update)
		}
	}
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(ctx, update.Message)
	case update.Message != nil:
		err = b.HandleText(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		b.log.Error("failed to handle update", "update_id", update.UpdateID, "error", err)
	}
}

// chat returns the state of a chat, creating it on first use
func (b *Bot) chat(chatID int64) *chatState {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.chats[chatID]
	if !ok {
		state = &chatState{}
		b.chats[chatID] = state
	}
	return state
}

// SendReminders implements the scheduler.Notifier interface
func (b *Bot) SendReminders(_ context.Context, user models.User, count int) error {
	if user.TelegramID == nil {
		return fmt.Errorf("user %d has no telegram chat", user.ID)
	}

	msg := tgbotapi.NewMessage(*user.TelegramID, formatReminder(count))
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "📚 Subjects", CallbackData: callbackSubjects}},
	})
	if err := b.sendMessage(msg); err != nil {
		return err
	}
	b.log.Info("reminder sent", "user_id", user.ID, "count", count)
	return nil
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	if b.api == nil {
		return fmt.Errorf("bot is not connected")
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// MainMenuButtons returns the buttons of the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{{Text: "📚 Subjects", CallbackData: callbackSubjects}},
		{
			{Text: "📊 Statistics", CallbackData: callbackStats},
			{Text: "❓ Help", CallbackData: callbackHelp},
		},
	}
}
