package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/studydeck/internal/bot"
	"github.com/example/studydeck/internal/config"
	"github.com/example/studydeck/internal/database"
	"github.com/example/studydeck/internal/excel"
	"github.com/example/studydeck/internal/logger"
	"github.com/example/studydeck/internal/quiz"
	"github.com/example/studydeck/internal/review"
	"github.com/example/studydeck/internal/scheduler"
	"github.com/jmoiron/sqlx"
	flag "github.com/spf13/pflag"
)

func main() {
	envFile := flag.String("env-file", ".env", "path to an optional .env file")
	importPath := flag.String("import", "", "import items from an .xlsx or .csv file and exit")
	exportPath := flag.String("export", "", "export a subject's items to an .xlsx file and exit")
	subjectName := flag.String("subject", "", "subject to import into or export from")
	telegramID := flag.Int64("telegram-id", 0, "telegram chat id of the subject owner")
	sheet := flag.String("sheet", "", "sheet to import (defaults to the first sheet)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Подключаемся к базе данных
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", "db_type", cfg.DBType, "error", err)
	}
	defer db.Close()

	// Создаем контекст, который отменяется по сигналу
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *importPath != "":
		err = runImport(ctx, db, log, *importPath, *sheet, *subjectName, *telegramID)
	case *exportPath != "":
		err = runExport(ctx, db, log, *exportPath, *subjectName, *telegramID)
	default:
		err = runBot(ctx, cfg, db, log)
	}
	if err != nil {
		log.Error("exiting with error", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func runImport(ctx context.Context, db *sqlx.DB, log *logger.Logger, path, sheet, subjectName string, telegramID int64) error {
	if subjectName == "" || telegramID == 0 {
		return errors.New("--import needs --subject and --telegram-id")
	}
	user, err := database.NewUserRepository(db).GetOrCreateByTelegramID(ctx, telegramID, "")
	if err != nil {
		return err
	}

	cfg := excel.DefaultImportConfig()
	cfg.FilePath = path
	cfg.UserID = user.ID
	cfg.SubjectName = subjectName
	cfg.SheetName = sheet

	importer := excel.NewImporter(database.NewSubjectRepository(db), database.NewItemRepository(db))
	result, err := importer.ImportItems(ctx, cfg)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	for _, rowErr := range result.Errors {
		log.Warn("row skipped", "reason", rowErr)
	}
	log.Info("import finished",
		"subject", subjectName,
		"processed", result.TotalProcessed,
		"created", result.Created,
		"duplicates", result.Skipped,
		"errors", len(result.Errors),
	)
	return nil
}

func runExport(ctx context.Context, db *sqlx.DB, log *logger.Logger, path, subjectName string, telegramID int64) error {
	if subjectName == "" || telegramID == 0 {
		return errors.New("--export needs --subject and --telegram-id")
	}
	user, err := database.NewUserRepository(db).GetByTelegramID(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("user %d: %w", telegramID, err)
	}
	subject, err := database.NewSubjectRepository(db).GetByName(ctx, user.ID, subjectName)
	if err != nil {
		return fmt.Errorf("subject %q: %w", subjectName, err)
	}
	items, err := database.NewItemRepository(db).ListBySubject(ctx, subject.ID)
	if err != nil {
		return err
	}
	if err := excel.ExportItems(path, items); err != nil {
		return err
	}
	log.Info("export finished", "subject", subjectName, "items", len(items), "path", path)
	return nil
}

func runBot(ctx context.Context, cfg *config.Config, db *sqlx.DB, log *logger.Logger) error {
	users := database.NewUserRepository(db)
	items := database.NewItemRepository(db)
	attempts := database.NewAttemptRepository(db)
	stats := database.NewStatisticsRepository(db)

	b, err := bot.New(cfg.TelegramToken, bot.BotConfig{
		DueQueueLimit: cfg.DueQueueLimit,
		ShowSource:    true,
		UpdateTimeout: 60,
	}, bot.Deps{
		Users:    users,
		Subjects: database.NewSubjectRepository(db),
		Items:    items,
		Attempts: attempts,
		Stats:    stats,
		Review:   review.NewScheduler(items, review.WithLogger(log.With("component", "review"))),
		Quiz:     quiz.NewQuiz(items, attempts),
		Log:      log.With("component", "bot"),
	})
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	if cfg.SchedulerEnabled {
		s := scheduler.New(scheduler.Config{
			StartHour: cfg.NotificationStartHour,
			EndHour:   cfg.NotificationEndHour,
			Location:  time.Local,
		}, b, users, stats, log.With("component", "scheduler"))
		if err := s.Start(ctx); err != nil {
			return err
		}
		defer s.Stop()
		b.SetReminderChecker(s)
	}

	log.Info("bot starting, press Ctrl+C to stop")
	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("bot stopped successfully")
	return nil
}
