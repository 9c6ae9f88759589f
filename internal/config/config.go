package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Константы для настроек по умолчанию
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
	DefaultDueQueueLimit         = 100
)

// Config holds application configuration
type Config struct {
	DBType      string `validate:"oneof=sqlite sqlite3 postgres postgresql"`
	DBPath      string `validate:"required_if=DBType sqlite,required_if=DBType sqlite3"`
	DatabaseURL string `validate:"required_if=DBType postgres,required_if=DBType postgresql"`

	TelegramToken    string
	SchedulerEnabled bool
	// Reminders are only sent between these hours (inclusive)
	NotificationStartHour int `validate:"gte=0,lte=23"`
	NotificationEndHour   int `validate:"gte=0,lte=23,gtefield=NotificationStartHour"`

	// Maximum number of due items fetched into one review session
	DueQueueLimit int `validate:"gte=1,lte=1000"`

	LogMode string `validate:"oneof=development prod production"`
}

// Load reads an optional .env file and then the process environment.
// A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		DBType:                strings.ToLower(getEnv("DB_TYPE", "sqlite")),
		DBPath:                getEnv("DB_PATH", "data/studydeck.db"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		TelegramToken:         os.Getenv("TELEGRAM_BOT_TOKEN"),
		SchedulerEnabled:      os.Getenv("ENABLE_SCHEDULER") != "false",
		NotificationStartHour: getEnvInt("NOTIFICATION_START_HOUR", DefaultNotificationStartHour),
		NotificationEndHour:   getEnvInt("NOTIFICATION_END_HOUR", DefaultNotificationEndHour),
		DueQueueLimit:         getEnvInt("DUE_QUEUE_LIMIT", DefaultDueQueueLimit),
		LogMode:               getEnv("LOG_MODE", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsPostgres reports whether the postgres driver is configured
func (c *Config) IsPostgres() bool {
	return c.DBType == "postgres" || c.DBType == "postgresql"
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}
