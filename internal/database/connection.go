package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/studydeck/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

// ErrUserNotFound is returned when an attempt names a user that does not exist
var ErrUserNotFound = errors.New("user not found")

// Connect establishes a connection to the configured database and applies the schema
func Connect(cfg *config.Config) (*sqlx.DB, error) {
	if cfg.IsPostgres() {
		return connectPostgres(cfg.DatabaseURL)
	}
	return ConnectSQLite(cfg.DBPath)
}

// ConnectSQLite opens a SQLite database. path may be ":memory:".
func ConnectSQLite(path string) (*sqlx.DB, error) {
	if path != ":memory:" {
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	// _txlock=immediate takes the write lock at BEGIN, so two graders of one item queue up
	// instead of both reading the old schedule.
	dsn := "file:" + path + "?_txlock=immediate&_foreign_keys=on&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = "file::memory:?_txlock=immediate&_foreign_keys=on"
	}

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initializeSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func connectPostgres(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := initializeSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func isPostgres(db sqlx.ExtContext) bool {
	return db.DriverName() == "postgres"
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(ctx context.Context, db *sqlx.DB) error {
	statements := sqliteSchema
	if isPostgres(db) {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			name := strings.Fields(strings.TrimSpace(stmt))
			if len(name) > 5 {
				return fmt.Errorf("failed to apply schema (%s): %w", name[5], err)
			}
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id INTEGER UNIQUE,
		username TEXT NOT NULL DEFAULT '',
		notification_enabled BOOLEAN NOT NULL DEFAULT true,
		notification_hour INTEGER NOT NULL DEFAULT 9,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS subjects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id),
		UNIQUE(name, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		choices TEXT,
		source TEXT NOT NULL DEFAULT '',
		location INTEGER NOT NULL DEFAULT 0,
		easiness REAL NOT NULL DEFAULT 2.5,
		interval_days INTEGER NOT NULL DEFAULT 0,
		repetitions INTEGER NOT NULL DEFAULT 0,
		due_date TEXT NOT NULL,
		last_reviewed_at TIMESTAMP,
		lapse_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (subject_id) REFERENCES subjects(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_due ON items (subject_id, due_date, id)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id INTEGER NOT NULL,
		subject_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		is_correct BOOLEAN NOT NULL,
		quality INTEGER NOT NULL CHECK (quality BETWEEN 0 AND 5),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (item_id) REFERENCES items(id),
		FOREIGN KEY (subject_id) REFERENCES subjects(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_item ON attempts (item_id, user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_subject ON attempts (subject_id, user_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		telegram_id BIGINT UNIQUE,
		username TEXT NOT NULL DEFAULT '',
		notification_enabled BOOLEAN NOT NULL DEFAULT true,
		notification_hour INTEGER NOT NULL DEFAULT 9,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS subjects (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE(name, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id BIGSERIAL PRIMARY KEY,
		subject_id BIGINT NOT NULL REFERENCES subjects(id),
		kind TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		choices TEXT,
		source TEXT NOT NULL DEFAULT '',
		location INTEGER NOT NULL DEFAULT 0,
		easiness DOUBLE PRECISION NOT NULL DEFAULT 2.5 CHECK (easiness >= 1.3),
		interval_days INTEGER NOT NULL DEFAULT 0 CHECK (interval_days >= 0),
		repetitions INTEGER NOT NULL DEFAULT 0,
		due_date DATE NOT NULL,
		last_reviewed_at TIMESTAMPTZ,
		lapse_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_due ON items (subject_id, due_date, id)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id BIGSERIAL PRIMARY KEY,
		item_id BIGINT NOT NULL REFERENCES items(id),
		subject_id BIGINT NOT NULL REFERENCES subjects(id),
		user_id BIGINT NOT NULL REFERENCES users(id),
		is_correct BOOLEAN NOT NULL,
		quality INTEGER NOT NULL CHECK (quality BETWEEN 0 AND 5),
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_item ON attempts (item_id, user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_subject ON attempts (subject_id, user_id)`,
}
