package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:practice.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/practice?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer keeps autosave bursts from tripping SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var statements []string
	switch driver {
	case DriverSQLite:
		statements = schemaSQLite
	case DriverPostgres:
		statements = schemaPostgres
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Timestamps are unix milliseconds in both dialects.
var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at INTEGER NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS questions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  test_id TEXT NOT NULL,
  question_text TEXT NOT NULL,
  answers_json TEXT NOT NULL,
  correct_answer TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  user_id INTEGER NOT NULL DEFAULT 0
);`,
	`CREATE INDEX IF NOT EXISTS idx_questions_test ON questions(test_id, user_id);`,
	`CREATE TABLE IF NOT EXISTS test_attempts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  test_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'in_progress',
  current_index INTEGER NOT NULL DEFAULT 0,
  answers_json TEXT NOT NULL,
  question_order_json TEXT NOT NULL,
  total_questions INTEGER NOT NULL,
  correct_count INTEGER NOT NULL DEFAULT 0,
  score INTEGER NOT NULL DEFAULT 0,
  started_at INTEGER NOT NULL,
  completed_at INTEGER,
  user_id INTEGER NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_user ON test_attempts(user_id, started_at DESC);`,
	`CREATE TABLE IF NOT EXISTS results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  test_id TEXT NOT NULL,
  score INTEGER NOT NULL,
  correct_count INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  completed_at INTEGER NOT NULL,
  user_id INTEGER NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_results_user ON results(user_id, completed_at);`,
	`CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);`,
}

var schemaPostgres = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at BIGINT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS questions (
  id BIGSERIAL PRIMARY KEY,
  test_id TEXT NOT NULL,
  question_text TEXT NOT NULL,
  answers_json TEXT NOT NULL,
  correct_answer TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  user_id BIGINT NOT NULL DEFAULT 0
);`,
	`CREATE INDEX IF NOT EXISTS idx_questions_test ON questions(test_id, user_id);`,
	`CREATE TABLE IF NOT EXISTS test_attempts (
  id BIGSERIAL PRIMARY KEY,
  test_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'in_progress',
  current_index INTEGER NOT NULL DEFAULT 0,
  answers_json TEXT NOT NULL,
  question_order_json TEXT NOT NULL,
  total_questions INTEGER NOT NULL,
  correct_count INTEGER NOT NULL DEFAULT 0,
  score INTEGER NOT NULL DEFAULT 0,
  started_at BIGINT NOT NULL,
  completed_at BIGINT,
  user_id BIGINT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_user ON test_attempts(user_id, started_at DESC);`,
	`CREATE TABLE IF NOT EXISTS results (
  id BIGSERIAL PRIMARY KEY,
  test_id TEXT NOT NULL,
  score INTEGER NOT NULL,
  correct_count INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  completed_at BIGINT NOT NULL,
  user_id BIGINT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_results_user ON results(user_id, completed_at);`,
	`CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);`,
}
