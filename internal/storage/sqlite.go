// internal/storage/sqlite.go
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*SQLiteStorage)

// WithClock sets the time source used for timestamps and birth date checks.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStorage) { s.now = now }
}

func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serializes writers; a single connection also keeps
	// ":memory:" databases consistent across queries.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db, now: time.Now}
	for _, opt := range opts {
		opt(storage)
	}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    PRAGMA foreign_keys = ON;

    CREATE TABLE IF NOT EXISTS babies (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        date_of_birth TEXT NOT NULL,
        known_allergies TEXT NOT NULL DEFAULT '[]',
        suspected_allergies TEXT NOT NULL DEFAULT '[]',
        pediatrician_contact TEXT NOT NULL DEFAULT '',
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS foods (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        category TEXT NOT NULL,
        allergens TEXT NOT NULL DEFAULT '[]',
        tags TEXT NOT NULL DEFAULT '[]',
        choking_form_notes TEXT NOT NULL DEFAULT '',
        iron_mg_per_100g REAL,
        position INTEGER NOT NULL
    );

    CREATE TABLE IF NOT EXISTS rules (
        rule_key TEXT PRIMARY KEY,
        short_text TEXT NOT NULL,
        severity TEXT NOT NULL,
        publisher TEXT NOT NULL,
        url TEXT NOT NULL,
        published_at TEXT NOT NULL,
        last_verified_at TEXT NOT NULL,
        direct_quote TEXT NOT NULL,
        age_min_months INTEGER NOT NULL,
        age_max_months INTEGER NOT NULL,
        tags TEXT NOT NULL DEFAULT '[]',
        position INTEGER NOT NULL
    );

    CREATE TABLE IF NOT EXISTS meals (
        id TEXT PRIMARY KEY,
        baby_id TEXT NOT NULL,
        meal_date TEXT NOT NULL,
        meal_time TEXT NOT NULL,
        meal_type TEXT NOT NULL DEFAULT '',
        items TEXT NOT NULL DEFAULT '[]',
        reactions TEXT NOT NULL DEFAULT '[]',
        notes TEXT NOT NULL DEFAULT '',
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL,
        FOREIGN KEY (baby_id) REFERENCES babies(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS exposures (
        id TEXT PRIMARY KEY,
        baby_id TEXT NOT NULL,
        allergen TEXT NOT NULL,
        exposure_date TEXT NOT NULL,
        reaction TEXT,
        notes TEXT NOT NULL DEFAULT '',
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL,
        FOREIGN KEY (baby_id) REFERENCES babies(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_meals_baby_date ON meals(baby_id, meal_date);
    CREATE INDEX IF NOT EXISTS idx_exposures_baby_date ON exposures(baby_id, exposure_date);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, v)
}

func encodeJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeStrings(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	return encodeJSON(v)
}

func decodeStrings(v string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
