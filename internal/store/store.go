// Package store is the SQLite persistence layer: holdings, trade history,
// watchlist, performance tracker, holding decisions and the executions
// ledger.
package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/prism-insight/cryptoswing/internal/config"
)

// TimeLayout is the wallclock layout used for every stored timestamp.
const TimeLayout = "2006-01-02 15:04:05"

// Store wraps the SQLite database and exposes the repositories.
type Store struct {
	db     *sqlx.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The controller is single-writer per cycle; one connection keeps
	// in-memory databases coherent and avoids SQLITE_BUSY on files.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &Store{
		db:     db,
		logger: config.NewLogger("store"),
	}

	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Now returns the current local wallclock in the storage layout.
func Now() string {
	return FormatTime(time.Now())
}

// FormatTime renders t in the storage layout, local wallclock.
func FormatTime(t time.Time) string {
	return t.In(time.Local).Format(TimeLayout)
}

// ParseTime parses a stored wallclock string in the local zone, so
// holding-age and cool-down arithmetic is consistent with FormatTime.
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
