// Package sqlite implements the repository interfaces on top of SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, and
// cross-compilation just works. The same file-backed store serves the eventd
// binary and ":memory:" serves the tests.
//
// AGGREGATION:
// Every event read goes through one query (see eventSelect in event.go) that
// joins the host profile and computes registration_count and host_rating in
// the same statement. A count computed by a second, independent query could
// disagree with the row it is attached to; a single statement cannot.
//
// TIMESTAMPS:
// All timestamps are stored as INTEGER unix milliseconds (UTC). Integer
// comparison gives correct ordering for event_date and "now" filtering without
// depending on how the driver formats time.Time as text.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Registers the "sqlite" driver with database/sql.
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB and implements every repository interface.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/eventhub.db" → file-based database
//   - ":memory:"         → in-memory database, gone on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// SQLite allows a single writer. Funnelling everything through one
	// connection serialises writers in Go instead of surfacing SQLITE_BUSY,
	// and keeps a ":memory:" database from being a different empty database
	// on every pooled connection. The capacity check in Register relies on
	// this serialisation as well.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn, now: time.Now}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping is used by the health check.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	// profiles: one row per account, same id. interests is a JSON array.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id         TEXT PRIMARY KEY,
			full_name  TEXT NOT NULL,
			bio        TEXT NOT NULL DEFAULT '',
			interests  TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
			email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL,
			created_at    INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating accounts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id            TEXT PRIMARY KEY,
			host_id       TEXT NOT NULL REFERENCES profiles(id),
			title         TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			event_date    INTEGER NOT NULL,
			location_name TEXT NOT NULL,
			category      TEXT NOT NULL,
			capacity      INTEGER NOT NULL CHECK (capacity > 0),
			image_url     TEXT,
			created_at    INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_event_date ON events(event_date);
		CREATE INDEX IF NOT EXISTS idx_events_host_id ON events(host_id, event_date);
	`)
	if err != nil {
		return fmt.Errorf("creating events table: %w", err)
	}

	// UNIQUE(event_id, user_id) is the last line of defence against double
	// registration; Register checks first and maps a violation to the same error.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS event_registrations (
			id         TEXT PRIMARY KEY,
			event_id   TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			created_at INTEGER NOT NULL,
			UNIQUE (event_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_event_registrations_user_id ON event_registrations(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating event_registrations table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS event_ratings (
			id         TEXT PRIMARY KEY,
			event_id   TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			host_id    TEXT NOT NULL REFERENCES profiles(id),
			rater_id   TEXT NOT NULL REFERENCES profiles(id),
			score      INTEGER NOT NULL CHECK (score BETWEEN 1 AND 5),
			created_at INTEGER NOT NULL,
			UNIQUE (event_id, rater_id)
		);
		CREATE INDEX IF NOT EXISTS idx_event_ratings_host_id ON event_ratings(host_id);
	`)
	if err != nil {
		return fmt.Errorf("creating event_ratings table: %w", err)
	}

	return nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// isUniqueViolation reports whether err is SQLite refusing a duplicate key.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// nullFloat converts an aggregate that may be NULL (AVG over no rows).
func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
