// Package persistence provides the SQLite store behind the simulation:
// provinces with their buildings, stocks, governors and effects, event and
// raid records, and construction and research tasks.
//
// The store is where the "at most one unresolved raid" and "at most N
// unresolved events" invariants are enforced, with conditional inserts.
// Resource decrements are guarded so a stock never goes negative.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConcurrencyLimit is returned when a conditional insert finds the
	// province already at its unresolved event or raid ceiling.
	ErrConcurrencyLimit = errors.New("concurrency limit reached")
	// ErrAlreadyResolved is returned when resolving a closed event or raid.
	ErrAlreadyResolved = errors.New("already resolved")
)

// DB wraps a SQLite connection for empire state.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS provinces (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		city_id TEXT NOT NULL,
		name TEXT NOT NULL,
		level INTEGER NOT NULL,
		threat INTEGER NOT NULL DEFAULT 0,
		terrain TEXT NOT NULL DEFAULT 'plains',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS buildings (
		province_id TEXT NOT NULL REFERENCES provinces(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		level INTEGER NOT NULL CHECK (level >= 0),
		PRIMARY KEY (province_id, type)
	);

	CREATE TABLE IF NOT EXISTS resources (
		province_id TEXT NOT NULL REFERENCES provinces(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount >= 0),
		PRIMARY KEY (province_id, type)
	);

	CREATE TABLE IF NOT EXISTS governors (
		province_id TEXT PRIMARY KEY REFERENCES provinces(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		personality TEXT NOT NULL,
		loyalty INTEGER NOT NULL CHECK (loyalty BETWEEN 0 AND 100),
		experience INTEGER NOT NULL CHECK (experience >= 0)
	);

	CREATE TABLE IF NOT EXISTS temporary_effects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		province_id TEXT NOT NULL REFERENCES provinces(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		magnitude REAL NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS researched_technologies (
		city_id TEXT NOT NULL,
		technology_id TEXT NOT NULL,
		researched_at INTEGER NOT NULL,
		PRIMARY KEY (city_id, technology_id)
	);

	CREATE TABLE IF NOT EXISTS event_instances (
		id TEXT PRIMARY KEY,
		province_id TEXT NOT NULL REFERENCES provinces(id) ON DELETE CASCADE,
		event_id TEXT NOT NULL,
		triggered_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		resolved INTEGER NOT NULL DEFAULT 0,
		resolved_at INTEGER NOT NULL DEFAULT 0,
		choice_id TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS raid_events (
		id TEXT PRIMARY KEY,
		province_id TEXT NOT NULL REFERENCES provinces(id) ON DELETE CASCADE,
		enemy_id TEXT NOT NULL,
		triggered_at INTEGER NOT NULL,
		arrives_at INTEGER NOT NULL,
		resolved INTEGER NOT NULL DEFAULT 0,
		resolved_at INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL DEFAULT '',
		narrative TEXT NOT NULL DEFAULT '',
		report_json TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS construction_tasks (
		id TEXT PRIMARY KEY,
		province_id TEXT NOT NULL REFERENCES provinces(id) ON DELETE CASCADE,
		building_type TEXT NOT NULL,
		from_level INTEGER NOT NULL,
		to_level INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		completes_at INTEGER NOT NULL,
		state TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS research_tasks (
		id TEXT PRIMARY KEY,
		city_id TEXT NOT NULL,
		province_id TEXT NOT NULL,
		technology_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		completes_at INTEGER NOT NULL,
		state TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_provinces_user ON provinces(user_id);
	CREATE INDEX IF NOT EXISTS idx_provinces_city ON provinces(city_id);
	CREATE INDEX IF NOT EXISTS idx_events_province ON event_instances(province_id, resolved);
	CREATE INDEX IF NOT EXISTS idx_events_triggered ON event_instances(province_id, triggered_at);
	CREATE INDEX IF NOT EXISTS idx_raids_province ON raid_events(province_id, resolved);
	CREATE INDEX IF NOT EXISTS idx_construction_due ON construction_tasks(state, completes_at);
	CREATE INDEX IF NOT EXISTS idx_research_due ON research_tasks(state, completes_at);
	CREATE INDEX IF NOT EXISTS idx_effects_expiry ON temporary_effects(expires_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Times are stored as unix milliseconds; zero means unset.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
