// Package ledger provides the SQLite-backed local store for temporary
// consumed items and macro-tracking configuration.
package ledger

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS grocy_temp_items (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	calories   REAL NOT NULL DEFAULT 0,
	carbs      REAL NOT NULL DEFAULT 0,
	fats       REAL NOT NULL DEFAULT 0,
	protein    REAL NOT NULL DEFAULT 0,
	day        TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_temp_items_day ON grocy_temp_items(day);

CREATE TABLE IF NOT EXISTS grocy_config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Default config rows seeded on initialization. Existing values are never
// overwritten by seeding.
var configSeeds = map[string]string{
	"day_start_hour": "6",
	"goal_calories":  "3500",
	"goal_carbs":     "350",
	"goal_fats":      "100",
	"goal_protein":   "250",
}

// DB wraps a sql.DB with ledger-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database, applies the schema, and
// seeds default configuration.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	for key, value := range configSeeds {
		if _, err := conn.Exec(`INSERT OR IGNORE INTO grocy_config (key, value) VALUES (?, ?)`, key, value); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ledger: seed config: %w", err)
		}
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
