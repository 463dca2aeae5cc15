package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS items (
    name       TEXT PRIMARY KEY,
    price      INTEGER NOT NULL CHECK (price > 0),
    currency   TEXT NOT NULL DEFAULT 'coins' CHECK (currency IN ('coins', 'money')),
    rented_by  TEXT,
    paid       INTEGER NOT NULL DEFAULT 0,
    expires_at INTEGER,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((rented_by IS NULL) = (expires_at IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_items_expires_at
    ON items(expires_at) WHERE expires_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS blacklist (
    user_id    TEXT PRIMARY KEY,
    reason     TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS proofs (
    id          TEXT PRIMARY KEY,
    item_name   TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    urls        TEXT NOT NULL DEFAULT '',
    image       BLOB,
    image_mime  TEXT,
    fingerprint TEXT,
    status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    decided_at  DATETIME,
    decided_by  TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_proofs_fingerprint
    ON proofs(fingerprint) WHERE fingerprint IS NOT NULL;

CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY,
    kind       TEXT NOT NULL,
    item_name  TEXT,
    user_id    TEXT,
    actor_id   TEXT,
    detail     TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_item_name ON events(item_name);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
