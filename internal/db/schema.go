package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS members (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    phone_number  TEXT,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    point         INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_members_email_active
    ON members(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS categories (
    id   INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS places (
    id      INTEGER PRIMARY KEY,
    name    TEXT NOT NULL,
    address TEXT
);

CREATE TABLE IF NOT EXISTS items (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    category_id   INTEGER NOT NULL REFERENCES categories(id),
    place_id      INTEGER NOT NULL REFERENCES places(id),
    description   TEXT,
    found_date    TEXT,
    image         BLOB,
    image_mime    TEXT,
    status        TEXT NOT NULL DEFAULT 'held' CHECK (status IN ('held', 'claimed', 'approved', 'collected')),
    locked_until  DATETIME,
    is_retrieved  INTEGER NOT NULL DEFAULT 0,
    locker_number INTEGER NOT NULL,
    finder_id     INTEGER REFERENCES members(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS claims (
    id           INTEGER PRIMARY KEY,
    item_id      INTEGER NOT NULL REFERENCES items(id),
    requester_id INTEGER NOT NULL REFERENCES members(id),
    description  TEXT NOT NULL,
    location     TEXT,
    proof        BLOB,
    proof_mime   TEXT,
    status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected', 'collected', 'expired')),
    requested_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Backstop for the coordinator: at most one claim per item may be
-- pending or approved at any instant.
CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_item_active
    ON claims(item_id) WHERE status IN ('pending', 'approved');

CREATE TABLE IF NOT EXISTS verification_codes (
    email      TEXT PRIMARY KEY,
    code       TEXT NOT NULL,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

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
