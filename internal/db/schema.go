package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema: console accounts plus the decoration
// catalog and deployment tables used in standalone mode.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'viewer' CHECK (role IN ('admin', 'viewer')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    id          TEXT PRIMARY KEY,
    short_name  TEXT NOT NULL,
    class       TEXT NOT NULL CHECK (class IN ('Decoration', 'Accessory', 'Light')),
    class_type  TEXT NOT NULL,
    female_ends INTEGER NOT NULL DEFAULT 0,
    male_ends   INTEGER NOT NULL DEFAULT 0,
    power_inlet INTEGER NOT NULL DEFAULT 0,
    watts       INTEGER NOT NULL DEFAULT 0,
    amps        REAL NOT NULL DEFAULT 0,
    notes       TEXT,
    image       BLOB,
    image_mime  TEXT,
    status      TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'damaged', 'retired')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at  DATETIME
);

CREATE TABLE IF NOT EXISTS deployments (
    id                 TEXT PRIMARY KEY,
    year               INTEGER NOT NULL,
    season             TEXT NOT NULL,
    status             TEXT NOT NULL DEFAULT 'not_started'
                       CHECK (status IN ('not_started', 'in_progress', 'completed')),
    setup_started_at   DATETIME,
    setup_completed_at DATETIME,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS deployment_locations (
    deployment_id TEXT NOT NULL REFERENCES deployments(id),
    name          TEXT NOT NULL,
    position      INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (deployment_id, name)
);

CREATE TABLE IF NOT EXISTS connections (
    id            TEXT PRIMARY KEY,
    deployment_id TEXT NOT NULL REFERENCES deployments(id),
    location_name TEXT NOT NULL,
    from_item_id  TEXT NOT NULL REFERENCES items(id),
    from_port     TEXT NOT NULL,
    to_item_id    TEXT NOT NULL REFERENCES items(id),
    to_port       TEXT NOT NULL,
    illuminates   TEXT,
    notes         TEXT,
    connected_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_connections_source_port
    ON connections(deployment_id, location_name, from_item_id, from_port);

CREATE TABLE IF NOT EXISTS work_sessions (
    id            TEXT PRIMARY KEY,
    deployment_id TEXT NOT NULL REFERENCES deployments(id),
    location_name TEXT NOT NULL,
    start_time    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    end_time      DATETIME,
    notes         TEXT
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
