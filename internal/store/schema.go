package store

import (
	"database/sql"
)

const currentSchemaVersion = 3

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS tracks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT,
			album TEXT,
			genre TEXT,
			uri TEXT NOT NULL,
			duration REAL NOT NULL DEFAULT 0,
			image TEXT,
			file_hash TEXT NOT NULL,
			scan_time INTEGER NOT NULL,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			play_count INTEGER NOT NULL DEFAULT 0,
			favorite INTEGER NOT NULL DEFAULT 0,
			last_played_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_is_deleted ON tracks(is_deleted);

		CREATE TABLE IF NOT EXISTS history (
			id TEXT PRIMARY KEY,
			track_id TEXT NOT NULL REFERENCES tracks(id),
			timestamp INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp DESC);
	`)
	if err != nil {
		return err
	}

	// Set initial version if not exists
	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	if err != nil {
		return err
	}

	// Migration: usage columns added after the first release; tolerated to
	// fail when they already exist.
	_, _ = db.Exec(`ALTER TABLE tracks ADD COLUMN play_count INTEGER NOT NULL DEFAULT 0`)
	_, _ = db.Exec(`ALTER TABLE tracks ADD COLUMN favorite INTEGER NOT NULL DEFAULT 0`)
	_, _ = db.Exec(`ALTER TABLE tracks ADD COLUMN last_played_at INTEGER`)

	// Migration: genre column if missing
	_, _ = db.Exec(`ALTER TABLE tracks ADD COLUMN genre TEXT`)

	return nil
}
