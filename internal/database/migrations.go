package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "topic table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS trending_topics (
    position INTEGER PRIMARY KEY,
    "index" INTEGER NOT NULL,
    title TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT ''
);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "search runs, posts and images",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS search_runs (
    id TEXT PRIMARY KEY,
    niche TEXT NOT NULL,
    recency TEXT NOT NULL,
    requested_count INTEGER NOT NULL,
    result_count INTEGER DEFAULT 0,
    topic_count INTEGER DEFAULT 0,
    path TEXT NOT NULL,
    fallback_reason TEXT,
    location TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic TEXT NOT NULL,
    persona TEXT NOT NULL,
    extra_context TEXT,
    body TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic TEXT NOT NULL,
    path TEXT NOT NULL,
    template TEXT,
    headline TEXT,
    approved INTEGER DEFAULT 0,
    approved_at TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_search_runs_created ON search_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_posts_topic ON posts(topic);
CREATE INDEX IF NOT EXISTS idx_images_topic ON images(topic);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
