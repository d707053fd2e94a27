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
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL CHECK(length(name) <= 20),
    image TEXT
);

CREATE TABLE IF NOT EXISTS sub_topics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS topics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    icon TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS topic_sub_topics (
    topic_id INTEGER NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
    sub_topic_id INTEGER NOT NULL REFERENCES sub_topics(id) ON DELETE CASCADE,
    PRIMARY KEY (topic_id, sub_topic_id)
);

CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    username TEXT UNIQUE NOT NULL CHECK(length(username) >= 3),
    bio TEXT NOT NULL DEFAULT '',
    profile_image TEXT,
    topic_id INTEGER REFERENCES topics(id) ON DELETE SET NULL,
    sub_topic_id INTEGER REFERENCES sub_topics(id) ON DELETE SET NULL,
    gender TEXT,
    political_orientation TEXT,
    orientation TEXT,
    location TEXT,
    followers_count INTEGER NOT NULL DEFAULT 0 CHECK(followers_count >= 0),
    following_count INTEGER NOT NULL DEFAULT 0 CHECK(following_count >= 0),
    posts_count INTEGER NOT NULL DEFAULT 0 CHECK(posts_count >= 0),
    average_likes INTEGER NOT NULL DEFAULT 0 CHECK(average_likes >= 0),
    average_comments INTEGER NOT NULL DEFAULT 0 CHECK(average_comments >= 0),
    is_verified INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS stories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    page_id INTEGER REFERENCES pages(id) ON DELETE SET NULL,
    media TEXT NOT NULL DEFAULT '',
    source_url TEXT UNIQUE,
    feeling TEXT NOT NULL CHECK(feeling IN ('happy', 'sad', 'angry', 'calm', 'excited')),
    tone TEXT NOT NULL CHECK(tone IN ('formal', 'informal', 'friendly', 'authoritative', 'sarcastic')),
    ironic TEXT NOT NULL CHECK(ironic IN ('aligned', 'misaligned', 'unclear')),
    description TEXT,
    story_text TEXT,
    story_type TEXT NOT NULL CHECK(story_type IN ('image', 'video', 'text')),
    category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
    text_fetched INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS day_analyses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    text TEXT NOT NULL,
    date TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_pages_topic ON pages(topic_id);
CREATE INDEX IF NOT EXISTS idx_pages_category ON pages(category_id);
CREATE INDEX IF NOT EXISTS idx_stories_page ON stories(page_id);
CREATE INDEX IF NOT EXISTS idx_stories_created ON stories(created_at);
CREATE INDEX IF NOT EXISTS idx_day_analyses_created ON day_analyses(created_at);
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
