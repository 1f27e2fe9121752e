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
CREATE TABLE IF NOT EXISTS civic_items (
    id TEXT PRIMARY KEY,
    bill_number TEXT NOT NULL,
    title TEXT NOT NULL,
    summary TEXT,
    status TEXT NOT NULL,
    legislative_session TEXT NOT NULL,
    chamber TEXT,
    jurisdiction TEXT DEFAULT 'WY',
    level TEXT DEFAULT 'statewide',
    source TEXT DEFAULT 'lso',
    subject_tags TEXT,
    external_url TEXT,
    text_url TEXT,
    inactive_at TEXT,
    ai_summary TEXT,
    ai_key_points TEXT,
    ai_summary_generated_at TEXT,
    last_action TEXT,
    last_action_date TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS civic_item_sources (
    civic_item_id TEXT PRIMARY KEY REFERENCES civic_items(id),
    doc_url TEXT,
    doc_kind TEXT,
    resolution_status TEXT NOT NULL,
    checked_at TEXT DEFAULT (datetime('now')),
    notes TEXT,
    last_error TEXT
);

CREATE TABLE IF NOT EXISTS hot_topics_staging (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    civic_item_id TEXT REFERENCES civic_items(id),
    slug TEXT,
    title TEXT,
    summary TEXT,
    badge TEXT,
    cta_label TEXT,
    cta_url TEXT,
    priority INTEGER DEFAULT 100,
    confidence REAL,
    trigger_snippet TEXT,
    reason_summary TEXT,
    ai_source TEXT DEFAULT 'openai',
    review_status TEXT NOT NULL DEFAULT 'pending'
        CHECK(review_status IN ('pending', 'approved', 'rejected', 'promoted')),
    is_complete INTEGER DEFAULT 0,
    validation_errors TEXT,
    legislative_session TEXT,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS hot_topics_review_audit (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    staging_id INTEGER NOT NULL REFERENCES hot_topics_staging(id),
    action TEXT NOT NULL,
    previous_status TEXT,
    new_status TEXT,
    reviewer TEXT,
    notes TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS hot_topics (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT,
    badge TEXT,
    cta_label TEXT,
    cta_url TEXT,
    priority INTEGER DEFAULT 100,
    is_active INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS townhall_threads (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    voter_id TEXT,
    county TEXT,
    title TEXT NOT NULL,
    prompt TEXT NOT NULL,
    bill_id TEXT,
    topic_slugs TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS townhall_posts (
    id TEXT PRIMARY KEY,
    thread_id TEXT NOT NULL REFERENCES townhall_threads(id),
    user_id TEXT NOT NULL,
    voter_id TEXT,
    body TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT,
    name TEXT NOT NULL,
    date TEXT NOT NULL,
    location TEXT,
    description TEXT,
    sponsor TEXT,
    contact_email TEXT,
    contact_phone TEXT,
    lat REAL,
    lng REAL,
    pdf_key TEXT,
    pdf_hash TEXT UNIQUE,
    source TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS verified_users (
    user_id TEXT PRIMARY KEY,
    voter_id TEXT,
    county TEXT,
    house TEXT,
    senate TEXT,
    status TEXT NOT NULL DEFAULT 'verified'
);

CREATE TABLE IF NOT EXISTS wy_legislators (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    chamber TEXT NOT NULL CHECK(chamber IN ('house', 'senate')),
    district_number TEXT NOT NULL,
    district_label TEXT,
    contact_email TEXT,
    contact_phone TEXT,
    website_url TEXT,
    bio TEXT
);

CREATE TABLE IF NOT EXISTS auth_tokens (
    token TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_civic_items_session ON civic_items(legislative_session);
CREATE INDEX IF NOT EXISTS idx_civic_items_status ON civic_items(status);
CREATE INDEX IF NOT EXISTS idx_staging_status ON hot_topics_staging(review_status);
CREATE INDEX IF NOT EXISTS idx_staging_item ON hot_topics_staging(civic_item_id);
CREATE INDEX IF NOT EXISTS idx_audit_staging ON hot_topics_review_audit(staging_id);
CREATE INDEX IF NOT EXISTS idx_threads_county ON townhall_threads(county);
CREATE INDEX IF NOT EXISTS idx_posts_thread ON townhall_posts(thread_id);
CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
CREATE INDEX IF NOT EXISTS idx_legislators_district ON wy_legislators(chamber, district_number);
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
