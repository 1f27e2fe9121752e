package database

import "database/sql"

// UpsertHotTopic publishes a topic to the production table, keyed by slug.
// INSERT OR REPLACE semantics: a second promotion of the same slug is
// last-write-wins.
func (db *DB) UpsertHotTopic(t *HotTopic) error {
	priority := t.Priority
	if priority == 0 {
		priority = 100
	}
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO hot_topics
			(slug, title, summary, badge, cta_label, cta_url, priority, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, COALESCE(?, datetime('now')), datetime('now'))`,
		t.Slug, t.Title, t.Summary, t.Badge, t.CTALabel, t.CTAURL, priority, t.CreatedAt,
	)
	return err
}

// GetHotTopic returns one production topic by slug, or nil.
func (db *DB) GetHotTopic(slug string) (*HotTopic, error) {
	row := db.conn.QueryRow(
		`SELECT slug, title, summary, badge, cta_label, cta_url, priority, is_active, created_at, updated_at
		 FROM hot_topics WHERE slug = ?`, slug,
	)
	t, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListActiveHotTopics returns published topics ordered by priority.
func (db *DB) ListActiveHotTopics() ([]HotTopic, error) {
	rows, err := db.conn.Query(
		`SELECT slug, title, summary, badge, cta_label, cta_url, priority, is_active, created_at, updated_at
		 FROM hot_topics WHERE is_active = 1 ORDER BY priority, slug`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []HotTopic
	for rows.Next() {
		t, err := scanTopicFrom(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *t)
	}
	return topics, rows.Err()
}

func scanTopic(row *sql.Row) (*HotTopic, error) {
	return scanTopicFrom(row)
}

func scanTopicFrom(row rowScanner) (*HotTopic, error) {
	var t HotTopic
	var active int
	if err := row.Scan(&t.Slug, &t.Title, &t.Summary, &t.Badge, &t.CTALabel,
		&t.CTAURL, &t.Priority, &active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.IsActive = active != 0
	return &t, nil
}
