package database

// GetStats returns aggregate counts for the status command.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM civic_items", &s.CivicItems},
		{"SELECT COUNT(*) FROM civic_items WHERE inactive_at IS NULL", &s.ActiveItems},
		{"SELECT COUNT(*) FROM civic_items WHERE ai_summary IS NOT NULL AND ai_summary != ''", &s.WithSummary},
		{"SELECT COUNT(*) FROM hot_topics_staging WHERE review_status = 'pending'", &s.StagingPending},
		{"SELECT COUNT(*) FROM hot_topics WHERE is_active = 1", &s.HotTopics},
		{"SELECT COUNT(*) FROM townhall_threads", &s.Threads},
		{"SELECT COUNT(*) FROM events", &s.Events},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
