package database

// AppendAuditEntry writes one review-audit row. The audit log is
// append-only; nothing in this package updates or deletes audit rows.
func (db *DB) AppendAuditEntry(stagingID int64, action, previousStatus, newStatus, reviewer string, notes *string) error {
	_, err := db.conn.Exec(
		`INSERT INTO hot_topics_review_audit
			(staging_id, action, previous_status, new_status, reviewer, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		stagingID, action, previousStatus, newStatus, reviewer, notes,
	)
	return err
}

// GetAuditTrail returns all audit entries for a staging record, oldest first.
func (db *DB) GetAuditTrail(stagingID int64) ([]AuditEntry, error) {
	rows, err := db.conn.Query(
		`SELECT id, staging_id, action, previous_status, new_status, reviewer, notes, created_at
		 FROM hot_topics_review_audit WHERE staging_id = ? ORDER BY id`, stagingID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.StagingID, &e.Action, &e.PreviousStatus,
			&e.NewStatus, &e.Reviewer, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
