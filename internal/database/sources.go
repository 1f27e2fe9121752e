package database

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertItemSource records a document resolution result for a civic item.
// At most one row exists per item; a re-resolution replaces the old row.
func (db *DB) UpsertItemSource(src *ItemSource) error {
	_, err := db.conn.Exec(
		`INSERT INTO civic_item_sources
			(civic_item_id, doc_url, doc_kind, resolution_status, checked_at, notes, last_error)
		 VALUES (?, ?, ?, ?, datetime('now'), ?, ?)
		 ON CONFLICT(civic_item_id) DO UPDATE SET
			doc_url = excluded.doc_url,
			doc_kind = excluded.doc_kind,
			resolution_status = excluded.resolution_status,
			checked_at = excluded.checked_at,
			notes = excluded.notes,
			last_error = excluded.last_error`,
		src.CivicItemID, src.DocURL, src.DocKind, src.ResolutionStatus,
		src.Notes, src.LastError,
	)
	return err
}

// GetItemSource returns the cached resolution row for an item, or nil.
func (db *DB) GetItemSource(civicItemID string) (*ItemSource, error) {
	row := db.conn.QueryRow(
		`SELECT civic_item_id, doc_url, doc_kind, resolution_status, checked_at, notes, last_error
		 FROM civic_item_sources WHERE civic_item_id = ?`, civicItemID,
	)
	var src ItemSource
	err := row.Scan(&src.CivicItemID, &src.DocURL, &src.DocKind,
		&src.ResolutionStatus, &src.CheckedAt, &src.Notes, &src.LastError)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// GetFreshItemSource returns the cached resolution only if it was checked
// within maxAge. Stale entries are treated as absent so callers re-resolve.
func (db *DB) GetFreshItemSource(civicItemID string, maxAge time.Duration) (*ItemSource, error) {
	src, err := db.GetItemSource(civicItemID)
	if err != nil || src == nil {
		return nil, err
	}

	checked, err := parseDBTime(src.CheckedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing checked_at for %s: %w", civicItemID, err)
	}
	if time.Since(checked) > maxAge {
		return nil, nil
	}
	return src, nil
}

// parseDBTime parses the formats sqlite's datetime('now') and ISO writers use.
func parseDBTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
