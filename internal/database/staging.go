package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const stagingColumns = `id, civic_item_id, slug, title, summary, badge, cta_label, cta_url,
	priority, confidence, trigger_snippet, reason_summary, ai_source, review_status,
	is_complete, validation_errors, legislative_session, created_at, updated_at`

// InsertStagingTopic stores one classification attempt for human review.
// Always created with review_status='pending'.
func (db *DB) InsertStagingTopic(rec *StagingTopic) (int64, error) {
	var errsJSON *string
	if len(rec.ValidationErrors) > 0 {
		b, err := json.Marshal(rec.ValidationErrors)
		if err != nil {
			return 0, fmt.Errorf("encoding validation errors: %w", err)
		}
		s := string(b)
		errsJSON = &s
	}

	priority := rec.Priority
	if priority == 0 {
		priority = 100
	}

	result, err := db.conn.Exec(
		`INSERT INTO hot_topics_staging (
			civic_item_id, slug, title, summary, badge, cta_label, cta_url, priority,
			confidence, trigger_snippet, reason_summary, ai_source, review_status,
			is_complete, validation_errors, legislative_session
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?, ?)`,
		rec.CivicItemID, rec.Slug, rec.Title, rec.Summary, rec.Badge,
		rec.CTALabel, rec.CTAURL, priority, rec.Confidence, rec.TriggerSnippet,
		rec.ReasonSummary, orDefault(rec.AISource, "openai"),
		boolToInt(rec.IsComplete), errsJSON, rec.LegislativeSession,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetStagingTopic returns one staging record, or nil if not found.
func (db *DB) GetStagingTopic(id int64) (*StagingTopic, error) {
	row := db.conn.QueryRow(
		"SELECT "+stagingColumns+" FROM hot_topics_staging WHERE id = ?", id,
	)
	rec, err := scanStaging(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListStagingTopics returns staging records, optionally filtered by review
// status and session, newest first.
func (db *DB) ListStagingTopics(status, session string, limit int) ([]StagingTopic, error) {
	q := sq.Select(
		"id", "civic_item_id", "slug", "title", "summary", "badge", "cta_label",
		"cta_url", "priority", "confidence", "trigger_snippet", "reason_summary",
		"ai_source", "review_status", "is_complete", "validation_errors",
		"legislative_session", "created_at", "updated_at",
	).
		From("hot_topics_staging").
		OrderBy("created_at DESC", "id DESC")

	if status != "" {
		q = q.Where(sq.Eq{"review_status": status})
	}
	if session != "" {
		q = q.Where(sq.Eq{"legislative_session": session})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building staging query: %w", err)
	}

	rows, err := db.conn.Query(sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []StagingTopic
	for rows.Next() {
		rec, err := scanStagingFrom(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// SetStagingStatus updates a staging record's review status.
// Legality of the transition is enforced by the review package, not here.
func (db *DB) SetStagingStatus(id int64, status string) error {
	result, err := db.conn.Exec(
		"UPDATE hot_topics_staging SET review_status = ?, updated_at = datetime('now') WHERE id = ?",
		status, id,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("staging record %d not found", id)
	}
	return nil
}

// GetStagingStats returns per-status counts with completeness breakdown.
func (db *DB) GetStagingStats(session string) ([]StagingStats, error) {
	query := `SELECT review_status, COUNT(*),
		SUM(CASE WHEN is_complete = 1 THEN 1 ELSE 0 END),
		SUM(CASE WHEN is_complete = 0 THEN 1 ELSE 0 END)
	FROM hot_topics_staging`
	var args []any
	if session != "" {
		query += " WHERE legislative_session = ?"
		args = append(args, session)
	}
	query += " GROUP BY review_status"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []StagingStats
	for rows.Next() {
		var s StagingStats
		if err := rows.Scan(&s.Status, &s.Total, &s.Complete, &s.Incomplete); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func scanStaging(row *sql.Row) (*StagingTopic, error) {
	return scanStagingFrom(row)
}

func scanStagingFrom(row rowScanner) (*StagingTopic, error) {
	var rec StagingTopic
	var complete int
	var errsJSON *string
	if err := row.Scan(
		&rec.ID, &rec.CivicItemID, &rec.Slug, &rec.Title, &rec.Summary,
		&rec.Badge, &rec.CTALabel, &rec.CTAURL, &rec.Priority, &rec.Confidence,
		&rec.TriggerSnippet, &rec.ReasonSummary, &rec.AISource, &rec.ReviewStatus,
		&complete, &errsJSON, &rec.LegislativeSession, &rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.IsComplete = complete != 0
	if errsJSON != nil && *errsJSON != "" {
		json.Unmarshal([]byte(*errsJSON), &rec.ValidationErrors) //nolint: errcheck
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
