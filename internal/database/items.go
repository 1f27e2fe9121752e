package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const itemColumns = `id, bill_number, title, summary, status, legislative_session, chamber,
	jurisdiction, level, source, subject_tags, external_url, text_url, inactive_at,
	ai_summary, ai_key_points, ai_summary_generated_at, last_action, last_action_date,
	created_at, updated_at`

// InsertCivicItem upserts a civic item row keyed by its composite id
// (session + bill number). AI columns are never touched on conflict.
func (db *DB) InsertCivicItem(item *CivicItem) error {
	_, err := db.conn.Exec(
		`INSERT INTO civic_items (
			id, bill_number, title, summary, status, legislative_session, chamber,
			jurisdiction, level, source, subject_tags, external_url, text_url,
			last_action, last_action_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			bill_number = excluded.bill_number,
			title = excluded.title,
			summary = COALESCE(civic_items.summary, excluded.summary),
			status = excluded.status,
			legislative_session = excluded.legislative_session,
			chamber = excluded.chamber,
			external_url = COALESCE(civic_items.external_url, excluded.external_url),
			text_url = COALESCE(civic_items.text_url, excluded.text_url),
			last_action = excluded.last_action,
			last_action_date = excluded.last_action_date,
			updated_at = datetime('now')`,
		item.ID, item.BillNumber, item.Title, item.Summary, item.Status,
		item.LegislativeSession, item.Chamber,
		orDefault(item.Jurisdiction, "WY"), orDefault(item.Level, "statewide"),
		orDefault(item.Source, "lso"), item.SubjectTags, item.ExternalURL,
		item.TextURL, item.LastAction, item.LastActionDate,
	)
	return err
}

// GetCivicItem returns a single civic item, or nil if not found.
func (db *DB) GetCivicItem(id string) (*CivicItem, error) {
	row := db.conn.QueryRow(
		"SELECT "+itemColumns+" FROM civic_items WHERE id = ?", id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ScanCandidates selects active civic items eligible for a scan run:
// not soft-deactivated, status in the allow-list, optionally limited to a
// single legislative session. Order is stable (most recent action first,
// bill number as tie-break) so scan results are deterministic.
func (db *DB) ScanCandidates(statuses []string, session string, limit int) ([]CivicItem, error) {
	q := sq.Select(
		"id", "bill_number", "title", "summary", "status", "legislative_session",
		"chamber", "jurisdiction", "level", "source", "subject_tags", "external_url",
		"text_url", "inactive_at", "ai_summary", "ai_key_points",
		"ai_summary_generated_at", "last_action", "last_action_date",
		"created_at", "updated_at",
	).
		From("civic_items").
		Where(sq.Eq{"inactive_at": nil}).
		Where(sq.Eq{"status": statuses}).
		OrderBy("last_action_date DESC", "bill_number ASC").
		Limit(uint64(limit))

	if session != "" {
		q = q.Where(sq.Eq{"legislative_session": session})
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building candidate query: %w", err)
	}

	rows, err := db.conn.Query(sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

// UpdateItemSummary attaches an AI-generated summary to a civic item.
// Idempotent overwrite; never called with empty plain text by the scanner.
func (db *DB) UpdateItemSummary(id, plainSummary string, keyPoints []string) error {
	kp, err := json.Marshal(keyPoints)
	if err != nil {
		return fmt.Errorf("encoding key points: %w", err)
	}
	_, err = db.conn.Exec(
		`UPDATE civic_items
		 SET ai_summary = ?, ai_key_points = ?, ai_summary_generated_at = datetime('now'),
		     updated_at = datetime('now')
		 WHERE id = ?`,
		plainSummary, string(kp), id,
	)
	return err
}

// UpdateItemTextURL records a discovered document URL on the item itself.
func (db *DB) UpdateItemTextURL(id, textURL string) error {
	_, err := db.conn.Exec(
		"UPDATE civic_items SET text_url = ?, updated_at = datetime('now') WHERE id = ?",
		textURL, id,
	)
	return err
}

// DeactivateCivicItem soft-deletes an item. Items are never hard-deleted.
func (db *DB) DeactivateCivicItem(id string) error {
	_, err := db.conn.Exec(
		"UPDATE civic_items SET inactive_at = datetime('now'), updated_at = datetime('now') WHERE id = ?",
		id,
	)
	return err
}

func scanItems(rows *sql.Rows) ([]CivicItem, error) {
	var items []CivicItem
	for rows.Next() {
		item, err := scanItemFrom(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row *sql.Row) (*CivicItem, error) {
	return scanItemFrom(row)
}

func scanItemFrom(row rowScanner) (*CivicItem, error) {
	var item CivicItem
	var keyPoints *string
	if err := row.Scan(
		&item.ID, &item.BillNumber, &item.Title, &item.Summary, &item.Status,
		&item.LegislativeSession, &item.Chamber, &item.Jurisdiction, &item.Level,
		&item.Source, &item.SubjectTags, &item.ExternalURL, &item.TextURL,
		&item.InactiveAt, &item.AISummary, &keyPoints, &item.AISummaryGeneratedAt,
		&item.LastAction, &item.LastActionDate, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if keyPoints != nil && *keyPoints != "" {
		// Malformed stored JSON degrades to no key points rather than an error.
		json.Unmarshal([]byte(*keyPoints), &item.AIKeyPoints) //nolint: errcheck
	}
	return &item, nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
