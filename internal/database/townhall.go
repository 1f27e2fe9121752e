package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const threadLimitCap = 100

// InsertThread creates a town-hall thread and returns its generated id
// and creation timestamp.
func (db *DB) InsertThread(userID string, voterID, county *string, title, prompt string, billID, topicSlugs *string) (string, string, error) {
	id := uuid.NewString()
	row := db.conn.QueryRow(
		`INSERT INTO townhall_threads
			(id, user_id, voter_id, county, title, prompt, bill_id, topic_slugs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING created_at`,
		id, userID, voterID, county, title, prompt, billID, topicSlugs,
	)
	var createdAt string
	if err := row.Scan(&createdAt); err != nil {
		return "", "", err
	}
	return id, createdAt, nil
}

// ListThreads returns threads newest first, optionally filtered by county.
// The limit is capped at 100.
func (db *DB) ListThreads(county string, limit int) ([]Thread, error) {
	if limit <= 0 || limit > threadLimitCap {
		limit = threadLimitCap
	}

	query := `SELECT id, user_id, voter_id, county, title, prompt, bill_id, topic_slugs, created_at
		FROM townhall_threads`
	var args []any
	if county != "" {
		query += " WHERE county = ?"
		args = append(args, county)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.UserID, &t.VoterID, &t.County, &t.Title,
			&t.Prompt, &t.BillID, &t.TopicSlugs, &t.CreatedAt); err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// GetThread returns one thread, or nil if not found.
func (db *DB) GetThread(id string) (*Thread, error) {
	row := db.conn.QueryRow(
		`SELECT id, user_id, voter_id, county, title, prompt, bill_id, topic_slugs, created_at
		 FROM townhall_threads WHERE id = ?`, id,
	)
	var t Thread
	err := row.Scan(&t.ID, &t.UserID, &t.VoterID, &t.County, &t.Title,
		&t.Prompt, &t.BillID, &t.TopicSlugs, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertPost adds a reply to an existing thread.
func (db *DB) InsertPost(threadID, userID string, voterID *string, body string) (string, string, error) {
	var exists int
	if err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM townhall_threads WHERE id = ?", threadID,
	).Scan(&exists); err != nil {
		return "", "", err
	}
	if exists == 0 {
		return "", "", fmt.Errorf("thread %s not found", threadID)
	}

	id := uuid.NewString()
	row := db.conn.QueryRow(
		`INSERT INTO townhall_posts (id, thread_id, user_id, voter_id, body)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING created_at`,
		id, threadID, userID, voterID, body,
	)
	var createdAt string
	if err := row.Scan(&createdAt); err != nil {
		return "", "", err
	}
	return id, createdAt, nil
}

// ListPosts returns the replies of a thread, oldest first.
func (db *DB) ListPosts(threadID string) ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT id, thread_id, user_id, voter_id, body, created_at
		 FROM townhall_posts WHERE thread_id = ? ORDER BY created_at, id`, threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.ThreadID, &p.UserID, &p.VoterID, &p.Body, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
