package database

import "database/sql"

// InsertEvent inserts an event. Returns the ID on success, or the ID of
// the existing event when the content hash is a duplicate (0 never happens
// for a successful insert).
func (db *DB) InsertEvent(e *Event) (int64, bool, error) {
	result, err := db.conn.Exec(
		`INSERT INTO events
			(user_id, name, date, location, description, sponsor, contact_email,
			 contact_phone, lat, lng, pdf_key, pdf_hash, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Name, e.Date, e.Location, e.Description, e.Sponsor,
		e.ContactEmail, e.ContactPhone, e.Lat, e.Lng, e.PDFKey, e.PDFHash, e.Source,
	)
	if err != nil {
		// Hash collision means the same content was already submitted.
		if e.PDFHash != nil {
			if existing, lookupErr := db.GetEventByHash(*e.PDFHash); lookupErr == nil && existing != nil {
				return existing.ID, true, nil
			}
		}
		return 0, false, err
	}
	id, err := result.LastInsertId()
	return id, false, err
}

// GetEventByHash returns the event with the given content hash, or nil.
func (db *DB) GetEventByHash(hash string) (*Event, error) {
	row := db.conn.QueryRow(
		`SELECT id, user_id, name, date, location, description, sponsor, contact_email,
			contact_phone, lat, lng, pdf_key, pdf_hash, source, created_at
		 FROM events WHERE pdf_hash = ?`, hash,
	)
	e, err := scanEventFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListUpcomingEvents returns events dated today or later, soonest first.
func (db *DB) ListUpcomingEvents() ([]Event, error) {
	rows, err := db.conn.Query(
		`SELECT id, user_id, name, date, location, description, sponsor, contact_email,
			contact_phone, lat, lng, pdf_key, pdf_hash, source, created_at
		 FROM events WHERE date >= date('now') ORDER BY date, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEventFrom(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func scanEventFrom(row rowScanner) (*Event, error) {
	var e Event
	if err := row.Scan(&e.ID, &e.UserID, &e.Name, &e.Date, &e.Location,
		&e.Description, &e.Sponsor, &e.ContactEmail, &e.ContactPhone,
		&e.Lat, &e.Lng, &e.PDFKey, &e.PDFHash, &e.Source, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
