package database

import "database/sql"

// GetVerifiedUser returns the verified-voter record for a user, or nil
// when the user has not been matched to a voter registration.
func (db *DB) GetVerifiedUser(userID string) (*VerifiedUser, error) {
	row := db.conn.QueryRow(
		`SELECT user_id, voter_id, county, house, senate, status
		 FROM verified_users WHERE user_id = ? AND status = 'verified'`, userID,
	)
	var v VerifiedUser
	err := row.Scan(&v.UserID, &v.VoterID, &v.County, &v.House, &v.Senate, &v.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetVerifiedUserByVoterID looks a verified record up by voter id. Used by
// the direct delegation lookup for testing and admin tooling.
func (db *DB) GetVerifiedUserByVoterID(voterID string) (*VerifiedUser, error) {
	row := db.conn.QueryRow(
		`SELECT user_id, voter_id, county, house, senate, status
		 FROM verified_users WHERE voter_id = ? AND status = 'verified'`, voterID,
	)
	var v VerifiedUser
	err := row.Scan(&v.UserID, &v.VoterID, &v.County, &v.House, &v.Senate, &v.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// UpsertVerifiedUser records or refreshes a user's voter verification.
func (db *DB) UpsertVerifiedUser(v *VerifiedUser) error {
	status := v.Status
	if status == "" {
		status = "verified"
	}
	_, err := db.conn.Exec(
		`INSERT INTO verified_users (user_id, voter_id, county, house, senate, status)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			voter_id = excluded.voter_id,
			county = excluded.county,
			house = excluded.house,
			senate = excluded.senate,
			status = excluded.status`,
		v.UserID, v.VoterID, v.County, v.House, v.Senate, status,
	)
	return err
}

// GetLegislator returns the legislator for a chamber and district, or nil.
func (db *DB) GetLegislator(chamber, districtNumber string) (*Legislator, error) {
	row := db.conn.QueryRow(
		`SELECT id, name, chamber, district_number, district_label,
			contact_email, contact_phone, website_url, bio
		 FROM wy_legislators WHERE chamber = ? AND district_number = ?`,
		chamber, districtNumber,
	)
	var l Legislator
	err := row.Scan(&l.ID, &l.Name, &l.Chamber, &l.DistrictNumber, &l.DistrictLabel,
		&l.ContactEmail, &l.ContactPhone, &l.WebsiteURL, &l.Bio)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// InsertLegislator adds a legislator row (used by ingestion and tests).
func (db *DB) InsertLegislator(l *Legislator) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO wy_legislators
			(name, chamber, district_number, district_label, contact_email,
			 contact_phone, website_url, bio)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Name, l.Chamber, l.DistrictNumber, l.DistrictLabel,
		l.ContactEmail, l.ContactPhone, l.WebsiteURL, l.Bio,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// LookupToken resolves an opaque bearer token to a user id.
// Returns "" when the token is unknown.
func (db *DB) LookupToken(token string) (string, error) {
	var userID string
	err := db.conn.QueryRow(
		"SELECT user_id FROM auth_tokens WHERE token = ?", token,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

// InsertToken registers a bearer token for a user.
func (db *DB) InsertToken(token, userID string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO auth_tokens (token, user_id) VALUES (?, ?)",
		token, userID,
	)
	return err
}
