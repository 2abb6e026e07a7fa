package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/qyzk/ohno/internal/gateway"
)

// SQLiteSessionCache implements gateway.Cache backed by SQLite. The cache
// holds at most one session, kept in a single fixed row so Load and Store
// stay trivial.
type SQLiteSessionCache struct {
	db *DB
}

// NewSQLiteSessionCache creates a session cache using the given database.
func NewSQLiteSessionCache(db *DB) *SQLiteSessionCache {
	return &SQLiteSessionCache{db: db}
}

// Load reads the cached session. An empty cache comes back as a zero
// Session, not an error.
func (c *SQLiteSessionCache) Load() (gateway.Session, error) {
	var id sql.NullString
	var seq sql.NullInt64

	err := c.db.sql.QueryRow(
		`SELECT session_id, last_event_sequence FROM gateway_session WHERE id = 1`,
	).Scan(&id, &seq)
	if err == sql.ErrNoRows {
		return gateway.Session{}, nil
	}
	if err != nil {
		return gateway.Session{}, fmt.Errorf("loading session: %w", err)
	}

	var sess gateway.Session
	if id.Valid {
		sess.ID = id.String
	}
	if seq.Valid {
		v := seq.Int64
		sess.LastSeq = &v
	}
	return sess, nil
}

// Store overwrites the cached session. The write has committed by the time
// Store returns.
func (c *SQLiteSessionCache) Store(sess gateway.Session) error {
	var id sql.NullString
	if sess.ID != "" {
		id = sql.NullString{String: sess.ID, Valid: true}
	}
	var seq sql.NullInt64
	if sess.LastSeq != nil {
		seq = sql.NullInt64{Int64: *sess.LastSeq, Valid: true}
	}

	_, err := c.db.sql.Exec(
		`UPDATE gateway_session SET session_id = ?, last_event_sequence = ?, updated_at = ? WHERE id = 1`,
		id, seq, time.Now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}
