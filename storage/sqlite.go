package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"listflow/models"
)

// Journal persists the in-progress draft locally so a crashed session can
// be restored. Opt-in: the pipeline runs without one and a page-reload
// equivalent then discards the draft.
type Journal struct {
	db *sql.DB
}

func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS drafts (
		session_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Save snapshots the draft for the session, replacing any previous snapshot.
func (j *Journal) Save(sessionID string, d models.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = j.db.Exec(`
		INSERT INTO drafts (session_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		sessionID, string(data), time.Now())
	return err
}

// Load returns the saved draft for the session, or nil when none exists.
func (j *Journal) Load(sessionID string) (*models.Draft, error) {
	var payload string
	err := j.db.QueryRow(`SELECT payload FROM drafts WHERE session_id = ?`, sessionID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var d models.Draft
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Discard drops the session's snapshot, called after a successful submit.
func (j *Journal) Discard(sessionID string) error {
	_, err := j.db.Exec(`DELETE FROM drafts WHERE session_id = ?`, sessionID)
	return err
}
