// Package sqlite archives session snapshots for post-hoc forensics.
// The in-memory store remains the source of truth for live traffic;
// this is an audit trail that survives restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/karanvs/scambait/internal/domain"
	"github.com/karanvs/scambait/internal/session"
)

// Archive is a SQLite-backed session archive.
type Archive struct {
	db *sql.DB
}

var _ session.Archiver = (*Archive)(nil)

// New opens (or creates) the archive database at path.
func New(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	a := &Archive{db: db}
	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return a, nil
}

func (a *Archive) initSchema() error {
	_, err := a.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		turn_count INTEGER NOT NULL,
		scam_detected INTEGER NOT NULL,
		scam_type TEXT,
		confidence REAL NOT NULL,
		callback_sent INTEGER NOT NULL,
		intelligence TEXT NOT NULL,
		history TEXT NOT NULL,
		notes TEXT,
		created_at TIMESTAMP NOT NULL,
		last_active_at TIMESTAMP NOT NULL,
		archived_at TIMESTAMP NOT NULL
	)`)
	return err
}

// Archive persists a snapshot. Re-archiving the same session id
// replaces the previous row with the newer snapshot.
func (a *Archive) Archive(ctx context.Context, s session.Session) error {
	intel, err := json.Marshal(s.Intel)
	if err != nil {
		return fmt.Errorf("failed to marshal intelligence: %w", err)
	}
	history, err := json.Marshal(s.History)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	notes, err := json.Marshal(s.Notes)
	if err != nil {
		return fmt.Errorf("failed to marshal notes: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `INSERT INTO sessions
		(id, turn_count, scam_detected, scam_type, confidence, callback_sent,
		 intelligence, history, notes, created_at, last_active_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			turn_count = excluded.turn_count,
			scam_detected = excluded.scam_detected,
			scam_type = excluded.scam_type,
			confidence = excluded.confidence,
			callback_sent = excluded.callback_sent,
			intelligence = excluded.intelligence,
			history = excluded.history,
			notes = excluded.notes,
			last_active_at = excluded.last_active_at,
			archived_at = excluded.archived_at`,
		s.ID, s.TurnCount, boolToInt(s.Verdict.Detected), string(s.Verdict.Type),
		s.Verdict.Confidence, boolToInt(s.CallbackSent),
		string(intel), string(history), string(notes),
		s.CreatedAt, s.LastActiveAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	return nil
}

// Get loads an archived snapshot by session id.
func (a *Archive) Get(ctx context.Context, id string) (session.Session, error) {
	row := a.db.QueryRowContext(ctx, `SELECT id, turn_count, scam_detected,
		scam_type, confidence, callback_sent, intelligence, history, notes,
		created_at, last_active_at FROM sessions WHERE id = ?`, id)

	var (
		s                      session.Session
		detected, callbackSent int
		scamType               string
		intel, history, notes  string
	)
	err := row.Scan(&s.ID, &s.TurnCount, &detected, &scamType, &s.Verdict.Confidence,
		&callbackSent, &intel, &history, &notes, &s.CreatedAt, &s.LastActiveAt)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	s.Verdict.Detected = detected != 0
	s.Verdict.Type = domain.ScamType(scamType)
	s.CallbackSent = callbackSent != 0
	if err := json.Unmarshal([]byte(intel), &s.Intel); err != nil {
		return session.Session{}, fmt.Errorf("failed to unmarshal intelligence: %w", err)
	}
	if err := json.Unmarshal([]byte(history), &s.History); err != nil {
		return session.Session{}, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if notes != "" {
		if err := json.Unmarshal([]byte(notes), &s.Notes); err != nil {
			return session.Session{}, fmt.Errorf("failed to unmarshal notes: %w", err)
		}
	}
	return s, nil
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
