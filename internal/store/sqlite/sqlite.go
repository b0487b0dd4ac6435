// Package sqlite keeps sessions and trajectories in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/career"
	"github.com/spigell/career-planner/internal/profile"
	"github.com/spigell/career-planner/internal/store"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		interview_done INTEGER NOT NULL DEFAULT 0,
		profile_json TEXT,
		transcript_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS trajectories (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		doc TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trajectories_user ON trajectories(user_id, created_at);
`

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

// PutSession inserts or replaces a session.
func (s *Store) PutSession(ctx context.Context, sess store.Session) error {
	var profileJSON sql.NullString
	if sess.Profile != nil {
		data, err := json.Marshal(sess.Profile)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		profileJSON = sql.NullString{String: string(data), Valid: true}
	}

	turns := sess.Transcript
	if turns == nil {
		turns = []ai.Turn{}
	}
	transcript, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, interview_done, profile_json, transcript_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			user_id = excluded.user_id,
			interview_done = excluded.interview_done,
			profile_json = excluded.profile_json,
			transcript_json = excluded.transcript_json`,
		sess.ID, sess.UserID, sess.Done, profileJSON, string(transcript))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) Session(ctx context.Context, sessionID string) (*store.Session, error) {
	var (
		userID      string
		done        bool
		profileJSON sql.NullString
		transcript  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, interview_done, profile_json, transcript_json FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&userID, &done, &profileJSON, &transcript)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %q: %w", sessionID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	sess := &store.Session{ID: sessionID, UserID: userID, Done: done}
	if profileJSON.Valid && profileJSON.String != "" {
		p, err := profile.DecodeJSON([]byte(profileJSON.String))
		if err != nil {
			return nil, fmt.Errorf("session %q: %w", sessionID, err)
		}
		sess.Profile = p
	}
	if err := json.Unmarshal([]byte(transcript), &sess.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return sess, nil
}

func (s *Store) Upsert(ctx context.Context, rec store.Record) error {
	doc, err := json.Marshal(rec.Trajectory)
	if err != nil {
		return fmt.Errorf("encode trajectory: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trajectories (session_id, user_id, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			user_id = excluded.user_id,
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
		rec.SessionID, rec.UserID, string(doc), rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert trajectory: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (*store.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, doc, created_at, updated_at FROM trajectories WHERE session_id = ?`, sessionID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trajectory %q: %w", sessionID, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListByUser returns the user's trajectories, newest first. A non-positive
// limit returns all of them.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, doc, created_at, updated_at FROM trajectories
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list trajectories: %w", err)
	}
	defer rows.Close()

	var recs []store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trajectories: %w", err)
	}
	return recs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*store.Record, error) {
	var (
		rec                  store.Record
		doc                  string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&rec.UserID, &doc, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var tr career.Trajectory
	if err := json.Unmarshal([]byte(doc), &tr); err != nil {
		return nil, fmt.Errorf("decode trajectory: %w", err)
	}
	rec.Trajectory = tr
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &rec, nil
}
