package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/sitechat"
)

// Compile-time interface verification.
var _ sitechat.SessionService = (*SessionService)(nil)

// SessionService implements sitechat.SessionService using SQLite.
// Appends run in a transaction that numbers messages after the latest
// stored one, so concurrent appends to one session never overwrite each other.
type SessionService struct {
	db *DB
}

// NewSessionService creates a new SessionService.
func NewSessionService(db *DB) *SessionService {
	return &SessionService{db: db}
}

// FindSessionByID retrieves a session with its messages in insertion order.
func (s *SessionService) FindSessionByID(ctx context.Context, id string) (*sitechat.Session, error) {
	session := sitechat.Session{ID: id, Messages: []*sitechat.ChatMessage{}}
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `SELECT created_at, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sitechat.Errorf(sitechat.ENOTFOUND, "session not found")
	}
	if err != nil {
		return nil, err
	}
	if session.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, sources, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg sitechat.ChatMessage
		var sources, created string
		if err := rows.Scan(&msg.Role, &msg.Content, &sources, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sources), &msg.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
		if msg.CreatedAt, err = parseTime(created, "created_at"); err != nil {
			return nil, err
		}
		session.Messages = append(session.Messages, &msg)
	}

	return &session, rows.Err()
}

// AppendMessages appends msgs to the session, creating it if it does not exist.
// Messages without a timestamp are stamped with the current time.
func (s *SessionService) AppendMessages(ctx context.Context, id string, msgs ...*sitechat.ChatMessage) error {
	if id == "" {
		return sitechat.Errorf(sitechat.EINVALID, "session ID required")
	}
	for _, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return err
		}
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
	`, id, formatTime(now), formatTime(now)); err != nil {
		return err
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE session_id = ?`, id,
	).Scan(&next); err != nil {
		return err
	}

	for i, msg := range msgs {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		sources := msg.Sources
		if sources == nil {
			sources = []sitechat.Source{}
		}
		encoded, err := json.Marshal(sources)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (session_id, seq, role, content, sources, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, next+i, msg.Role, msg.Content, string(encoded), formatTime(msg.CreatedAt)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FindSessions returns session summaries, most recently updated first.
func (s *SessionService) FindSessions(ctx context.Context) ([]*sitechat.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
			COALESCE((SELECT m.content FROM messages m WHERE m.session_id = s.id ORDER BY m.seq DESC LIMIT 1), '')
		FROM sessions s
		ORDER BY s.updated_at DESC, s.rowid DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []*sitechat.SessionSummary{}
	for rows.Next() {
		var sum sitechat.SessionSummary
		var updatedAt string
		if err := rows.Scan(&sum.ID, &updatedAt, &sum.MessageCount, &sum.LastMessage); err != nil {
			return nil, err
		}
		if sum.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
			return nil, err
		}
		summaries = append(summaries, &sum)
	}

	return summaries, rows.Err()
}

// DeleteSession removes a session and its messages.
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sitechat.Errorf(sitechat.ENOTFOUND, "session not found")
	}

	return nil
}
