// Package store persists completed chat exchanges to Postgres for later
// review. Sessions themselves stay in the session package; this log is
// write-mostly and optional.
package store

import (
	"context"
	"fmt"
	"time"

	"jhimki-stock-backend/internal/db"
)

// TranscriptStore records one row per completed exchange.
type TranscriptStore struct {
	db *db.DB
}

func NewTranscriptStore(database *db.DB) *TranscriptStore {
	return &TranscriptStore{db: database}
}

// Exchange is one user message and the reply it produced.
type Exchange struct {
	SessionID      string
	UserMessage    string
	AssistantReply string
	Action         string
	CreatedAt      time.Time
}

// SaveExchange appends an exchange to the log.
func (ts *TranscriptStore) SaveExchange(ctx context.Context, sessionID, userMessage, assistantReply, action string) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	_, err := ts.db.ExecContext(ctx, `
		INSERT INTO exchanges (session_id, user_message, assistant_reply, action, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, sessionID, userMessage, assistantReply, action)
	if err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	return nil
}

// RecentExchanges returns the newest exchanges for a session, newest first.
func (ts *TranscriptStore) RecentExchanges(ctx context.Context, sessionID string, limit int) ([]Exchange, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := ts.db.QueryContext(ctx, `
		SELECT session_id, user_message, assistant_reply, action, created_at
		FROM exchanges
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.SessionID, &e.UserMessage, &e.AssistantReply, &e.Action, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
