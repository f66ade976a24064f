// Package session holds per-conversation state: an ordered, bounded list of
// turns keyed by an opaque session identifier.
package session

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message exchange unit. Immutable once appended.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Info describes a session without its transcript.
type Info struct {
	SessionID   string
	CreatedAt   time.Time
	LastUpdated time.Time
	TurnCount   int
}

// Store is the session storage contract. A session comes into existence on
// the first Append for an unseen identifier; Get on an unseen identifier
// returns (nil, nil) rather than an error.
type Store interface {
	Get(ctx context.Context, id string) ([]Turn, error)
	Append(ctx context.Context, id string, turns ...Turn) error
	Info(ctx context.Context, id string) (*Info, error)
	Clear(ctx context.Context, id string) error
	Close() error
}

// Window returns the most recent max turns for prompt context.
func Window(turns []Turn, max int) []Turn {
	if max <= 0 || len(turns) <= max {
		return turns
	}
	return turns[len(turns)-max:]
}

// NewTurn stamps a turn with the current time.
func NewTurn(role, content string) Turn {
	return Turn{Role: role, Content: content, Timestamp: time.Now()}
}
