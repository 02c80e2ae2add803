package sitechat

import (
	"context"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is an ordered, append-only conversation.
type Session struct {
	ID        string         `json:"id"`
	Messages  []*ChatMessage `json:"messages"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ChatMessage is one turn of a conversation. It is immutable once appended.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// Validate returns an error if the message contains invalid fields.
func (m *ChatMessage) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return Errorf(EINVALID, "invalid message role %q", m.Role)
	}
	return nil
}

// Source attributes an answer to a crawled page.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SessionSummary describes a session without its messages.
type SessionSummary struct {
	ID           string    `json:"session_id"`
	LastMessage  string    `json:"last_message"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// SessionService represents a service for storing conversations.
type SessionService interface {
	// FindSessionByID retrieves a session with all its messages in order.
	// Returns ENOTFOUND if the session does not exist.
	FindSessionByID(ctx context.Context, id string) (*Session, error)

	// AppendMessages appends msgs to the session, creating it if needed.
	// Messages are appended atomically after the latest stored message.
	AppendMessages(ctx context.Context, id string, msgs ...*ChatMessage) error

	// FindSessions returns summaries, most recently updated first.
	FindSessions(ctx context.Context) ([]*SessionSummary, error)

	// DeleteSession removes a session and all its messages.
	// Returns ENOTFOUND if the session does not exist.
	DeleteSession(ctx context.Context, id string) error
}
