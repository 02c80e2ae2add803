package sitechat

import (
	"context"
	"time"
)

// AnswerRequest is a user question with optional conversation context.
type AnswerRequest struct {
	Message   string
	SessionID string

	// History, when non-nil, replaces the stored session history as prompt
	// input. The exchange is still appended to the session.
	History []*ChatMessage
}

// Answer is a generated response with attribution.
type Answer struct {
	Response    string    `json:"response"`
	Sources     []Source  `json:"sources"`
	SessionID   string    `json:"session_id"`
	ContextUsed bool      `json:"context_used"`
	Timestamp   time.Time `json:"timestamp"`
}

// Stats describes the knowledge base and the models serving it.
type Stats struct {
	TotalDocuments int    `json:"total_documents"`
	Model          string `json:"model"`
	EmbeddingModel string `json:"embedding_model"`
	TopK           int    `json:"top_k"`
}

// ChatService is the question-answering surface exposed to transports.
type ChatService interface {
	Answer(ctx context.Context, req AnswerRequest) (*Answer, error)
	Stats(ctx context.Context) (*Stats, error)
}
