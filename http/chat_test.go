package http_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/fwojciec/sitechat"
	sitechathttp "github.com/fwojciec/sitechat/http"
	"github.com/fwojciec/sitechat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Chat(t *testing.T) {
	t.Parallel()

	t.Run("returns answer with sources", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		var got sitechat.AnswerRequest
		s := sitechathttp.NewServer()
		s.ChatService = &mock.ChatService{
			AnswerFn: func(_ context.Context, req sitechat.AnswerRequest) (*sitechat.Answer, error) {
				got = req
				return &sitechat.Answer{
					Response:    "Plans start at $9/month.",
					Sources:     []sitechat.Source{{URL: "https://example.com/pricing", Title: "Pricing"}},
					SessionID:   "sess-1",
					ContextUsed: true,
					Timestamp:   now,
				}, nil
			},
		}

		rec := serve(t, s, http.MethodPost, "/api/chat", `{"message":"How much?","session_id":"sess-1"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"response": "Plans start at $9/month.",
			"sources": [{"url": "https://example.com/pricing", "title": "Pricing"}],
			"session_id": "sess-1",
			"context_used": true,
			"timestamp": "2026-03-01T12:00:00Z"
		}`, rec.Body.String())
		assert.Equal(t, "How much?", got.Message)
		assert.Equal(t, "sess-1", got.SessionID)
		assert.Nil(t, got.History)
	})

	t.Run("passes conversation history", func(t *testing.T) {
		t.Parallel()

		var got sitechat.AnswerRequest
		s := sitechathttp.NewServer()
		s.ChatService = &mock.ChatService{
			AnswerFn: func(_ context.Context, req sitechat.AnswerRequest) (*sitechat.Answer, error) {
				got = req
				return &sitechat.Answer{Sources: []sitechat.Source{}}, nil
			},
		}

		rec := serve(t, s, http.MethodPost, "/api/chat", `{
			"message": "And annually?",
			"conversation_history": [
				{"role": "user", "content": "How much?"},
				{"role": "assistant", "content": "$9/month."}
			]
		}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, got.History, 2)
		assert.Equal(t, sitechat.RoleUser, got.History[0].Role)
		assert.Equal(t, "How much?", got.History[0].Content)
		assert.Equal(t, sitechat.RoleAssistant, got.History[1].Role)
	})

	t.Run("passes empty history as override", func(t *testing.T) {
		t.Parallel()

		var got sitechat.AnswerRequest
		s := sitechathttp.NewServer()
		s.ChatService = &mock.ChatService{
			AnswerFn: func(_ context.Context, req sitechat.AnswerRequest) (*sitechat.Answer, error) {
				got = req
				return &sitechat.Answer{Sources: []sitechat.Source{}}, nil
			},
		}

		rec := serve(t, s, http.MethodPost, "/api/chat", `{"message":"Hi","conversation_history":[]}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotNil(t, got.History)
		assert.Empty(t, got.History)
	})

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing message", `{"session_id":"x"}`, "message is required"},
		{"invalid history role", `{"message":"Hi","conversation_history":[{"role":"system","content":"x"}]}`, "role must be one of: user assistant"},
		{"malformed JSON", `not json`, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := sitechathttp.NewServer()
			s.ChatService = &mock.ChatService{
				AnswerFn: func(_ context.Context, _ sitechat.AnswerRequest) (*sitechat.Answer, error) {
					t.Fatal("Answer should not be called")
					return nil, nil
				},
			}

			rec := serve(t, s, http.MethodPost, "/api/chat", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decodeBody(t, rec)["error"])
		})
	}

	t.Run("maps blank message error to 400", func(t *testing.T) {
		t.Parallel()

		s := sitechathttp.NewServer()
		s.ChatService = &mock.ChatService{
			AnswerFn: func(_ context.Context, _ sitechat.AnswerRequest) (*sitechat.Answer, error) {
				return nil, sitechat.Errorf(sitechat.EINVALID, "message required")
			},
		}

		rec := serve(t, s, http.MethodPost, "/api/chat", `{"message":"   "}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Stats(t *testing.T) {
	t.Parallel()

	s := sitechathttp.NewServer()
	s.ChatService = &mock.ChatService{
		StatsFn: func(_ context.Context) (*sitechat.Stats, error) {
			return &sitechat.Stats{
				TotalDocuments: 42,
				Model:          "gemini-2.5-flash",
				EmbeddingModel: "gemini-embedding-001",
				TopK:           5,
			}, nil
		},
	}

	rec := serve(t, s, http.MethodGet, "/api/chat/stats", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"total_documents": 42,
		"model": "gemini-2.5-flash",
		"embedding_model": "gemini-embedding-001",
		"top_k": 5
	}`, rec.Body.String())
}

func TestServer_Sessions(t *testing.T) {
	t.Parallel()

	t.Run("lists summaries", func(t *testing.T) {
		t.Parallel()

		updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		s := sitechathttp.NewServer()
		s.SessionService = &mock.SessionService{
			FindSessionsFn: func(_ context.Context) ([]*sitechat.SessionSummary, error) {
				return []*sitechat.SessionSummary{
					{ID: "sess-1", LastMessage: "Thanks!", UpdatedAt: updated, MessageCount: 4},
				}, nil
			},
		}

		rec := serve(t, s, http.MethodGet, "/api/chat/sessions", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sessions":[{
			"session_id": "sess-1",
			"last_message": "Thanks!",
			"updated_at": "2026-03-01T12:00:00Z",
			"message_count": 4
		}]}`, rec.Body.String())
	})

	t.Run("lists empty sessions as empty array", func(t *testing.T) {
		t.Parallel()

		s := sitechathttp.NewServer()
		s.SessionService = &mock.SessionService{
			FindSessionsFn: func(_ context.Context) ([]*sitechat.SessionSummary, error) {
				return nil, nil
			},
		}

		rec := serve(t, s, http.MethodGet, "/api/chat/sessions", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"sessions":[]}`, rec.Body.String())
	})

	t.Run("returns session messages", func(t *testing.T) {
		t.Parallel()

		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		s := sitechathttp.NewServer()
		s.SessionService = &mock.SessionService{
			FindSessionByIDFn: func(_ context.Context, id string) (*sitechat.Session, error) {
				assert.Equal(t, "sess-1", id)
				return &sitechat.Session{
					ID: "sess-1",
					Messages: []*sitechat.ChatMessage{
						{Role: sitechat.RoleUser, Content: "How much?", CreatedAt: at},
						{Role: sitechat.RoleAssistant, Content: "$9/month.", Sources: []sitechat.Source{{URL: "https://example.com/pricing", Title: "Pricing"}}, CreatedAt: at},
					},
					CreatedAt: at,
					UpdatedAt: at,
				}, nil
			},
		}

		rec := serve(t, s, http.MethodGet, "/api/chat/sessions/sess-1", "")

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "sess-1", body["session_id"])
		messages := body["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "user", messages[0].(map[string]any)["role"])
		assert.Equal(t, "$9/month.", messages[1].(map[string]any)["content"])
		assert.Equal(t, "2026-03-01T12:00:00Z", messages[1].(map[string]any)["timestamp"])
	})

	t.Run("returns 404 for unknown session", func(t *testing.T) {
		t.Parallel()

		s := sitechathttp.NewServer()
		s.SessionService = &mock.SessionService{
			FindSessionByIDFn: func(_ context.Context, _ string) (*sitechat.Session, error) {
				return nil, sitechat.Errorf(sitechat.ENOTFOUND, "session not found")
			},
		}

		rec := serve(t, s, http.MethodGet, "/api/chat/sessions/nope", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("deletes session", func(t *testing.T) {
		t.Parallel()

		var deleted string
		s := sitechathttp.NewServer()
		s.SessionService = &mock.SessionService{
			DeleteSessionFn: func(_ context.Context, id string) error {
				deleted = id
				return nil
			},
		}

		rec := serve(t, s, http.MethodDelete, "/api/chat/sessions/sess-1", "")

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "sess-1", deleted)
	})

	t.Run("delete returns 404 for unknown session", func(t *testing.T) {
		t.Parallel()

		s := sitechathttp.NewServer()
		s.SessionService = &mock.SessionService{
			DeleteSessionFn: func(_ context.Context, _ string) error {
				return sitechat.Errorf(sitechat.ENOTFOUND, "session not found")
			},
		}

		rec := serve(t, s, http.MethodDelete, "/api/chat/sessions/nope", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
