package http

import (
	"net/http"
	"time"

	"github.com/fwojciec/sitechat"
)

type chatRequest struct {
	Message             string           `json:"message" validate:"required"`
	SessionID           string           `json:"session_id"`
	ConversationHistory []historyMessage `json:"conversation_history" validate:"omitempty,dive"`
}

type historyMessage struct {
	Role    string `json:"role" validate:"oneof=user assistant"`
	Content string `json:"content"`
}

type sessionResponse struct {
	SessionID string                  `json:"session_id"`
	Messages  []*sitechat.ChatMessage `json:"messages"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decode(w, r, &req); err != nil {
		s.Error(w, r, err)
		return
	}

	answerReq := sitechat.AnswerRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
	}
	if req.ConversationHistory != nil {
		answerReq.History = make([]*sitechat.ChatMessage, 0, len(req.ConversationHistory))
		for _, m := range req.ConversationHistory {
			answerReq.History = append(answerReq.History, &sitechat.ChatMessage{Role: m.Role, Content: m.Content})
		}
	}

	answer, err := s.ChatService.Answer(r.Context(), answerReq)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, answer)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ChatService.Stats(r.Context())
	if err != nil {
		s.Error(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, stats)
}

func (s *Server) handleSessionIndex(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.SessionService.FindSessions(r.Context())
	if err != nil {
		s.Error(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*sitechat.SessionSummary{}
	}
	s.writeJSON(w, r, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleSessionView(w http.ResponseWriter, r *http.Request) {
	session, err := s.SessionService.FindSessionByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	messages := session.Messages
	if messages == nil {
		messages = []*sitechat.ChatMessage{}
	}
	s.writeJSON(w, r, http.StatusOK, sessionResponse{
		SessionID: session.ID,
		Messages:  messages,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	})
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.SessionService.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		s.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
