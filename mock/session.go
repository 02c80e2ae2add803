package mock

import (
	"context"

	"github.com/fwojciec/sitechat"
)

var _ sitechat.SessionService = (*SessionService)(nil)

// SessionService is a mock implementation of sitechat.SessionService.
type SessionService struct {
	FindSessionByIDFn func(ctx context.Context, id string) (*sitechat.Session, error)
	AppendMessagesFn  func(ctx context.Context, id string, msgs ...*sitechat.ChatMessage) error
	FindSessionsFn    func(ctx context.Context) ([]*sitechat.SessionSummary, error)
	DeleteSessionFn   func(ctx context.Context, id string) error
}

func (s *SessionService) FindSessionByID(ctx context.Context, id string) (*sitechat.Session, error) {
	return s.FindSessionByIDFn(ctx, id)
}

func (s *SessionService) AppendMessages(ctx context.Context, id string, msgs ...*sitechat.ChatMessage) error {
	return s.AppendMessagesFn(ctx, id, msgs...)
}

func (s *SessionService) FindSessions(ctx context.Context) ([]*sitechat.SessionSummary, error) {
	return s.FindSessionsFn(ctx)
}

func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	return s.DeleteSessionFn(ctx, id)
}

var _ sitechat.ChatService = (*ChatService)(nil)

// ChatService is a mock implementation of sitechat.ChatService.
type ChatService struct {
	AnswerFn func(ctx context.Context, req sitechat.AnswerRequest) (*sitechat.Answer, error)
	StatsFn  func(ctx context.Context) (*sitechat.Stats, error)
}

func (s *ChatService) Answer(ctx context.Context, req sitechat.AnswerRequest) (*sitechat.Answer, error) {
	return s.AnswerFn(ctx, req)
}

func (s *ChatService) Stats(ctx context.Context) (*sitechat.Stats, error) {
	return s.StatsFn(ctx)
}
