// Package chat answers questions from the indexed site content.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fwojciec/sitechat"
	"github.com/google/uuid"
)

// Orchestrator defaults.
const (
	DefaultTopK          = 5
	DefaultHistoryWindow = 10
	DefaultMaxSources    = 3

	DefaultEmbedTimeout    = 30 * time.Second
	DefaultGenerateTimeout = 60 * time.Second

	DefaultSystemPrompt = "You are a helpful AI assistant for this website. Answer questions based on the provided context. If you cannot find the answer in the context, politely say that you don't have that information."

	// FallbackResponse replaces the answer when generation fails.
	FallbackResponse = "I apologize, but I'm having trouble generating a response right now. Please try again."

	untitled = "Untitled"
)

var _ sitechat.ChatService = (*Orchestrator)(nil)

// Orchestrator implements sitechat.ChatService with retrieval-augmented
// generation over a chunk index.
type Orchestrator struct {
	Sessions  sitechat.SessionService
	Embedder  sitechat.Embedder
	Index     sitechat.ChunkIndex
	Generator sitechat.Generator

	SystemPrompt string

	TopK          int
	HistoryWindow int
	MaxSources    int

	// MinScore drops retrieved chunks scoring below it. Zero keeps all.
	MinScore float32

	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration

	Logger *slog.Logger
}

// NewOrchestrator returns an Orchestrator with default settings.
func NewOrchestrator(
	sessions sitechat.SessionService,
	embedder sitechat.Embedder,
	index sitechat.ChunkIndex,
	generator sitechat.Generator,
) *Orchestrator {
	return &Orchestrator{
		Sessions:      sessions,
		Embedder:      embedder,
		Index:         index,
		Generator:     generator,
		SystemPrompt:  DefaultSystemPrompt,
		TopK:          DefaultTopK,
		HistoryWindow: DefaultHistoryWindow,
		MaxSources:    DefaultMaxSources,
	}
}

// Answer responds to a user message. Retrieval failures degrade to an
// ungrounded answer and generation failures to FallbackResponse; neither
// fails the call. Both turns are appended to the session.
func (o *Orchestrator) Answer(ctx context.Context, req sitechat.AnswerRequest) (*sitechat.Answer, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, sitechat.Errorf(sitechat.EINVALID, "message required")
	}

	sessionID, history, err := o.resolveSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if req.History != nil {
		history = req.History
	}

	logger := o.logger().With("session", sessionID)
	results := o.retrieve(ctx, message, logger)
	prompt := BuildPrompt(o.systemPrompt(), results, history, o.historyWindow(), message)

	response, err := o.generate(ctx, prompt)
	if err != nil {
		logger.Error("generation failed", "err", err)
		response = FallbackResponse
	}

	sources := ExtractSources(results, o.maxSources())
	now := time.Now().UTC()
	if err := o.Sessions.AppendMessages(ctx, sessionID,
		&sitechat.ChatMessage{Role: sitechat.RoleUser, Content: message, CreatedAt: now},
		&sitechat.ChatMessage{Role: sitechat.RoleAssistant, Content: response, Sources: sources, CreatedAt: now},
	); err != nil {
		return nil, err
	}

	return &sitechat.Answer{
		Response:    response,
		Sources:     sources,
		SessionID:   sessionID,
		ContextUsed: len(sources) > 0,
		Timestamp:   now,
	}, nil
}

// Stats describes the knowledge base and the configured models.
func (o *Orchestrator) Stats(ctx context.Context) (*sitechat.Stats, error) {
	n, err := o.Index.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	return &sitechat.Stats{
		TotalDocuments: n,
		Model:          o.Generator.Model(),
		EmbeddingModel: o.Embedder.Model(),
		TopK:           o.topK(),
	}, nil
}

// resolveSession returns the stored history of an existing session, or a
// fresh session ID when id is empty or unknown.
func (o *Orchestrator) resolveSession(ctx context.Context, id string) (string, []*sitechat.ChatMessage, error) {
	if id == "" {
		return uuid.New().String(), nil, nil
	}
	session, err := o.Sessions.FindSessionByID(ctx, id)
	if sitechat.ErrorCode(err) == sitechat.ENOTFOUND {
		return uuid.New().String(), nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return session.ID, session.Messages, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, message string, logger *slog.Logger) []sitechat.SearchResult {
	embedCtx, cancel := context.WithTimeout(ctx, o.embedTimeout())
	defer cancel()
	vec, err := o.Embedder.Embed(embedCtx, message)
	if err != nil {
		logger.Warn("query embedding failed, answering without context", "err", err)
		return nil
	}

	results, err := o.Index.Query(ctx, vec, o.topK())
	if err != nil {
		logger.Warn("index query failed, answering without context", "err", err)
		return nil
	}
	if o.MinScore == 0 {
		return results
	}
	kept := results[:0]
	for _, r := range results {
		if r.Score >= o.MinScore {
			kept = append(kept, r)
		}
	}
	return kept
}

func (o *Orchestrator) generate(ctx context.Context, prompt *sitechat.Prompt) (string, error) {
	timeout := o.GenerateTimeout
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return o.Generator.Generate(ctx, prompt)
}

// BuildPrompt assembles a prompt from retrieved chunks in similarity order,
// the last window history messages oldest first, and the new question.
func BuildPrompt(system string, results []sitechat.SearchResult, history []*sitechat.ChatMessage, window int, question string) *sitechat.Prompt {
	if window <= 0 {
		history = nil
	} else if len(history) > window {
		history = history[len(history)-window:]
	}
	return &sitechat.Prompt{
		System:   system,
		Context:  results,
		History:  history,
		Question: question,
	}
}

// ExtractSources lists the distinct source pages of results in first-seen
// order, at most limit of them. A limit of zero or less means no limit.
func ExtractSources(results []sitechat.SearchResult, limit int) []sitechat.Source {
	sources := []sitechat.Source{}
	seen := make(map[string]bool)
	for _, r := range results {
		if limit > 0 && len(sources) >= limit {
			break
		}
		if r.Chunk == nil || r.Chunk.SourceURL == "" || seen[r.Chunk.SourceURL] {
			continue
		}
		seen[r.Chunk.SourceURL] = true
		title := r.Chunk.Title
		if title == "" {
			title = untitled
		}
		sources = append(sources, sitechat.Source{URL: r.Chunk.SourceURL, Title: title})
	}
	return sources
}

func (o *Orchestrator) systemPrompt() string {
	if o.SystemPrompt != "" {
		return o.SystemPrompt
	}
	return DefaultSystemPrompt
}

func (o *Orchestrator) topK() int {
	if o.TopK > 0 {
		return o.TopK
	}
	return DefaultTopK
}

func (o *Orchestrator) historyWindow() int {
	if o.HistoryWindow > 0 {
		return o.HistoryWindow
	}
	return DefaultHistoryWindow
}

func (o *Orchestrator) maxSources() int {
	if o.MaxSources > 0 {
		return o.MaxSources
	}
	return DefaultMaxSources
}

func (o *Orchestrator) embedTimeout() time.Duration {
	if o.EmbedTimeout > 0 {
		return o.EmbedTimeout
	}
	return DefaultEmbedTimeout
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}
