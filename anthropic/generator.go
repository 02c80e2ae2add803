// Package anthropic provides generation backed by Anthropic Claude.
package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fwojciec/sitechat"
)

// Generator defaults.
const (
	DefaultModel       = "claude-sonnet-4-5"
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.4
)

var _ sitechat.Generator = (*Generator)(nil)

// Generator implements sitechat.Generator using the Anthropic Messages API.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewGenerator creates a new Generator. An empty model selects DefaultModel
// and a non-positive maxTokens selects DefaultMaxTokens.
func NewGenerator(client anthropic.Client, model string, maxTokens int) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Generator{client: client, model: model, maxTokens: int64(maxTokens)}
}

// Model returns the generation model name.
func (g *Generator) Model() string {
	return g.model
}

// Generate answers the prompt's question using its context and history.
func (g *Generator) Generate(ctx context.Context, prompt *sitechat.Prompt) (string, error) {
	if prompt.Question == "" {
		return "", sitechat.Errorf(sitechat.EINVALID, "question required")
	}

	resp, err := g.client.Messages.New(ctx, BuildParams(g.model, g.maxTokens, prompt))
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", sitechat.Errorf(sitechat.EINTERNAL, "claude returned no text")
	}
	return text.String(), nil
}

// BuildParams converts a prompt into Messages API parameters. History must
// open with a user turn, so leading assistant messages are dropped.
func BuildParams(model string, maxTokens int64, prompt *sitechat.Prompt) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(prompt.History)+1)
	for _, msg := range prompt.History {
		if msg.Content == "" {
			continue
		}
		if msg.Role == sitechat.RoleAssistant {
			if len(messages) == 0 {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.UserMessage())))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   maxTokens,
		Messages:    messages,
		Temperature: anthropic.Float(DefaultTemperature),
	}
	if prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: prompt.System}}
	}
	return params
}
