// Package gemini provides generation, embedding and token counting backed
// by Google Gemini.
package gemini

import (
	"context"

	"github.com/fwojciec/sitechat"
	"google.golang.org/genai"
)

// Default models.
const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
)

// DefaultTemperature keeps answers close to the retrieved context.
const DefaultTemperature = 0.4

// Ensure Generator implements sitechat.Generator at compile time.
var _ sitechat.Generator = (*Generator)(nil)

// Generator implements sitechat.Generator using Google Gemini.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGenerator creates a new Generator. An empty model selects DefaultModel.
func NewGenerator(client *genai.Client, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: client, model: model, temperature: DefaultTemperature}
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

	result, err := g.client.Models.GenerateContent(ctx, g.model,
		BuildContents(prompt),
		BuildConfig(prompt.System, g.temperature),
	)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", sitechat.Errorf(sitechat.EINTERNAL, "gemini returned nil result")
	}

	return result.Text(), nil
}

// BuildConfig returns the GenerateContentConfig for Gemini API calls.
func BuildConfig(system string, temperature float32) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{Temperature: &temperature}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return config
}

// BuildContents converts the conversation history and the final user turn
// into Gemini contents, oldest first.
func BuildContents(prompt *sitechat.Prompt) []*genai.Content {
	contents := make([]*genai.Content, 0, len(prompt.History)+1)
	for _, msg := range prompt.History {
		if msg.Content == "" {
			continue
		}
		if msg.Role == sitechat.RoleAssistant {
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		} else {
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return append(contents, genai.NewContentFromText(prompt.UserMessage(), genai.RoleUser))
}
