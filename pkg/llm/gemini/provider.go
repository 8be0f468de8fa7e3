package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"ba-assistant-be/pkg/llm"
)

const DefaultModel = "gemini-2.0-flash"

type Provider struct {
	client *genai.Client
	models llm.Models
}

var _ llm.LLMProvider = (*Provider)(nil)

func NewProvider(ctx context.Context, apiKey string, models llm.Models) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if models.Assistant == "" {
		models.Assistant = DefaultModel
	}
	if models.Router == "" {
		models.Router = models.Assistant
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Provider{client: client, models: models}, nil
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Temperature: 0.7}, options...)

	contents, system := toContents(history)
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(opts.Temperature)),
		SystemInstruction: system,
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.models.Resolve(opts), contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

// toContents maps chat roles to gemini roles. System messages are merged
// into the system instruction.
func toContents(history []llm.Message) ([]*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case "system":
			if system == nil {
				system = genai.NewContentFromText(msg.Content, genai.RoleUser)
			} else {
				system.Parts = append(system.Parts, genai.NewPartFromText(msg.Content))
			}
		case "assistant", "model":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents, system
}
