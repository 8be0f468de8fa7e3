// Package openai talks to any OpenAI-compatible chat completions endpoint
// (Groq, OpenRouter, Mistral, the HuggingFace router).
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ba-assistant-be/pkg/llm"
)

// Preset holds the endpoint and default models of a known vendor
type Preset struct {
	BaseURL string
	Models  llm.Models
	Headers map[string]string
}

var Presets = map[string]Preset{
	"groq": {
		BaseURL: "https://api.groq.com/openai/v1",
		Models:  llm.Models{Assistant: "llama-3.3-70b-versatile", Router: "llama-3.3-70b-versatile"},
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Models:  llm.Models{Assistant: "google/gemini-flash-1.5-8b", Router: "google/gemini-flash-1.5"},
		Headers: map[string]string{"X-Title": "BA Assistant"},
	},
	"mistral": {
		BaseURL: "https://api.mistral.ai/v1",
		Models:  llm.Models{Assistant: "pixtral-large-latest", Router: "mistral-small-latest"},
	},
	"huggingface": {
		BaseURL: "https://router.huggingface.co/v1",
	},
}

type Provider struct {
	name       string
	apiKey     string
	baseURL    string
	models     llm.Models
	headers    map[string]string
	client     *http.Client
	maxRetries int
}

var _ llm.LLMProvider = (*Provider)(nil)

// NewProvider builds a client for a vendor preset. baseURL and empty model
// names fall back to the preset values.
func NewProvider(name, apiKey, baseURL string, models llm.Models) *Provider {
	preset := Presets[name]
	if baseURL == "" {
		baseURL = preset.BaseURL
	}
	if models.Assistant == "" {
		models.Assistant = preset.Models.Assistant
	}
	if models.Router == "" {
		models.Router = preset.Models.Router
	}
	return &Provider{
		name:       name,
		apiKey:     apiKey,
		baseURL:    baseURL,
		models:     models,
		headers:    preset.Headers,
		client:     &http.Client{Timeout: 120 * time.Second},
		maxRetries: defaultMaxRetries,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Temperature: 0.7, MaxTokens: 500}, options...)

	body, err := json.Marshal(chatRequest{
		Model:       p.models.Resolve(opts),
		Messages:    history,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := doWithRetry(ctx, p.client, req, body, p.maxRetries)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s api error (status %d): %s", p.name, resp.StatusCode, string(respBytes))
	}

	var out chatResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%s api returned error: %s", p.name, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty choices from %s api", p.name)
	}

	return out.Choices[0].Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}
