package factory

import (
	"context"
	"fmt"

	"ba-assistant-be/pkg/llm"
	"ba-assistant-be/pkg/llm/fallback"
	"ba-assistant-be/pkg/llm/gemini"
	"ba-assistant-be/pkg/llm/ollama"
	"ba-assistant-be/pkg/llm/openai"
)

// Settings is what the factory needs to build one provider
type Settings struct {
	Provider      string
	Models        llm.Models
	APIKey        string
	BaseURL       string
	OllamaBaseURL string
}

func NewLLMProvider(ctx context.Context, s Settings) (llm.LLMProvider, error) {
	switch s.Provider {
	case "ollama":
		return ollama.NewOllamaProvider(s.OllamaBaseURL, s.Models), nil
	case "gemini":
		return gemini.NewProvider(ctx, s.APIKey, s.Models)
	case "groq", "openrouter", "mistral", "huggingface", "openai":
		if s.APIKey == "" && s.Provider != "huggingface" {
			return nil, fmt.Errorf("%s: api key is required", s.Provider)
		}
		if s.Provider == "openai" && s.BaseURL == "" {
			return nil, fmt.Errorf("openai: base url is required")
		}
		return openai.NewProvider(s.Provider, s.APIKey, s.BaseURL, s.Models), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}

// NewChain builds the primary provider and, when configured, a fallback
// behind it. A fallback that cannot be built is reported through onFailure
// and skipped.
func NewChain(ctx context.Context, primary Settings, secondary *Settings, onFailure fallback.FailureHook) (llm.LLMProvider, error) {
	first, err := NewLLMProvider(ctx, primary)
	if err != nil {
		return nil, err
	}
	if secondary == nil || secondary.Provider == "" || secondary.Provider == primary.Provider {
		return first, nil
	}

	second, err := NewLLMProvider(ctx, *secondary)
	if err != nil {
		if onFailure != nil {
			onFailure(secondary.Provider, err)
		}
		return first, nil
	}
	return fallback.NewChain(onFailure, first, second), nil
}
