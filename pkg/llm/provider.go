package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ModelHint selects which configured model a provider should use
type ModelHint string

const (
	HintAssistant ModelHint = "assistant"
	HintRouter    ModelHint = "router"
)

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	Hint        ModelHint
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithModelHint(hint ModelHint) Option {
	return func(o *Options) {
		o.Hint = hint
	}
}

// Apply folds options over defaults
func Apply(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// Models maps model hints to concrete model names for one provider
type Models struct {
	Assistant string
	Router    string
}

// Resolve picks the model for a call. An explicit model wins over the hint.
func (m Models) Resolve(o Options) string {
	if o.Model != "" {
		return o.Model
	}
	if o.Hint == HintRouter && m.Router != "" {
		return m.Router
	}
	return m.Assistant
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// Name identifies the backend in logs and health output
	Name() string
}
