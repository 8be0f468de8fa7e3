package factory

import (
	"context"
	"testing"

	"ba-assistant-be/pkg/llm/fallback"
	"ba-assistant-be/pkg/llm/ollama"
	"ba-assistant-be/pkg/llm/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewLLMProvider(ctx, Settings{Provider: "ollama"})
	require.NoError(t, err)
	assert.IsType(t, &ollama.OllamaProvider{}, p)

	p, err = NewLLMProvider(ctx, Settings{Provider: "groq", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &openai.Provider{}, p)

	_, err = NewLLMProvider(ctx, Settings{Provider: "groq"})
	assert.Error(t, err)

	_, err = NewLLMProvider(ctx, Settings{Provider: "gemini"})
	assert.Error(t, err)

	_, err = NewLLMProvider(ctx, Settings{Provider: "nope"})
	assert.Error(t, err)
}

func TestNewChain(t *testing.T) {
	ctx := context.Background()
	primary := Settings{Provider: "ollama"}

	p, err := NewChain(ctx, primary, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	p, err = NewChain(ctx, primary, &Settings{Provider: "groq", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &fallback.Chain{}, p)
	assert.Equal(t, "ollama>groq", p.Name())

	var skipped string
	p, err = NewChain(ctx, primary, &Settings{Provider: "mistral"}, func(name string, err error) { skipped = name })
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, "mistral", skipped)
}
