package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ba-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Chat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer srv.Close()

	p := NewProvider("groq", "secret", srv.URL, llm.Models{Assistant: "big", Router: "small"})

	out, err := p.Chat(context.Background(),
		[]llm.Message{{Role: "user", Content: "hi"}},
		llm.WithTemperature(0.1), llm.WithMaxTokens(150), llm.WithModelHint(llm.HintRouter))

	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "small", got.Model)
	assert.Equal(t, 0.1, got.Temperature)
	assert.Equal(t, 150, got.MaxTokens)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestProvider_PresetDefaults(t *testing.T) {
	p := NewProvider("mistral", "k", "", llm.Models{})

	assert.Equal(t, "https://api.mistral.ai/v1", p.baseURL)
	assert.Equal(t, "pixtral-large-latest", p.models.Assistant)
	assert.Equal(t, "mistral-small-latest", p.models.Router)
	assert.Equal(t, "mistral", p.Name())
}

func TestProvider_RetriesOn429(t *testing.T) {
	orig := RetryBaseDelay
	RetryBaseDelay = time.Millisecond
	defer func() { RetryBaseDelay = orig }()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "again", req.Messages[0].Content)

		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := NewProvider("groq", "", srv.URL, llm.Models{Assistant: "m"})
	out, err := p.Generate(context.Background(), "again")

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `boom`},
		{name: "api error", status: http.StatusOK, body: `{"error":{"message":"bad key"}}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "bad json", status: http.StatusOK, body: `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewProvider("groq", "", srv.URL, llm.Models{Assistant: "m"})
			_, err := p.Generate(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}
