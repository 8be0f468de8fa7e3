package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ba-assistant-be/internal/dto"
	"ba-assistant-be/pkg/dialogue/completion"
	"ba-assistant-be/pkg/render"
	"ba-assistant-be/pkg/store"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedAssistant struct {
	messages []string
	resets   int
	reply    *dto.SendChatResponse
	err      error
	info     *dto.SessionInfoResponse
}

func (s *scriptedAssistant) ProcessMessage(ctx context.Context, sessionID, message string) (*dto.SendChatResponse, error) {
	s.messages = append(s.messages, message)
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func (s *scriptedAssistant) GetSessionInfo(sessionID string) *dto.SessionInfoResponse {
	return s.info
}

func (s *scriptedAssistant) ResetSession(ctx context.Context, sessionID string) error {
	s.resets++
	return store.ErrSessionNotFound
}

type staticDocs []render.DocumentInfo

func (d staticDocs) ListSession(string) ([]render.DocumentInfo, error) { return d, nil }

func runScript(t *testing.T, a assistant, docs documents, script string) string {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	c := newConsole(a, docs, strings.NewReader(script), &out)
	require.NoError(t, c.Run(context.Background(), "s1"))
	return out.String()
}

func TestConsole_Commands(t *testing.T) {
	a := &scriptedAssistant{info: &dto.SessionInfoResponse{
		SessionId: "s1", Status: "active", DocType: "bug_fix", Progress: 0.4, MessageCount: 4,
	}}
	docs := staticDocs{{Filename: "s1__doc.md", Size: 12, UpdatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)}}

	out := runScript(t, a, docs, "/help\n\n/status\n/docs\n/reset\n/quit\nignored\n")

	assert.Contains(t, out, "/reset   start over")
	assert.Contains(t, out, "Status: active, type bug_fix, progress 40%, 4 messages")
	assert.Contains(t, out, "s1__doc.md  (12 bytes, 2026-01-02 03:04)")
	assert.Contains(t, out, "Session reset.")
	assert.Contains(t, out, "Bye.")
	assert.Equal(t, 1, a.resets)
	assert.Empty(t, a.messages)
}

func TestConsole_SendsMessages(t *testing.T) {
	a := &scriptedAssistant{reply: &dto.SendChatResponse{
		Response:      completion.Wrap("# Fix login") + "\n\nBug Fix Document saved.",
		SessionId:     "s1",
		DocType:       "bug_fix",
		Progress:      1,
		DocumentReady: true,
	}}

	out := runScript(t, a, staticDocs{}, "Login fails on Safari\n")

	assert.Equal(t, []string{"Login fails on Safari"}, a.messages)
	assert.Contains(t, out, "# Fix login")
	assert.NotContains(t, out, completion.StartMarker)
	assert.Contains(t, out, "[bug_fix, progress 100%]")
}

func TestConsole_ReportsErrors(t *testing.T) {
	a := &scriptedAssistant{err: errors.New("provider down")}

	out := runScript(t, a, staticDocs{}, "hello\n/docs\n")

	assert.Contains(t, out, "error: provider down")
	assert.Contains(t, out, "No documents yet.")
}
