package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ba-assistant-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LogStore {
	t.Helper()
	s, err := NewLogStore(filepath.Join(t.TempDir(), "data", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func TestLogStore_SessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, "s1"))
	require.NoError(t, s.CreateSession(ctx, "s1"))

	require.NoError(t, s.AppendMessage(ctx, "s1", "user", "хочу оплату по QR"))
	require.NoError(t, s.AppendMessage(ctx, "s1", "assistant", "Which platform?"))

	require.NoError(t, s.UpdateSession(ctx, "s1", entity.SessionUpdate{
		DocType:  ptr("new_feature"),
		Progress: ptr(0.2),
		Metadata: map[string]interface{}{"confluence_page_id": "42"},
	}))
	require.NoError(t, s.UpdateSession(ctx, "s1", entity.SessionUpdate{
		Status:   ptr("completed"),
		Metadata: map[string]interface{}{"confluence_url": "https://wiki/x"},
	}))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new_feature", got.DocType)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, 0.2, got.Progress)
	assert.Equal(t, "42", got.Metadata["confluence_page_id"])
	assert.Equal(t, "https://wiki/x", got.Metadata["confluence_url"])

	msgs, err := s.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "Which platform?", msgs[1].Content)

	missing, err := s.GetSession(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLogStore_AppendCreatesSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMessage(ctx, "fresh", "user", "hi"))

	got, err := s.GetSession(ctx, "fresh")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "active", got.Status)
}

func TestLogStore_PurgeOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now.AddDate(0, 0, -40) }
	require.NoError(t, s.AppendMessage(ctx, "old", "user", "old message"))

	s.now = func() time.Time { return now }
	require.NoError(t, s.AppendMessage(ctx, "new", "user", "new message"))

	n, err := s.PurgeOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sessions, err := s.ListSessions(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "new", sessions[0].Id)

	msgs, err := s.GetMessages(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestLogStore_Statistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMessage(ctx, "a", "user", "1"))
	require.NoError(t, s.AppendMessage(ctx, "a", "assistant", "2"))
	require.NoError(t, s.AppendMessage(ctx, "b", "user", "3"))
	require.NoError(t, s.UpdateSession(ctx, "a", entity.SessionUpdate{DocType: ptr("bug_fix"), Status: ptr("completed")}))
	require.NoError(t, s.UpdateSession(ctx, "b", entity.SessionUpdate{DocType: ptr("bug_fix")}))
	require.NoError(t, s.CreateSession(ctx, "c"))

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalSessions)
	assert.Equal(t, int64(2), stats.ActiveSessions)
	assert.Equal(t, int64(1), stats.CompletedSessions)
	assert.Equal(t, int64(3), stats.TotalMessages)
	assert.Equal(t, map[string]int64{"bug_fix": 2}, stats.ByDocType)
}

func TestLogStore_DeleteSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMessage(ctx, "s1", "user", "hi"))
	require.NoError(t, s.DeleteSession(ctx, "s1"))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
	msgs, err := s.GetMessages(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
