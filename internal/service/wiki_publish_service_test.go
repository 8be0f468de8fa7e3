package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ba-assistant-be/internal/dto"
	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/pkg/dialogue/state"
	"ba-assistant-be/pkg/events"
	"ba-assistant-be/pkg/store"
	"ba-assistant-be/pkg/wiki/confluence"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWiki struct {
	mu          sync.Mutex
	pages       []string
	attachments []string
	createErr   error
	attachErr   error
}

func (f *fakeWiki) CreatePage(ctx context.Context, title, storage, parentID string) (*confluence.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.pages = append(f.pages, storage)
	return &confluence.Page{ID: "101", Title: title, URL: "https://wiki/pages/101"}, nil
}

func (f *fakeWiki) AttachFile(ctx context.Context, pageID, path, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachments = append(f.attachments, pageID+":"+filepath.Base(path))
	return f.attachErr
}

func (f *fakeWiki) created() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pages...)
}

const brd = `# QR Payments

### UC-001: Pay by QR
**Actor:** Customer

**Preconditions:**
- App installed

**Main Flow:**
1. Customer opens the app
2. Customer scans the code

**KPI 1:** Conversion - target: +10%
`

func completedDoc(path string) state.CompletedDocument {
	return state.CompletedDocument{
		SessionID: "s1",
		DocType:   store.DocNewFeature,
		Title:     "QR Payments",
		Body:      brd,
		Path:      path,
	}
}

func TestWikiPublish_Synchronous(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s1__qr.md")
	require.NoError(t, os.WriteFile(path, []byte(brd), 0o644))

	wiki := &fakeWiki{attachErr: errors.New("too large")}
	svc := NewWikiPublishService(wiki, nil, "", logger.NewNop())

	outcome, err := svc.Publish(context.Background(), completedDoc(path))
	require.NoError(t, err)

	assert.Equal(t, state.PublishOutcome{PageID: "101", URL: "https://wiki/pages/101"}, outcome)
	pages := wiki.created()
	require.Len(t, pages, 1)
	assert.Contains(t, pages[0], "<h1>QR Payments</h1>")
	assert.Contains(t, pages[0], "<h2>Use Case Diagram</h2>")
	assert.Contains(t, pages[0], "<h2>Process Flow</h2>")
	assert.Contains(t, pages[0], "<h2>KPI Dashboard</h2>")
	assert.Equal(t, []string{"101:s1__qr.md"}, wiki.attachments)
}

func TestWikiPublish_SkipsMissingAttachment(t *testing.T) {
	wiki := &fakeWiki{}
	svc := NewWikiPublishService(wiki, nil, "", logger.NewNop())

	_, err := svc.Publish(context.Background(), completedDoc(filepath.Join(t.TempDir(), "gone.md")))
	require.NoError(t, err)
	assert.Empty(t, wiki.attachments)
}

func TestWikiPublish_Failure(t *testing.T) {
	svc := NewWikiPublishService(&fakeWiki{createErr: errors.New("403")}, nil, "", logger.NewNop())

	_, err := svc.Publish(context.Background(), completedDoc(""))

	var pubErr *store.PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, "s1", pubErr.SessionID)
}

func TestWikiPublish_QueuedThroughConsumer(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wiki := &fakeWiki{}
	worker := NewWikiPublishService(wiki, nil, "", logger.NewNop())
	logStore := newMemoryLogStore()
	bus := &recordingEvents{}

	consumer := NewConsumerService(pubSub, PublishTopic, worker, logStore, bus, logger.NewNop())
	require.NoError(t, consumer.Consume(ctx))

	queued := NewWikiPublishService(wiki, pubSub, "", logger.NewNop())
	outcome, err := queued.Publish(ctx, completedDoc(""))
	require.NoError(t, err)
	assert.True(t, outcome.Queued)

	require.Eventually(t, func() bool {
		s, _ := logStore.GetSession(ctx, "s1")
		return s != nil && s.Metadata["confluence_page_id"] == "101"
	}, time.Second, 5*time.Millisecond)

	s, _ := logStore.GetSession(ctx, "s1")
	assert.Equal(t, "https://wiki/pages/101", s.Metadata["confluence_url"])
	assert.Len(t, wiki.created(), 1)
	require.Eventually(t, func() bool {
		return len(bus.types()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{events.TypeDocumentPublished}, bus.types())
}

func TestConsumer_RecordsFailureAndInvalidPayload(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := NewWikiPublishService(&fakeWiki{createErr: errors.New("wiki down")}, nil, "", logger.NewNop())
	logStore := newMemoryLogStore()
	bus := &recordingEvents{}
	require.NoError(t, NewConsumerService(pubSub, PublishTopic, worker, logStore, bus, logger.NewNop()).Consume(ctx))

	require.NoError(t, pubSub.Publish(PublishTopic, message.NewMessage(watermill.NewUUID(), []byte("{not json"))))

	queued := NewWikiPublishService(&fakeWiki{}, pubSub, "", logger.NewNop())
	_, err := queued.Publish(ctx, completedDoc(""))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, _ := logStore.GetSession(ctx, "s1")
		return s != nil && s.Metadata["confluence_error"] != nil
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, bus.types())
}

func TestPublishDocumentMessage(t *testing.T) {
	msg := toPublishMessage(completedDoc("docs/a.md"))
	assert.Equal(t, dto.PublishDocumentMessage{
		SessionId: "s1", DocType: "new_feature", Title: "QR Payments", Body: brd, Path: "docs/a.md",
	}, msg)
}
