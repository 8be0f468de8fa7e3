package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ba-assistant-be/internal/dto"
	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/pkg/artifact"
	"ba-assistant-be/pkg/diagram"
	"ba-assistant-be/pkg/dialogue/state"
	"ba-assistant-be/pkg/store"
	"ba-assistant-be/pkg/wiki/confluence"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	wikiModule = "WIKI"

	// PublishTopic carries queued wiki publications
	PublishTopic = "wiki.publish"
)

// WikiClient is the part of the Confluence client the publisher needs
type WikiClient interface {
	CreatePage(ctx context.Context, title, storage, parentID string) (*confluence.Page, error)
	AttachFile(ctx context.Context, pageID, path, comment string) error
}

// IWikiPublishService runs the extract, diagram and publish pipeline for a
// finished document. Publish queues the work when a queue is configured.
type IWikiPublishService interface {
	state.Publisher
	PublishNow(ctx context.Context, doc dto.PublishDocumentMessage) (state.PublishOutcome, error)
}

type wikiPublishService struct {
	client   WikiClient
	queue    message.Publisher
	parentID string
	logger   logger.ILogger
}

// NewWikiPublishService builds the publisher. queue may be nil, in which
// case Publish works synchronously.
func NewWikiPublishService(client WikiClient, queue message.Publisher, parentID string, log logger.ILogger) IWikiPublishService {
	return &wikiPublishService{
		client:   client,
		queue:    queue,
		parentID: parentID,
		logger:   log,
	}
}

func toPublishMessage(doc state.CompletedDocument) dto.PublishDocumentMessage {
	return dto.PublishDocumentMessage{
		SessionId: doc.SessionID,
		DocType:   string(doc.DocType),
		Title:     doc.Title,
		Body:      doc.Body,
		Path:      doc.Path,
	}
}

func (s *wikiPublishService) Publish(ctx context.Context, doc state.CompletedDocument) (state.PublishOutcome, error) {
	payload := toPublishMessage(doc)
	if s.queue == nil {
		return s.PublishNow(ctx, payload)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return state.PublishOutcome{}, &store.PublishError{SessionID: doc.SessionID, Err: err}
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("session_id", doc.SessionID)

	if err := s.queue.Publish(PublishTopic, msg); err != nil {
		return state.PublishOutcome{}, &store.PublishError{SessionID: doc.SessionID, Err: fmt.Errorf("enqueue: %w", err)}
	}

	s.logger.Info(wikiModule, "Publication queued", map[string]interface{}{
		"session_id": doc.SessionID,
		"message_id": msg.UUID,
	})
	return state.PublishOutcome{Queued: true}, nil
}

func (s *wikiPublishService) PublishNow(ctx context.Context, doc dto.PublishDocumentMessage) (state.PublishOutcome, error) {
	diagrams := diagram.BuildAll(artifact.ExtractAll(doc.Body))

	page, err := confluence.StoragePage(doc.Title, doc.Body, diagrams)
	if err != nil {
		return state.PublishOutcome{}, &store.PublishError{SessionID: doc.SessionId, Err: err}
	}

	created, err := s.client.CreatePage(ctx, doc.Title, page, s.parentID)
	if err != nil {
		return state.PublishOutcome{}, &store.PublishError{SessionID: doc.SessionId, Err: err}
	}

	s.logger.Info(wikiModule, "Page created", map[string]interface{}{
		"session_id": doc.SessionId,
		"page_id":    created.ID,
		"diagrams":   len(diagrams),
	})

	// the page is the publication; a missing attachment is only logged
	if doc.Path != "" {
		if _, statErr := os.Stat(doc.Path); statErr == nil {
			if err := s.client.AttachFile(ctx, created.ID, doc.Path, "Generated by BA Assistant"); err != nil {
				s.logger.Warn(wikiModule, "Attachment failed", map[string]interface{}{
					"session_id": doc.SessionId,
					"page_id":    created.ID,
					"error":      err.Error(),
				})
			}
		}
	}

	return state.PublishOutcome{PageID: created.ID, URL: created.URL}, nil
}
