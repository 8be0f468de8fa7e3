package service

import (
	"context"
	"encoding/json"
	"time"

	"ba-assistant-be/internal/dto"
	"ba-assistant-be/internal/entity"
	"ba-assistant-be/internal/pkg/logger"
	"ba-assistant-be/internal/repository/contract"
	"ba-assistant-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerModule = "PUBLISH_CONSUMER"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the wiki publication queue
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	publisher  IWikiPublishService
	logStore   contract.SessionLogStore
	events     events.Publisher
	logger     logger.ILogger
	now        func() time.Time
}

// NewConsumerService wires the queue consumer. logStore and eventPub may be
// nil.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	publisher IWikiPublishService,
	logStore contract.SessionLogStore,
	eventPub events.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		publisher:  publisher,
		logStore:   logStore,
		events:     eventPub,
		logger:     log,
		now:        time.Now,
	}
}

// Consume subscribes and processes messages in the background until ctx is
// done or the subscriber closes
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerModule, "Invalid publish message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack()
		return
	}

	outcome, err := cs.publisher.PublishNow(ctx, payload)
	if err != nil {
		// no redelivery: a wiki outage would spin the queue. The failure is
		// kept on the session instead.
		cs.logger.Error(consumerModule, "Publication failed", map[string]interface{}{
			"session_id": payload.SessionId,
			"error":      err.Error(),
		})
		cs.recordMetadata(ctx, payload.SessionId, map[string]interface{}{
			"confluence_error": err.Error(),
		})
		msg.Ack()
		return
	}

	cs.recordMetadata(ctx, payload.SessionId, map[string]interface{}{
		"confluence_page_id": outcome.PageID,
		"confluence_url":     outcome.URL,
	})

	if cs.events != nil {
		event := events.NewDocumentPublished(payload.SessionId, outcome.PageID, outcome.URL, cs.now())
		if err := cs.events.Publish(ctx, event); err != nil {
			cs.logger.Warn(consumerModule, "Event publish failed", map[string]interface{}{
				"event": event.EventType(), "error": err.Error(),
			})
		}
	}

	cs.logger.Info(consumerModule, "Document published", map[string]interface{}{
		"session_id": payload.SessionId,
		"page_id":    outcome.PageID,
		"url":        outcome.URL,
	})
	msg.Ack()
}

func (cs *consumerService) recordMetadata(ctx context.Context, sessionID string, metadata map[string]interface{}) {
	if cs.logStore == nil {
		return
	}
	if err := cs.logStore.UpdateSession(ctx, sessionID, entity.SessionUpdate{Metadata: metadata}); err != nil {
		cs.logger.Warn(consumerModule, "Session metadata update failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}
