package nats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFromMessage(t *testing.T) {
	event, err := EventFromMessage("events.DOCUMENT_GENERATED",
		[]byte(`{"session_id":"s1","occurred_at":"2024-05-01T12:00:00Z"}`))

	require.NoError(t, err)
	assert.Equal(t, "DOCUMENT_GENERATED", event.EventType())
	assert.Equal(t, "s1", event.Payload()["session_id"])
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), event.Timestamp().UTC())
}

func TestEventFromMessage_InvalidPayload(t *testing.T) {
	_, err := EventFromMessage("events.SESSION_RESET", []byte("not json"))
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.SESSION_RESET", Subject("SESSION_RESET"))
}
