package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicNaming(t *testing.T) {
	assert.Equal(t, "lounge.shift.closed", Topic("lounge", EventShiftClosed))
	assert.Equal(t, "order.opened", Topic("", EventOrderOpened))

	topics := Topics("venue")
	assert.Len(t, topics, len(EventTypes))
	assert.Contains(t, topics, "venue.booking.created")
}

func TestNewEventEnvelope(t *testing.T) {
	event, err := NewEvent(EventBookingCreated, map[string]any{"id": 7, "status": "pending"})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventBookingCreated, event.Type)
	assert.False(t, event.OccurredAt.IsZero())

	var payload map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, "pending", payload["status"])
}

func TestNewEventRejectsUnencodablePayload(t *testing.T) {
	_, err := NewEvent(EventOrderClosed, make(chan int))
	assert.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), EventShiftOpened, "1", nil))
}
