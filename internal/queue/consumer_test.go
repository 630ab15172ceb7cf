package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	statuses    []TableStatusChangedEvent
	activations []LayoutActivatedEvent
}

func (h *recordingHandler) TableStatusChanged(_ context.Context, ev TableStatusChangedEvent) error {
	h.statuses = append(h.statuses, ev)
	return nil
}

func (h *recordingHandler) LayoutActivated(_ context.Context, ev LayoutActivatedEvent) error {
	h.activations = append(h.activations, ev)
	return nil
}

func TestHandleMessage_Dispatches(t *testing.T) {
	h := &recordingHandler{}
	c := NewConsumer("amqp://unused", h, zap.NewNop())
	ctx := context.Background()

	body, err := json.Marshal(TableStatusChangedEvent{FloorID: "f", TableID: "t", From: "available", To: "occupied"})
	require.NoError(t, err)
	require.NoError(t, c.HandleMessage(ctx, TableStatusQueue, body))

	body, err = json.Marshal(LayoutActivatedEvent{FloorID: "f", Version: 2, TableCount: 3})
	require.NoError(t, err)
	require.NoError(t, c.HandleMessage(ctx, LayoutActivatedQueue, body))

	require.Len(t, h.statuses, 1)
	assert.Equal(t, "occupied", h.statuses[0].To)
	require.Len(t, h.activations, 1)
	assert.Equal(t, int64(2), h.activations[0].Version)
}

func TestHandleMessage_Rejects(t *testing.T) {
	c := NewConsumer("amqp://unused", &recordingHandler{}, zap.NewNop())
	ctx := context.Background()

	assert.Error(t, c.HandleMessage(ctx, TableStatusQueue, []byte("{bad")))
	assert.Error(t, c.HandleMessage(ctx, TableStatusQueue, []byte(`{"floor_id":"f"}`)))
	assert.Error(t, c.HandleMessage(ctx, LayoutActivatedQueue, []byte(`{}`)))
	assert.Error(t, c.HandleMessage(ctx, "other.queue", []byte(`{}`)))
}

func TestNextBackoff(t *testing.T) {
	d := time.Second
	var seen []time.Duration
	for i := 0; i < 7; i++ {
		d = nextBackoff(d)
		seen = append(seen, d)
	}
	assert.Equal(t, []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		30 * time.Second, 30 * time.Second, 30 * time.Second,
	}, seen)
}
