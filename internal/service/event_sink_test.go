package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/floor-layout/internal/model"
	q "github.com/iliyamo/floor-layout/internal/queue"
)

func TestEventSink_EvictsOnActivation(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	require.NoError(t, fc.Set(ctx, &model.FloorLayout{FloorID: "main", Version: 3}))

	sink := NewEventSink(fc, zap.NewNop())
	c := q.NewConsumer("", sink, zap.NewNop())

	body := []byte(`{"floor_id":"main","version":4,"table_count":2,"activated_by":"m1"}`)
	require.NoError(t, c.HandleMessage(ctx, q.LayoutActivatedQueue, body))

	_, ok := fc.Get(ctx, "main")
	assert.False(t, ok)
	assert.Equal(t, []string{"main"}, fc.invalidated)

	// a redelivered event keeps a layout that is already current
	require.NoError(t, fc.Set(ctx, &model.FloorLayout{FloorID: "main", Version: 4}))
	require.NoError(t, c.HandleMessage(ctx, q.LayoutActivatedQueue, body))
	_, ok = fc.Get(ctx, "main")
	assert.True(t, ok)

	body = []byte(`{"floor_id":"main","table_id":"a","from":"available","to":"occupied"}`)
	assert.NoError(t, c.HandleMessage(ctx, q.TableStatusQueue, body))
}

func TestEventSink_NilCache(t *testing.T) {
	sink := NewEventSink(nil, nil)
	assert.NoError(t, sink.LayoutActivated(context.Background(), q.LayoutActivatedEvent{FloorID: "main"}))
}
