package layout_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/floor-layout/internal/layout"
	"github.com/iliyamo/floor-layout/internal/model"
	"github.com/iliyamo/floor-layout/internal/repository"
	"github.com/iliyamo/floor-layout/internal/service"
)

func newSession(t *testing.T, store layout.Persistence, floorID string) *layout.Coordinator {
	t.Helper()
	c := layout.NewCoordinator(floorID, layout.NewEngine(model.Snapshot{}), store)
	return c
}

func TestCoordinator_StaleActivation(t *testing.T) {
	ctx := context.Background()
	store := service.NewLayoutService(repository.NewMemoryLayoutRepo(), zap.NewNop())

	a := newSession(t, store, "F")
	_, err := a.Engine().AddTable(model.ShapeRound, 0, 0)
	require.NoError(t, err)
	require.NoError(t, a.SaveDraft(ctx))

	b := newSession(t, store, "F")
	require.NoError(t, b.LoadDraft(ctx))
	require.Equal(t, int64(1), b.Version())
	require.NoError(t, a.Refresh(ctx))

	v, err := a.Publish(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, int64(2), a.Version())

	_, err = b.Engine().AddTable(model.ShapeSquare, 200, 0)
	require.NoError(t, err)
	_, err = b.Publish(ctx)
	require.ErrorIs(t, err, layout.ErrStaleVersion)
	assert.Equal(t, int64(1), b.Version())

	// b saved its draft before being rejected; the active layout is a's
	got, err := store.ActiveLayout(ctx, "F")
	require.NoError(t, err)
	assert.Len(t, got.Active.Tables, 1)
	assert.Equal(t, int64(2), got.Version)

	// reload and reapply
	require.NoError(t, b.Refresh(ctx))
	v, err = b.Activate(ctx, b.Version())
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestCoordinator_InvalidLayoutRejected(t *testing.T) {
	ctx := context.Background()
	store := service.NewLayoutService(repository.NewMemoryLayoutRepo(), zap.NewNop())
	c := newSession(t, store, "F")

	e := c.Engine()
	t1, _ := e.AddTable(model.ShapeRound, 0, 0)
	t2, _ := e.AddTable(model.ShapeRound, 200, 0)
	require.NoError(t, e.MoveTable(t2.ID, t1.X+8, t1.Y))
	e.Commit()
	require.False(t, e.Validation().IsValid)

	require.NoError(t, c.SaveDraft(ctx), "invalid drafts may still be saved")
	require.NoError(t, c.Refresh(ctx))
	_, err := c.Activate(ctx, c.Version())
	assert.ErrorIs(t, err, layout.ErrInvalidLayout)
	assert.Equal(t, layout.CodeInvalidLayout, layout.CodeOf(err))
}

func TestCoordinator_LoadDraftResetsHistory(t *testing.T) {
	ctx := context.Background()
	store := service.NewLayoutService(repository.NewMemoryLayoutRepo(), zap.NewNop())

	c := newSession(t, store, "F")
	assert.ErrorIs(t, c.LoadDraft(ctx), layout.ErrFloorNotFound)

	_, _ = c.Engine().AddTable(model.ShapeRound, 0, 0)
	require.NoError(t, c.SaveDraft(ctx))
	_, _ = c.Engine().AddTable(model.ShapeRound, 200, 0)

	require.NoError(t, c.LoadDraft(ctx))
	assert.Len(t, c.Engine().Tables(), 1)
	assert.False(t, c.Engine().CanUndo())
	assert.Equal(t, "F", c.FloorID())
}
