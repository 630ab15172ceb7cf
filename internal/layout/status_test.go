package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/floor-layout/internal/model"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to model.TableStatus
		want     bool
	}{
		{model.StatusAvailable, model.StatusOccupied, true},
		{model.StatusOccupied, model.StatusAvailable, true},
		{model.StatusOccupied, model.StatusCleaning, true},
		{model.StatusCleaning, model.StatusAvailable, true},
		{model.StatusAvailable, model.StatusReserved, true},
		{model.StatusReserved, model.StatusAvailable, true},
		{model.StatusAvailable, model.StatusCleaning, false},
		{model.StatusCleaning, model.StatusOccupied, false},
		{model.StatusReserved, model.StatusOccupied, false},
		{model.StatusAvailable, model.StatusAvailable, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestSetTableStatus_EmitsWithoutHistory(t *testing.T) {
	e := newTestEngine()
	tb, _ := e.AddTable(model.ShapeRound, 0, 0)
	before := e.history.Len()

	var got []StatusChange
	e.OnStatusChange(func(c StatusChange) { got = append(got, c) })

	require.NoError(t, e.SetTableStatus(tb.ID, model.StatusOccupied))
	require.NoError(t, e.SetTableStatus(tb.ID, model.StatusCleaning))
	assert.ErrorIs(t, e.SetTableStatus(tb.ID, model.StatusOccupied), ErrInvalidTransition)
	assert.ErrorIs(t, e.SetTableStatus(tb.ID, "lost"), ErrValidation)
	assert.ErrorIs(t, e.SetTableStatus("ghost", model.StatusOccupied), ErrTableNotFound)

	assert.Equal(t, []StatusChange{
		{TableID: tb.ID, From: model.StatusAvailable, To: model.StatusOccupied},
		{TableID: tb.ID, From: model.StatusOccupied, To: model.StatusCleaning},
	}, got)
	cur, _ := e.Table(tb.ID)
	assert.Equal(t, model.StatusCleaning, cur.Status)
	assert.Equal(t, before, e.history.Len())
}

func TestApplyStatusChange(t *testing.T) {
	e := newTestEngine()
	tb, _ := e.AddTable(model.ShapeRound, 0, 0)
	emitted := 0
	e.OnStatusChange(func(StatusChange) { emitted++ })

	require.NoError(t, e.ApplyStatusChange(StatusChange{TableID: tb.ID, From: model.StatusAvailable, To: model.StatusReserved}))
	cur, _ := e.Table(tb.ID)
	assert.Equal(t, model.StatusReserved, cur.Status)
	assert.Zero(t, emitted)

	assert.ErrorIs(t, e.ApplyStatusChange(StatusChange{TableID: "ghost", To: model.StatusReserved}), ErrTableNotFound)
	assert.ErrorIs(t, e.ApplyStatusChange(StatusChange{TableID: tb.ID, To: "gone"}), ErrValidation)
}

func TestBoundaryErrorMatching(t *testing.T) {
	err := Reject(CodeStaleVersion, "expected %d", 1)
	assert.ErrorIs(t, err, ErrStaleVersion)
	assert.NotErrorIs(t, err, ErrInvalidLayout)
	assert.Equal(t, "STALE_VERSION: expected 1", err.Error())
	assert.Equal(t, CodeStaleVersion, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(ErrTableNotFound))
}

func TestUndoRedoKeepsOperationalStatus(t *testing.T) {
	e := newTestEngine()
	t1, _ := e.AddTable(model.ShapeRound, 0, 0)
	emitted := 0
	e.OnStatusChange(func(StatusChange) { emitted++ })

	require.NoError(t, e.SetTableStatus(t1.ID, model.StatusOccupied))
	_, err := e.AddTable(model.ShapeRound, 200, 0)
	require.NoError(t, err)

	require.True(t, e.Undo())
	got, _ := e.Table(t1.ID)
	assert.Equal(t, model.StatusOccupied, got.Status)
	require.Len(t, e.Tables(), 1)

	require.True(t, e.Redo())
	got, _ = e.Table(t1.ID)
	assert.Equal(t, model.StatusOccupied, got.Status)

	// back to before t1 existed and forward again: the snapshot is all
	// there is for a table that was gone
	require.True(t, e.Undo())
	require.True(t, e.Undo())
	assert.Empty(t, e.Tables())
	require.True(t, e.Redo())
	got, _ = e.Table(t1.ID)
	assert.Equal(t, model.StatusAvailable, got.Status)
	assert.Equal(t, 1, emitted)
}
