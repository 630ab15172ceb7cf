package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/floor-layout/internal/model"
)

// twoTouching returns an engine holding T1 and T2 side by side with a
// 4-unit gap.
func twoTouching(t *testing.T, opts ...Option) (*Engine, model.Table, model.Table) {
	t.Helper()
	e := newTestEngine(opts...)
	a, err := e.AddTable(model.ShapeSquare, 0, 0)
	require.NoError(t, err)
	b, err := e.AddTable(model.ShapeSquare, 64, 0)
	require.NoError(t, err)
	return e, a, b
}

func TestMergeScenario(t *testing.T) {
	e, a, b := twoTouching(t)
	require.True(t, e.CanMerge([]string{a.ID, b.ID}))

	m, err := e.Merge([]string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, "T1+T2", m.Label)
	assert.Equal(t, 8, m.Capacity)
	assert.Equal(t, 8, m.Seats)
	assert.Equal(t, model.ShapeRect, m.Shape)
	assert.Equal(t, []string{a.ID, b.ID}, m.ChildIDs)
	assert.Equal(t, 0.0, m.X)
	assert.Equal(t, 124.0, m.W)
	assert.Equal(t, 60.0, m.H)

	require.Len(t, e.Tables(), 1)
	assert.Equal(t, []string{m.ID}, e.Selection())
	assert.True(t, e.Validation().IsValid)

	require.True(t, e.Undo())
	assert.Len(t, e.Tables(), 2, "merge is one history step")
}

func TestCanMerge(t *testing.T) {
	e := newTestEngine()
	a, _ := e.AddTable(model.ShapeSquare, 0, 0)
	b, _ := e.AddTable(model.ShapeSquare, 64, 0)
	c, _ := e.AddTable(model.ShapeSquare, 64, 64) // below b
	far, _ := e.AddTable(model.ShapeSquare, 400, 400)

	assert.True(t, e.CanMerge([]string{a.ID, b.ID, c.ID}), "L shape is connected")
	assert.False(t, e.CanMerge([]string{a.ID, c.ID}), "diagonal only")
	assert.False(t, e.CanMerge([]string{a.ID, far.ID}))
	assert.False(t, e.CanMerge([]string{a.ID}))
	assert.False(t, e.CanMerge([]string{a.ID, a.ID}))
	assert.False(t, e.CanMerge([]string{a.ID, "ghost"}))

	_, err := e.Merge([]string{a.ID, far.ID})
	assert.ErrorIs(t, err, ErrNotMergeable)
	assert.Len(t, e.Tables(), 4)
}

func TestMergeKeepsFirstZone(t *testing.T) {
	e, a, b := twoTouching(t)
	z := e.AddZone("Bar", "#f00")
	_, err := e.UpdateTable(a.ID, TablePatch{Zone: &z.ID})
	require.NoError(t, err)

	m, err := e.Merge([]string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, z.ID, m.Zone)
}

func TestSplitRoundTrip(t *testing.T) {
	e, a, b := twoTouching(t)
	_, err := e.UpdateTable(b.ID, TablePatch{Capacity: ptr(3), Seats: ptr(3)})
	require.NoError(t, err)

	m, err := e.Merge([]string{a.ID, b.ID})
	require.NoError(t, err)
	require.Equal(t, 7, m.Capacity)

	children, err := e.Split(m.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)

	assert.Equal(t, "T1", children[0].Label)
	assert.Equal(t, "T2", children[1].Label)
	assert.Equal(t, 4, children[0].Capacity)
	assert.Equal(t, 3, children[1].Capacity)
	assert.Equal(t, 7, children[0].Seats+children[1].Seats)
	for _, c := range children {
		assert.NotEqual(t, a.ID, c.ID, "split children get fresh ids")
		assert.NotEqual(t, b.ID, c.ID)
		assert.False(t, c.IsMerged())
		assert.Equal(t, model.StatusAvailable, c.Status)
	}
	assert.Equal(t, 0.0, children[0].X)
	assert.Equal(t, 64.0, children[1].X)
	assert.Equal(t, 64.0, children[0].W)

	assert.Len(t, e.Tables(), 2)
	assert.ElementsMatch(t, []string{children[0].ID, children[1].ID}, e.Selection())
	assert.True(t, e.Validation().IsValid)
}

func TestSplitFloorPolicyDropsRemainder(t *testing.T) {
	e, a, b := twoTouching(t, WithSplitPolicy(SplitFloor))
	_, err := e.UpdateTable(b.ID, TablePatch{Capacity: ptr(3)})
	require.NoError(t, err)
	m, err := e.Merge([]string{a.ID, b.ID})
	require.NoError(t, err)

	children, err := e.Split(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, children[0].Capacity)
	assert.Equal(t, 3, children[1].Capacity)
}

func TestSplitVerticalAndSequentialLabels(t *testing.T) {
	e := newTestEngine()
	a, _ := e.AddTable(model.ShapeSquare, 0, 0)
	b, _ := e.AddTable(model.ShapeSquare, 0, 64)
	m, err := e.Merge([]string{a.ID, b.ID})
	require.NoError(t, err)

	// a renamed merged table has no parts to recover labels from
	_, err = e.UpdateTable(m.ID, TablePatch{Label: ptr("Big")})
	require.NoError(t, err)

	children, err := e.Split(m.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "T1", children[0].Label)
	assert.Equal(t, "T2", children[1].Label)
	assert.Equal(t, 0.0, children[0].Y)
	assert.Equal(t, 64.0, children[1].Y)
	assert.Equal(t, 64.0, children[0].H)
	assert.Equal(t, model.ShapeRect, children[0].Shape)
}

func TestSplitLabelCollision(t *testing.T) {
	e, a, b := twoTouching(t)
	m, err := e.Merge([]string{a.ID, b.ID})
	require.NoError(t, err)
	other, err := e.AddTable(model.ShapeRound, 400, 0)
	require.NoError(t, err)
	_, err = e.UpdateTable(other.ID, TablePatch{Label: ptr("T2")})
	require.NoError(t, err)

	children, err := e.Split(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "T3", children[0].Label)
	assert.Equal(t, "T4", children[1].Label)
	assert.False(t, e.Validation().Has(ViolationDuplicateLabel))
}

func TestSplitErrors(t *testing.T) {
	e, a, _ := twoTouching(t)
	_, err := e.Split(a.ID)
	assert.ErrorIs(t, err, ErrNotMerged)
	_, err = e.Split("ghost")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestParseSplitPolicy(t *testing.T) {
	p, err := ParseSplitPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SplitSpread, p)

	p, err = ParseSplitPolicy(" Floor ")
	require.NoError(t, err)
	assert.Equal(t, SplitFloor, p)

	_, err = ParseSplitPolicy("round-robin")
	assert.Error(t, err)
}

func TestSplitNarrowFootprintDoesNotOverlap(t *testing.T) {
	e := NewEngine(model.Snapshot{Tables: []model.Table{{
		ID: "m", Label: "T1+T2+T3", X: 0, Y: 0, W: 48, H: 48,
		Shape: model.ShapeRect, Capacity: 6, Seats: 6,
		Status: model.StatusAvailable, ChildIDs: []string{"a", "b", "c"}, IsVisible: true,
	}}}, WithIDGenerator(seqIDs()))

	children, err := e.Split("m")
	require.NoError(t, err)
	require.Len(t, children, 3)
	for k, c := range children {
		assert.Equal(t, MinTableSize, c.W)
		assert.Equal(t, float64(k)*MinTableSize, c.X)
		assert.Equal(t, 2, c.Capacity)
	}
	assert.False(t, e.Validation().Has(ViolationOverlap))
	assert.True(t, e.Validation().IsValid)
}
