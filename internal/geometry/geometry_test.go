package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnap(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		3:    0,
		4:    8,
		11:   8,
		12:   16,
		100:  104,
		-3:   0,
		59.9: 56,
	}
	for in, want := range cases {
		assert.Equal(t, want, Snap(in), "Snap(%v)", in)
	}
}

func TestOverlap(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 60, H: 60}

	assert.True(t, Overlap(a, Rect{X: 30, Y: 30, W: 60, H: 60}))
	assert.True(t, Overlap(a, a))
	assert.True(t, Overlap(a, Rect{X: 10, Y: 10, W: 8, H: 8}), "contained rect overlaps")

	assert.False(t, Overlap(a, Rect{X: 60, Y: 0, W: 60, H: 60}), "touching right edge")
	assert.False(t, Overlap(a, Rect{X: 0, Y: 60, W: 60, H: 60}), "touching bottom edge")
	assert.False(t, Overlap(a, Rect{X: 200, Y: 200, W: 60, H: 60}))
}

func TestOverlapIsSymmetric(t *testing.T) {
	a := Rect{X: 8, Y: 16, W: 100, H: 60}
	b := Rect{X: 96, Y: 64, W: 60, H: 60}
	assert.Equal(t, Overlap(a, b), Overlap(b, a))
}

func TestAdjacent(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 60, H: 60}

	assert.True(t, Adjacent(a, Rect{X: 60, Y: 0, W: 60, H: 60}, AdjacencyTolerance), "touching edges")
	assert.True(t, Adjacent(a, Rect{X: 64, Y: 0, W: 60, H: 60}, AdjacencyTolerance), "gap of 4")
	assert.True(t, Adjacent(a, Rect{X: 0, Y: 65, W: 60, H: 60}, AdjacencyTolerance), "vertical gap of 5")
	assert.True(t, Adjacent(Rect{X: 60, Y: 0, W: 60, H: 60}, a, AdjacencyTolerance), "left neighbour")

	assert.False(t, Adjacent(a, Rect{X: 72, Y: 0, W: 60, H: 60}, AdjacencyTolerance), "gap of 12")
	assert.False(t, Adjacent(a, Rect{X: 60, Y: 60, W: 60, H: 60}, AdjacencyTolerance), "corner only")
	assert.False(t, Adjacent(a, Rect{X: 60, Y: 100, W: 60, H: 60}, AdjacencyTolerance), "no shared span")
}

func TestBounds(t *testing.T) {
	got := Bounds(
		Rect{X: 0, Y: 0, W: 60, H: 60},
		Rect{X: 60, Y: 0, W: 60, H: 60},
		Rect{X: 60, Y: 60, W: 100, H: 60},
	)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 160, H: 120}, got)
	assert.Equal(t, Rect{}, Bounds())
}
