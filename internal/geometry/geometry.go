// Package geometry holds the axis-aligned rectangle math used by the floor
// editor: grid snapping, overlap and adjacency.  Rotation is never taken
// into account.
package geometry

import "math"

const (
	// GridSize is the unit every table position and size snaps to.
	GridSize = 8.0
	// AdjacencyTolerance is the default gap allowed between facing edges
	// for two tables to count as adjacent.
	AdjacencyTolerance = 5.0
)

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Snap rounds v to the nearest multiple of GridSize.
func Snap(v float64) float64 {
	return math.Round(v/GridSize) * GridSize
}

// Overlap reports whether a and b intersect with a positive area.
// Rectangles that only share an edge do not overlap.
func Overlap(a, b Rect) bool {
	return a.X < b.Right() && b.X < a.Right() &&
		a.Y < b.Bottom() && b.Y < a.Bottom()
}

// Adjacent reports whether a and b face each other across a gap of at most
// tol and their projections on the perpendicular axis intersect.
func Adjacent(a, b Rect, tol float64) bool {
	ySpan := a.Y < b.Bottom() && b.Y < a.Bottom()
	xSpan := a.X < b.Right() && b.X < a.Right()

	if ySpan && (math.Abs(a.Right()-b.X) <= tol || math.Abs(b.Right()-a.X) <= tol) {
		return true
	}
	if xSpan && (math.Abs(a.Bottom()-b.Y) <= tol || math.Abs(b.Bottom()-a.Y) <= tol) {
		return true
	}
	return false
}

// Bounds returns the smallest rectangle covering every input.  The zero
// Rect is returned for an empty input.
func Bounds(rects ...Rect) Rect {
	if len(rects) == 0 {
		return Rect{}
	}
	minX, minY := rects[0].X, rects[0].Y
	maxX, maxY := rects[0].Right(), rects[0].Bottom()
	for _, r := range rects[1:] {
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.Right())
		maxY = math.Max(maxY, r.Bottom())
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
