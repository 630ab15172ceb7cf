package layout

import (
	"fmt"
	"strings"

	"github.com/iliyamo/floor-layout/internal/geometry"
	"github.com/iliyamo/floor-layout/internal/model"
)

// SplitPolicy decides how a merged table's capacity and seats are shared
// among the tables a split produces.
type SplitPolicy string

const (
	// SplitFloor gives every child total/n and drops the remainder.
	SplitFloor SplitPolicy = "floor"
	// SplitSpread gives every child total/n and hands the remainder out one
	// by one starting with the first child, so the total is preserved.
	SplitSpread SplitPolicy = "spread"
)

// ParseSplitPolicy maps a config value to a policy.
func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch p := SplitPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case SplitFloor, SplitSpread:
		return p, nil
	case "":
		return SplitSpread, nil
	}
	return "", fmt.Errorf("unknown split policy %q", s)
}

// share returns the part of total given to child i of n.
func (p SplitPolicy) share(total, n, i int) int {
	q, r := total/n, total%n
	if p == SplitSpread && i < r {
		return q + 1
	}
	return q
}

// CanMerge reports whether ids name at least two distinct tables whose
// adjacency graph is connected.  Chains and L shapes qualify; every pair
// does not need to touch.
func (e *Engine) CanMerge(ids []string) bool {
	tables, ok := e.lookup(ids)
	if !ok || len(tables) < 2 {
		return false
	}
	seen := make([]bool, len(tables))
	seen[0] = true
	queue := []int{0}
	reached := 1
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for j := range tables {
			if seen[j] {
				continue
			}
			if geometry.Adjacent(tables[cur].Rect(), tables[j].Rect(), geometry.AdjacencyTolerance) {
				seen[j] = true
				reached++
				queue = append(queue, j)
			}
		}
	}
	return reached == len(tables)
}

// Merge replaces the given tables with one rect table covering all of
// them.  The new table records the originals in ChildIDs, sums capacity
// and seats, joins the labels with "+" and becomes the selection.
func (e *Engine) Merge(ids []string) (model.Table, error) {
	if !e.CanMerge(ids) {
		return model.Table{}, ErrNotMergeable
	}
	parts, _ := e.lookup(ids)

	rects := make([]geometry.Rect, len(parts))
	labels := make([]string, len(parts))
	capacity, seats := 0, 0
	for i, t := range parts {
		rects[i] = t.Rect()
		labels[i] = t.Label
		capacity += t.Capacity
		seats += t.Seats
	}
	b := geometry.Bounds(rects...)

	merged := model.Table{
		ID:        e.newID(),
		Label:     strings.Join(labels, "+"),
		X:         b.X,
		Y:         b.Y,
		W:         b.W,
		H:         b.H,
		Shape:     model.ShapeRect,
		Capacity:  capacity,
		Seats:     seats,
		Zone:      parts[0].Zone,
		Status:    model.StatusAvailable,
		ChildIDs:  append([]string(nil), ids...),
		IsVisible: true,
	}

	tables := make([]model.Table, 0, len(e.tables)-len(ids)+1)
	for _, t := range e.tables {
		if !contains(ids, t.ID) {
			tables = append(tables, t.Clone())
		}
	}
	tables = append(tables, merged)
	e.tables = tables
	e.selection = []string{merged.ID}
	e.revalidate()
	e.commit()
	return merged.Clone(), nil
}

// Split breaks a merged table back into one table per child id, laid out
// side by side along the longer axis of the merged footprint.  The
// children get fresh ids; their original geometry is not recoverable.
func (e *Engine) Split(id string) ([]model.Table, error) {
	i := e.tableIndex(id)
	if i < 0 {
		return nil, ErrTableNotFound
	}
	parent := e.tables[i]
	if !parent.IsMerged() {
		return nil, ErrNotMerged
	}
	n := len(parent.ChildIDs)

	remaining := make([]model.Table, 0, len(e.tables)-1+n)
	for j, t := range e.tables {
		if j != i {
			remaining = append(remaining, t.Clone())
		}
	}
	labels := childLabels(parent, remaining)

	// children are laid edge to edge at their own clamped size, so a
	// footprint narrower than n minimum tables spills past its far edge
	// instead of stacking the children on top of each other
	horizontal := parent.W >= parent.H
	step := parent.H / float64(n)
	if horizontal {
		step = parent.W / float64(n)
	}
	size := clampSize(step)
	originX, originY := geometry.Snap(parent.X), geometry.Snap(parent.Y)

	children := make([]model.Table, n)
	for k := 0; k < n; k++ {
		c := model.Table{
			ID:        e.newID(),
			Label:     labels[k],
			X:         originX,
			Y:         originY,
			W:         parent.W,
			H:         parent.H,
			Rotation:  parent.Rotation,
			Capacity:  e.splitPolicy.share(parent.Capacity, n, k),
			Seats:     e.splitPolicy.share(parent.Seats, n, k),
			Zone:      parent.Zone,
			Status:    model.StatusAvailable,
			IsVisible: parent.IsVisible,
		}
		if horizontal {
			c.X = originX + float64(k)*size
			c.W = size
		} else {
			c.Y = originY + float64(k)*size
			c.H = size
		}
		c.Shape = model.ShapeRect
		if c.W == c.H {
			c.Shape = model.ShapeSquare
		}
		children[k] = c
	}

	e.tables = append(remaining, children...)
	e.selection = make([]string, n)
	for k, c := range children {
		e.selection[k] = c.ID
	}
	e.revalidate()
	e.commit()

	out := make([]model.Table, n)
	for k, c := range children {
		out[k] = c.Clone()
	}
	return out, nil
}

// childLabels reuses the parts of a "+"-joined label when there is one
// free part per child, and falls back to sequential labels otherwise.
func childLabels(parent model.Table, remaining []model.Table) []string {
	n := len(parent.ChildIDs)
	taken := make(map[string]bool, len(remaining)+n)
	for _, t := range remaining {
		taken[t.Label] = true
	}

	if parts := strings.Split(parent.Label, "+"); len(parts) == n {
		usable := true
		for _, p := range parts {
			if p == "" || taken[p] {
				usable = false
				break
			}
			taken[p] = true
		}
		if usable {
			return parts
		}
	}

	labels := make([]string, 0, n)
	for k := 0; k < n; k++ {
		labels = append(labels, nextLabel(remaining, labels))
	}
	return labels
}

// lookup resolves ids in order.  It fails on unknown or repeated ids.
func (e *Engine) lookup(ids []string) ([]model.Table, bool) {
	out := make([]model.Table, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		i := e.tableIndex(id)
		if i < 0 || seen[id] {
			return nil, false
		}
		seen[id] = true
		out = append(out, e.tables[i])
	}
	return out, true
}
