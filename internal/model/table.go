package model

import "github.com/iliyamo/floor-layout/internal/geometry"

// Shape is the footprint style of a table.  It only affects the default
// size; overlap math always uses the bounding rectangle.
type Shape string

const (
	ShapeRound  Shape = "round"
	ShapeSquare Shape = "square"
	ShapeRect   Shape = "rect"
)

// Valid reports whether s is one of the known shapes.
func (s Shape) Valid() bool {
	switch s {
	case ShapeRound, ShapeSquare, ShapeRect:
		return true
	}
	return false
}

// TableStatus is the operational state of a table during service.
type TableStatus string

const (
	StatusAvailable TableStatus = "available"
	StatusOccupied  TableStatus = "occupied"
	StatusReserved  TableStatus = "reserved"
	StatusCleaning  TableStatus = "cleaning"
)

// Valid reports whether s is one of the known statuses.
func (s TableStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusReserved, StatusCleaning:
		return true
	}
	return false
}

// Table describes one physical table on a floor.
//
// Fields:
//  ID        – opaque identifier, unique per floor.
//  Label     – human readable name (T1, T2, T1+T2 ...).
//  X, Y      – top-left corner in grid units, snapped and non-negative.
//  W, H      – footprint size.
//  Rotation  – stored for renderers, ignored by collision checks.
//  Capacity  – number of covers the table can serve.
//  Seats     – number of physical chairs.
//  Zone      – optional zone id; empty when unassigned.
//  ChildIDs  – ids of the tables merged into this one.
type Table struct {
	ID        string      `json:"id" validate:"required"`
	Label     string      `json:"label" validate:"required"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	W         float64     `json:"w" validate:"gt=0"`
	H         float64     `json:"h" validate:"gt=0"`
	Rotation  float64     `json:"rotation"`
	Shape     Shape       `json:"shape" validate:"oneof=round square rect"`
	Capacity  int         `json:"capacity"`
	Seats     int         `json:"seats"`
	Zone      string      `json:"zone,omitempty"`
	Status    TableStatus `json:"status" validate:"oneof=available occupied reserved cleaning"`
	ChildIDs  []string    `json:"child_ids,omitempty"`
	IsVisible bool        `json:"is_visible"`
}

// Rect returns the bounding rectangle of the table.
func (t Table) Rect() geometry.Rect {
	return geometry.Rect{X: t.X, Y: t.Y, W: t.W, H: t.H}
}

// IsMerged reports whether the table was produced by a merge.
func (t Table) IsMerged() bool { return len(t.ChildIDs) > 0 }

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	if t.ChildIDs != nil {
		t.ChildIDs = append([]string(nil), t.ChildIDs...)
	}
	return t
}

// Zone groups tables for visibility filtering and styling.
type Zone struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Color     string `json:"color"`
	IsVisible bool   `json:"is_visible"`
}
