package model

import "time"

// Snapshot is the serialisable content of a floor: its tables and zones.
// Both the draft and the active layout are stored in this shape.
type Snapshot struct {
	Tables []Table `json:"tables" validate:"dive"`
	Zones  []Zone  `json:"zones" validate:"dive"`
}

// Clone returns a deep copy so that callers never share slices.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Tables: make([]Table, len(s.Tables)),
		Zones:  make([]Zone, len(s.Zones)),
	}
	for i, t := range s.Tables {
		out.Tables[i] = t.Clone()
	}
	copy(out.Zones, s.Zones)
	return out
}

// FloorLayout is the persisted aggregate for one floor.
//
// Fields:
//  FloorID   – floor_layouts.floor_id.
//  Draft     – editable working copy; may violate layout invariants.
//  Active    – layout used by live service; always valid.
//  Version   – bumped only by a successful activation.  New floors start at 1.
//  UpdatedAt – floor_layouts.updated_at.
type FloorLayout struct {
	FloorID   string    `json:"floor_id"`
	Draft     Snapshot  `json:"draft"`
	Active    Snapshot  `json:"active"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
