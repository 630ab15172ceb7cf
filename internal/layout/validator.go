package layout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/floor-layout/internal/geometry"
	"github.com/iliyamo/floor-layout/internal/model"
)

// Violation identifies one kind of layout rule breach.
type Violation string

const (
	ViolationOverlap         Violation = "OVERLAP"
	ViolationDuplicateLabel  Violation = "DUPLICATE_LABEL"
	ViolationInvalidCapacity Violation = "INVALID_CAPACITY"
	ViolationOutOfBounds     Violation = "OUT_OF_BOUNDS"
)

// Validation is the result of checking a snapshot.  Errors is a sorted set
// and OverlappingIDs is sorted and free of duplicates, so two validations
// of the same state compare equal.
type Validation struct {
	IsValid        bool        `json:"is_valid"`
	Errors         []Violation `json:"errors"`
	OverlappingIDs []string    `json:"overlapping_ids"`
}

// Has reports whether v contains the violation.
func (v Validation) Has(want Violation) bool {
	for _, e := range v.Errors {
		if e == want {
			return true
		}
	}
	return false
}

// String renders the violations for error details and CLI output.
func (v Validation) String() string {
	if v.IsValid {
		return "valid"
	}
	parts := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		parts = append(parts, string(e))
	}
	s := strings.Join(parts, ", ")
	if len(v.OverlappingIDs) > 0 {
		s += fmt.Sprintf(" (overlapping: %s)", strings.Join(v.OverlappingIDs, ", "))
	}
	return s
}

// Validate checks every layout invariant over the tables of s.  Overlap
// detection is pairwise, which is fine for the tens of tables a floor
// holds.
func Validate(s model.Snapshot) Validation {
	found := map[Violation]bool{}
	overlapping := map[string]bool{}
	labels := make(map[string]int, len(s.Tables))

	for i, t := range s.Tables {
		if t.Capacity < 1 {
			found[ViolationInvalidCapacity] = true
		}
		if t.X < 0 || t.Y < 0 {
			found[ViolationOutOfBounds] = true
		}
		labels[t.Label]++
		for _, o := range s.Tables[i+1:] {
			if geometry.Overlap(t.Rect(), o.Rect()) {
				found[ViolationOverlap] = true
				overlapping[t.ID] = true
				overlapping[o.ID] = true
			}
		}
	}
	for _, n := range labels {
		if n > 1 {
			found[ViolationDuplicateLabel] = true
			break
		}
	}

	v := Validation{
		IsValid:        len(found) == 0,
		Errors:         make([]Violation, 0, len(found)),
		OverlappingIDs: make([]string, 0, len(overlapping)),
	}
	for e := range found {
		v.Errors = append(v.Errors, e)
	}
	for id := range overlapping {
		v.OverlappingIDs = append(v.OverlappingIDs, id)
	}
	sort.Slice(v.Errors, func(i, j int) bool { return v.Errors[i] < v.Errors[j] })
	sort.Strings(v.OverlappingIDs)
	return v
}
