package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/floor-layout/internal/model"
)

// memoryFloor is one floor row plus its status rows.
type memoryFloor struct {
	layout   model.FloorLayout
	hasDraft bool                         // mirrors a non-NULL draft_json
	statuses map[string]model.TableStatus // tables that left available at least once
}

// MemoryLayoutRepo is an in-process implementation of the layout store
// with the same semantics as FloorLayoutRepo.  It backs tests and local
// runs without MySQL.  Safe for concurrent use.
type MemoryLayoutRepo struct {
	mu     sync.Mutex
	floors map[string]*memoryFloor
}

// NewMemoryLayoutRepo returns an empty store.
func NewMemoryLayoutRepo() *MemoryLayoutRepo {
	return &MemoryLayoutRepo{floors: make(map[string]*memoryFloor)}
}

// SaveDraft creates the floor at version 1 on first use and replaces the
// draft otherwise.
func (r *MemoryLayoutRepo) SaveDraft(_ context.Context, floorID string, s model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.floors[floorID]
	if !ok {
		f = &memoryFloor{
			layout:   model.FloorLayout{FloorID: floorID, Version: 1},
			statuses: make(map[string]model.TableStatus),
		}
		r.floors[floorID] = f
	}
	f.layout.Draft = s.Clone()
	f.layout.UpdatedAt = time.Now().UTC()
	f.hasDraft = true
	return nil
}

// LoadDraft returns a copy of the draft.
func (r *MemoryLayoutRepo) LoadDraft(_ context.Context, floorID string) (model.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.floors[floorID]
	if !ok {
		return model.Snapshot{}, ErrFloorNotFound
	}
	if !f.hasDraft {
		return model.Snapshot{}, ErrDraftNotFound
	}
	return f.layout.Draft.Clone(), nil
}

// Get returns a deep copy of the floor row.
func (r *MemoryLayoutRepo) Get(_ context.Context, floorID string) (*model.FloorLayout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.floors[floorID]
	if !ok {
		return nil, ErrFloorNotFound
	}
	// Copy the struct and then its snapshots so callers cannot reach the
	// stored slices.
	l := f.layout
	l.Draft = l.Draft.Clone()
	l.Active = l.Active.Clone()
	return &l, nil
}

// Version returns the current layout version.
func (r *MemoryLayoutRepo) Version(_ context.Context, floorID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.floors[floorID]
	if !ok {
		return 0, ErrFloorNotFound
	}
	return f.layout.Version, nil
}

// Activate holds the store lock for the whole compare, check and swap.
func (r *MemoryLayoutRepo) Activate(_ context.Context, floorID string, expectedVersion int64, check CheckFunc) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.floors[floorID]
	if !ok {
		return 0, ErrFloorNotFound
	}
	// Same order as the MySQL store: version first, then the draft.
	if f.layout.Version != expectedVersion {
		return 0, ErrStaleVersion
	}
	if !f.hasDraft {
		return 0, ErrDraftNotFound
	}
	if check != nil {
		if err := check(f.layout.Draft.Clone()); err != nil {
			return 0, err
		}
	}
	f.layout.Active = f.layout.Draft.Clone()
	f.layout.Version++
	f.layout.UpdatedAt = time.Now().UTC()
	return f.layout.Version, nil
}

// Statuses returns a copy of the stored statuses.  An unknown floor has
// none.
func (r *MemoryLayoutRepo) Statuses(_ context.Context, floorID string) (map[string]model.TableStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]model.TableStatus)
	if f, ok := r.floors[floorID]; ok {
		for id, s := range f.statuses {
			out[id] = s
		}
	}
	return out, nil
}

// SetStatus is a compare-and-set on the current status, treating a
// missing entry as available.
func (r *MemoryLayoutRepo) SetStatus(_ context.Context, floorID, tableID string, from, to model.TableStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.floors[floorID]
	if !ok {
		return ErrFloorNotFound
	}
	current, ok := f.statuses[tableID]
	if !ok {
		current = model.StatusAvailable
	}
	if current != from {
		return ErrStatusConflict
	}
	f.statuses[tableID] = to
	return nil
}
