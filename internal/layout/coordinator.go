package layout

import (
	"context"

	"github.com/iliyamo/floor-layout/internal/model"
)

// Persistence is the storage collaborator the coordinator talks to.
//
// SaveDraft is last-writer-wins.  ActivateLayout must compare
// expectedVersion with the stored version, re-validate the stored draft
// and, on success, swap the active layout and bump the version in one
// atomic step.  Rejections are reported as *BoundaryError.
type Persistence interface {
	SaveDraft(ctx context.Context, floorID string, s model.Snapshot) error
	LoadDraft(ctx context.Context, floorID string) (model.Snapshot, error)
	ActivateLayout(ctx context.Context, floorID string, expectedVersion int64) (int64, error)
	LayoutVersion(ctx context.Context, floorID string) (int64, error)
}

// Coordinator moves one floor's engine state through the draft and
// activation workflow.
type Coordinator struct {
	floorID string
	engine  *Engine
	store   Persistence
	version int64
}

// NewCoordinator binds an engine to a floor and its persistence.
func NewCoordinator(floorID string, engine *Engine, store Persistence) *Coordinator {
	return &Coordinator{floorID: floorID, engine: engine, store: store}
}

// FloorID returns the floor the coordinator works on.
func (c *Coordinator) FloorID() string { return c.floorID }

// Engine returns the bound engine.
func (c *Coordinator) Engine() *Engine { return c.engine }

// Version returns the last layout version this coordinator observed.
func (c *Coordinator) Version() int64 { return c.version }

// SaveDraft stores the engine's current state as the floor's draft.  An
// invalid layout is not blocked here; gating the save control on
// Engine.Validation is the caller's policy.
func (c *Coordinator) SaveDraft(ctx context.Context) error {
	return c.store.SaveDraft(ctx, c.floorID, c.engine.Snapshot())
}

// LoadDraft replaces the engine state with the stored draft and starts a
// fresh history.  ErrDraftNotFound is returned when the floor has none.
func (c *Coordinator) LoadDraft(ctx context.Context) error {
	s, err := c.store.LoadDraft(ctx, c.floorID)
	if err != nil {
		return err
	}
	c.engine.Reset(s)
	return c.Refresh(ctx)
}

// Refresh reloads the stored layout version.
func (c *Coordinator) Refresh(ctx context.Context) error {
	v, err := c.store.LayoutVersion(ctx, c.floorID)
	if err != nil {
		return err
	}
	c.version = v
	return nil
}

// Activate promotes the stored draft using expectedVersion for the
// optimistic check and returns the new version.  A loser of a concurrent
// activation gets ErrStaleVersion and must reload and reapply.
func (c *Coordinator) Activate(ctx context.Context, expectedVersion int64) (int64, error) {
	v, err := c.store.ActivateLayout(ctx, c.floorID, expectedVersion)
	if err != nil {
		return 0, err
	}
	c.version = v
	return v, nil
}

// Publish saves the current state as the draft and activates it against
// the last observed version.
func (c *Coordinator) Publish(ctx context.Context) (int64, error) {
	if err := c.SaveDraft(ctx); err != nil {
		return 0, err
	}
	return c.Activate(ctx, c.version)
}
