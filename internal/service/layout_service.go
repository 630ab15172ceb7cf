// Package service holds the server side of the draft and activation
// workflow: structural checks on incoming drafts, versioned activation,
// live table statuses and the events that announce them.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iliyamo/floor-layout/internal/layout"
	"github.com/iliyamo/floor-layout/internal/metrics"
	"github.com/iliyamo/floor-layout/internal/model"
	q "github.com/iliyamo/floor-layout/internal/queue"
	"github.com/iliyamo/floor-layout/internal/repository"
)

// LayoutStore is the storage the service needs.  FloorLayoutRepo and
// MemoryLayoutRepo both satisfy it.
type LayoutStore interface {
	SaveDraft(ctx context.Context, floorID string, s model.Snapshot) error
	LoadDraft(ctx context.Context, floorID string) (model.Snapshot, error)
	Get(ctx context.Context, floorID string) (*model.FloorLayout, error)
	Version(ctx context.Context, floorID string) (int64, error)
	Activate(ctx context.Context, floorID string, expectedVersion int64, check repository.CheckFunc) (int64, error)
	Statuses(ctx context.Context, floorID string) (map[string]model.TableStatus, error)
	SetStatus(ctx context.Context, floorID, tableID string, from, to model.TableStatus) error
}

// EventPublisher announces floor events to other instances and sessions.
type EventPublisher interface {
	PublishTableStatusChanged(ctx context.Context, ev q.TableStatusChangedEvent) error
	PublishLayoutActivated(ctx context.Context, ev q.LayoutActivatedEvent) error
}

// LayoutCache is the read cache of active layouts.  InvalidateFloor
// announces a newly activated version; Set must drop any layout older
// than the last announced version.
type LayoutCache interface {
	Get(ctx context.Context, floorID string) (*model.FloorLayout, bool)
	Set(ctx context.Context, l *model.FloorLayout) error
	InvalidateFloor(ctx context.Context, floorID string, version int64) error
}

// LayoutService implements layout.Persistence on top of a LayoutStore and
// adds the live status board.
type LayoutService struct {
	store     LayoutStore         // MySQL in production, memory in tests and floorctl
	publisher EventPublisher      // RabbitMQ fan-out, a no-op when unset
	cache     LayoutCache         // Redis read cache, a no-op when unset
	metrics   *metrics.Metrics    // nil-safe
	logger    *zap.Logger
	validate  *validator.Validate // struct tags on the model types
}

var _ layout.Persistence = (*LayoutService)(nil)

// Option configures optional collaborators of a LayoutService.
type Option func(*LayoutService)

func WithPublisher(p EventPublisher) Option { return func(s *LayoutService) { s.publisher = p } }
func WithCache(c LayoutCache) Option        { return func(s *LayoutService) { s.cache = c } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *LayoutService) { s.metrics = m } }

// NewLayoutService builds a service over store.  Without options events
// are dropped and nothing is cached.
func NewLayoutService(store LayoutStore, logger *zap.Logger, opts ...Option) *LayoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &LayoutService{
		store:     store,
		publisher: nopPublisher{},
		cache:     nopCache{},
		logger:    logger,
		validate:  validator.New(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CheckDraft performs the structural checks applied to every draft save.
// Overlap and out-of-bounds positions are allowed in a draft; they only
// block activation.
func (s *LayoutService) CheckDraft(snap model.Snapshot) error {
	// Field level rules (required labels, known shapes and statuses,
	// non-negative sizes) come from the struct tags.
	if err := s.validate.Struct(snap); err != nil {
		return layout.Reject(layout.CodeValidation, "%s", describeValidation(err))
	}

	// Duplicate table ids get their own code so clients can tell a bad
	// merge apart from a bad field.
	ids := make(map[string]bool, len(snap.Tables))
	for _, t := range snap.Tables {
		if ids[t.ID] {
			return layout.Reject(layout.CodeDuplicateTableID, "table id %q appears more than once", t.ID)
		}
		ids[t.ID] = true
	}

	// Zone ids must be unique and every table reference must resolve.
	zones := make(map[string]bool, len(snap.Zones))
	for _, z := range snap.Zones {
		if zones[z.ID] {
			return layout.Reject(layout.CodeValidation, "zone id %q appears more than once", z.ID)
		}
		zones[z.ID] = true
	}
	for _, t := range snap.Tables {
		if t.Zone != "" && !zones[t.Zone] {
			return layout.Reject(layout.CodeValidation, "table %q references unknown zone %q", t.ID, t.Zone)
		}
	}

	// Of the editor's own checks only labels and capacity are structural.
	// Overlap and bounds are left for activation.
	v := layout.Validate(snap)
	switch {
	case v.Has(layout.ViolationDuplicateLabel):
		return layout.Reject(layout.CodeValidation, "table labels must be unique")
	case v.Has(layout.ViolationInvalidCapacity):
		return layout.Reject(layout.CodeValidation, "table capacity must be at least 1")
	}
	return nil
}

// SaveDraft checks snap and stores it as the floor's draft.  Drafts are
// last-writer-wins and do not change the layout version.
func (s *LayoutService) SaveDraft(ctx context.Context, floorID string, snap model.Snapshot) error {
	if strings.TrimSpace(floorID) == "" {
		return layout.Reject(layout.CodeValidation, "floor id is required")
	}
	if err := s.CheckDraft(snap); err != nil {
		s.metrics.DraftSaved("rejected")
		return err
	}
	if err := s.store.SaveDraft(ctx, floorID, snap); err != nil {
		s.metrics.DraftSaved("error")
		return fmt.Errorf("save draft: %w", err)
	}
	s.metrics.DraftSaved("ok")
	s.logger.Debug("draft saved", zap.String("floor_id", floorID), zap.Int("tables", len(snap.Tables)))
	return nil
}

// LoadDraft returns the stored draft of floorID.
func (s *LayoutService) LoadDraft(ctx context.Context, floorID string) (model.Snapshot, error) {
	snap, err := s.store.LoadDraft(ctx, floorID)
	if err != nil {
		return model.Snapshot{}, mapStoreErr(err)
	}
	return snap, nil
}

// LayoutVersion returns the current layout version of floorID.
func (s *LayoutService) LayoutVersion(ctx context.Context, floorID string) (int64, error) {
	v, err := s.store.Version(ctx, floorID)
	if err != nil {
		return 0, mapStoreErr(err)
	}
	return v, nil
}

// ActivateLayout promotes the stored draft to the active layout when the
// stored version equals expectedVersion and the draft passes full
// validation.  A stale version is rejected before the draft is looked at
// and nothing is written.
func (s *LayoutService) ActivateLayout(ctx context.Context, floorID string, expectedVersion int64) (int64, error) {
	return s.Activate(ctx, floorID, expectedVersion, "")
}

// Activate is ActivateLayout with the acting user recorded on the event.
func (s *LayoutService) Activate(ctx context.Context, floorID string, expectedVersion int64, actor string) (int64, error) {
	start := time.Now()
	var tables int
	// check runs inside the store's transaction after the version compare,
	// so a stale request never reaches it and an invalid draft rolls back
	// without writing.
	check := func(snap model.Snapshot) error {
		if err := s.CheckDraft(snap); err != nil {
			return layout.Reject(layout.CodeInvalidLayout, "%s", detailOf(err))
		}
		if v := layout.Validate(snap); !v.IsValid {
			return layout.Reject(layout.CodeInvalidLayout, "%s", v.String())
		}
		tables = len(snap.Tables)
		return nil
	}

	version, err := s.store.Activate(ctx, floorID, expectedVersion, check)
	if err != nil {
		err = mapStoreErr(err)
		result := string(layout.CodeOf(err))
		if result == "" {
			result = "error"
		}
		s.metrics.Activated(result, time.Since(start).Seconds())
		s.logger.Info("activation rejected",
			zap.String("floor_id", floorID),
			zap.Int64("expected_version", expectedVersion),
			zap.Error(err))
		return 0, err
	}
	s.metrics.Activated("ok", time.Since(start).Seconds())

	// The activation is committed from here on.  Cache and broker
	// failures are logged and never turn it into an error.  Raising the
	// cache fence also stops concurrent readers from caching the old
	// layout after this point.
	if err := s.cache.InvalidateFloor(ctx, floorID, version); err != nil {
		s.logger.Warn("layout cache invalidation failed", zap.String("floor_id", floorID), zap.Error(err))
	}
	ev := q.LayoutActivatedEvent{
		FloorID:     floorID,
		Version:     version,
		TableCount:  tables,
		ActivatedBy: actor,
		ActivatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishLayoutActivated(ctx, ev); err != nil {
		s.logger.Warn("publish layout activated failed", zap.String("floor_id", floorID), zap.Error(err))
	}
	s.logger.Info("layout activated", zap.String("floor_id", floorID), zap.Int64("version", version))
	return version, nil
}

// ActiveLayout returns the floor aggregate, served from the cache when
// possible.
func (s *LayoutService) ActiveLayout(ctx context.Context, floorID string) (*model.FloorLayout, error) {
	if l, ok := s.cache.Get(ctx, floorID); ok {
		s.metrics.CacheLookup(true)
		return l, nil
	}
	s.metrics.CacheLookup(false)

	// Miss: read through to the store and fill the cache.  The cache
	// drops the write when an activation overtook this read.
	l, err := s.store.Get(ctx, floorID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if err := s.cache.Set(ctx, l); err != nil {
		s.logger.Debug("layout cache set failed", zap.String("floor_id", floorID), zap.Error(err))
	}
	return l, nil
}

// TableStatuses returns the live status of every table of the active
// layout.  Tables without a recorded change are available.
func (s *LayoutService) TableStatuses(ctx context.Context, floorID string) (map[string]model.TableStatus, error) {
	l, err := s.ActiveLayout(ctx, floorID)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.Statuses(ctx, floorID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	// Only tables of the active layout are reported; statuses left behind
	// by tables removed in a later activation are ignored.
	out := make(map[string]model.TableStatus, len(l.Active.Tables))
	for _, t := range l.Active.Tables {
		st, ok := stored[t.ID]
		if !ok {
			st = model.StatusAvailable
		}
		out[t.ID] = st
	}
	return out, nil
}

// ChangeTableStatus moves a table of the active layout to a new status.
// The store write is a compare-and-set on the previous status, so two
// concurrent changes from the same state cannot both succeed.
func (s *LayoutService) ChangeTableStatus(ctx context.Context, floorID, tableID string, to model.TableStatus, actor string) (layout.StatusChange, error) {
	statuses, err := s.TableStatuses(ctx, floorID)
	if err != nil {
		return layout.StatusChange{}, err
	}
	from, ok := statuses[tableID]
	if !ok {
		return layout.StatusChange{}, layout.ErrTableNotFound
	}
	if err := layout.CheckTransition(from, to); err != nil {
		return layout.StatusChange{}, err
	}
	// The write only lands if the table is still in the status the
	// transition was checked against.
	if err := s.store.SetStatus(ctx, floorID, tableID, from, to); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return layout.StatusChange{}, layout.Reject(layout.CodeInvalidTransition, "status of %s changed concurrently", tableID)
		}
		return layout.StatusChange{}, mapStoreErr(err)
	}
	s.metrics.StatusChanged(string(to))

	change := layout.StatusChange{TableID: tableID, From: from, To: to}
	ev := q.TableStatusChangedEvent{
		FloorID:   floorID,
		TableID:   tableID,
		From:      string(from),
		To:        string(to),
		ChangedBy: actor,
		ChangedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishTableStatusChanged(ctx, ev); err != nil {
		s.logger.Warn("publish status change failed", zap.String("floor_id", floorID), zap.String("table_id", tableID), zap.Error(err))
	}
	return change, nil
}

// mapStoreErr translates repository sentinels into layout errors.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrStaleVersion):
		return layout.ErrStaleVersion
	case errors.Is(err, repository.ErrDraftNotFound):
		return layout.ErrDraftNotFound
	case errors.Is(err, repository.ErrFloorNotFound):
		return layout.ErrFloorNotFound
	}
	var be *layout.BoundaryError
	if errors.As(err, &be) {
		return be
	}
	return err
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func detailOf(err error) string {
	var be *layout.BoundaryError
	if errors.As(err, &be) {
		return be.Detail
	}
	return err.Error()
}

type nopPublisher struct{}

func (nopPublisher) PublishTableStatusChanged(context.Context, q.TableStatusChangedEvent) error {
	return nil
}
func (nopPublisher) PublishLayoutActivated(context.Context, q.LayoutActivatedEvent) error {
	return nil
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (*model.FloorLayout, bool) { return nil, false }
func (nopCache) Set(context.Context, *model.FloorLayout) error          { return nil }
func (nopCache) InvalidateFloor(context.Context, string, int64) error   { return nil }
