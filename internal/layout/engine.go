// Package layout implements the floor editor engine: the table and zone
// collections, validation, undo/redo history, merge/split and the
// draft/activation coordinator.
//
// An Engine is owned by the caller and is not safe for concurrent use;
// every method runs to completion before returning.  Mutations replace
// the collections wholesale so a slice returned by a getter is never
// modified afterwards.
package layout

import (
	"math"
	"regexp"
	"strconv"

	"github.com/google/uuid"

	"github.com/iliyamo/floor-layout/internal/geometry"
	"github.com/iliyamo/floor-layout/internal/model"
)

// MinTableSize is the smallest width or height a table can be resized to.
const MinTableSize = 40.0

var sequentialLabel = regexp.MustCompile(`^T(\d+)$`)

// defaultSize returns the footprint a new table of the given shape gets.
func defaultSize(s model.Shape) (w, h float64) {
	if s == model.ShapeRect {
		return 100, 60
	}
	return 60, 60
}

// Engine holds one floor's editable state.
type Engine struct {
	tables     []model.Table
	zones      []model.Zone
	selection  []string
	history    *History
	validation Validation

	splitPolicy  SplitPolicy
	historyLimit int
	newID        func() string
	listeners    []func(StatusChange)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSplitPolicy selects how capacity is divided when a table is split.
func WithSplitPolicy(p SplitPolicy) Option {
	return func(e *Engine) { e.splitPolicy = p }
}

// WithHistoryLimit overrides HistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) { e.historyLimit = n }
}

// WithIDGenerator replaces the uuid generator, mostly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine builds an engine whose state and first history entry are
// initial.
func NewEngine(initial model.Snapshot, opts ...Option) *Engine {
	e := &Engine{
		splitPolicy:  SplitSpread,
		historyLimit: HistoryLimit,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.history = NewHistory(e.historyLimit, initial)
	e.restore(initial)
	return e
}

// Reset replaces the whole state with s and clears history and selection.
func (e *Engine) Reset(s model.Snapshot) {
	e.history.Reset(s)
	e.selection = nil
	e.restore(s)
}

// restore installs a snapshot without touching history.
func (e *Engine) restore(s model.Snapshot) {
	c := s.Clone()
	e.tables = c.Tables
	e.zones = c.Zones
	e.pruneSelection()
	e.revalidate()
}

func (e *Engine) revalidate() {
	e.validation = Validate(model.Snapshot{Tables: e.tables, Zones: e.zones})
}

// commit records the current state as one history entry.
func (e *Engine) commit() {
	e.history.Commit(e.Snapshot())
}

// Snapshot returns a deep copy of the current tables and zones.
func (e *Engine) Snapshot() model.Snapshot {
	return model.Snapshot{Tables: e.tables, Zones: e.zones}.Clone()
}

// Tables returns the current tables.  The slice must not be modified.
func (e *Engine) Tables() []model.Table { return e.tables }

// Zones returns the current zones.  The slice must not be modified.
func (e *Engine) Zones() []model.Zone { return e.zones }

// Table looks up a table by id.
func (e *Engine) Table(id string) (model.Table, bool) {
	if i := e.tableIndex(id); i >= 0 {
		return e.tables[i].Clone(), true
	}
	return model.Table{}, false
}

// Validation returns the result of the last validation pass.
func (e *Engine) Validation() Validation { return e.validation }

func (e *Engine) CanUndo() bool { return e.history.CanUndo() }
func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

// Undo restores the previous committed snapshot.  Uncommitted moves are
// discarded.  It returns false when there is nothing to undo.
func (e *Engine) Undo() bool {
	s, ok := e.history.Undo()
	if ok {
		e.travel(s)
	}
	return ok
}

// Redo re-applies the next committed snapshot.
func (e *Engine) Redo() bool {
	s, ok := e.history.Redo()
	if ok {
		e.travel(s)
	}
	return ok
}

// travel installs a history snapshot.  Operational status is not layout
// state: tables that exist now keep their current status whatever the
// snapshot recorded.
func (e *Engine) travel(s model.Snapshot) {
	current := make(map[string]model.TableStatus, len(e.tables))
	for _, t := range e.tables {
		current[t.ID] = t.Status
	}
	e.restore(s)
	for i := range e.tables {
		if st, ok := current[e.tables[i].ID]; ok {
			e.tables[i].Status = st
		}
	}
}

// Commit closes a drag or resize gesture by recording the current state
// as a single history entry.
func (e *Engine) Commit() {
	e.commit()
}

// Select replaces the selection.  Unknown ids are dropped.
func (e *Engine) Select(ids ...string) {
	e.selection = nil
	for _, id := range ids {
		if e.tableIndex(id) >= 0 && !contains(e.selection, id) {
			e.selection = append(e.selection, id)
		}
	}
}

// Selection returns the selected table ids.
func (e *Engine) Selection() []string {
	return append([]string(nil), e.selection...)
}

// VisibleTables returns visible tables whose zone, if any, is visible.
func (e *Engine) VisibleTables() []model.Table {
	hidden := map[string]bool{}
	for _, z := range e.zones {
		if !z.IsVisible {
			hidden[z.ID] = true
		}
	}
	out := make([]model.Table, 0, len(e.tables))
	for _, t := range e.tables {
		if t.IsVisible && !hidden[t.Zone] {
			out = append(out, t.Clone())
		}
	}
	return out
}

// AdjacentTables returns every table adjacent to id.
func (e *Engine) AdjacentTables(id string) []model.Table {
	i := e.tableIndex(id)
	if i < 0 {
		return nil
	}
	var out []model.Table
	for j, t := range e.tables {
		if j != i && geometry.Adjacent(e.tables[i].Rect(), t.Rect(), geometry.AdjacencyTolerance) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// AddTable places a new table of the given shape at the snapped position
// and labels it T<n>, one past the highest existing T-number.
func (e *Engine) AddTable(shape model.Shape, x, y float64) (model.Table, error) {
	if !shape.Valid() {
		return model.Table{}, Reject(CodeValidation, "unknown shape %q", shape)
	}
	w, h := defaultSize(shape)
	t := model.Table{
		ID:        e.newID(),
		Label:     nextLabel(e.tables, nil),
		X:         clampSnap(x),
		Y:         clampSnap(y),
		W:         w,
		H:         h,
		Shape:     shape,
		Capacity:  4,
		Seats:     4,
		Status:    model.StatusAvailable,
		IsVisible: true,
	}
	tables := append(e.cloneTables(), t)
	e.tables = tables
	e.revalidate()
	e.commit()
	return t.Clone(), nil
}

// TablePatch lists the table fields UpdateTable may change.  Nil fields
// are left untouched.  Status is changed through SetTableStatus.
type TablePatch struct {
	Label     *string
	X, Y      *float64
	W, H      *float64
	Rotation  *float64
	Shape     *model.Shape
	Capacity  *int
	Seats     *int
	Zone      *string
	IsVisible *bool
}

// UpdateTable shallow-merges p into the table and commits.  Positions are
// snapped but not clamped, so the validator still reports a negative
// coordinate; sizes are clamped to MinTableSize like ResizeTable.
// Everything else is stored as given.
func (e *Engine) UpdateTable(id string, p TablePatch) (model.Table, error) {
	i := e.tableIndex(id)
	if i < 0 {
		return model.Table{}, ErrTableNotFound
	}
	if p.Zone != nil && *p.Zone != "" && e.zoneIndex(*p.Zone) < 0 {
		return model.Table{}, ErrZoneNotFound
	}
	if p.Shape != nil && !p.Shape.Valid() {
		return model.Table{}, Reject(CodeValidation, "unknown shape %q", *p.Shape)
	}

	tables := e.cloneTables()
	t := &tables[i]
	if p.Label != nil {
		t.Label = *p.Label
	}
	if p.X != nil {
		t.X = geometry.Snap(*p.X)
	}
	if p.Y != nil {
		t.Y = geometry.Snap(*p.Y)
	}
	if p.W != nil {
		t.W = clampSize(*p.W)
	}
	if p.H != nil {
		t.H = clampSize(*p.H)
	}
	if p.Rotation != nil {
		t.Rotation = *p.Rotation
	}
	if p.Shape != nil {
		t.Shape = *p.Shape
	}
	if p.Capacity != nil {
		t.Capacity = *p.Capacity
	}
	if p.Seats != nil {
		t.Seats = *p.Seats
	}
	if p.Zone != nil {
		t.Zone = *p.Zone
	}
	if p.IsVisible != nil {
		t.IsVisible = *p.IsVisible
	}
	e.tables = tables
	e.revalidate()
	e.commit()
	return t.Clone(), nil
}

// MoveTable moves a table to the snapped, non-negative position.  It is
// meant to be called for every pointer event of a drag, so it validates
// but does not commit; call Commit when the gesture ends.
func (e *Engine) MoveTable(id string, x, y float64) error {
	i := e.tableIndex(id)
	if i < 0 {
		return ErrTableNotFound
	}
	tables := e.cloneTables()
	tables[i].X = clampSnap(x)
	tables[i].Y = clampSnap(y)
	e.tables = tables
	e.revalidate()
	return nil
}

// ResizeTable sets the size, clamped to MinTableSize and snapped.  Like
// MoveTable it does not commit.
func (e *Engine) ResizeTable(id string, w, h float64) error {
	i := e.tableIndex(id)
	if i < 0 {
		return ErrTableNotFound
	}
	tables := e.cloneTables()
	tables[i].W = clampSize(w)
	tables[i].H = clampSize(h)
	e.tables = tables
	e.revalidate()
	return nil
}

// Direction is an arrow-key nudge direction.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Nudge moves a table exactly one grid unit and commits.  The position is
// not re-snapped, so a table loaded off the grid still moves one full
// unit.  Moves past the floor origin are clamped to zero; a press that
// moves nothing records nothing.
func (e *Engine) Nudge(id string, d Direction) error {
	i := e.tableIndex(id)
	if i < 0 {
		return ErrTableNotFound
	}
	x, y := e.tables[i].X, e.tables[i].Y
	switch d {
	case Up:
		y -= geometry.GridSize
	case Down:
		y += geometry.GridSize
	case Left:
		x -= geometry.GridSize
	case Right:
		x += geometry.GridSize
	}
	x, y = math.Max(x, 0), math.Max(y, 0)
	if x == e.tables[i].X && y == e.tables[i].Y {
		return nil
	}
	tables := e.cloneTables()
	tables[i].X, tables[i].Y = x, y
	e.tables = tables
	e.revalidate()
	e.commit()
	return nil
}

// DeleteTable removes a table and drops it from the selection.
func (e *Engine) DeleteTable(id string) error {
	i := e.tableIndex(id)
	if i < 0 {
		return ErrTableNotFound
	}
	tables := make([]model.Table, 0, len(e.tables)-1)
	for j, t := range e.tables {
		if j != i {
			tables = append(tables, t.Clone())
		}
	}
	e.tables = tables
	e.pruneSelection()
	e.revalidate()
	e.commit()
	return nil
}

// nextLabel returns T<n+1> where n is the highest T-number among the
// labels of tables and reserved.
func nextLabel(tables []model.Table, reserved []string) string {
	highest := 0
	scan := func(label string) {
		if m := sequentialLabel.FindStringSubmatch(label); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
				highest = n
			}
		}
	}
	for _, t := range tables {
		scan(t.Label)
	}
	for _, l := range reserved {
		scan(l)
	}
	return "T" + strconv.Itoa(highest+1)
}

func (e *Engine) tableIndex(id string) int {
	for i, t := range e.tables {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) cloneTables() []model.Table {
	out := make([]model.Table, len(e.tables), len(e.tables)+1)
	for i, t := range e.tables {
		out[i] = t.Clone()
	}
	return out
}

func (e *Engine) pruneSelection() {
	var kept []string
	for _, id := range e.selection {
		if e.tableIndex(id) >= 0 {
			kept = append(kept, id)
		}
	}
	e.selection = kept
}

func clampSnap(v float64) float64 {
	if v < 0 {
		v = 0
	}
	return geometry.Snap(v)
}

func clampSize(v float64) float64 {
	if v < MinTableSize {
		v = MinTableSize
	}
	return geometry.Snap(v)
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
