package layout

import "github.com/iliyamo/floor-layout/internal/model"

// transitions lists the allowed operational status moves:
// available <-> occupied, occupied -> cleaning -> available and
// available <-> reserved.
var transitions = map[model.TableStatus][]model.TableStatus{
	model.StatusAvailable: {model.StatusOccupied, model.StatusReserved},
	model.StatusOccupied:  {model.StatusAvailable, model.StatusCleaning},
	model.StatusCleaning:  {model.StatusAvailable},
	model.StatusReserved:  {model.StatusAvailable},
}

// CanTransition reports whether a table may move from one status to
// another.
func CanTransition(from, to model.TableStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an INVALID_TRANSITION rejection when the move is
// not allowed.
func CheckTransition(from, to model.TableStatus) error {
	if !to.Valid() {
		return Reject(CodeValidation, "unknown status %q", to)
	}
	if !CanTransition(from, to) {
		return Reject(CodeInvalidTransition, "%s -> %s", from, to)
	}
	return nil
}

// StatusChange is emitted whenever a table's operational status changes.
type StatusChange struct {
	TableID string            `json:"table_id"`
	From    model.TableStatus `json:"from"`
	To      model.TableStatus `json:"to"`
}

// OnStatusChange registers fn to receive every local status change.
// Delivering changes to other sessions is up to fn.
func (e *Engine) OnStatusChange(fn func(StatusChange)) {
	e.listeners = append(e.listeners, fn)
}

// SetTableStatus moves a table to a new operational status and notifies
// listeners.  Status is not part of the layout history.
func (e *Engine) SetTableStatus(id string, to model.TableStatus) error {
	i := e.tableIndex(id)
	if i < 0 {
		return ErrTableNotFound
	}
	from := e.tables[i].Status
	if err := CheckTransition(from, to); err != nil {
		return err
	}
	e.setStatus(i, to)

	change := StatusChange{TableID: id, From: from, To: to}
	for _, fn := range e.listeners {
		fn(change)
	}
	return nil
}

// ApplyStatusChange applies a change made by another session.  The
// originating session already checked the transition, so only the target
// status is applied and no event is emitted.
func (e *Engine) ApplyStatusChange(c StatusChange) error {
	i := e.tableIndex(c.TableID)
	if i < 0 {
		return ErrTableNotFound
	}
	if !c.To.Valid() {
		return Reject(CodeValidation, "unknown status %q", c.To)
	}
	e.setStatus(i, c.To)
	return nil
}

func (e *Engine) setStatus(i int, s model.TableStatus) {
	tables := e.cloneTables()
	tables[i].Status = s
	e.tables = tables
}
