package repository // repository holds data access logic for floor layouts

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"encoding/json" // snapshots are stored in JSON columns
	"errors"        // errors.Is for sql.ErrNoRows
	"fmt"           // wrapping decode failures

	"github.com/iliyamo/floor-layout/internal/model" // snapshot and status types
)

// CheckFunc inspects a draft inside the activation transaction.  A
// non-nil error aborts the activation and is returned unchanged.
type CheckFunc func(model.Snapshot) error

// FloorLayoutRepo stores one row per floor in floor_layouts: the draft
// and active snapshots as JSON plus the optimistic version counter.
// Operational table statuses live in table_statuses so that they never
// touch the layout version.
type FloorLayoutRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewFloorLayoutRepo constructs a FloorLayoutRepo with the given DB handle.
func NewFloorLayoutRepo(db *sql.DB) *FloorLayoutRepo {
	return &FloorLayoutRepo{db: db}
}

// SaveDraft upserts the draft.  New floors start at version 1.  There is
// no version check: drafts are last-writer-wins.
func (r *FloorLayoutRepo) SaveDraft(ctx context.Context, floorID string, s model.Snapshot) error {
	// Encode the snapshot once; the same bytes go into the JSON column.
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	// The first save creates the row at version 1.  Later saves only
	// replace the draft, leaving active_json and version alone.
	const q = `INSERT INTO floor_layouts (floor_id, draft_json, version)
	           VALUES (?, ?, 1)
	           ON DUPLICATE KEY UPDATE draft_json = VALUES(draft_json), updated_at = CURRENT_TIMESTAMP`
	_, err = r.db.ExecContext(ctx, q, floorID, body)
	return err
}

// LoadDraft returns the stored draft.  It returns ErrFloorNotFound when the
// floor has no row and ErrDraftNotFound when the draft column is NULL.
func (r *FloorLayoutRepo) LoadDraft(ctx context.Context, floorID string) (model.Snapshot, error) {
	const q = `SELECT draft_json FROM floor_layouts WHERE floor_id = ?`
	var raw []byte
	if err := r.db.QueryRowContext(ctx, q, floorID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Snapshot{}, ErrFloorNotFound
		}
		return model.Snapshot{}, err
	}
	// A row created by something other than a draft save has no draft.
	if raw == nil {
		return model.Snapshot{}, ErrDraftNotFound
	}
	return decodeSnapshot(raw)
}

// Get returns the full layout row for a floor.
func (r *FloorLayoutRepo) Get(ctx context.Context, floorID string) (*model.FloorLayout, error) {
	const q = `SELECT floor_id, draft_json, active_json, version, updated_at
	           FROM floor_layouts WHERE floor_id = ?`
	var (
		l           model.FloorLayout
		draft, live []byte
	)
	err := r.db.QueryRowContext(ctx, q, floorID).Scan(&l.FloorID, &draft, &live, &l.Version, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFloorNotFound
		}
		return nil, err
	}
	// NULL columns decode to empty snapshots; a never activated floor has
	// an empty active layout at version 1.
	if draft != nil {
		if l.Draft, err = decodeSnapshot(draft); err != nil {
			return nil, err
		}
	}
	if live != nil {
		if l.Active, err = decodeSnapshot(live); err != nil {
			return nil, err
		}
	}
	return &l, nil
}

// Version returns the current layout version of a floor.
func (r *FloorLayoutRepo) Version(ctx context.Context, floorID string) (int64, error) {
	const q = `SELECT version FROM floor_layouts WHERE floor_id = ?`
	var v int64
	if err := r.db.QueryRowContext(ctx, q, floorID).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrFloorNotFound
		}
		return 0, err
	}
	return v, nil
}

// Activate promotes the draft to the active layout when the stored
// version equals expectedVersion and check accepts the draft.  The row is
// locked for the duration of the transaction and the final UPDATE is
// guarded by the version as well, so exactly one of two concurrent callers
// with the same expectedVersion succeeds.  It returns the new version.
func (r *FloorLayoutRepo) Activate(ctx context.Context, floorID string, expectedVersion int64, check CheckFunc) (int64, error) {
	// Start a transaction so the read, the check and the write see one
	// consistent row.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	// Roll back on every early return; the flag is set only after Commit.
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT draft_json, version FROM floor_layouts WHERE floor_id = ? FOR UPDATE`
	var (
		raw     []byte
		current int64
	)
	if err := tx.QueryRowContext(ctx, sel, floorID).Scan(&raw, &current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrFloorNotFound
		}
		return 0, err
	}
	// The version is compared before the draft is even decoded: a stale
	// caller learns nothing about the draft and nothing is written.
	if current != expectedVersion {
		return 0, ErrStaleVersion
	}
	if raw == nil {
		return 0, ErrDraftNotFound
	}
	draft, err := decodeSnapshot(raw)
	if err != nil {
		return 0, err
	}
	// Let the caller veto the draft while the row is still locked.
	if check != nil {
		if err := check(draft); err != nil {
			return 0, err
		}
	}

	// Copy the draft column server side and bump the version.  The
	// version guard repeats the check for stores without row locks.
	const upd = `UPDATE floor_layouts
	             SET active_json = draft_json, version = version + 1, updated_at = CURRENT_TIMESTAMP
	             WHERE floor_id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, upd, floorID, expectedVersion)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrStaleVersion
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return expectedVersion + 1, nil
}

// Statuses returns the stored operational status of every table of a
// floor that has left the default available state at least once.
func (r *FloorLayoutRepo) Statuses(ctx context.Context, floorID string) (map[string]model.TableStatus, error) {
	const q = `SELECT table_id, status FROM table_statuses WHERE floor_id = ? ORDER BY table_id`
	rows, err := r.db.QueryContext(ctx, q, floorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Collect every stored row; callers fill in available for the rest.
	out := make(map[string]model.TableStatus)
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		out[id] = model.TableStatus(status)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus moves a table from one status to another with a
// compare-and-set on the previous value.  A table without a row is
// treated as available.
func (r *FloorLayoutRepo) SetStatus(ctx context.Context, floorID, tableID string, from, to model.TableStatus) error {
	// Fast path: the table already has a row in the expected state.
	const upd = `UPDATE table_statuses SET status = ?, updated_at = CURRENT_TIMESTAMP
	             WHERE floor_id = ? AND table_id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, upd, to, floorID, tableID, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// No row matched.  Only an available table may lack a row, so any
	// other expected state means someone else changed it.
	if from != model.StatusAvailable {
		return ErrStatusConflict
	}
	// First change of this table.  INSERT IGNORE loses to a concurrent
	// insert, which is reported as a conflict too.
	const ins = `INSERT IGNORE INTO table_statuses (floor_id, table_id, status) VALUES (?, ?, ?)`
	res, err = r.db.ExecContext(ctx, ins, floorID, tableID, to)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// decodeSnapshot parses a JSON column.  Undecodable content is reported
// as ErrCorruptSnapshot so the service can treat it as a storage failure.
func decodeSnapshot(raw []byte) (model.Snapshot, error) {
	var s model.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return s, nil
}
