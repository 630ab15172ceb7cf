package layout

import "github.com/iliyamo/floor-layout/internal/model"

// HistoryLimit is the number of snapshots kept for undo.
const HistoryLimit = 20

// History is a bounded, linear undo/redo log of full snapshots.
//
// The entry under the cursor is the current committed state.  Committing
// while the cursor is behind the tip drops every entry after it; once the
// log is full the oldest entry is evicted.
//
// NOT safe for concurrent use.
type History struct {
	entries []model.Snapshot
	cursor  int
	limit   int
}

// NewHistory creates a log seeded with initial as its only entry.
func NewHistory(limit int, initial model.Snapshot) *History {
	if limit < 1 {
		limit = HistoryLimit
	}
	h := &History{limit: limit}
	h.Reset(initial)
	return h
}

// Reset discards all entries and starts over from s.
func (h *History) Reset(s model.Snapshot) {
	h.entries = []model.Snapshot{s.Clone()}
	h.cursor = 0
}

// Commit appends s after the cursor, truncating any redo tail.
func (h *History) Commit(s model.Snapshot) {
	entries := append(h.entries[:h.cursor+1:h.cursor+1], s.Clone())
	if over := len(entries) - h.limit; over > 0 {
		entries = entries[over:]
	}
	h.entries = entries
	h.cursor = len(entries) - 1
}

// Undo moves the cursor back one step and returns the snapshot there.
func (h *History) Undo() (model.Snapshot, bool) {
	if !h.CanUndo() {
		return model.Snapshot{}, false
	}
	h.cursor--
	return h.entries[h.cursor].Clone(), true
}

// Redo moves the cursor forward one step and returns the snapshot there.
func (h *History) Redo() (model.Snapshot, bool) {
	if !h.CanRedo() {
		return model.Snapshot{}, false
	}
	h.cursor++
	return h.entries[h.cursor].Clone(), true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.entries)-1 }

// Len returns the number of stored snapshots.
func (h *History) Len() int { return len(h.entries) }
