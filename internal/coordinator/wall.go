package coordinator

import (
	"time"

	"github.com/existflow/lockin/internal/model"
	"github.com/existflow/lockin/internal/store"
)

// Wall is the in-memory commitment list, newest first. It is not safe for
// concurrent use: one goroutine owns it and applies writes and feed events.
type Wall struct {
	items []model.Commitment
}

// NewWall creates a wall holding items, which must be newest first
func NewWall(items ...model.Commitment) *Wall {
	w := &Wall{}
	w.Replace(items)
	return w
}

// Replace swaps the whole list, as after Load
func (w *Wall) Replace(items []model.Commitment) {
	w.items = append(w.items[:0:0], items...)
}

// Merge installs a loaded snapshot without losing what the wall already
// learned from writes and feed events while the load was in flight. Current
// records missing from the snapshot stay on top when they are newer than the
// snapshot's newest record, and a completed record is never reverted.
func (w *Wall) Merge(snapshot []model.Commitment) {
	var newest time.Time
	seen := make(map[string]int, len(snapshot))
	for i, c := range snapshot {
		seen[c.ID] = i
		if c.CreatedAt.After(newest) {
			newest = c.CreatedAt
		}
	}

	merged := make([]model.Commitment, 0, len(snapshot)+len(w.items))
	for _, c := range w.items {
		if _, ok := seen[c.ID]; !ok && (len(snapshot) == 0 || c.CreatedAt.After(newest)) {
			merged = append(merged, c)
		}
	}
	for _, c := range snapshot {
		if i := w.index(c.ID); i >= 0 && w.items[i].Status == model.StatusCompleted {
			c = w.items[i]
		}
		merged = append(merged, c)
	}
	w.items = merged
}

// Prepend adds c at the top unless a record with its ID is already present.
// It reports whether the wall changed.
func (w *Wall) Prepend(c model.Commitment) bool {
	if w.index(c.ID) >= 0 {
		return false
	}
	w.items = append([]model.Commitment{c}, w.items...)
	return true
}

// Apply merges a change feed event. INSERT behaves like Prepend; UPDATE
// replaces the matching record in place and ignores unknown IDs.
func (w *Wall) Apply(ev store.ChangeEvent) bool {
	switch ev.Type {
	case store.EventInsert:
		return w.Prepend(ev.Record)
	case store.EventUpdate:
		i := w.index(ev.Record.ID)
		if i < 0 {
			return false
		}
		w.items[i] = ev.Record
		return true
	}
	return false
}

// Items returns a copy of the list
func (w *Wall) Items() []model.Commitment {
	return append([]model.Commitment(nil), w.items...)
}

// Len returns the number of real records
func (w *Wall) Len() int {
	return len(w.items)
}

// Placeholder reports whether the wall should show placeholder entries
func (w *Wall) Placeholder() bool {
	return len(w.items) == 0
}

// Display returns what the wall view shows at now: the records, or the
// placeholder entries when there are none
func (w *Wall) Display(now time.Time) []model.Commitment {
	if w.Placeholder() {
		return Placeholders(now)
	}
	return w.Items()
}

func (w *Wall) index(id string) int {
	for i := range w.items {
		if w.items[i].ID == id {
			return i
		}
	}
	return -1
}
