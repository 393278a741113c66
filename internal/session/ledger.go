package session

import (
	"fmt"
	"sort"

	"github.com/rowanharker/tabgrid/internal/models"
)

// Ledger tracks unsaved cell-level edits against a snapshot of fetched rows.
// Entries are keyed by row position in the bound result set and hold only the
// columns that differ from the original row; an entry whose merged row equals
// the original is removed on the spot, so editing a cell back to its original
// value un-dirties the row.
type Ledger struct {
	base   *models.ResultSet
	pks    []string
	deltas map[int]map[string]interface{}
}

// RowEdit is one dirtied row with its pending column changes
type RowEdit struct {
	Index   int
	Changes map[string]interface{}
}

// NewLedger binds a ledger to a result set. pks are the primary-key columns
// used to decide editability up front; pass nil for result sets that cannot
// be edited (free-form queries).
func NewLedger(base *models.ResultSet, pks []string) *Ledger {
	return &Ledger{
		base:   base,
		pks:    pks,
		deltas: make(map[int]map[string]interface{}),
	}
}

// Set stages a cell edit. Rows whose primary-key columns are null in the
// original data are rejected here, not at reconciliation time, so callers
// can reflect non-editability immediately.
func (l *Ledger) Set(rowIndex int, column string, value interface{}) error {
	if l.base == nil || rowIndex < 0 || rowIndex >= len(l.base.Rows) {
		return fmt.Errorf("row %d out of range: %w", rowIndex, ErrRowNotEditable)
	}
	if len(l.pks) == 0 {
		return fmt.Errorf("no primary key: %w", ErrRowNotEditable)
	}
	original := l.base.Rows[rowIndex]
	for _, pk := range l.pks {
		if v, ok := original[pk]; !ok || v == nil {
			return fmt.Errorf("null primary key column %q: %w", pk, ErrRowNotEditable)
		}
	}
	if _, ok := original[column]; !ok {
		return fmt.Errorf("unknown column %q: %w", column, ErrRowNotEditable)
	}

	delta := l.deltas[rowIndex]
	if delta == nil {
		delta = make(map[string]interface{})
	}
	delta[column] = value

	// remove-on-noop: drop columns (and the whole entry) that merged back
	// to their original values
	for col, v := range delta {
		if models.ValueEqual(v, original[col]) {
			delete(delta, col)
		}
	}
	if len(delta) == 0 {
		delete(l.deltas, rowIndex)
		return nil
	}
	l.deltas[rowIndex] = delta
	return nil
}

// Merged returns the row at rowIndex with pending edits applied, or nil if
// the index is out of range
func (l *Ledger) Merged(rowIndex int) models.Row {
	if l.base == nil || rowIndex < 0 || rowIndex >= len(l.base.Rows) {
		return nil
	}
	merged := l.base.Rows[rowIndex].Clone()
	for col, v := range l.deltas[rowIndex] {
		merged[col] = v
	}
	return merged
}

// Dirty reports whether any row has pending edits
func (l *Ledger) Dirty() bool {
	return len(l.deltas) > 0
}

// Len returns the number of dirtied rows
func (l *Ledger) Len() int {
	return len(l.deltas)
}

// Candidates returns the dirtied rows in ascending row order
func (l *Ledger) Candidates() []RowEdit {
	edits := make([]RowEdit, 0, len(l.deltas))
	for idx, delta := range l.deltas {
		changes := make(map[string]interface{}, len(delta))
		for k, v := range delta {
			changes[k] = v
		}
		edits = append(edits, RowEdit{Index: idx, Changes: changes})
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].Index < edits[j].Index })
	return edits
}

// DiscardAll drops every pending edit
func (l *Ledger) DiscardAll() {
	l.deltas = make(map[int]map[string]interface{})
}

// clear removes the entry for one row, used by the reconciler as each row's
// outcome is accounted for
func (l *Ledger) clear(rowIndex int) {
	delete(l.deltas, rowIndex)
}

// baseRow returns the original (unedited) row at rowIndex
func (l *Ledger) baseRow(rowIndex int) models.Row {
	if l.base == nil || rowIndex < 0 || rowIndex >= len(l.base.Rows) {
		return nil
	}
	return l.base.Rows[rowIndex]
}

// primaryKeys returns the key columns the ledger was bound with
func (l *Ledger) primaryKeys() []string {
	return l.pks
}
