package session

import (
	"errors"
	"testing"

	"github.com/rowanharker/tabgrid/internal/models"
)

func ledgerFixture() *Ledger {
	rs := &models.ResultSet{
		Fields: []models.Field{
			{Name: "id", TypeName: "integer"},
			{Name: "name", TypeName: "text"},
			{Name: "age", TypeName: "integer"},
		},
		Rows: []models.Row{
			{"id": int64(1), "name": "Alice", "age": int64(30)},
			{"id": int64(2), "name": "Bob", "age": int64(41)},
			{"id": nil, "name": "NoKey", "age": int64(7)},
		},
		RowCount: 3,
	}
	return NewLedger(rs, []string{"id"})
}

func TestLedgerSetAndMerge(t *testing.T) {
	l := ledgerFixture()

	if err := l.Set(0, "name", "Alicia"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !l.Dirty() || l.Len() != 1 {
		t.Fatalf("expected one dirty row, got %d", l.Len())
	}

	merged := l.Merged(0)
	if merged["name"] != "Alicia" {
		t.Errorf("merged name = %v", merged["name"])
	}
	if merged["id"] != int64(1) {
		t.Errorf("merged id = %v", merged["id"])
	}

	// originals untouched
	if l.baseRow(0)["name"] != "Alice" {
		t.Error("Set mutated the original row")
	}
}

func TestLedgerIdempotentUndo(t *testing.T) {
	l := ledgerFixture()

	if err := l.Set(1, "name", "Robert"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := l.Set(1, "name", "Bob"); err != nil {
		t.Fatalf("Set back failed: %v", err)
	}
	if l.Dirty() {
		t.Error("editing a cell back to its original value must remove the entry")
	}
	if len(l.Candidates()) != 0 {
		t.Error("no candidates expected after undo")
	}
}

func TestLedgerUndoAcrossNumericWidths(t *testing.T) {
	l := ledgerFixture()

	if err := l.Set(0, "age", float64(31)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// original age is int64(30); float64(30) must count as a revert
	if err := l.Set(0, "age", float64(30)); err != nil {
		t.Fatalf("Set back failed: %v", err)
	}
	if l.Dirty() {
		t.Error("numeric value equal to original must un-dirty the row")
	}
}

func TestLedgerNullKeyExclusion(t *testing.T) {
	l := ledgerFixture()

	err := l.Set(2, "name", "Renamed")
	if !errors.Is(err, ErrRowNotEditable) {
		t.Fatalf("expected ErrRowNotEditable, got %v", err)
	}
	if l.Dirty() {
		t.Error("row with null primary key must never acquire a ledger entry")
	}

	// repeated edits to other columns of the same row stay rejected
	if err := l.Set(2, "age", int64(8)); !errors.Is(err, ErrRowNotEditable) {
		t.Fatalf("expected ErrRowNotEditable, got %v", err)
	}
}

func TestLedgerNoPrimaryKey(t *testing.T) {
	rs := &models.ResultSet{
		Fields: []models.Field{{Name: "v", TypeName: "text"}},
		Rows:   []models.Row{{"v": "x"}},
	}
	l := NewLedger(rs, nil)
	if err := l.Set(0, "v", "y"); !errors.Is(err, ErrRowNotEditable) {
		t.Fatalf("expected ErrRowNotEditable without primary keys, got %v", err)
	}
}

func TestLedgerCollapsesRepeatedEdits(t *testing.T) {
	l := ledgerFixture()

	if err := l.Set(0, "age", int64(30)); err != nil {
		t.Fatalf("no-op Set failed: %v", err)
	}
	if l.Dirty() {
		t.Fatal("setting a cell to its current value must not dirty the row")
	}

	if err := l.Set(0, "age", int64(31)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := l.Set(0, "age", int64(32)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	cands := l.Candidates()
	if len(cands) != 1 {
		t.Fatalf("expected one candidate, got %d", len(cands))
	}
	if len(cands[0].Changes) != 1 || !models.ValueEqual(cands[0].Changes["age"], int64(32)) {
		t.Errorf("expected single collapsed change age=32, got %v", cands[0].Changes)
	}
}

func TestLedgerBounds(t *testing.T) {
	l := ledgerFixture()
	if err := l.Set(99, "name", "x"); !errors.Is(err, ErrRowNotEditable) {
		t.Errorf("out-of-range row: got %v", err)
	}
	if err := l.Set(0, "missing", "x"); !errors.Is(err, ErrRowNotEditable) {
		t.Errorf("unknown column: got %v", err)
	}
	if row := l.Merged(-1); row != nil {
		t.Error("Merged(-1) should be nil")
	}
}

func TestLedgerDiscardAll(t *testing.T) {
	l := ledgerFixture()
	if err := l.Set(0, "name", "Alicia"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := l.Set(1, "age", int64(42)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	l.DiscardAll()
	if l.Dirty() {
		t.Error("DiscardAll must drop every entry")
	}
}

func TestLedgerCandidatesOrdered(t *testing.T) {
	l := ledgerFixture()
	if err := l.Set(1, "name", "Robert"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := l.Set(0, "name", "Alicia"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	cands := l.Candidates()
	if len(cands) != 2 || cands[0].Index != 0 || cands[1].Index != 1 {
		t.Errorf("candidates not in row order: %+v", cands)
	}
}
