package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rowanharker/tabgrid/internal/models"
	"github.com/rowanharker/tabgrid/internal/sqltext"
)

// ApplyStatus is the three-way outcome classification of an apply
type ApplyStatus int

const (
	// NothingToApply means the ledger was empty; no mutation was issued
	NothingToApply ApplyStatus = iota
	// Applied means every dirtied row was updated and affected a row
	Applied
	// AppliedWithWarnings means at least one row affected zero rows or was
	// skipped for a missing key
	AppliedWithWarnings
)

// ApplyOutcome reports what happened to each dirtied row. Zero-affected
// rows (vanished, or already in the target state) are reported, not raised.
type ApplyOutcome struct {
	Status            ApplyStatus
	Applied           int
	ZeroAffected      int
	SkippedMissingKey int
	// Refreshed is true when the result set was refetched from the server
	// rather than patched locally
	Refreshed bool
}

// Summary renders the combined outcome the way callers should present it:
// applied, skipped and zero-affected counts stay distinguishable.
func (o ApplyOutcome) Summary() string {
	if o.Status == NothingToApply {
		return "nothing to apply"
	}
	parts := []string{fmt.Sprintf("%d applied", o.Applied)}
	if o.SkippedMissingKey > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped (null key)", o.SkippedMissingKey))
	}
	if o.ZeroAffected > 0 {
		parts = append(parts, fmt.Sprintf("%d affected zero rows", o.ZeroAffected))
	}
	return strings.Join(parts, ", ")
}

// Apply reconciles the session's pending edits into per-row conditional
// UPDATE statements targeted by primary key, executed sequentially and
// independently (no multi-row transaction). A driver error aborts the
// remaining queue: already-processed rows stay cleared from the ledger, the
// rest stay pending so just those can be retried. On at least one affected
// row the result set is refetched for authoritative post-mutation state;
// otherwise the local rows are patched in place.
func (r *Registry) Apply(ctx context.Context, id string) (ApplyOutcome, error) {
	var out ApplyOutcome

	s, err := r.Get(id)
	if err != nil {
		return out, err
	}
	if s.Kind != BoundTable {
		return out, ErrNotBoundTable
	}

	s.mu.Lock()
	if s.state == Running {
		s.mu.Unlock()
		return out, ErrSessionBusy
	}
	ledger := s.ledger
	if ledger == nil || !ledger.Dirty() {
		s.mu.Unlock()
		out.Status = NothingToApply
		return out, nil
	}
	s.mu.Unlock()

	epoch, err := s.begin()
	if err != nil {
		return out, err
	}
	s.mu.Lock()
	s.applying = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.applying = false
		s.mu.Unlock()
	}()

	types := r.columnTypes(ctx, s)
	pks := ledger.primaryKeys()

	// merged rows are captured up front for the local-patch fallback
	patches := make(map[int]models.Row)
	var hardErr error

	for _, edit := range ledger.Candidates() {
		original := ledger.baseRow(edit.Index)
		if original == nil {
			ledger.clear(edit.Index)
			continue
		}

		// an edit cannot be safely targeted without a confirmed identity
		if missingKey(original, pks) {
			out.SkippedMissingKey++
			ledger.clear(edit.Index)
			continue
		}

		diff := diffColumns(original, edit.Changes)
		if len(diff) == 0 {
			ledger.clear(edit.Index)
			continue
		}

		stmt := buildUpdate(s.Table, original, diff, edit.Changes, pks, types)
		affected, err := r.exec.Exec(ctx, stmt)
		if err != nil {
			hardErr = fmt.Errorf("update row %d: %w", edit.Index, err)
			break
		}
		if affected == 0 {
			out.ZeroAffected++
		} else {
			out.Applied++
		}
		patches[edit.Index] = ledger.Merged(edit.Index)
		ledger.clear(edit.Index)
	}

	if hardErr != nil {
		s.finish(epoch, func(s *Session) {
			s.state = Failed
			s.errMsg = hardErr.Error()
		})
		out.Status = AppliedWithWarnings
		return out, hardErr
	}

	if out.SkippedMissingKey > 0 || out.ZeroAffected > 0 {
		out.Status = AppliedWithWarnings
	} else {
		out.Status = Applied
	}

	if out.Applied > 0 {
		// authoritative refresh under the active sort (or key order)
		if err := r.refreshAfterApply(ctx, s, epoch, pks); err != nil {
			return out, err
		}
		out.Refreshed = true
		return out, nil
	}

	// no refresh warranted: keep a locally patched result set
	s.finish(epoch, func(s *Session) {
		patched := patchRows(s.result, patches)
		s.installResult(patched, pks, s.cur)
	})
	return out, nil
}

// columnTypes merges introspected column types over the result's field type
// names; introspection failure degrades to the field names alone
func (r *Registry) columnTypes(ctx context.Context, s *Session) map[string]string {
	types := make(map[string]string)
	if rs := s.Result(); rs != nil {
		for _, f := range rs.Fields {
			types[f.Name] = f.TypeName
		}
	}
	if cols, err := r.exec.ColumnTypes(ctx, s.Table); err == nil {
		for _, c := range cols {
			types[c.Name] = c.TypeName
		}
	}
	return types
}

func (r *Registry) refreshAfterApply(ctx context.Context, s *Session, epoch uint64, pks []string) error {
	s.mu.Lock()
	criteria := s.criteria
	s.mu.Unlock()

	sql := r.buildTableSQL(s.Table, criteria, pks)
	rs, err := r.exec.QueryChunk(ctx, sql, r.chunk, 0)
	if err != nil {
		s.finish(epoch, func(s *Session) { s.installFailure(err) })
		return fmt.Errorf("post-apply refresh: %w", err)
	}
	s.finish(epoch, func(s *Session) {
		s.installResult(rs, pks, &cursor{sql: sql, chunkSize: r.chunk})
	})
	return nil
}

func missingKey(original models.Row, pks []string) bool {
	if len(pks) == 0 {
		return true
	}
	for _, pk := range pks {
		if v, ok := original[pk]; !ok || v == nil {
			return true
		}
	}
	return false
}

// diffColumns returns the edited columns that actually differ from the
// original row, in deterministic order
func diffColumns(original models.Row, changes map[string]interface{}) []string {
	var cols []string
	for col, v := range changes {
		if !models.ValueEqual(v, original[col]) {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return cols
}

// buildUpdate renders one conditional mutation: SET the changed columns,
// WHERE every primary-key column equals its original value
func buildUpdate(ref models.TableRef, original models.Row, diff []string, changes map[string]interface{}, pks []string, types map[string]string) string {
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(ref.SQL())
	b.WriteString(" SET ")
	for i, col := range diff {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqltext.QuoteIdent(col))
		b.WriteString(" = ")
		b.WriteString(sqltext.EncodeLiteral(changes[col], types[col]))
	}
	b.WriteString(" WHERE ")
	for i, pk := range pks {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(sqltext.QuoteIdent(pk))
		b.WriteString(" = ")
		b.WriteString(sqltext.EncodeLiteral(original[pk], types[pk]))
	}
	return b.String()
}

// patchRows applies merged rows onto a copy of the result set; used when no
// server-side change warranted a refetch
func patchRows(rs *models.ResultSet, patches map[int]models.Row) *models.ResultSet {
	if rs == nil {
		return nil
	}
	rows := make([]models.Row, len(rs.Rows))
	copy(rows, rs.Rows)
	for idx, merged := range patches {
		if idx >= 0 && idx < len(rows) && merged != nil {
			rows[idx] = merged
		}
	}
	return &models.ResultSet{
		Fields:        rs.Fields,
		Rows:          rows,
		RowCount:      len(rows),
		ExecutionTime: rs.ExecutionTime,
		HasMore:       rs.HasMore,
	}
}
