package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rowanharker/tabgrid/internal/models"
	"github.com/rowanharker/tabgrid/internal/sqltext"
)

// Run executes a session's source text. SELECT-shaped statements go through
// the chunked fetch path; anything else runs unpaginated.
func (r *Registry) Run(ctx context.Context, id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	sql := strings.TrimSpace(s.SourceText)
	s.mu.Unlock()
	if sql == "" {
		return fmt.Errorf("nothing to run: %w", ErrNoResult)
	}

	if !chunkable(sql) {
		return r.runStatement(ctx, s, sql)
	}
	return r.fetchInitial(ctx, s, sql, nil)
}

// Refresh re-runs a bound-table session's first chunk with the current sort
// and criteria
func (r *Registry) Refresh(ctx context.Context, id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	if s.Kind != BoundTable {
		return ErrNotBoundTable
	}
	return r.fetchTable(ctx, s)
}

// FetchMore fetches the next chunk at offset currentRowCount and appends it
// to the session's result. Rejected while edits are pending, while a request
// is in flight, or when the last chunk reported no further rows.
func (r *Registry) FetchMore(ctx context.Context, id string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == Running {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	if s.ledger != nil && s.ledger.Dirty() {
		s.mu.Unlock()
		return ErrPendingEdits
	}
	if s.result == nil || s.cur == nil {
		s.mu.Unlock()
		return ErrNoResult
	}
	if !s.result.HasMore {
		s.mu.Unlock()
		return ErrNoMoreRows
	}
	prior := s.result
	cur := s.cur
	var pks []string
	if s.ledger != nil {
		pks = s.ledger.primaryKeys()
	}
	s.mu.Unlock()

	epoch, err := s.begin()
	if err != nil {
		return err
	}

	// the offset is always the accumulated row count, never caller-supplied
	chunk, err := r.exec.QueryChunk(ctx, cur.sql, cur.chunkSize, prior.RowCount)
	if err != nil {
		s.finish(epoch, func(s *Session) { s.installFailure(err) })
		return fmt.Errorf("fetch more: %w", err)
	}

	rows := make([]models.Row, 0, len(prior.Rows)+len(chunk.Rows))
	rows = append(rows, prior.Rows...)
	rows = append(rows, chunk.Rows...)
	combined := &models.ResultSet{
		Fields:        prior.Fields,
		Rows:          rows,
		RowCount:      len(rows),
		ExecutionTime: prior.ExecutionTime + chunk.ExecutionTime,
		HasMore:       chunk.HasMore,
	}
	s.finish(epoch, func(s *Session) { s.installResult(combined, pks, cur) })
	return nil
}

// SetSort changes the active sort for a bound table. Rejected while the
// session's ledger is non-empty: sorting must not desynchronize row
// positions from index-keyed edits. An accepted change invalidates the
// cursor, is recorded in the shared sort store, and triggers a fresh fetch.
func (r *Registry) SetSort(ctx context.Context, id, column string, dir models.SortDirection) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	if s.Kind != BoundTable {
		return ErrNotBoundTable
	}

	s.mu.Lock()
	if s.state == Running {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	if s.ledger != nil && s.ledger.Dirty() {
		s.mu.Unlock()
		return ErrPendingEdits
	}
	s.cur = nil
	s.mu.Unlock()

	// the shared store keeps the previous sort if the refetch fails, so the
	// recorded sort always matches a result some session displays
	prev, hadPrev := r.sorts.Get(s.Table)
	r.sorts.Set(s.Table, models.SortState{Column: column, Direction: dir})
	if err := r.fetchTable(ctx, s); err != nil {
		if hadPrev {
			r.sorts.Set(s.Table, prev)
		} else {
			r.sorts.Clear(s.Table)
		}
		return err
	}
	return nil
}

// SetCriteria applies a rendered WHERE clause (without the WHERE keyword;
// empty clears) to a bound-table session and refetches. Rejected while
// edits are pending, for the same reason as SetSort.
func (r *Registry) SetCriteria(ctx context.Context, id, whereClause string) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	if s.Kind != BoundTable {
		return ErrNotBoundTable
	}

	s.mu.Lock()
	if s.state == Running {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	if s.ledger != nil && s.ledger.Dirty() {
		s.mu.Unlock()
		return ErrPendingEdits
	}
	s.criteria = whereClause
	s.cur = nil
	s.mu.Unlock()

	return r.fetchTable(ctx, s)
}

// fetchTable runs the initial chunk for a bound-table session
func (r *Registry) fetchTable(ctx context.Context, s *Session) error {
	// best-effort: a table with no usable primary key still previews, with
	// undefined ordering and possible duplicates across chunks
	pks, err := r.pks.Lookup(ctx, s.Table)
	if err != nil {
		pks = nil
	}

	s.mu.Lock()
	criteria := s.criteria
	s.mu.Unlock()

	sql := r.buildTableSQL(s.Table, criteria, pks)
	return r.fetchInitial(ctx, s, sql, pks)
}

// buildTableSQL assembles the stable-order preview statement: active sort
// first, primary-key order as fallback so pagination cannot skip or repeat
// rows on unordered scans
func (r *Registry) buildTableSQL(ref models.TableRef, criteria string, pks []string) string {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(ref.SQL())
	if criteria != "" {
		b.WriteString(" WHERE ")
		b.WriteString(criteria)
	}
	if st, ok := r.sorts.Get(ref); ok {
		b.WriteString(" ORDER BY ")
		b.WriteString(sqltext.QuoteIdent(st.Column))
		b.WriteString(" ")
		b.WriteString(string(st.Direction))
	} else if len(pks) > 0 {
		b.WriteString(" ORDER BY ")
		for i, pk := range pks {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(sqltext.QuoteIdent(pk))
		}
	}
	return b.String()
}

// fetchInitial executes the first chunk of a statement and installs the
// result with a fresh cursor. A failure leaves the prior result untouched
// and surfaces Failed; the cursor is discarded so a retry starts at 0.
func (r *Registry) fetchInitial(ctx context.Context, s *Session, sql string, pks []string) error {
	epoch, err := s.begin()
	if err != nil {
		return err
	}

	rs, err := r.exec.QueryChunk(ctx, sql, r.chunk, 0)
	if err != nil {
		s.finish(epoch, func(s *Session) { s.installFailure(err) })
		return fmt.Errorf("fetch: %w", err)
	}
	s.finish(epoch, func(s *Session) {
		s.installResult(rs, pks, &cursor{sql: sql, chunkSize: r.chunk})
	})
	return nil
}

// runStatement executes a non-SELECT statement without pagination
func (r *Registry) runStatement(ctx context.Context, s *Session, sql string) error {
	epoch, err := s.begin()
	if err != nil {
		return err
	}

	rs, err := r.exec.Query(ctx, sql)
	if err != nil {
		s.finish(epoch, func(s *Session) { s.installFailure(err) })
		return fmt.Errorf("execute: %w", err)
	}
	s.finish(epoch, func(s *Session) { s.installResult(rs, nil, nil) })
	return nil
}
