package session

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestOpenTableFetchesFirstChunk(t *testing.T) {
	fake := usersFake()
	r := NewRegistry(fake, Options{ChunkSize: 2})

	s, err := r.OpenTable(context.Background(), usersRef)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}

	rs := s.Result()
	if rs == nil {
		t.Fatal("no result installed")
	}
	if rs.RowCount != 2 || !rs.HasMore {
		t.Errorf("RowCount=%d HasMore=%v, want 2/true", rs.RowCount, rs.HasMore)
	}
	if s.State() != Succeeded {
		t.Errorf("state = %v", s.State())
	}
	if sql := fake.lastChunkSQL(); !strings.Contains(sql, `ORDER BY "id"`) {
		t.Errorf("expected primary-key ORDER BY fallback, got %q", sql)
	}
}

func TestPaginationNonOverlap(t *testing.T) {
	fake := usersFake()
	r := NewRegistry(fake, Options{ChunkSize: 2})
	ctx := context.Background()

	s, err := r.OpenTable(ctx, usersRef)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}

	seen := make(map[int64]bool)
	for _, row := range s.Result().Rows {
		seen[row["id"].(int64)] = true
	}

	for s.Result().HasMore {
		before := s.Result().RowCount
		if err := r.FetchMore(ctx, s.ID); err != nil {
			t.Fatalf("FetchMore failed: %v", err)
		}
		for _, row := range s.Result().Rows[before:] {
			id := row["id"].(int64)
			if seen[id] {
				t.Fatalf("row id=%d returned twice across chunks", id)
			}
			seen[id] = true
		}
	}

	if len(seen) != 5 {
		t.Errorf("fetched %d distinct rows, want 5", len(seen))
	}
}

func TestFetchMoreAfterExhaustionRejected(t *testing.T) {
	fake := usersFake()
	r := NewRegistry(fake, Options{ChunkSize: 10})
	ctx := context.Background()

	s, err := r.OpenTable(ctx, usersRef)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	if s.Result().HasMore {
		t.Fatal("fixture should fit in one chunk")
	}

	calls := fake.chunkCount()
	if err := r.FetchMore(ctx, s.ID); !errors.Is(err, ErrNoMoreRows) {
		t.Fatalf("expected ErrNoMoreRows, got %v", err)
	}
	if fake.chunkCount() != calls {
		t.Error("rejected FetchMore must not reach the executor")
	}
}

func TestFetchFailureKeepsPriorResult(t *testing.T) {
	fake := usersFake()
	r := NewRegistry(fake, Options{ChunkSize: 2})
	ctx := context.Background()

	s, err := r.OpenTable(ctx, usersRef)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	prior := s.Result()

	fake.setQueryErr(errors.New("connection reset"))
	if err := r.Refresh(ctx, s.ID); err == nil {
		t.Fatal("expected refresh to fail")
	}
	if s.State() != Failed {
		t.Errorf("state = %v, want Failed", s.State())
	}
	if s.Result() != prior {
		t.Error("a failed fetch must leave the prior result untouched")
	}
	// cursor was discarded: load-more now needs a fresh fetch
	if err := r.FetchMore(ctx, s.ID); !errors.Is(err, ErrNoResult) {
		t.Errorf("expected ErrNoResult after cursor discard, got %v", err)
	}

	// retry starts over from offset 0
	fake.setQueryErr(nil)
	if err := r.Refresh(ctx, s.ID); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if s.State() != Succeeded || s.Result().RowCount != 2 {
		t.Errorf("retry state=%v rows=%d", s.State(), s.Result().RowCount)
	}
}

func TestFetchMoreRejectedWhileEditsPending(t *testing.T) {
	fake := usersFake()
	r := NewRegistry(fake, Options{ChunkSize: 2})
	ctx := context.Background()

	s, err := r.OpenTable(ctx, usersRef)
	if err != nil {
		t.Fatalf("OpenTable failed: %v", err)
	}
	if err := r.EditCell(s.ID, 0, "name", "Alicia"); err != nil {
		t.Fatalf("EditCell failed: %v", err)
	}
	if err := r.FetchMore(ctx, s.ID); !errors.Is(err, ErrPendingEdits) {
		t.Fatalf("expected ErrPendingEdits, got %v", err)
	}
}

func TestRunFreeQuery(t *testing.T) {
	fake := usersFake()
	r := NewRegistry(fake, Options{ChunkSize: 3})
	ctx := context.Background()

	s := r.Active()
	if err := r.SetSource(s.ID, "SELECT * FROM public.users"); err != nil {
		t.Fatalf("SetSource failed: %v", err)
	}
	if err := r.Run(ctx, s.ID); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	rs := s.Result()
	if rs.RowCount != 3 || !rs.HasMore {
		t.Errorf("RowCount=%d HasMore=%v, want 3/true", rs.RowCount, rs.HasMore)
	}

	// free-form results have no confirmed row identity and are not editable
	if err := r.EditCell(s.ID, 0, "name", "X"); !errors.Is(err, ErrRowNotEditable) {
		t.Errorf("expected ErrRowNotEditable on free query, got %v", err)
	}
}

func TestRunStatementUnpaginated(t *testing.T) {
	fake := usersFake()
	r := NewRegistry(fake, Options{})
	ctx := context.Background()

	s := r.Active()
	if err := r.SetSource(s.ID, "CREATE TABLE t (id int)"); err != nil {
		t.Fatalf("SetSource failed: %v", err)
	}
	if err := r.Run(ctx, s.ID); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if fake.chunkCount() != 0 {
		t.Error("non-SELECT statements must not go through the chunked path")
	}
	if len(fake.queries) != 1 {
		t.Errorf("expected one direct query, got %d", len(fake.queries))
	}
}

func TestCancelDiscardsLateResult(t *testing.T) {
	fake := usersFake()
	fake.started = make(chan struct{}, 1)
	fake.release = make(chan struct{})
	r := NewRegistry(fake, Options{ChunkSize: 2})
	ctx := context.Background()

	s := r.Active()
	if err := r.SetSource(s.ID, "SELECT 1"); err != nil {
		t.Fatalf("SetSource failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, s.ID) }()

	<-fake.started
	if s.State() != Running {
		t.Fatalf("state = %v, want Running", s.State())
	}
	if err := r.Cancel(s.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if s.State() != Idle {
		t.Errorf("state after cancel = %v, want Idle", s.State())
	}

	close(fake.release)
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// the late result must be discarded, not installed
	if s.Result() != nil {
		t.Error("cancelled fetch installed its result")
	}
	if s.State() != Idle {
		t.Errorf("state = %v, want Idle after late arrival", s.State())
	}
}

func TestRunningSessionBlocksNewWork(t *testing.T) {
	fake := usersFake()
	fake.started = make(chan struct{}, 1)
	fake.release = make(chan struct{})
	r := NewRegistry(fake, Options{ChunkSize: 2})
	ctx := context.Background()

	s := r.Active()
	if err := r.SetSource(s.ID, "SELECT 1"); err != nil {
		t.Fatalf("SetSource failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, s.ID) }()
	<-fake.started

	if err := r.Run(ctx, s.ID); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("expected ErrSessionBusy, got %v", err)
	}

	close(fake.release)
	<-done
}
