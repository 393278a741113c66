package session

import (
	"context"
	"sync"

	"github.com/rowanharker/tabgrid/internal/models"
)

// fakeExec implements Executor over an in-memory table. QueryChunk slices
// the backing rows the way a LIMIT/OFFSET scan would.
type fakeExec struct {
	mu     sync.Mutex
	fields []models.Field
	data   []models.Row
	pks    []string
	types  []models.Field

	queryErr error
	execFn   func(sql string) (int64, error)

	queries  []string
	chunkSQL []string
	execs    []string
	pkCalls  int

	// when set, QueryChunk signals started and waits for release
	started chan struct{}
	release chan struct{}
}

func (f *fakeExec) Query(ctx context.Context, sql string) (*models.ResultSet, error) {
	f.mu.Lock()
	f.queries = append(f.queries, sql)
	err := f.queryErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &models.ResultSet{
		Fields:   f.fields,
		Rows:     f.snapshot(0, len(f.data)),
		RowCount: len(f.data),
	}, nil
}

func (f *fakeExec) QueryChunk(ctx context.Context, sql string, limit, offset int) (*models.ResultSet, error) {
	f.mu.Lock()
	f.chunkSQL = append(f.chunkSQL, sql)
	err := f.queryErr
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
		<-release
	}
	if err != nil {
		return nil, err
	}

	end := offset + limit
	if end > len(f.data) {
		end = len(f.data)
	}
	var rows []models.Row
	if offset < len(f.data) {
		rows = f.snapshot(offset, end)
	}
	return &models.ResultSet{
		Fields:   f.fields,
		Rows:     rows,
		RowCount: len(rows),
		HasMore:  end < len(f.data),
	}, nil
}

func (f *fakeExec) Exec(ctx context.Context, sql string) (int64, error) {
	f.mu.Lock()
	f.execs = append(f.execs, sql)
	fn := f.execFn
	f.mu.Unlock()
	if fn != nil {
		return fn(sql)
	}
	return 1, nil
}

func (f *fakeExec) PrimaryKeys(ctx context.Context, ref models.TableRef) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pkCalls++
	return f.pks, nil
}

func (f *fakeExec) ColumnTypes(ctx context.Context, ref models.TableRef) ([]models.Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.types != nil {
		return f.types, nil
	}
	return f.fields, nil
}

func (f *fakeExec) snapshot(from, to int) []models.Row {
	rows := make([]models.Row, 0, to-from)
	for _, r := range f.data[from:to] {
		rows = append(rows, r.Clone())
	}
	return rows
}

func (f *fakeExec) execCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.execs)
}

func (f *fakeExec) chunkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunkSQL)
}

func (f *fakeExec) lastChunkSQL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.chunkSQL) == 0 {
		return ""
	}
	return f.chunkSQL[len(f.chunkSQL)-1]
}

func (f *fakeExec) setQueryErr(err error) {
	f.mu.Lock()
	f.queryErr = err
	f.mu.Unlock()
}

func usersFake() *fakeExec {
	return &fakeExec{
		fields: []models.Field{
			{Name: "id", TypeName: "integer"},
			{Name: "name", TypeName: "text"},
			{Name: "age", TypeName: "integer"},
		},
		data: []models.Row{
			{"id": int64(1), "name": "Alice", "age": int64(30)},
			{"id": int64(2), "name": "Bob", "age": int64(41)},
			{"id": int64(3), "name": "Carol", "age": int64(28)},
			{"id": int64(4), "name": "Dave", "age": int64(53)},
			{"id": int64(5), "name": "Erin", "age": int64(36)},
		},
		pks: []string{"id"},
	}
}

var usersRef = models.TableRef{Schema: "public", Table: "users"}
