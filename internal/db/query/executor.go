package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rowanharker/tabgrid/internal/db/connection"
	"github.com/rowanharker/tabgrid/internal/db/metadata"
	"github.com/rowanharker/tabgrid/internal/models"
)

// Executor runs SQL against a connection pool. It records the backend PID of
// the in-flight statement so Cancel can reach it via pg_cancel_backend.
type Executor struct {
	pool *connection.Pool

	mu  sync.Mutex
	pid uint32
}

// New creates an executor backed by the given pool
func New(pool *connection.Pool) *Executor {
	return &Executor{pool: pool}
}

// Query executes an arbitrary free-form statement
func (e *Executor) Query(ctx context.Context, sql string) (*models.ResultSet, error) {
	return e.run(ctx, sql)
}

// QueryChunk executes a bounded fetch. It requests one row beyond limit so
// the caller learns whether more rows exist, then trims the surplus row.
func (e *Executor) QueryChunk(ctx context.Context, sql string, limit, offset int) (*models.ResultSet, error) {
	paginated := fmt.Sprintf(
		"SELECT * FROM (%s) AS subquery LIMIT %d OFFSET %d",
		stripTerminator(sql), limit+1, offset,
	)

	result, err := e.run(ctx, paginated)
	if err != nil {
		return nil, err
	}

	if result.RowCount > limit {
		result.Rows = result.Rows[:limit]
		result.RowCount = limit
		result.HasMore = true
	}

	return result, nil
}

// Exec executes a mutation statement and returns the affected row count
func (e *Executor) Exec(ctx context.Context, sql string) (int64, error) {
	return e.pool.Execute(ctx, sql)
}

// PrimaryKeys returns the primary-key column names of a table
func (e *Executor) PrimaryKeys(ctx context.Context, ref models.TableRef) ([]string, error) {
	return metadata.GetPrimaryKeys(ctx, e.pool, ref)
}

// ColumnTypes returns name and declared type for each column of a table
func (e *Executor) ColumnTypes(ctx context.Context, ref models.TableRef) ([]models.Field, error) {
	return metadata.GetColumnTypes(ctx, e.pool, ref)
}

// BackendPID returns the server backend PID of the in-flight statement, or 0
// when nothing is running
func (e *Executor) BackendPID() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pid
}

// Cancel asks the server to cancel the statement currently running through
// this executor, if any. It uses a separate connection from the pool.
func (e *Executor) Cancel(ctx context.Context) error {
	e.mu.Lock()
	pid := e.pid
	e.mu.Unlock()

	if pid == 0 {
		return nil
	}

	_, err := e.pool.Query(ctx, "SELECT pg_cancel_backend($1)", pid)
	if err != nil {
		return fmt.Errorf("failed to cancel backend %d: %w", pid, err)
	}
	return nil
}

func (e *Executor) run(ctx context.Context, sql string) (*models.ResultSet, error) {
	start := time.Now()

	conn, err := e.pool.GetPool().Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	e.setPID(conn.Conn().PgConn().PID())
	defer e.setPID(0)

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result, err := collect(rows)
	if err != nil {
		return nil, err
	}

	result.ExecutionTime = time.Since(start)
	return result, nil
}

func (e *Executor) setPID(pid uint32) {
	e.mu.Lock()
	e.pid = pid
	e.mu.Unlock()
}

func collect(rows pgx.Rows) (*models.ResultSet, error) {
	fieldDescs := rows.FieldDescriptions()
	fields := make([]models.Field, len(fieldDescs))
	for i, fd := range fieldDescs {
		fields[i] = models.Field{
			Name:     string(fd.Name),
			TypeName: typeNameForOID(fd.DataTypeOID),
		}
	}

	var result []models.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(models.Row, len(values))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.ResultSet{
		Fields:   fields,
		Rows:     result,
		RowCount: len(result),
	}, nil
}

// stripTerminator removes a trailing statement terminator so the statement
// can be embedded in a pagination subquery
func stripTerminator(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \t\r\n")
}

// typeNameForOID maps common PostgreSQL type OIDs to the SQL spellings used
// when rendering literals. Unknown OIDs come back empty and literals for
// them fall back to quoting.
func typeNameForOID(oid uint32) string {
	switch oid {
	case pgtype.BoolOID:
		return "boolean"
	case pgtype.Int2OID:
		return "smallint"
	case pgtype.Int4OID:
		return "integer"
	case pgtype.Int8OID:
		return "bigint"
	case pgtype.Float4OID:
		return "real"
	case pgtype.Float8OID:
		return "double precision"
	case pgtype.NumericOID:
		return "numeric"
	case pgtype.TextOID:
		return "text"
	case pgtype.VarcharOID:
		return "character varying"
	case pgtype.BPCharOID:
		return "character"
	case pgtype.ByteaOID:
		return "bytea"
	case pgtype.DateOID:
		return "date"
	case pgtype.TimeOID:
		return "time"
	case pgtype.TimestampOID:
		return "timestamp"
	case pgtype.TimestamptzOID:
		return "timestamp with time zone"
	case pgtype.UUIDOID:
		return "uuid"
	case pgtype.JSONOID:
		return "json"
	case pgtype.JSONBOID:
		return "jsonb"
	default:
		return ""
	}
}
