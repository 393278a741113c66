package session

import (
	"context"

	"github.com/rowanharker/tabgrid/internal/models"
)

// Executor is the query execution collaborator. The engine never talks to a
// driver directly; internal/db/query provides the pgx-backed implementation
// and tests substitute fakes.
type Executor interface {
	// Query executes an arbitrary free-form statement
	Query(ctx context.Context, sql string) (*models.ResultSet, error)

	// QueryChunk executes a bounded fetch. Implementations request one row
	// beyond limit to decide HasMore and trim the surplus row.
	QueryChunk(ctx context.Context, sql string, limit, offset int) (*models.ResultSet, error)

	// Exec executes a single mutation statement with no implicit
	// transaction and returns the affected row count
	Exec(ctx context.Context, sql string) (int64, error)

	// PrimaryKeys returns the primary-key column names of a table in
	// ordinal position order
	PrimaryKeys(ctx context.Context, ref models.TableRef) ([]string, error)

	// ColumnTypes returns name and declared type for each column of a table
	ColumnTypes(ctx context.Context, ref models.TableRef) ([]models.Field, error)
}
