package metadata

import (
	"context"
	"fmt"

	"github.com/rowanharker/tabgrid/internal/db/connection"
	"github.com/rowanharker/tabgrid/internal/models"
)

// GetPrimaryKeys retrieves the primary key column names of a table in key order.
// Tables without a primary key return an empty slice.
func GetPrimaryKeys(ctx context.Context, pool *connection.Pool, ref models.TableRef) ([]string, error) {
	query := `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := pool.Query(ctx, query, ref.Schema, ref.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary keys: %w", err)
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, toString(row["column_name"]))
	}

	return keys, nil
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
