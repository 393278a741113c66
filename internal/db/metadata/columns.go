package metadata

import (
	"context"
	"fmt"

	"github.com/rowanharker/tabgrid/internal/db/connection"
	"github.com/rowanharker/tabgrid/internal/models"
)

// GetColumnTypes retrieves column names and type names for a table in
// ordinal position order.
func GetColumnTypes(ctx context.Context, pool *connection.Pool, ref models.TableRef) ([]models.Field, error) {
	query := `
		SELECT column_name, udt_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, ref.Schema, ref.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	fields := make([]models.Field, 0, len(rows))
	for _, row := range rows {
		fields = append(fields, models.Field{
			Name:     toString(row["column_name"]),
			TypeName: normalizeTypeName(toString(row["udt_name"])),
		})
	}

	return fields, nil
}

// normalizeTypeName maps PostgreSQL internal type names to the familiar
// SQL spellings used when rendering literals.
func normalizeTypeName(udt string) string {
	switch udt {
	case "int2":
		return "smallint"
	case "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	case "varchar":
		return "character varying"
	case "bpchar":
		return "character"
	case "timestamptz":
		return "timestamp with time zone"
	case "timetz":
		return "time with time zone"
	default:
		return udt
	}
}
