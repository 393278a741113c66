package models

import (
	"strings"
	"time"
)

// Field describes a single column of a result set
type Field struct {
	Name     string
	TypeName string
}

// Row holds one result row keyed by column name
type Row map[string]interface{}

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ResultSet represents one fetched page (or accumulation of pages) of rows.
// It is replaced wholesale on refetch, never patched in place except by the
// reconciler's local-patch fallback.
type ResultSet struct {
	Fields        []Field
	Rows          []Row
	RowCount      int
	ExecutionTime time.Duration
	HasMore       bool
}

// FieldNames returns the column names in order
func (rs *ResultSet) FieldNames() []string {
	names := make([]string, len(rs.Fields))
	for i, f := range rs.Fields {
		names[i] = f.Name
	}
	return names
}

// TypeOf returns the declared type name of a column, or "" if unknown
func (rs *ResultSet) TypeOf(column string) string {
	for _, f := range rs.Fields {
		if f.Name == column {
			return f.TypeName
		}
	}
	return ""
}

// TableRef identifies a table by schema and name
type TableRef struct {
	Schema string
	Table  string
}

// Key returns the cache key for the table ("schema.table")
func (t TableRef) Key() string {
	return t.Schema + "." + t.Table
}

// SQL returns the quoted, qualified table name
func (t TableRef) SQL() string {
	return quoteIdent(t.Schema) + "." + quoteIdent(t.Table)
}

// IsZero reports whether the reference is empty
func (t TableRef) IsZero() bool {
	return t.Schema == "" && t.Table == ""
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SortDirection is an ORDER BY direction
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// SortState records the active sort for a table, shared by every session
// previewing that table
type SortState struct {
	Column    string
	Direction SortDirection
}
