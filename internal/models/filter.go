package models

// FilterOperator represents a filter comparison operator
type FilterOperator string

const (
	OpEqual          FilterOperator = "="
	OpNotEqual       FilterOperator = "!="
	OpGreaterThan    FilterOperator = ">"
	OpGreaterOrEqual FilterOperator = ">="
	OpLessThan       FilterOperator = "<"
	OpLessOrEqual    FilterOperator = "<="
	OpLike           FilterOperator = "LIKE"
	OpILike          FilterOperator = "ILIKE"
	OpIn             FilterOperator = "IN"
	OpNotIn          FilterOperator = "NOT IN"
	OpIsNull         FilterOperator = "IS NULL"
	OpIsNotNull      FilterOperator = "IS NOT NULL"
	OpContains       FilterOperator = "@>" // JSONB contains
	OpContainedBy    FilterOperator = "<@" // JSONB contained by
)

// FilterCondition represents a single filter condition
type FilterCondition struct {
	Column   string
	Operator FilterOperator
	Value    interface{}
	Type     string // PostgreSQL type (text, integer, jsonb, etc.)
}

// FilterGroup represents a group of conditions with AND/OR logic
type FilterGroup struct {
	Conditions []FilterCondition
	Logic      string // "AND" or "OR"
	Groups     []FilterGroup
}

// Filter represents the complete filter state for a table
type Filter struct {
	RootGroup FilterGroup
	Table     TableRef
}

// IsEmpty reports whether the filter has no conditions at all
func (f Filter) IsEmpty() bool {
	return groupEmpty(f.RootGroup)
}

func groupEmpty(g FilterGroup) bool {
	if len(g.Conditions) > 0 {
		return false
	}
	for _, sub := range g.Groups {
		if !groupEmpty(sub) {
			return false
		}
	}
	return true
}
