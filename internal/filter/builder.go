package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rowanharker/tabgrid/internal/models"
	"github.com/rowanharker/tabgrid/internal/sqltext"
)

// ErrInvalidCriteria is returned when a filter fails validation. Validation
// happens before any statement is sent, so a bad filter never reaches the
// server.
var ErrInvalidCriteria = errors.New("invalid filter criteria")

// Builder renders Filter models into WHERE clause text. Values are inlined
// as literals with the same encoder the edit pipeline uses, so the produced
// text is self-contained.
type Builder struct{}

// NewBuilder creates a new filter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildWhere renders the filter as clause text without the WHERE keyword.
// An empty filter renders as an empty string.
func (b *Builder) BuildWhere(filter models.Filter) (string, error) {
	if filter.IsEmpty() {
		return "", nil
	}

	if err := b.Validate(filter); err != nil {
		return "", err
	}

	return b.buildGroup(filter.RootGroup)
}

// Validate checks every condition in the filter without rendering it
func (b *Builder) Validate(filter models.Filter) error {
	return b.validateGroup(filter.RootGroup)
}

func (b *Builder) validateGroup(group models.FilterGroup) error {
	if group.Logic != "" && group.Logic != "AND" && group.Logic != "OR" {
		return fmt.Errorf("%w: unknown logic %q", ErrInvalidCriteria, group.Logic)
	}

	for _, cond := range group.Conditions {
		if err := b.validateCondition(cond); err != nil {
			return err
		}
	}

	for _, sub := range group.Groups {
		if err := b.validateGroup(sub); err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) validateCondition(cond models.FilterCondition) error {
	if strings.TrimSpace(cond.Column) == "" {
		return fmt.Errorf("%w: empty column name", ErrInvalidCriteria)
	}

	switch cond.Operator {
	case models.OpIsNull, models.OpIsNotNull:
		return nil
	case models.OpEqual, models.OpNotEqual,
		models.OpGreaterThan, models.OpGreaterOrEqual,
		models.OpLessThan, models.OpLessOrEqual,
		models.OpLike, models.OpILike:
		return nil
	case models.OpIn, models.OpNotIn:
		n, ok := sliceLen(cond.Value)
		if !ok {
			return fmt.Errorf("%w: %s requires a list value for column %q",
				ErrInvalidCriteria, cond.Operator, cond.Column)
		}
		if n == 0 {
			return fmt.Errorf("%w: empty list for column %q", ErrInvalidCriteria, cond.Column)
		}
		return nil
	case models.OpContains, models.OpContainedBy:
		if s, ok := cond.Value.(string); ok && !json.Valid([]byte(s)) {
			return fmt.Errorf("%w: malformed JSON value for column %q",
				ErrInvalidCriteria, cond.Column)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported operator %q", ErrInvalidCriteria, cond.Operator)
	}
}

// buildGroup recursively renders a filter group
func (b *Builder) buildGroup(group models.FilterGroup) (string, error) {
	var clauses []string

	for _, cond := range group.Conditions {
		clause, err := b.buildCondition(cond)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}

	for _, sub := range group.Groups {
		clause, err := b.buildGroup(sub)
		if err != nil {
			return "", err
		}
		if clause != "" {
			clauses = append(clauses, "("+clause+")")
		}
	}

	logic := group.Logic
	if logic == "" {
		logic = "AND"
	}

	return strings.Join(clauses, " "+logic+" "), nil
}

// buildCondition renders a single filter condition
func (b *Builder) buildCondition(cond models.FilterCondition) (string, error) {
	column := sqltext.QuoteIdent(cond.Column)

	switch cond.Operator {
	case models.OpIsNull:
		return fmt.Sprintf("%s IS NULL", column), nil
	case models.OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", column), nil
	case models.OpIn, models.OpNotIn:
		items, err := b.literalList(cond.Value, cond.Type)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s (%s)", column, cond.Operator, strings.Join(items, ", ")), nil
	default:
		lit := sqltext.EncodeLiteral(cond.Value, cond.Type)
		return fmt.Sprintf("%s %s %s", column, cond.Operator, lit), nil
	}
}

func (b *Builder) literalList(value interface{}, typeName string) ([]string, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: expected a list value", ErrInvalidCriteria)
	}

	items := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = sqltext.EncodeLiteral(rv.Index(i).Interface(), typeName)
	}
	return items, nil
}

func sliceLen(value interface{}) (int, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return 0, false
	}
	return rv.Len(), true
}

// GetOperatorsForType returns available operators for a given PostgreSQL type
func GetOperatorsForType(dataType string) []models.FilterOperator {
	switch {
	case strings.Contains(dataType, "int") || strings.Contains(dataType, "numeric") ||
		strings.Contains(dataType, "real") || strings.Contains(dataType, "double"):
		return []models.FilterOperator{
			models.OpEqual, models.OpNotEqual,
			models.OpGreaterThan, models.OpGreaterOrEqual,
			models.OpLessThan, models.OpLessOrEqual,
			models.OpIn, models.OpNotIn,
			models.OpIsNull, models.OpIsNotNull,
		}
	case strings.Contains(dataType, "char") || strings.Contains(dataType, "text"):
		return []models.FilterOperator{
			models.OpEqual, models.OpNotEqual,
			models.OpLike, models.OpILike,
			models.OpIn, models.OpNotIn,
			models.OpIsNull, models.OpIsNotNull,
		}
	case strings.Contains(dataType, "json"):
		return []models.FilterOperator{
			models.OpEqual, models.OpNotEqual,
			models.OpContains, models.OpContainedBy,
			models.OpIsNull, models.OpIsNotNull,
		}
	case strings.Contains(dataType, "bool"):
		return []models.FilterOperator{
			models.OpEqual, models.OpNotEqual,
			models.OpIsNull, models.OpIsNotNull,
		}
	case strings.Contains(dataType, "date") || strings.Contains(dataType, "time"):
		return []models.FilterOperator{
			models.OpEqual, models.OpNotEqual,
			models.OpGreaterThan, models.OpGreaterOrEqual,
			models.OpLessThan, models.OpLessOrEqual,
			models.OpIsNull, models.OpIsNotNull,
		}
	default:
		return []models.FilterOperator{
			models.OpEqual, models.OpNotEqual,
			models.OpIsNull, models.OpIsNotNull,
		}
	}
}
