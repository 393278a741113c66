package filter

import (
	"errors"
	"testing"

	"github.com/rowanharker/tabgrid/internal/models"
)

func TestBuildWhereSimple(t *testing.T) {
	b := NewBuilder()

	f := models.Filter{
		RootGroup: models.FilterGroup{
			Conditions: []models.FilterCondition{
				{Column: "age", Operator: models.OpGreaterOrEqual, Value: 21, Type: "integer"},
				{Column: "name", Operator: models.OpILike, Value: "%ann%", Type: "text"},
			},
		},
	}

	clause, err := b.BuildWhere(f)
	if err != nil {
		t.Fatalf("BuildWhere failed: %v", err)
	}

	want := `"age" >= 21 AND "name" ILIKE '%ann%'`
	if clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
}

func TestBuildWhereNestedGroups(t *testing.T) {
	b := NewBuilder()

	f := models.Filter{
		RootGroup: models.FilterGroup{
			Conditions: []models.FilterCondition{
				{Column: "active", Operator: models.OpEqual, Value: true, Type: "boolean"},
			},
			Groups: []models.FilterGroup{
				{
					Logic: "OR",
					Conditions: []models.FilterCondition{
						{Column: "role", Operator: models.OpEqual, Value: "admin", Type: "text"},
						{Column: "role", Operator: models.OpEqual, Value: "owner", Type: "text"},
					},
				},
			},
		},
	}

	clause, err := b.BuildWhere(f)
	if err != nil {
		t.Fatalf("BuildWhere failed: %v", err)
	}

	want := `"active" = TRUE AND ("role" = 'admin' OR "role" = 'owner')`
	if clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
}

func TestBuildWhereInList(t *testing.T) {
	b := NewBuilder()

	f := models.Filter{
		RootGroup: models.FilterGroup{
			Conditions: []models.FilterCondition{
				{Column: "id", Operator: models.OpIn, Value: []int{1, 2, 3}, Type: "integer"},
			},
		},
	}

	clause, err := b.BuildWhere(f)
	if err != nil {
		t.Fatalf("BuildWhere failed: %v", err)
	}

	want := `"id" IN (1, 2, 3)`
	if clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
}

func TestBuildWhereNullOperators(t *testing.T) {
	b := NewBuilder()

	f := models.Filter{
		RootGroup: models.FilterGroup{
			Conditions: []models.FilterCondition{
				{Column: "deleted_at", Operator: models.OpIsNull},
			},
		},
	}

	clause, err := b.BuildWhere(f)
	if err != nil {
		t.Fatalf("BuildWhere failed: %v", err)
	}

	if clause != `"deleted_at" IS NULL` {
		t.Errorf("clause = %q", clause)
	}
}

func TestBuildWhereEmptyFilter(t *testing.T) {
	b := NewBuilder()

	clause, err := b.BuildWhere(models.Filter{})
	if err != nil {
		t.Fatalf("BuildWhere failed: %v", err)
	}
	if clause != "" {
		t.Errorf("expected empty clause, got %q", clause)
	}
}

func TestValidateRejectsBadCriteria(t *testing.T) {
	b := NewBuilder()

	tests := []struct {
		name string
		f    models.Filter
	}{
		{
			"empty column",
			models.Filter{RootGroup: models.FilterGroup{
				Conditions: []models.FilterCondition{
					{Column: "  ", Operator: models.OpEqual, Value: 1},
				},
			}},
		},
		{
			"unknown operator",
			models.Filter{RootGroup: models.FilterGroup{
				Conditions: []models.FilterCondition{
					{Column: "id", Operator: "BETWIXT", Value: 1},
				},
			}},
		},
		{
			"unknown logic",
			models.Filter{RootGroup: models.FilterGroup{
				Logic: "XOR",
				Conditions: []models.FilterCondition{
					{Column: "id", Operator: models.OpEqual, Value: 1},
				},
			}},
		},
		{
			"in without list",
			models.Filter{RootGroup: models.FilterGroup{
				Conditions: []models.FilterCondition{
					{Column: "id", Operator: models.OpIn, Value: 1},
				},
			}},
		},
		{
			"in with empty list",
			models.Filter{RootGroup: models.FilterGroup{
				Conditions: []models.FilterCondition{
					{Column: "id", Operator: models.OpIn, Value: []int{}},
				},
			}},
		},
		{
			"malformed json for contains",
			models.Filter{RootGroup: models.FilterGroup{
				Conditions: []models.FilterCondition{
					{Column: "meta", Operator: models.OpContains, Value: `{"plan":`, Type: "jsonb"},
				},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.BuildWhere(tt.f); !errors.Is(err, ErrInvalidCriteria) {
				t.Errorf("expected ErrInvalidCriteria, got %v", err)
			}
		})
	}
}

func TestBuildWhereJSONContains(t *testing.T) {
	b := NewBuilder()

	f := models.Filter{
		RootGroup: models.FilterGroup{
			Conditions: []models.FilterCondition{
				{Column: "meta", Operator: models.OpContains, Value: map[string]interface{}{"plan": "pro"}, Type: "jsonb"},
			},
		},
	}

	clause, err := b.BuildWhere(f)
	if err != nil {
		t.Fatalf("BuildWhere failed: %v", err)
	}

	want := `"meta" @> '{"plan":"pro"}'`
	if clause != want {
		t.Errorf("clause = %q, want %q", clause, want)
	}
}

func TestGetOperatorsForType(t *testing.T) {
	ops := GetOperatorsForType("integer")
	found := false
	for _, op := range ops {
		if op == models.OpGreaterThan {
			found = true
		}
		if op == models.OpLike {
			t.Error("integer type should not offer LIKE")
		}
	}
	if !found {
		t.Error("integer type should offer >")
	}
}
