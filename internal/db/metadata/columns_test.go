package metadata

import "testing"

func TestNormalizeTypeName(t *testing.T) {
	tests := []struct {
		udt  string
		want string
	}{
		{"int4", "integer"},
		{"int8", "bigint"},
		{"float8", "double precision"},
		{"bool", "boolean"},
		{"varchar", "character varying"},
		{"jsonb", "jsonb"},
		{"uuid", "uuid"},
	}

	for _, tt := range tests {
		if got := normalizeTypeName(tt.udt); got != tt.want {
			t.Errorf("normalizeTypeName(%q) = %q, want %q", tt.udt, got, tt.want)
		}
	}
}
