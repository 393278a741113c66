package session

import (
	"context"
	"testing"

	"github.com/rowanharker/tabgrid/internal/models"
)

func TestPKCacheFetchesOnce(t *testing.T) {
	fake := usersFake()
	cache := NewPKCache(fake)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cols, err := cache.Lookup(ctx, usersRef)
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if len(cols) != 1 || cols[0] != "id" {
			t.Fatalf("cols = %v", cols)
		}
	}
	if fake.pkCalls != 1 {
		t.Errorf("catalog queried %d times, want 1", fake.pkCalls)
	}
}

func TestPKCacheCachesKeylessTables(t *testing.T) {
	fake := usersFake()
	fake.pks = nil
	cache := NewPKCache(fake)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		cols, err := cache.Lookup(ctx, usersRef)
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if len(cols) != 0 {
			t.Fatalf("cols = %v, want empty", cols)
		}
	}
	if fake.pkCalls != 1 {
		t.Errorf("keyless table queried %d times, want 1", fake.pkCalls)
	}
}

func TestPKCacheInvalidate(t *testing.T) {
	fake := usersFake()
	cache := NewPKCache(fake)
	ctx := context.Background()

	if _, err := cache.Lookup(ctx, usersRef); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	cache.Invalidate()
	if _, err := cache.Lookup(ctx, usersRef); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if fake.pkCalls != 2 {
		t.Errorf("expected a refetch after Invalidate, got %d calls", fake.pkCalls)
	}
}

func TestSortStoreKeyedByTable(t *testing.T) {
	store := NewSortStore()
	orders := models.TableRef{Schema: "public", Table: "orders"}

	if _, ok := store.Get(usersRef); ok {
		t.Fatal("empty store returned a sort")
	}

	store.Set(usersRef, models.SortState{Column: "name", Direction: models.SortAsc})
	store.Set(orders, models.SortState{Column: "total", Direction: models.SortDesc})

	if st, ok := store.Get(usersRef); !ok || st.Column != "name" || st.Direction != models.SortAsc {
		t.Errorf("users sort = %+v ok=%v", st, ok)
	}
	if st, ok := store.Get(orders); !ok || st.Column != "total" {
		t.Errorf("orders sort = %+v ok=%v", st, ok)
	}

	store.Clear(usersRef)
	if _, ok := store.Get(usersRef); ok {
		t.Error("Clear left sort state behind")
	}
	if _, ok := store.Get(orders); !ok {
		t.Error("Clear removed an unrelated key")
	}

	store.Reset()
	if _, ok := store.Get(orders); ok {
		t.Error("Reset left sort state behind")
	}
}
