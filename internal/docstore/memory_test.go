package docstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryFilterNumericTolerance(t *testing.T) {
	s := OpenMemory()
	ctx := context.Background()

	// Stored as int, matched as float64, the way JSON round-trips numbers.
	if _, err := s.Insert(ctx, Tasks, map[string]any{"title": "a", "order": 10}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Query(ctx, Tasks, Query{Filters: []Filter{{Field: "order", Value: float64(10)}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("float64 filter over int field matched %d docs, want 1", len(got))
	}
}

func TestMemoryOrderByWithIDTieBreak(t *testing.T) {
	s := OpenMemory()
	ctx := context.Background()
	for _, order := range []int{20, 10, 10} {
		if _, err := s.Insert(ctx, Tasks, map[string]any{"order": order}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Query(ctx, Tasks, Query{OrderBy: "order"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d docs, want 3", len(got))
	}
	if numeric(got[0].Fields["order"]) != 10 || numeric(got[2].Fields["order"]) != 20 {
		t.Errorf("ascending order violated: %v", got)
	}
	if got[0].ID > got[1].ID {
		t.Error("equal orders not tie-broken by id")
	}
}

func TestMemoryUpdateMissing(t *testing.T) {
	s := OpenMemory()
	err := s.Update(context.Background(), Projects, "prj_missing", map[string]any{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
