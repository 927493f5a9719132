package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Store. It backs tests and the ephemeral "memory"
// backend; documents vanish when the process exits.
type Memory struct {
	mu   sync.Mutex
	docs map[string]map[string]map[string]any // collection -> id -> fields
}

func OpenMemory() *Memory {
	return &Memory{docs: map[string]map[string]map[string]any{
		Projects: {},
		Tasks:    {},
	}}
}

func (s *Memory) Close() error { return nil }

func (s *Memory) Query(_ context.Context, collection string, q Query) ([]Document, error) {
	if !validCollection(collection) {
		return nil, fmt.Errorf("%w: unknown collection %q", ErrInvalid, collection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Document
	for id, fields := range s.docs[collection] {
		if !matches(fields, q.Filters) {
			continue
		}
		out = append(out, Document{ID: id, Fields: copyFields(fields)})
	}
	sort.Slice(out, func(i, j int) bool {
		if q.OrderBy != "" {
			oi := numeric(out[i].Fields[q.OrderBy])
			oj := numeric(out[j].Fields[q.OrderBy])
			if oi != oj {
				return oi < oj
			}
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Memory) Insert(_ context.Context, collection string, fields map[string]any) (Document, error) {
	if !validCollection(collection) {
		return Document{}, fmt.Errorf("%w: unknown collection %q", ErrInvalid, collection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stamped := stampInsert(fields)
	id := newID(collection)
	s.docs[collection][id] = copyFields(stamped)
	return Document{ID: id, Fields: stamped}, nil
}

func (s *Memory) Update(_ context.Context, collection string, id string, fields map[string]any) error {
	if !validCollection(collection) {
		return fmt.Errorf("%w: unknown collection %q", ErrInvalid, collection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[collection][id]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	for k, v := range stampUpdate(fields) {
		existing[k] = v
	}
	return nil
}

// Get returns a single document, for tests that assert on written state.
func (s *Memory) Get(collection, id string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.docs[collection][id]
	if !ok {
		return Document{}, false
	}
	return Document{ID: id, Fields: copyFields(fields)}, true
}

func matches(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok {
			return false
		}
		if f.Values != nil {
			hit := false
			for _, want := range f.Values {
				if equal(v, want) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
			continue
		}
		if !equal(v, f.Value) {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	if na, oka := asNumeric(a); oka {
		if nb, okb := asNumeric(b); okb {
			return na == nb
		}
	}
	return a == b
}

func numeric(v any) float64 {
	n, _ := asNumeric(v)
	return n
}

func asNumeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
