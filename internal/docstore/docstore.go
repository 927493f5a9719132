// Package docstore is the document-store contract the rest of the app
// persists through: two collections of flat field maps, queryable by
// equality/inclusion filters with ascending order on a numeric field.
package docstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"tansu/internal/model"
)

// Collection names.
const (
	Projects = "projects"
	Tasks    = "tasks"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")

	timeNow = func() time.Time { return time.Now().UTC() }
)

// Document is a stored record: a generated identifier plus flat fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// Filter matches a single field, either by equality (Value) or by set
// inclusion (Values). Values takes precedence when non-nil.
type Filter struct {
	Field  string
	Value  any
	Values []any
}

// Query selects documents in a collection. OrderBy, when set, sorts ascending
// by that numeric field; ties break on document id so results are consistent.
type Query struct {
	Filters []Filter
	OrderBy string
}

// Store is the client surface the core consumes. Insert generates the
// document id and assigns created/updated timestamps server-side; Update
// merges the given fields and refreshes the updated timestamp.
type Store interface {
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	Insert(ctx context.Context, collection string, fields map[string]any) (Document, error)
	Update(ctx context.Context, collection string, id string, fields map[string]any) error
	Close() error
}

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

var entropy = ulid.Monotonic(randReader{}, 0)

// newID generates a collection-prefixed ULID.
func newID(collection string) string {
	prefix := "doc_"
	switch collection {
	case Tasks:
		prefix = "tsk_"
	case Projects:
		prefix = "prj_"
	}
	id, err := ulid.New(ulid.Timestamp(timeNow()), entropy)
	if err != nil {
		return fmt.Sprintf("%s%d", prefix, timeNow().UnixNano())
	}
	return prefix + strings.ToUpper(id.String())
}

func validCollection(collection string) bool {
	return collection == Projects || collection == Tasks
}

// validField restricts field names, which drivers interpolate into query
// text, to the shape the code's field constants have.
func validField(field string) bool {
	if field == "" {
		return false
	}
	for _, r := range field {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}

// stampInsert copies fields and assigns the server-side timestamps.
func stampInsert(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	now := model.Timestamp(timeNow())
	if s, ok := out[model.FieldCreatedAt].(string); !ok || s == "" {
		out[model.FieldCreatedAt] = now
	}
	out[model.FieldUpdatedAt] = now
	return out
}

// stampUpdate copies fields and refreshes the updated timestamp.
func stampUpdate(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[model.FieldUpdatedAt] = model.Timestamp(timeNow())
	return out
}
