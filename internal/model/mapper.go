package model

import (
	"strings"
	"time"
)

// Stored field names shared by every docstore driver.
const (
	FieldTitle     = "title"
	FieldName      = "name"
	FieldProjectID = "project_id"
	FieldParentID  = "parent_id"
	FieldState     = "state"
	FieldOrder     = "order"
	FieldScheduled = "scheduled"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldDoneAt    = "done_at"
)

// timeConvertible is satisfied by driver timestamp types that carry their own
// date conversion, e.g. neo4j dbtype date/time values.
type timeConvertible interface {
	Time() time.Time
}

// TaskFromDoc maps a raw stored record onto the canonical task shape.
// Malformed or missing fields degrade to defaults; no error is ever raised.
func TaskFromDoc(id string, fields map[string]any) Task {
	t := Task{
		ID:        id,
		Title:     NormalizeTitle(asString(fields[FieldTitle])),
		ProjectID: asString(fields[FieldProjectID]),
		ParentID:  asString(fields[FieldParentID]),
		State:     asState(fields[FieldState]),
		Order:     asInt(fields[FieldOrder]),
		Scheduled: asDate(fields[FieldScheduled]),
		CreatedAt: asTimestamp(fields[FieldCreatedAt]),
		UpdatedAt: asTimestamp(fields[FieldUpdatedAt]),
		DoneAt:    asTimestamp(fields[FieldDoneAt]),
	}
	return t
}

// ProjectFromDoc maps a raw stored record onto the canonical project shape.
func ProjectFromDoc(id string, fields map[string]any) Project {
	state := strings.TrimSpace(strings.ToLower(asString(fields[FieldState])))
	if state != ProjectDone {
		state = ProjectActive
	}
	return Project{
		ID:        id,
		Name:      NormalizeTitle(asString(fields[FieldName])),
		State:     state,
		Order:     asInt(fields[FieldOrder]),
		CreatedAt: asTimestamp(fields[FieldCreatedAt]),
	}
}

// Doc flattens the task back into stored fields for inserts and full updates.
func (t Task) Doc() map[string]any {
	return map[string]any{
		FieldTitle:     t.Title,
		FieldProjectID: t.ProjectID,
		FieldParentID:  t.ParentID,
		FieldState:     t.State,
		FieldOrder:     t.Order,
		FieldScheduled: t.Scheduled,
		FieldCreatedAt: t.CreatedAt,
		FieldUpdatedAt: t.UpdatedAt,
		FieldDoneAt:    t.DoneAt,
	}
}

// Doc flattens the project back into stored fields.
func (p Project) Doc() map[string]any {
	return map[string]any{
		FieldName:      p.Name,
		FieldState:     p.State,
		FieldOrder:     p.Order,
		FieldCreatedAt: p.CreatedAt,
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asState(v any) string {
	s := strings.TrimSpace(strings.ToLower(asString(v)))
	if !ValidState(s) {
		return StateInbox
	}
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

// asTimestamp normalizes the source representations seen in stored records:
// an RFC3339 string, a time.Time, or a driver value with a Time() conversion.
// Anything else is treated as absent.
func asTimestamp(v any) string {
	switch ts := v.(type) {
	case string:
		s := strings.TrimSpace(ts)
		if s == "" {
			return ""
		}
		if parsed, err := time.Parse(time.RFC3339, s); err == nil {
			return Timestamp(parsed)
		}
		return ""
	case time.Time:
		if ts.IsZero() {
			return ""
		}
		return Timestamp(ts)
	case timeConvertible:
		return Timestamp(ts.Time())
	default:
		return ""
	}
}

// asDate accepts the same source shapes as asTimestamp but keeps only the
// calendar date.
func asDate(v any) string {
	switch d := v.(type) {
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return ""
		}
		if len(s) >= 10 {
			if parsed, err := time.Parse("2006-01-02", s[:10]); err == nil {
				return parsed.Format("2006-01-02")
			}
		}
		if parsed, err := time.Parse(time.RFC3339, s); err == nil {
			return Today(parsed)
		}
		return ""
	case time.Time:
		if d.IsZero() {
			return ""
		}
		return Today(d)
	case timeConvertible:
		return Today(d.Time())
	default:
		return ""
	}
}
