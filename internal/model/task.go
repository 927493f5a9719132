package model

import (
	"strings"
	"time"
)

// Task states. A task is in exactly one state at a time.
const (
	StateInbox     = "inbox"
	StateToday     = "today"
	StateAnytime   = "anytime"
	StateScheduled = "scheduled"
	StateSomeday   = "someday"
	StateDone      = "done"
)

// Project states.
const (
	ProjectActive = "active"
	ProjectDone   = "done"
)

// OrderStep is the gap between consecutive sort orders. New records get
// max(order)+OrderStep so later inserts can slot between existing ones.
const OrderStep = 10

// Task is the canonical in-memory task record. Timestamps are RFC3339 UTC
// strings; the empty string means absent. Scheduled is a plain YYYY-MM-DD
// date. ParentID, if set, references another task and the tasks of a project
// form a forest.
type Task struct {
	ID        string
	Title     string
	ProjectID string
	ParentID  string
	State     string
	Order     int
	Scheduled string
	CreatedAt string
	UpdatedAt string
	DoneAt    string
}

// Project is a named grouping of tasks. Tasks hold the foreign key.
type Project struct {
	ID        string
	Name      string
	State     string
	Order     int
	CreatedAt string
}

// IsDone reports whether the task is in the terminal state.
func (t Task) IsDone() bool { return t.State == StateDone }

// DueToday reports whether the task belongs in the Today view for the given
// calendar date (YYYY-MM-DD): either explicitly marked today, or scheduled
// for that date and not yet done.
func (t Task) DueToday(today string) bool {
	if t.State == StateToday {
		return true
	}
	return t.Scheduled != "" && t.Scheduled == today && t.State != StateDone
}

// ValidState reports whether s is one of the task states.
func ValidState(s string) bool {
	switch s {
	case StateInbox, StateToday, StateAnytime, StateScheduled, StateSomeday, StateDone:
		return true
	default:
		return false
	}
}

// Today returns now's calendar date in UTC as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// Timestamp formats now as the canonical RFC3339 UTC string.
func Timestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}

// NormalizeTitle trims whitespace and substitutes the placeholder title.
func NormalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Untitled"
	}
	return s
}
