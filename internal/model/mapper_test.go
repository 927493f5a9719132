package model

import (
	"testing"
	"time"
)

// driverTime mimics an SDK timestamp type that carries its own conversion.
type driverTime struct{ t time.Time }

func (d driverTime) Time() time.Time { return d.t }

func TestTaskFromDocDefaults(t *testing.T) {
	task := TaskFromDoc("tsk_1", map[string]any{})
	if task.Order != 0 {
		t.Errorf("expected order 0, got %d", task.Order)
	}
	if task.State != StateInbox {
		t.Errorf("expected state %q, got %q", StateInbox, task.State)
	}
	if task.Title != "Untitled" {
		t.Errorf("expected title Untitled, got %q", task.Title)
	}
	if task.DoneAt != "" {
		t.Errorf("expected absent done timestamp, got %q", task.DoneAt)
	}
}

func TestTaskFromDocTimestampSources(t *testing.T) {
	ref := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	want := "2026-08-29T10:30:00Z"

	cases := []struct {
		name string
		in   any
		want string
	}{
		{"rfc3339 string", "2026-08-29T10:30:00Z", want},
		{"time value", ref, want},
		{"convertible", driverTime{t: ref}, want},
		{"garbage string", "not a time", ""},
		{"wrong type", 42, ""},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := TaskFromDoc("tsk_1", map[string]any{FieldCreatedAt: tc.in})
			if task.CreatedAt != tc.want {
				t.Errorf("CreatedAt = %q, want %q", task.CreatedAt, tc.want)
			}
		})
	}
}

func TestTaskFromDocScheduledDate(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"plain date", "2026-09-01", "2026-09-01"},
		{"timestamp trimmed", "2026-09-01T08:00:00Z", "2026-09-01"},
		{"time value", time.Date(2026, 9, 1, 23, 0, 0, 0, time.UTC), "2026-09-01"},
		{"bad value", "soonish", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := TaskFromDoc("tsk_1", map[string]any{FieldScheduled: tc.in})
			if task.Scheduled != tc.want {
				t.Errorf("Scheduled = %q, want %q", task.Scheduled, tc.want)
			}
		})
	}
}

func TestTaskFromDocNumericOrder(t *testing.T) {
	// JSON decoding hands back float64, drivers may hand back int64.
	for _, in := range []any{20, int64(20), float64(20)} {
		task := TaskFromDoc("tsk_1", map[string]any{FieldOrder: in})
		if task.Order != 20 {
			t.Errorf("order from %T = %d, want 20", in, task.Order)
		}
	}
}

func TestTaskFromDocBadStateDegrades(t *testing.T) {
	task := TaskFromDoc("tsk_1", map[string]any{FieldState: "shipped"})
	if task.State != StateInbox {
		t.Errorf("expected inbox fallback, got %q", task.State)
	}
}

func TestProjectFromDocDefaults(t *testing.T) {
	p := ProjectFromDoc("prj_1", map[string]any{})
	if p.Name != "Untitled" {
		t.Errorf("expected Untitled, got %q", p.Name)
	}
	if p.State != ProjectActive {
		t.Errorf("expected active, got %q", p.State)
	}
	done := ProjectFromDoc("prj_2", map[string]any{FieldState: "done"})
	if done.State != ProjectDone {
		t.Errorf("expected done, got %q", done.State)
	}
}

func TestDueToday(t *testing.T) {
	today := "2026-08-29"
	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"marked today", Task{State: StateToday}, true},
		{"scheduled for today", Task{State: StateScheduled, Scheduled: today}, true},
		{"scheduled done", Task{State: StateDone, Scheduled: today}, false},
		{"scheduled tomorrow", Task{State: StateScheduled, Scheduled: "2026-08-30"}, false},
		{"plain inbox", Task{State: StateInbox}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.task.DueToday(today); got != tc.want {
				t.Errorf("DueToday = %v, want %v", got, tc.want)
			}
		})
	}
}
