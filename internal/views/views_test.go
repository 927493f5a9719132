package views

import (
	"testing"

	"tansu/internal/model"
)

func TestInboxOnlyInboxTasks(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", State: model.StateInbox, Order: 20},
		{ID: "b", State: model.StateToday, Order: 10},
		{ID: "c", State: model.StateDone, Order: 5},
		{ID: "d", State: model.StateInbox, Order: 10},
	}
	got := Inbox(tasks)
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
	for _, task := range got {
		if task.State != model.StateInbox {
			t.Errorf("inbox view contains non-inbox task %s (%s)", task.ID, task.State)
		}
	}
	if got[0].ID != "d" || got[1].ID != "a" {
		t.Errorf("expected order d, a; got %s, %s", got[0].ID, got[1].ID)
	}
}

func TestByOrderStable(t *testing.T) {
	tasks := []model.Task{
		{ID: "first", Order: 20},
		{ID: "second", Order: 10},
		{ID: "third", Order: 10},
	}
	got := ByOrder(tasks)
	want := []string{"second", "third", "first"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	// input untouched
	if tasks[0].ID != "first" {
		t.Error("ByOrder mutated its input")
	}
}

func TestTodayView(t *testing.T) {
	today := "2026-08-29"
	tasks := []model.Task{
		{ID: "a", State: model.StateToday, Order: 30},
		{ID: "b", State: model.StateScheduled, Scheduled: today, Order: 10},
		{ID: "c", State: model.StateScheduled, Scheduled: "2026-09-15", Order: 20},
		{ID: "d", State: model.StateDone, Scheduled: today, Order: 5},
		{ID: "e", State: model.StateInbox, Order: 1},
	}
	got := Today(tasks, today)
	want := []string{"b", "a"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestTodayIdempotent(t *testing.T) {
	today := "2026-08-29"
	tasks := []model.Task{
		{ID: "a", State: model.StateToday, Order: 10},
		{ID: "b", State: model.StateToday, Order: 10},
	}
	first := Today(tasks, today)
	second := Today(tasks, today)
	if len(first) != len(second) {
		t.Fatalf("derivation not idempotent: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("position %d differs between derivations", i)
		}
	}
}

func TestProjectTasks(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", ProjectID: "p1", Order: 20},
		{ID: "b", ProjectID: "p2", Order: 10},
		{ID: "c", ProjectID: "p1", Order: 10},
	}
	got := ProjectTasks(tasks, "p1")
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "a" {
		t.Fatalf("unexpected project view: %#v", got)
	}
}

func TestGroupByProject(t *testing.T) {
	projects := []model.Project{
		{ID: "p2", Name: "Work", Order: 20},
		{ID: "p1", Name: "Home", Order: 10},
	}
	tasks := []model.Task{
		{ID: "a", ProjectID: "p2"},
		{ID: "b", ProjectID: "p1"},
		{ID: "c", ProjectID: ""},
		{ID: "d", ProjectID: "gone"},
	}
	groups := GroupByProject(tasks, projects)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].Project.ID != "p1" || groups[1].Project.ID != "p2" {
		t.Errorf("groups not in project order: %s, %s", groups[0].Project.ID, groups[1].Project.ID)
	}
	last := groups[2]
	if last.Project.ID != "" || len(last.Tasks) != 2 {
		t.Errorf("expected trailing unowned group with 2 tasks, got %#v", last)
	}
}
