// Package views derives the filtered, ordered subsets the UI displays from
// the flat task collection. Every function is pure: inputs are never mutated
// and re-deriving from unchanged input yields the same result.
package views

import (
	"sort"

	"tansu/internal/model"
)

// Inbox returns the tasks awaiting triage, ascending by sort order.
func Inbox(tasks []model.Task) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.State == model.StateInbox {
			out = append(out, t)
		}
	}
	return ByOrder(out)
}

// Today returns the tasks relevant to the given calendar date (YYYY-MM-DD):
// explicitly marked today, or scheduled for that date and not done.
func Today(tasks []model.Task, today string) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.DueToday(today) {
			out = append(out, t)
		}
	}
	return ByOrder(out)
}

// ProjectTasks returns the tasks owned by the project, ascending by sort
// order. Shaping into a forest is the tree package's concern.
func ProjectTasks(tasks []model.Task, projectID string) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return ByOrder(out)
}

// ByOrder sorts ascending by Order. The sort is stable so equal orders keep
// their original relative position.
func ByOrder(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Group is a run of tasks under one project heading. A zero-ID Project marks
// tasks with no (or an unknown) project reference.
type Group struct {
	Project model.Project
	Tasks   []model.Task
}

// GroupByProject splits tasks into per-project groups for display, ordered by
// project sort order. Unowned tasks come last.
func GroupByProject(tasks []model.Task, projects []model.Project) []Group {
	byID := make(map[string]model.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}
	grouped := map[string][]model.Task{}
	for _, t := range tasks {
		key := t.ProjectID
		if _, ok := byID[key]; !ok {
			key = ""
		}
		grouped[key] = append(grouped[key], t)
	}

	ordered := make([]model.Project, len(projects))
	copy(ordered, projects)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	var out []Group
	for _, p := range ordered {
		if ts := grouped[p.ID]; len(ts) > 0 {
			out = append(out, Group{Project: p, Tasks: ts})
		}
	}
	if ts := grouped[""]; len(ts) > 0 {
		out = append(out, Group{Tasks: ts})
	}
	return out
}
