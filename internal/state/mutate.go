package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tansu/internal/docstore"
	"tansu/internal/model"
)

// dispatch mirrors one field update to the remote store. Writes from a single
// cascade run concurrently with no ordering between them; failures are logged
// and otherwise unhandled, the local cache is not rolled back.
func (a *App) dispatch(ctx context.Context, collection, id string, fields map[string]any) {
	a.syncWG.Add(1)
	go func() {
		defer a.syncWG.Done()
		if err := a.store.Update(ctx, collection, id, fields); err != nil {
			a.log.Error("remote write failed",
				"collection", collection, "id", id, "err", err)
		}
	}()
}

// replaceTasks swaps the task cache for a new slice with the given records
// substituted by id. Whole-collection replacement keeps handler invocations
// from interleaving partial writes.
func (a *App) replaceTasks(updated map[string]model.Task) {
	next := make([]model.Task, len(a.tasks))
	for i, t := range a.tasks {
		if u, ok := updated[t.ID]; ok {
			next[i] = u
		} else {
			next[i] = t
		}
	}
	a.tasks = next
}

func (a *App) replaceProject(updated model.Project) {
	next := make([]model.Project, len(a.projects))
	for i, p := range a.projects {
		if p.ID == updated.ID {
			next[i] = updated
		} else {
			next[i] = p
		}
	}
	a.projects = next
}

// QuickAdd captures a task into the inbox of the default project with the
// next sparse sort order.
func (a *App) QuickAdd(ctx context.Context, title string) (model.Task, error) {
	return a.AddTask(ctx, AddTaskInput{Title: title})
}

// AddTaskInput is the full creation surface; zero fields fall back to
// quick-add defaults.
type AddTaskInput struct {
	Title     string
	ProjectID string
	ParentID  string
	State     string
	Scheduled string
}

// AddTask inserts through the store first (the identifier and creation
// timestamps are store-assigned), then appends the canonical record to the
// cache.
func (a *App) AddTask(ctx context.Context, in AddTaskInput) (model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return model.Task{}, fmt.Errorf("%w: title is required", docstore.ErrInvalid)
	}
	projectID := in.ProjectID
	if projectID == "" {
		if p, ok := a.DefaultProject(); ok {
			projectID = p.ID
		}
	}
	st := in.State
	if !model.ValidState(st) {
		st = model.StateInbox
	}
	t := model.Task{
		Title:     strings.TrimSpace(in.Title),
		ProjectID: projectID,
		ParentID:  in.ParentID,
		State:     st,
		Scheduled: in.Scheduled,
		Order:     a.nextTaskOrder(),
	}
	doc, err := a.store.Insert(ctx, docstore.Tasks, t.Doc())
	if err != nil {
		return model.Task{}, err
	}
	created := model.TaskFromDoc(doc.ID, doc.Fields)

	next := make([]model.Task, len(a.tasks), len(a.tasks)+1)
	copy(next, a.tasks)
	a.tasks = append(next, created)
	a.log.Info("task added", "id", created.ID, "state", created.State)
	return created, nil
}

// CreateProject inserts a new active project.
func (a *App) CreateProject(ctx context.Context, name string) (model.Project, error) {
	if strings.TrimSpace(name) == "" {
		return model.Project{}, fmt.Errorf("%w: project name is required", docstore.ErrInvalid)
	}
	p := model.Project{
		Name:  strings.TrimSpace(name),
		State: model.ProjectActive,
		Order: a.nextProjectOrder(),
	}
	doc, err := a.store.Insert(ctx, docstore.Projects, p.Doc())
	if err != nil {
		return model.Project{}, err
	}
	created := model.ProjectFromDoc(doc.ID, doc.Fields)

	next := make([]model.Project, len(a.projects), len(a.projects)+1)
	copy(next, a.projects)
	a.projects = append(next, created)
	a.log.Info("project created", "id", created.ID, "name", created.Name)
	return created, nil
}

// SetTaskState moves a task to a new lifecycle state. Completing a task that
// still has non-done descendants asks the Confirmer first and, on yes, sweeps
// every such descendant into done with its own completion timestamp. Leaving
// done clears the completion timestamp and never cascades. The returned bool
// reports whether the change was applied (false only for a declined
// confirmation).
func (a *App) SetTaskState(ctx context.Context, id, newState string) (bool, error) {
	if !model.ValidState(newState) {
		return false, fmt.Errorf("%w: unknown state %q", docstore.ErrInvalid, newState)
	}
	task, ok := a.Task(id)
	if !ok {
		return false, fmt.Errorf("%w: task %s", docstore.ErrNotFound, id)
	}
	now := model.Timestamp(a.now())

	if newState == model.StateDone && !task.IsDone() {
		pending := a.PendingCascade(id)
		if len(pending) > 0 {
			prompt := fmt.Sprintf("Complete %q and %d sub-task(s)?", task.Title, len(pending))
			if !a.confirm.Confirm(prompt) {
				a.log.Info("cascade declined", "id", id, "descendants", len(pending))
				return false, nil
			}
		}
		updated := map[string]model.Task{}
		task.State = model.StateDone
		task.DoneAt = now
		task.UpdatedAt = now
		updated[task.ID] = task
		for _, d := range pending {
			d.State = model.StateDone
			d.DoneAt = now
			d.UpdatedAt = now
			updated[d.ID] = d
		}
		a.replaceTasks(updated)
		for _, u := range updated {
			a.dispatch(ctx, docstore.Tasks, u.ID, map[string]any{
				model.FieldState:  u.State,
				model.FieldDoneAt: u.DoneAt,
			})
		}
		a.log.Info("task completed", "id", id, "cascaded", len(pending))
		return true, nil
	}

	if task.IsDone() && newState != model.StateDone {
		task.DoneAt = ""
	}
	task.State = newState
	task.UpdatedAt = now
	a.replaceTasks(map[string]model.Task{task.ID: task})
	a.dispatch(ctx, docstore.Tasks, task.ID, map[string]any{
		model.FieldState:  task.State,
		model.FieldDoneAt: task.DoneAt,
	})
	return true, nil
}

// CompleteProject marks a project done. If it still owns non-done tasks the
// Confirmer gates the change; on yes every owned task transitions to done.
func (a *App) CompleteProject(ctx context.Context, id string) (bool, error) {
	project, ok := a.Project(id)
	if !ok {
		return false, fmt.Errorf("%w: project %s", docstore.ErrNotFound, id)
	}
	now := model.Timestamp(a.now())

	pending := a.PendingProjectCascade(id)
	if len(pending) > 0 {
		prompt := fmt.Sprintf("Complete project %q and its %d open task(s)?", project.Name, len(pending))
		if !a.confirm.Confirm(prompt) {
			a.log.Info("project cascade declined", "id", id, "open", len(pending))
			return false, nil
		}
	}

	updated := map[string]model.Task{}
	for _, t := range pending {
		t.State = model.StateDone
		t.DoneAt = now
		t.UpdatedAt = now
		updated[t.ID] = t
	}
	a.replaceTasks(updated)
	project.State = model.ProjectDone
	a.replaceProject(project)

	for _, u := range updated {
		a.dispatch(ctx, docstore.Tasks, u.ID, map[string]any{
			model.FieldState:  u.State,
			model.FieldDoneAt: u.DoneAt,
		})
	}
	a.dispatch(ctx, docstore.Projects, project.ID, map[string]any{
		model.FieldState: project.State,
	})
	a.log.Info("project completed", "id", id, "cascaded", len(updated))
	return true, nil
}

// ReopenProject sets a done project back to active. Member tasks keep their
// states.
func (a *App) ReopenProject(ctx context.Context, id string) error {
	project, ok := a.Project(id)
	if !ok {
		return fmt.Errorf("%w: project %s", docstore.ErrNotFound, id)
	}
	project.State = model.ProjectActive
	a.replaceProject(project)
	a.dispatch(ctx, docstore.Projects, project.ID, map[string]any{
		model.FieldState: project.State,
	})
	return nil
}

// RenameTask replaces the task's title.
func (a *App) RenameTask(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", docstore.ErrInvalid)
	}
	task, ok := a.Task(id)
	if !ok {
		return fmt.Errorf("%w: task %s", docstore.ErrNotFound, id)
	}
	task.Title = strings.TrimSpace(title)
	task.UpdatedAt = model.Timestamp(a.now())
	a.replaceTasks(map[string]model.Task{task.ID: task})
	a.dispatch(ctx, docstore.Tasks, task.ID, map[string]any{
		model.FieldTitle: task.Title,
	})
	return nil
}

// MoveTaskToProject re-homes the task (and none of its relatives; children
// follow their parent only through the tree view's parent linkage).
func (a *App) MoveTaskToProject(ctx context.Context, id, projectID string) error {
	task, ok := a.Task(id)
	if !ok {
		return fmt.Errorf("%w: task %s", docstore.ErrNotFound, id)
	}
	if projectID != "" {
		if _, ok := a.Project(projectID); !ok {
			return fmt.Errorf("%w: project %s", docstore.ErrNotFound, projectID)
		}
	}
	task.ProjectID = projectID
	task.UpdatedAt = model.Timestamp(a.now())
	a.replaceTasks(map[string]model.Task{task.ID: task})
	a.dispatch(ctx, docstore.Tasks, task.ID, map[string]any{
		model.FieldProjectID: task.ProjectID,
	})
	return nil
}

// SetTaskParent re-links the task under a new parent ("" = top level). A task
// cannot parent itself; deeper cycles are assumed absent in stored data.
func (a *App) SetTaskParent(ctx context.Context, id, parentID string) error {
	if id == parentID {
		return fmt.Errorf("%w: task cannot be its own parent", docstore.ErrInvalid)
	}
	task, ok := a.Task(id)
	if !ok {
		return fmt.Errorf("%w: task %s", docstore.ErrNotFound, id)
	}
	if parentID != "" {
		if _, ok := a.Task(parentID); !ok {
			return fmt.Errorf("%w: task %s", docstore.ErrNotFound, parentID)
		}
	}
	task.ParentID = parentID
	task.UpdatedAt = model.Timestamp(a.now())
	a.replaceTasks(map[string]model.Task{task.ID: task})
	a.dispatch(ctx, docstore.Tasks, task.ID, map[string]any{
		model.FieldParentID: task.ParentID,
	})
	return nil
}

// ScheduleTask pins the task to a calendar date (YYYY-MM-DD) and moves it to
// the scheduled state. An empty date unschedules back to anytime.
func (a *App) ScheduleTask(ctx context.Context, id, date string) error {
	task, ok := a.Task(id)
	if !ok {
		return fmt.Errorf("%w: task %s", docstore.ErrNotFound, id)
	}
	now := model.Timestamp(a.now())
	if date == "" {
		task.Scheduled = ""
		if task.State == model.StateScheduled {
			task.State = model.StateAnytime
		}
	} else {
		if !validDate(date) {
			return fmt.Errorf("%w: bad date %q", docstore.ErrInvalid, date)
		}
		task.Scheduled = date
		if !task.IsDone() {
			task.State = model.StateScheduled
		}
	}
	task.UpdatedAt = now
	a.replaceTasks(map[string]model.Task{task.ID: task})
	a.dispatch(ctx, docstore.Tasks, task.ID, map[string]any{
		model.FieldScheduled: task.Scheduled,
		model.FieldState:     task.State,
	})
	return nil
}

func validDate(date string) bool {
	if len(date) != 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}
