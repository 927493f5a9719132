// Package state owns the client-side cache of projects and tasks and every
// mutation over it. Mutations apply to the local cache first and mirror to
// the document store afterwards; the store is a durable best-effort mirror,
// not the source of truth while the app runs.
package state

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"tansu/internal/docstore"
	"tansu/internal/model"
	"tansu/internal/seed"
	"tansu/internal/views"
)

// Confirmer gates destructive cascades. Implementations block until the user
// answered (or answer immediately, as the TUI's pre-resolved prompts do).
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// App is the application state object: the sole mutable owner of both
// collections on the client.
type App struct {
	store   docstore.Store
	log     *slog.Logger
	confirm Confirmer
	now     func() time.Time

	defaultProject string

	projects []model.Project
	tasks    []model.Task

	syncWG sync.WaitGroup
}

// Option configures an App.
type Option func(*App)

// WithConfirmer sets the confirmation capability for destructive cascades.
func WithConfirmer(c Confirmer) Option { return func(a *App) { a.confirm = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(a *App) { a.log = l } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(a *App) { a.now = now } }

// WithDefaultProject names the project quick-added tasks land in.
func WithDefaultProject(name string) Option {
	return func(a *App) { a.defaultProject = name }
}

func New(store docstore.Store, opts ...Option) *App {
	a := &App{
		store:   store,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		confirm: ConfirmFunc(func(string) bool { return false }),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load performs the initial bulk fetch of both collections, ascending by sort
// order. Empty collections are backfilled with the embedded seed data, so the
// first launch never shows a blank screen. Fetched records are always kept;
// seeding only ever adds what is missing, it never duplicates or replaces an
// existing collection.
func (a *App) Load(ctx context.Context) error {
	ordered := docstore.Query{OrderBy: model.FieldOrder}

	projectDocs, err := a.store.Query(ctx, docstore.Projects, ordered)
	if err != nil {
		return err
	}
	taskDocs, err := a.store.Query(ctx, docstore.Tasks, ordered)
	if err != nil {
		return err
	}

	projects := make([]model.Project, 0, len(projectDocs))
	for _, doc := range projectDocs {
		projects = append(projects, model.ProjectFromDoc(doc.ID, doc.Fields))
	}
	tasks := make([]model.Task, 0, len(taskDocs))
	for _, doc := range taskDocs {
		tasks = append(tasks, model.TaskFromDoc(doc.ID, doc.Fields))
	}

	if len(projects) == 0 {
		a.log.Info("no projects stored, seeding starter projects")
		seeded, err := seed.ApplyProjects(ctx, a.store)
		if err != nil {
			return err
		}
		projects = seeded
	}
	if len(tasks) == 0 {
		a.log.Info("no tasks stored, seeding starter tasks")
		seeded, err := seed.ApplyTasks(ctx, a.store, projects)
		if err != nil {
			return err
		}
		tasks = seeded
	}

	a.projects = projects
	a.tasks = tasks
	return nil
}

// Flush waits for in-flight remote writes. Called on shutdown and by tests;
// the UI never waits on it.
func (a *App) Flush() { a.syncWG.Wait() }

// Tasks returns a copy of the task cache.
func (a *App) Tasks() []model.Task {
	out := make([]model.Task, len(a.tasks))
	copy(out, a.tasks)
	return out
}

// Projects returns a copy of the project cache.
func (a *App) Projects() []model.Project {
	out := make([]model.Project, len(a.projects))
	copy(out, a.projects)
	return out
}

// Task looks a task up by id.
func (a *App) Task(id string) (model.Task, bool) {
	for _, t := range a.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// Project looks a project up by id.
func (a *App) Project(id string) (model.Project, bool) {
	for _, p := range a.projects {
		if p.ID == id {
			return p, true
		}
	}
	return model.Project{}, false
}

// DefaultProject resolves the configured default project, falling back to the
// first project by sort order.
func (a *App) DefaultProject() (model.Project, bool) {
	for _, p := range a.projects {
		if p.Name == a.defaultProject {
			return p, true
		}
	}
	var best model.Project
	found := false
	for _, p := range a.projects {
		if !found || p.Order < best.Order {
			best = p
			found = true
		}
	}
	return best, found
}

// Inbox derives the inbox view.
func (a *App) Inbox() []model.Task {
	return views.Inbox(a.tasks)
}

// TodayView derives today's tasks grouped by owning project.
func (a *App) TodayView() (string, []views.Group) {
	today := model.Today(a.now())
	return today, views.GroupByProject(views.Today(a.tasks, today), a.projects)
}

// ProjectTasks derives the ordered task list of one project.
func (a *App) ProjectTasks(projectID string) []model.Task {
	return views.ProjectTasks(a.tasks, projectID)
}

// Descendants returns the transitive children of a task, via parent
// references over the flat cache. Traversal order is not significant.
func (a *App) Descendants(id string) []model.Task {
	children := map[string][]model.Task{}
	for _, t := range a.tasks {
		if t.ParentID != "" {
			children[t.ParentID] = append(children[t.ParentID], t)
		}
	}
	var out []model.Task
	queue := []string{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, c := range children[next] {
			out = append(out, c)
			queue = append(queue, c.ID)
		}
	}
	return out
}

// PendingCascade returns the non-done descendants that completing the task
// would sweep along, so callers can surface the confirmation prompt.
func (a *App) PendingCascade(id string) []model.Task {
	var out []model.Task
	for _, t := range a.Descendants(id) {
		if !t.IsDone() {
			out = append(out, t)
		}
	}
	return out
}

// PendingProjectCascade returns the non-done tasks owned by the project.
func (a *App) PendingProjectCascade(projectID string) []model.Task {
	var out []model.Task
	for _, t := range a.tasks {
		if t.ProjectID == projectID && !t.IsDone() {
			out = append(out, t)
		}
	}
	return out
}

// nextTaskOrder returns the next sparse sort order for the task collection.
func (a *App) nextTaskOrder() int {
	max := 0
	for _, t := range a.tasks {
		if t.Order > max {
			max = t.Order
		}
	}
	return max + model.OrderStep
}

func (a *App) nextProjectOrder() int {
	max := 0
	for _, p := range a.projects {
		if p.Order > max {
			max = p.Order
		}
	}
	return max + model.OrderStep
}
