package state

import (
	"context"
	"strings"
	"testing"
	"time"

	"tansu/internal/docstore"
	"tansu/internal/model"
)

var fixedTime = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

// recorder is a Confirmer stub that records invocations.
type recorder struct {
	answer  bool
	called  int
	prompts []string
}

func (r *recorder) Confirm(prompt string) bool {
	r.called++
	r.prompts = append(r.prompts, prompt)
	return r.answer
}

func newTestApp(t *testing.T, confirm Confirmer) (*App, *docstore.Memory) {
	t.Helper()
	store := docstore.OpenMemory()
	app := New(store,
		WithConfirmer(confirm),
		WithClock(func() time.Time { return fixedTime }),
		WithDefaultProject("Personal"),
	)
	return app, store
}

func TestQuickAddDefaults(t *testing.T) {
	app, store := newTestApp(t, &recorder{})
	ctx := context.Background()

	personal, err := app.CreateProject(ctx, "Personal")
	if err != nil {
		t.Fatal(err)
	}

	task, err := app.QuickAdd(ctx, "  Buy milk  ")
	if err != nil {
		t.Fatal(err)
	}
	if task.Title != "Buy milk" {
		t.Errorf("title = %q, want trimmed %q", task.Title, "Buy milk")
	}
	if task.State != model.StateInbox {
		t.Errorf("state = %q, want inbox", task.State)
	}
	if task.ProjectID != personal.ID {
		t.Errorf("project = %q, want default project %q", task.ProjectID, personal.ID)
	}
	if task.Order != model.OrderStep {
		t.Errorf("first order = %d, want %d", task.Order, model.OrderStep)
	}
	if task.CreatedAt == "" || task.UpdatedAt == "" {
		t.Error("expected store-assigned timestamps")
	}

	// Insert is synchronous, the record is already durable.
	if _, ok := store.Get(docstore.Tasks, task.ID); !ok {
		t.Error("task not in store after AddTask")
	}

	second, err := app.QuickAdd(ctx, "Walk dog")
	if err != nil {
		t.Fatal(err)
	}
	if second.Order != 2*model.OrderStep {
		t.Errorf("second order = %d, want %d", second.Order, 2*model.OrderStep)
	}
}

func TestAddTaskRejectsBlankTitle(t *testing.T) {
	app, _ := newTestApp(t, &recorder{})
	if _, err := app.QuickAdd(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank title")
	}
}

func TestLoadSeedsEmptyStore(t *testing.T) {
	app, store := newTestApp(t, &recorder{})
	if err := app.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(app.Projects()) == 0 || len(app.Tasks()) == 0 {
		t.Fatal("expected seed data on empty store")
	}
	for _, task := range app.Tasks() {
		if _, ok := store.Get(docstore.Tasks, task.ID); !ok {
			t.Errorf("seeded task %s missing from store", task.ID)
		}
	}
}

func TestLoadKeepsProjectsWhenOnlyTasksMissing(t *testing.T) {
	store := docstore.OpenMemory()
	ctx := context.Background()
	pdoc, err := store.Insert(ctx, docstore.Projects,
		model.Project{Name: "My Real Project", State: model.ProjectActive, Order: 10}.Doc())
	if err != nil {
		t.Fatal(err)
	}

	app := New(store)
	if err := app.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if _, ok := app.Project(pdoc.ID); !ok {
		t.Error("existing project missing from cache after load")
	}
	if len(app.Tasks()) == 0 {
		t.Error("expected starter tasks for the empty collection")
	}

	// Seeding the tasks must not insert projects again.
	projectDocs, err := store.Query(ctx, docstore.Projects, docstore.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(projectDocs) != 1 {
		t.Fatalf("store holds %d project docs after load, want the original 1", len(projectDocs))
	}
	if len(app.Projects()) != 1 {
		t.Fatalf("cache holds %d projects, want the original 1", len(app.Projects()))
	}
}

func TestLoadKeepsTasksWhenOnlyProjectsMissing(t *testing.T) {
	store := docstore.OpenMemory()
	ctx := context.Background()
	tdoc, err := store.Insert(ctx, docstore.Tasks,
		model.Task{Title: "Orphan task", State: model.StateInbox, Order: 10}.Doc())
	if err != nil {
		t.Fatal(err)
	}

	app := New(store)
	if err := app.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if _, ok := app.Task(tdoc.ID); !ok {
		t.Error("existing task missing from cache after load")
	}
	if len(app.Tasks()) != 1 {
		t.Fatalf("cache holds %d tasks, want the original 1", len(app.Tasks()))
	}
	if len(app.Projects()) == 0 {
		t.Error("expected starter projects for the empty collection")
	}

	taskDocs, err := store.Query(ctx, docstore.Tasks, docstore.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(taskDocs) != 1 {
		t.Fatalf("store holds %d task docs after load, want the original 1", len(taskDocs))
	}
}

func TestLoadPrefersExistingData(t *testing.T) {
	store := docstore.OpenMemory()
	ctx := context.Background()
	pdoc, err := store.Insert(ctx, docstore.Projects,
		model.Project{Name: "Work", State: model.ProjectActive, Order: 10}.Doc())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Insert(ctx, docstore.Tasks,
		model.Task{Title: "Ship it", ProjectID: pdoc.ID, State: model.StateInbox, Order: 10}.Doc()); err != nil {
		t.Fatal(err)
	}

	app := New(store)
	if err := app.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(app.Projects()); n != 1 {
		t.Fatalf("projects = %d, want the single stored project", n)
	}
	if app.Projects()[0].Name != "Work" {
		t.Errorf("loaded project = %q, want Work", app.Projects()[0].Name)
	}
}

// cascadeFixture builds: parent -> child (inbox) -> grandchild (inbox),
// plus a sibling child already done. Returns the task ids.
func cascadeFixture(t *testing.T, app *App) (parent, child, grand, doneChild string) {
	t.Helper()
	ctx := context.Background()
	if _, err := app.CreateProject(ctx, "Personal"); err != nil {
		t.Fatal(err)
	}
	p, err := app.QuickAdd(ctx, "Plan trip")
	if err != nil {
		t.Fatal(err)
	}
	c, err := app.AddTask(ctx, AddTaskInput{Title: "Book flights", ParentID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	g, err := app.AddTask(ctx, AddTaskInput{Title: "Check passport", ParentID: c.ID})
	if err != nil {
		t.Fatal(err)
	}
	d, err := app.AddTask(ctx, AddTaskInput{Title: "Renew visa", ParentID: p.ID})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := app.SetTaskState(ctx, d.ID, model.StateDone); err != nil {
		t.Fatal(err)
	}
	return p.ID, c.ID, g.ID, d.ID
}

func TestCompleteCascadesAfterConfirmation(t *testing.T) {
	rec := &recorder{answer: true}
	app, store := newTestApp(t, rec)
	parent, child, grand, _ := cascadeFixture(t, app)
	rec.called = 0

	applied, err := app.SetTaskState(context.Background(), parent, model.StateDone)
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Fatal("confirmed cascade reported as not applied")
	}
	if rec.called != 1 {
		t.Fatalf("confirmer called %d times, want 1", rec.called)
	}

	stamp := model.Timestamp(fixedTime)
	for _, id := range []string{parent, child, grand} {
		got, ok := app.Task(id)
		if !ok {
			t.Fatalf("task %s vanished", id)
		}
		if !got.IsDone() {
			t.Errorf("task %s state = %q, want done", id, got.State)
		}
		if got.DoneAt != stamp {
			t.Errorf("task %s done_at = %q, want %q", id, got.DoneAt, stamp)
		}
	}

	app.Flush()
	for _, id := range []string{parent, child, grand} {
		doc, ok := store.Get(docstore.Tasks, id)
		if !ok {
			t.Fatalf("task %s missing from store", id)
		}
		if doc.Fields[model.FieldState] != model.StateDone {
			t.Errorf("store state for %s = %v, want done", id, doc.Fields[model.FieldState])
		}
		if doc.Fields[model.FieldDoneAt] != stamp {
			t.Errorf("store done_at for %s = %v, want %q", id, doc.Fields[model.FieldDoneAt], stamp)
		}
	}
}

func TestCompleteDeclinedLeavesEverythingUntouched(t *testing.T) {
	rec := &recorder{answer: false}
	app, store := newTestApp(t, rec)
	parent, child, grand, _ := cascadeFixture(t, app)
	rec.called = 0

	applied, err := app.SetTaskState(context.Background(), parent, model.StateDone)
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Fatal("declined cascade reported as applied")
	}
	if rec.called != 1 {
		t.Fatalf("confirmer called %d times, want 1", rec.called)
	}

	for _, id := range []string{parent, child, grand} {
		got, _ := app.Task(id)
		if got.IsDone() {
			t.Errorf("task %s completed despite decline", id)
		}
	}
	app.Flush()
	doc, _ := store.Get(docstore.Tasks, parent)
	if doc.Fields[model.FieldState] == model.StateDone {
		t.Error("decline leaked a remote write")
	}
}

func TestCompleteLeafSkipsConfirmation(t *testing.T) {
	rec := &recorder{answer: false}
	app, _ := newTestApp(t, rec)
	_, _, grand, _ := cascadeFixture(t, app)
	rec.called = 0

	applied, err := app.SetTaskState(context.Background(), grand, model.StateDone)
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Fatal("leaf completion not applied")
	}
	if rec.called != 0 {
		t.Errorf("confirmer called %d times for a leaf, want 0", rec.called)
	}
}

func TestCascadeCountsOnlyOpenDescendants(t *testing.T) {
	rec := &recorder{answer: true}
	app, _ := newTestApp(t, rec)
	parent, _, _, _ := cascadeFixture(t, app)
	rec.prompts = nil

	// Three descendants exist but one is already done; only the two open
	// ones are part of the cascade.
	if got := len(app.PendingCascade(parent)); got != 2 {
		t.Fatalf("pending cascade = %d tasks, want 2", got)
	}
	if _, err := app.SetTaskState(context.Background(), parent, model.StateDone); err != nil {
		t.Fatal(err)
	}
	if len(rec.prompts) != 1 || !strings.Contains(rec.prompts[0], "2 sub-task(s)") {
		t.Errorf("prompt = %q, want mention of 2 sub-tasks", rec.prompts)
	}
}

func TestReopenClearsDoneAtWithoutCascade(t *testing.T) {
	rec := &recorder{answer: true}
	app, _ := newTestApp(t, rec)
	parent, child, _, _ := cascadeFixture(t, app)
	if _, err := app.SetTaskState(context.Background(), parent, model.StateDone); err != nil {
		t.Fatal(err)
	}
	rec.called = 0

	if _, err := app.SetTaskState(context.Background(), parent, model.StateAnytime); err != nil {
		t.Fatal(err)
	}
	got, _ := app.Task(parent)
	if got.State != model.StateAnytime || got.DoneAt != "" {
		t.Errorf("reopened task = %q/%q, want anytime with cleared done_at", got.State, got.DoneAt)
	}
	if rec.called != 0 {
		t.Error("reopening asked for confirmation")
	}
	// Descendants stay done until reopened individually.
	if c, _ := app.Task(child); !c.IsDone() {
		t.Error("reopening the parent reopened its child")
	}
}

func TestCompleteProjectSweepsOpenTasks(t *testing.T) {
	rec := &recorder{answer: true}
	app, store := newTestApp(t, rec)
	ctx := context.Background()
	project, err := app.CreateProject(ctx, "Personal")
	if err != nil {
		t.Fatal(err)
	}
	a, _ := app.QuickAdd(ctx, "one")
	b, _ := app.QuickAdd(ctx, "two")
	c, _ := app.QuickAdd(ctx, "three")
	if _, err := app.SetTaskState(ctx, c.ID, model.StateDone); err != nil {
		t.Fatal(err)
	}
	rec.called = 0

	applied, err := app.CompleteProject(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !applied || rec.called != 1 {
		t.Fatalf("applied=%v called=%d, want confirmed apply", applied, rec.called)
	}
	for _, id := range []string{a.ID, b.ID, c.ID} {
		if got, _ := app.Task(id); !got.IsDone() {
			t.Errorf("member task %s still open after project completion", id)
		}
	}
	got, _ := app.Project(project.ID)
	if got.State != model.ProjectDone {
		t.Errorf("project state = %q, want done", got.State)
	}

	app.Flush()
	doc, _ := store.Get(docstore.Projects, project.ID)
	if doc.Fields[model.FieldState] != model.ProjectDone {
		t.Error("project completion not mirrored to store")
	}
}

func TestCompleteEmptyProjectSkipsConfirmation(t *testing.T) {
	rec := &recorder{answer: false}
	app, _ := newTestApp(t, rec)
	ctx := context.Background()
	project, err := app.CreateProject(ctx, "Empty")
	if err != nil {
		t.Fatal(err)
	}
	applied, err := app.CompleteProject(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !applied || rec.called != 0 {
		t.Fatalf("applied=%v called=%d, want silent apply", applied, rec.called)
	}
}

func TestReopenProjectKeepsTaskStates(t *testing.T) {
	rec := &recorder{answer: true}
	app, _ := newTestApp(t, rec)
	ctx := context.Background()
	project, _ := app.CreateProject(ctx, "Personal")
	task, _ := app.QuickAdd(ctx, "one")
	if _, err := app.CompleteProject(ctx, project.ID); err != nil {
		t.Fatal(err)
	}

	if err := app.ReopenProject(ctx, project.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := app.Project(project.ID)
	if got.State != model.ProjectActive {
		t.Errorf("project state = %q, want active", got.State)
	}
	if tk, _ := app.Task(task.ID); !tk.IsDone() {
		t.Error("reopening the project reopened its tasks")
	}
}

func TestSetTaskParentRejectsSelf(t *testing.T) {
	app, _ := newTestApp(t, &recorder{})
	ctx := context.Background()
	task, err := app.QuickAdd(ctx, "loop")
	if err != nil {
		t.Fatal(err)
	}
	if err := app.SetTaskParent(ctx, task.ID, task.ID); err == nil {
		t.Fatal("expected self-parent rejection")
	}
}

func TestScheduleTask(t *testing.T) {
	app, _ := newTestApp(t, &recorder{})
	ctx := context.Background()
	task, err := app.QuickAdd(ctx, "dentist")
	if err != nil {
		t.Fatal(err)
	}

	if err := app.ScheduleTask(ctx, task.ID, "2026-09-15"); err != nil {
		t.Fatal(err)
	}
	got, _ := app.Task(task.ID)
	if got.State != model.StateScheduled || got.Scheduled != "2026-09-15" {
		t.Errorf("scheduled = %q/%q, want scheduled state with date", got.State, got.Scheduled)
	}

	if err := app.ScheduleTask(ctx, task.ID, ""); err != nil {
		t.Fatal(err)
	}
	got, _ = app.Task(task.ID)
	if got.State != model.StateAnytime || got.Scheduled != "" {
		t.Errorf("unscheduled = %q/%q, want anytime with no date", got.State, got.Scheduled)
	}

	if err := app.ScheduleTask(ctx, task.ID, "next tuesday"); err == nil {
		t.Fatal("expected rejection of malformed date")
	}
}

func TestSetTaskStateRejectsUnknownState(t *testing.T) {
	app, _ := newTestApp(t, &recorder{})
	ctx := context.Background()
	task, err := app.QuickAdd(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := app.SetTaskState(ctx, task.ID, "paused"); err == nil {
		t.Fatal("expected unknown state rejection")
	}
	if _, err := app.SetTaskState(ctx, "tsk_missing", model.StateDone); err == nil {
		t.Fatal("expected not-found error")
	}
}
