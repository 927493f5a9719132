package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tansu/internal/config"
	"tansu/internal/model"
	"tansu/internal/state"
	"tansu/internal/tree"
)

type view int

const (
	viewInbox view = iota
	viewToday
	viewProject
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeNewProject
	modeSchedule
	modeRename
	modeMove
	modeConfirm
)

// pendingAction is a cascade waiting on the y/n prompt.
type pendingAction struct {
	prompt    string
	taskID    string
	projectID string
}

// PromptConfirmer satisfies state.Confirmer with a pre-resolved answer: the
// event loop shows the prompt itself, records the user's choice, and only
// then invokes the engine.
type PromptConfirmer struct {
	Answer bool
}

func (c *PromptConfirmer) Confirm(string) bool { return c.Answer }

type Model struct {
	app     *state.App
	cfg     config.Config
	confirm *PromptConfirmer
	ctx     context.Context

	view       view
	mode       mode
	cursor     int
	projectIdx int
	rows       []row
	input      textinput.Model
	status     string
	pending    *pendingAction
	styles     styles
	width      int
}

// row is one display line; task is nil for headers and dividers.
type row struct {
	text string
	task *model.Task
}

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	status lipgloss.Style
	help   lipgloss.Style
	tree   tree.Styles
	cursor lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true),
		header: lipgloss.NewStyle().Bold(true).Underline(true),
		status: lipgloss.NewStyle().Faint(true),
		help:   lipgloss.NewStyle().Faint(true),
		tree:   tree.DefaultStyles(),
		cursor: lipgloss.NewStyle().Bold(true),
	}
}

// Run starts the event loop over an already-loaded App.
func Run(ctx context.Context, app *state.App, confirm *PromptConfirmer, cfg config.Config) error {
	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		app:     app,
		cfg:     cfg,
		confirm: confirm,
		ctx:     ctx,
		view:    viewInbox,
		mode:    modeList,
		input:   ti,
		status:  "Press 'a' to add, space to complete, 1/2/3 to switch views.",
		styles:  defaultStyles(),
	}
	m.rebuildRows()

	program := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeConfirm {
			return m.updateConfirm(msg.String())
		}
		if m.mode != modeList {
			return m.updateInput(msg.String(), msg)
		}
		return m.updateList(msg.String())
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) updateList(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", m.cfg.Keys.Quit:
		m.app.Flush()
		return m, tea.Quit
	case m.cfg.Keys.Inbox:
		m.view = viewInbox
		m.cursor = 0
		m.rebuildRows()
	case m.cfg.Keys.Today:
		m.view = viewToday
		m.cursor = 0
		m.rebuildRows()
	case m.cfg.Keys.ProjectView:
		m.view = viewProject
		m.cursor = 0
		m.rebuildRows()
	case "tab":
		if m.view == viewProject {
			m.cycleProject(1)
		}
	case "shift+tab":
		if m.view == viewProject {
			m.cycleProject(-1)
		}
	case m.cfg.Keys.Down, "down":
		m.moveCursor(1)
	case m.cfg.Keys.Up, "up":
		m.moveCursor(-1)
	case m.cfg.Keys.Add:
		m.mode = modeAdd
		m.input.Placeholder = "Task title"
		m.input.Focus()
		m.status = "Add: type a title and press Enter"
	case m.cfg.Keys.NewProject:
		m.mode = modeNewProject
		m.input.Placeholder = "Project name"
		m.input.Focus()
		m.status = "New project: type a name and press Enter"
	case m.cfg.Keys.Done:
		return m.toggleDone()
	case m.cfg.Keys.Complete:
		return m.completeProject()
	case m.cfg.Keys.Schedule:
		if t := m.currentTask(); t != nil {
			m.mode = modeSchedule
			m.input.Placeholder = "YYYY-MM-DD (empty clears)"
			m.input.SetValue(t.Scheduled)
			m.input.Focus()
			m.status = fmt.Sprintf("Schedule %q", t.Title)
		}
	case m.cfg.Keys.Rename:
		if t := m.currentTask(); t != nil {
			m.mode = modeRename
			m.input.Placeholder = "New title"
			m.input.SetValue(t.Title)
			m.input.Focus()
			m.status = fmt.Sprintf("Rename %q", t.Title)
		}
	case m.cfg.Keys.Move:
		if t := m.currentTask(); t != nil {
			m.mode = modeMove
			m.input.Placeholder = "Project name"
			m.input.SetValue("")
			m.input.Focus()
			m.status = fmt.Sprintf("Move %q to project", t.Title)
		}
	case m.cfg.Keys.Nest:
		m.nestUnderPrevious()
	case m.cfg.Keys.Unnest:
		m.unnest()
	case m.cfg.Keys.MarkToday:
		m.setState(model.StateToday)
	case m.cfg.Keys.MarkAnytime:
		m.setState(model.StateAnytime)
	case m.cfg.Keys.MarkSomeday:
		m.setState(model.StateSomeday)
	case m.cfg.Keys.MarkInbox:
		m.setState(model.StateInbox)
	}
	return m, nil
}

func (m *Model) setState(st string) {
	t := m.currentTask()
	if t == nil {
		return
	}
	if _, err := m.app.SetTaskState(m.ctx, t.ID, st); err != nil {
		m.status = fmt.Sprintf("update failed: %v", err)
		return
	}
	m.status = fmt.Sprintf("Moved %q to %s", t.Title, st)
	m.rebuildRows()
}

func (m Model) toggleDone() (tea.Model, tea.Cmd) {
	t := m.currentTask()
	if t == nil {
		return m, nil
	}
	if t.IsDone() {
		if _, err := m.app.SetTaskState(m.ctx, t.ID, model.StateAnytime); err != nil {
			m.status = fmt.Sprintf("reopen failed: %v", err)
			return m, nil
		}
		m.status = fmt.Sprintf("Reopened %q", t.Title)
		m.rebuildRows()
		return m, nil
	}
	pending := m.app.PendingCascade(t.ID)
	if len(pending) > 0 {
		m.pending = &pendingAction{
			prompt: fmt.Sprintf("Complete %q and %d sub-task(s)? y/n", t.Title, len(pending)),
			taskID: t.ID,
		}
		m.mode = modeConfirm
		m.status = m.pending.prompt
		return m, nil
	}
	m.confirm.Answer = true
	if _, err := m.app.SetTaskState(m.ctx, t.ID, model.StateDone); err != nil {
		m.status = fmt.Sprintf("complete failed: %v", err)
		return m, nil
	}
	m.status = fmt.Sprintf("Completed %q", t.Title)
	m.rebuildRows()
	return m, nil
}

func (m Model) completeProject() (tea.Model, tea.Cmd) {
	if m.view != viewProject {
		m.status = "Switch to the project view to complete a project"
		return m, nil
	}
	p, ok := m.selectedProject()
	if !ok {
		return m, nil
	}
	if p.State == model.ProjectDone {
		if err := m.app.ReopenProject(m.ctx, p.ID); err != nil {
			m.status = fmt.Sprintf("reopen failed: %v", err)
			return m, nil
		}
		m.status = fmt.Sprintf("Reopened project %q", p.Name)
		m.rebuildRows()
		return m, nil
	}
	pending := m.app.PendingProjectCascade(p.ID)
	if len(pending) > 0 {
		m.pending = &pendingAction{
			prompt:    fmt.Sprintf("Complete project %q and its %d open task(s)? y/n", p.Name, len(pending)),
			projectID: p.ID,
		}
		m.mode = modeConfirm
		m.status = m.pending.prompt
		return m, nil
	}
	m.confirm.Answer = true
	if _, err := m.app.CompleteProject(m.ctx, p.ID); err != nil {
		m.status = fmt.Sprintf("complete failed: %v", err)
		return m, nil
	}
	m.status = fmt.Sprintf("Completed project %q", p.Name)
	m.rebuildRows()
	return m, nil
}

func (m Model) updateConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", "esc":
		m.pending = nil
		m.mode = modeList
		m.status = "Cancelled, nothing changed"
		return m, nil
	case "y", "Y":
		p := m.pending
		m.pending = nil
		m.mode = modeList
		if p == nil {
			return m, nil
		}
		m.confirm.Answer = true
		var err error
		if p.taskID != "" {
			_, err = m.app.SetTaskState(m.ctx, p.taskID, model.StateDone)
		} else {
			_, err = m.app.CompleteProject(m.ctx, p.projectID)
		}
		if err != nil {
			m.status = fmt.Sprintf("complete failed: %v", err)
			return m, nil
		}
		m.status = "Completed"
		m.rebuildRows()
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) updateInput(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		return m.submitInput()
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	mode := m.mode
	m.mode = modeList
	m.input.SetValue("")
	m.input.Blur()

	switch mode {
	case modeAdd:
		if value == "" {
			m.status = "Title cannot be empty"
			return m, nil
		}
		in := state.AddTaskInput{Title: value}
		if m.view == viewProject {
			if p, ok := m.selectedProject(); ok {
				in.ProjectID = p.ID
				in.State = model.StateAnytime
			}
		}
		task, err := m.app.AddTask(m.ctx, in)
		if err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
			return m, nil
		}
		m.status = fmt.Sprintf("Added %q", task.Title)
	case modeNewProject:
		if value == "" {
			m.status = "Project name cannot be empty"
			return m, nil
		}
		p, err := m.app.CreateProject(m.ctx, value)
		if err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
			return m, nil
		}
		m.status = fmt.Sprintf("Created project %q", p.Name)
	case modeSchedule:
		t := m.currentTask()
		if t == nil {
			return m, nil
		}
		if err := m.app.ScheduleTask(m.ctx, t.ID, value); err != nil {
			m.status = fmt.Sprintf("schedule failed: %v", err)
			return m, nil
		}
		if value == "" {
			m.status = fmt.Sprintf("Unscheduled %q", t.Title)
		} else {
			m.status = fmt.Sprintf("Scheduled %q for %s", t.Title, value)
		}
	case modeRename:
		t := m.currentTask()
		if t == nil {
			return m, nil
		}
		if err := m.app.RenameTask(m.ctx, t.ID, value); err != nil {
			m.status = fmt.Sprintf("rename failed: %v", err)
			return m, nil
		}
		m.status = "Renamed task"
	case modeMove:
		t := m.currentTask()
		if t == nil {
			return m, nil
		}
		p, ok := m.projectByName(value)
		if !ok {
			m.status = fmt.Sprintf("no project named %q", value)
			return m, nil
		}
		if err := m.app.MoveTaskToProject(m.ctx, t.ID, p.ID); err != nil {
			m.status = fmt.Sprintf("move failed: %v", err)
			return m, nil
		}
		m.status = fmt.Sprintf("Moved %q to %s", t.Title, p.Name)
	}
	m.rebuildRows()
	return m, nil
}

// nestUnderPrevious re-parents the task under the nearest task row above it.
func (m *Model) nestUnderPrevious() {
	t := m.currentTask()
	if t == nil {
		return
	}
	for i := m.cursorRowIndex() - 1; i >= 0; i-- {
		prev := m.rows[i].task
		if prev == nil || prev.ID == t.ID {
			continue
		}
		if err := m.app.SetTaskParent(m.ctx, t.ID, prev.ID); err != nil {
			m.status = fmt.Sprintf("nest failed: %v", err)
			return
		}
		m.status = fmt.Sprintf("Nested %q under %q", t.Title, prev.Title)
		m.rebuildRows()
		return
	}
	m.status = "Nothing above to nest under"
}

func (m *Model) unnest() {
	t := m.currentTask()
	if t == nil || t.ParentID == "" {
		return
	}
	parent, ok := m.app.Task(t.ParentID)
	next := ""
	if ok {
		next = parent.ParentID
	}
	if err := m.app.SetTaskParent(m.ctx, t.ID, next); err != nil {
		m.status = fmt.Sprintf("unnest failed: %v", err)
		return
	}
	m.status = fmt.Sprintf("Unnested %q", t.Title)
	m.rebuildRows()
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("tansu — " + m.viewName()))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString("Nothing here yet. Press 'a' to add a task.\n")
	} else {
		cursorRow := m.cursorRowIndex()
		for i, r := range m.rows {
			marker := "  "
			if i == cursorRow && m.mode == modeList && r.task != nil {
				marker = m.styles.cursor.Render("> ")
			}
			b.WriteString(marker)
			b.WriteString(r.text)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	switch m.mode {
	case modeAdd, modeNewProject, modeSchedule, modeRename, modeMove:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.status.Render(m.status))
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render(m.helpLine()))
	return b.String()
}

func (m Model) viewName() string {
	switch m.view {
	case viewToday:
		return "Today"
	case viewProject:
		if p, ok := m.selectedProject(); ok {
			suffix := ""
			if p.State == model.ProjectDone {
				suffix = " (done)"
			}
			return "Project: " + p.Name + suffix
		}
		return "Projects"
	default:
		return "Inbox"
	}
}

func (m Model) helpLine() string {
	k := m.cfg.Keys
	base := fmt.Sprintf("%s/%s move • %s add • %s done • %s today • %s schedule • %s/%s/%s views • %s quit",
		k.Up, k.Down, k.Add, strings.ReplaceAll(k.Done, " ", "space"), k.MarkToday, k.Schedule, k.Inbox, k.Today, k.ProjectView, k.Quit)
	if m.view == viewProject {
		base += fmt.Sprintf(" • tab project • %s nest • %s complete project", k.Nest, k.Complete)
	}
	return base
}

// rebuildRows re-derives the visible rows from the current caches.
func (m *Model) rebuildRows() {
	var rows []row
	switch m.view {
	case viewInbox:
		for _, t := range m.app.Inbox() {
			t := t
			rows = append(rows, row{text: "[ ] " + t.Title, task: &t})
		}
	case viewToday:
		_, groups := m.app.TodayView()
		for _, g := range groups {
			name := g.Project.Name
			if g.Project.ID == "" {
				name = "No project"
			}
			rows = append(rows, row{text: m.styles.header.Render(name)})
			for _, t := range g.Tasks {
				t := t
				check := "[ ]"
				if t.IsDone() {
					check = "[x]"
				}
				rows = append(rows, row{text: check + " " + t.Title, task: &t})
			}
		}
	case viewProject:
		if p, ok := m.selectedProject(); ok {
			tasks := m.app.ProjectTasks(p.ID)
			active, done := tree.Build(tasks, "")
			for _, ln := range tree.Flatten(active, done, m.styles.tree) {
				if ln.Task.ID == "" {
					rows = append(rows, row{text: ln.Text})
					continue
				}
				t := ln.Task
				rows = append(rows, row{text: ln.Text, task: &t})
			}
		}
	}
	m.rows = rows
	m.clampCursor()
}

// taskRows returns the indexes of rows that carry a task.
func (m Model) taskRows() []int {
	var idx []int
	for i, r := range m.rows {
		if r.task != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

func (m *Model) moveCursor(delta int) {
	if len(m.taskRows()) == 0 {
		return
	}
	m.cursor += delta
	m.clampCursor()
}

func (m *Model) clampCursor() {
	n := len(m.taskRows())
	if n == 0 {
		m.cursor = 0
		return
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
}

// cursorRowIndex maps the cursor (an index over task rows) to the row slice.
func (m Model) cursorRowIndex() int {
	idx := m.taskRows()
	if len(idx) == 0 {
		return -1
	}
	c := m.cursor
	if c < 0 {
		c = 0
	}
	if c >= len(idx) {
		c = len(idx) - 1
	}
	return idx[c]
}

func (m Model) currentTask() *model.Task {
	i := m.cursorRowIndex()
	if i < 0 {
		return nil
	}
	return m.rows[i].task
}

func (m Model) selectedProject() (model.Project, bool) {
	projects := m.app.Projects()
	if len(projects) == 0 {
		return model.Project{}, false
	}
	sort.SliceStable(projects, func(i, j int) bool { return projects[i].Order < projects[j].Order })
	i := m.projectIdx
	if i < 0 || i >= len(projects) {
		i = 0
	}
	return projects[i], true
}

func (m *Model) cycleProject(delta int) {
	n := len(m.app.Projects())
	if n == 0 {
		return
	}
	m.projectIdx = (m.projectIdx + delta + n) % n
	m.cursor = 0
	m.rebuildRows()
}

func (m Model) projectByName(name string) (model.Project, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range m.app.Projects() {
		if strings.ToLower(p.Name) == name {
			return p, true
		}
	}
	return model.Project{}, false
}
