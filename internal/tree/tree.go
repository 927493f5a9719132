// Package tree projects the flat task list into the nested structure the
// project view displays: parent/child links become a forest, with completed
// branches separated from active ones at every level.
package tree

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tansu/internal/model"
	"tansu/internal/views"
)

// Node is one task with its immediate children, partitioned into active and
// completed sub-forests. Both partitions keep ascending sort order.
type Node struct {
	Task   model.Task
	Active []Node
	Done   []Node
}

// Build shapes tasks into the forest rooted at rootID ("" = top level). Each
// level filters strictly by immediate parent reference, so recursion
// terminates as long as the parent graph is acyclic, which stored data is
// assumed to guarantee.
func Build(tasks []model.Task, rootID string) (active, done []Node) {
	for _, t := range views.ByOrder(tasks) {
		if t.ParentID != rootID {
			continue
		}
		childActive, childDone := Build(tasks, t.ID)
		node := Node{Task: t, Active: childActive, Done: childDone}
		if t.IsDone() {
			done = append(done, node)
		} else {
			active = append(active, node)
		}
	}
	return active, done
}

// Styles controls rendering. Zero value renders plain text.
type Styles struct {
	Task      lipgloss.Style
	Completed lipgloss.Style
	Divider   lipgloss.Style
	Cursor    lipgloss.Style
}

// DefaultStyles dims and strikes completed branches.
func DefaultStyles() Styles {
	return Styles{
		Task:      lipgloss.NewStyle(),
		Completed: lipgloss.NewStyle().Faint(true).Strikethrough(true),
		Divider:   lipgloss.NewStyle().Faint(true),
		Cursor:    lipgloss.NewStyle().Bold(true),
	}
}

// Line is one rendered row, kept alongside its task so the UI can map a
// cursor position back to a task.
type Line struct {
	Task model.Task
	Text string
}

// Flatten walks the forest depth-first into display lines: active branch
// first, then a divider (Task.ID == "") and the completed branch when one
// exists.
func Flatten(active, done []Node, st Styles) []Line {
	var lines []Line
	flattenInto(&lines, active, done, 0, st)
	return lines
}

func flattenInto(lines *[]Line, active, done []Node, depth int, st Styles) {
	indent := strings.Repeat("  ", depth)
	for _, n := range active {
		*lines = append(*lines, Line{
			Task: n.Task,
			Text: indent + st.Task.Render("[ ] "+n.Task.Title),
		})
		flattenInto(lines, n.Active, n.Done, depth+1, st)
	}
	if len(done) == 0 {
		return
	}
	if len(active) > 0 {
		*lines = append(*lines, Line{Text: indent + st.Divider.Render("— completed —")})
	}
	for _, n := range done {
		*lines = append(*lines, Line{
			Task: n.Task,
			Text: indent + st.Completed.Render("[x] "+n.Task.Title),
		})
		flattenInto(lines, n.Active, n.Done, depth+1, st)
	}
}

// Render returns the forest as a single text block.
func Render(active, done []Node, st Styles) string {
	lines := Flatten(active, done, st)
	var b strings.Builder
	for _, ln := range lines {
		b.WriteString(ln.Text)
		b.WriteString("\n")
	}
	return b.String()
}
