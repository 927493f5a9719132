package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tansu/internal/model"
	"tansu/internal/state"
)

func newAddCmd(configPath *string) *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "add <title>...",
		Short: "Quick-add a task to the inbox without opening the UI",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if project != "" {
				cfg.DefaultProject = project
			}
			app, cleanup, err := openApp(cmd.Context(), cfg, state.ConfirmFunc(func(string) bool { return false }))
			if err != nil {
				return err
			}
			defer cleanup()

			task, err := app.QuickAdd(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Printf("added %s: %s\n", task.ID, task.Title)
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "project to add into (default from config)")
	return cmd
}

func newProjectsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects with open task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			app, cleanup, err := openApp(cmd.Context(), cfg, state.ConfirmFunc(func(string) bool { return false }))
			if err != nil {
				return err
			}
			defer cleanup()

			for _, p := range app.Projects() {
				open := len(app.PendingProjectCascade(p.ID))
				marker := " "
				if p.State == model.ProjectDone {
					marker = "x"
				}
				fmt.Printf("[%s] %-24s %d open  %s\n", marker, p.Name, open, p.ID)
			}
			return nil
		},
	}
}

func newDoneCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "done <task-id-or-title>",
		Short: "Complete a task, cascading to sub-tasks after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			app, cleanup, err := openApp(cmd.Context(), cfg, terminalConfirmer{})
			if err != nil {
				return err
			}
			defer cleanup()

			task, ok := findTask(app, args[0])
			if !ok {
				return fmt.Errorf("no task matching %q", args[0])
			}
			applied, err := app.SetTaskState(cmd.Context(), task.ID, model.StateDone)
			if err != nil {
				return err
			}
			if !applied {
				fmt.Println("cancelled, nothing changed")
				return nil
			}
			fmt.Printf("completed %s: %s\n", task.ID, task.Title)
			return nil
		},
	}
}

func findTask(app *state.App, selector string) (model.Task, bool) {
	if t, ok := app.Task(selector); ok {
		return t, true
	}
	want := strings.ToLower(strings.TrimSpace(selector))
	for _, t := range app.Tasks() {
		if strings.ToLower(t.Title) == want {
			return t, true
		}
	}
	return model.Task{}, false
}

// terminalConfirmer blocks on a y/n prompt on the controlling terminal. It
// is the non-TUI implementation of the confirmation capability.
type terminalConfirmer struct{}

func (terminalConfirmer) Confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
