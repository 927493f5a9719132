// Package seed holds the fixed starter data used when the remote store comes
// back empty on first launch.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"tansu/internal/docstore"
	"tansu/internal/model"
)

//go:embed seed.yaml
var raw []byte

type seedProject struct {
	Name  string `yaml:"name"`
	Order int    `yaml:"order"`
}

type seedTask struct {
	Title   string `yaml:"title"`
	Project string `yaml:"project"`
	Parent  string `yaml:"parent"`
	State   string `yaml:"state"`
	Order   int    `yaml:"order"`
}

type data struct {
	Projects []seedProject `yaml:"projects"`
	Tasks    []seedTask    `yaml:"tasks"`
}

func load() (data, error) {
	var d data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return data{}, fmt.Errorf("decode seed data: %w", err)
	}
	return d, nil
}

// ApplyProjects inserts the starter projects through the store and returns
// them.
func ApplyProjects(ctx context.Context, store docstore.Store) ([]model.Project, error) {
	d, err := load()
	if err != nil {
		return nil, err
	}
	var projects []model.Project
	for _, sp := range d.Projects {
		p := model.Project{
			Name:  model.NormalizeTitle(sp.Name),
			State: model.ProjectActive,
			Order: sp.Order,
		}
		doc, err := store.Insert(ctx, docstore.Projects, p.Doc())
		if err != nil {
			return nil, fmt.Errorf("seed project %q: %w", p.Name, err)
		}
		projects = append(projects, model.ProjectFromDoc(doc.ID, doc.Fields))
	}
	return projects, nil
}

// ApplyTasks inserts the starter tasks through the store. Seed tasks name
// their project and parent; project names resolve against the given projects
// (seeded or pre-existing), parent titles against earlier seed tasks.
// References that resolve to nothing are dropped rather than failing the load.
func ApplyTasks(ctx context.Context, store docstore.Store, projects []model.Project) ([]model.Task, error) {
	d, err := load()
	if err != nil {
		return nil, err
	}
	projectIDs := make(map[string]string, len(projects))
	for _, p := range projects {
		projectIDs[p.Name] = p.ID
	}

	taskIDs := map[string]string{}
	var tasks []model.Task
	for _, st := range d.Tasks {
		state := st.State
		if !model.ValidState(state) {
			state = model.StateInbox
		}
		t := model.Task{
			Title:     model.NormalizeTitle(st.Title),
			ProjectID: projectIDs[st.Project],
			ParentID:  taskIDs[st.Parent],
			State:     state,
			Order:     st.Order,
		}
		doc, err := store.Insert(ctx, docstore.Tasks, t.Doc())
		if err != nil {
			return nil, fmt.Errorf("seed task %q: %w", t.Title, err)
		}
		tasks = append(tasks, model.TaskFromDoc(doc.ID, doc.Fields))
		taskIDs[st.Title] = doc.ID
	}
	return tasks, nil
}
