package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/vthunder/goalstate/internal/gtd"
)

// EmbeddedTaskPolicy decides what happens to tasks copied inline into a project
type EmbeddedTaskPolicy string

const (
	// DiscardEmbeddedTasks drops inline tasks. The standalone task collection
	// is the only source of truth.
	DiscardEmbeddedTasks EmbeddedTaskPolicy = "discard"
	// PromoteEmbeddedTasks copies inline tasks whose id is not already in the
	// task collection into it before the field is dropped.
	PromoteEmbeddedTasks EmbeddedTaskPolicy = "promote"
)

// ParseEmbeddedTaskPolicy validates a policy name; "" means discard
func ParseEmbeddedTaskPolicy(s string) (EmbeddedTaskPolicy, error) {
	switch EmbeddedTaskPolicy(s) {
	case "", DiscardEmbeddedTasks:
		return DiscardEmbeddedTasks, nil
	case PromoteEmbeddedTasks:
		return PromoteEmbeddedTasks, nil
	}
	return "", fmt.Errorf("unknown embedded task policy: %s", s)
}

// Migration is the outcome of stripping embedded task lists
type Migration struct {
	Projects []gtd.Project
	Tasks    []gtd.Task
	Stripped int // projects whose inline list was non-empty
	Promoted int
}

// StripEmbeddedTasks removes the legacy tasks field from every project that
// carries one. Record and field order are preserved and inputs are not
// modified.
func StripEmbeddedTasks(projects []gtd.Project, tasks []gtd.Task, policy EmbeddedTaskPolicy) Migration {
	m := Migration{
		Projects: make([]gtd.Project, 0, len(projects)),
		Tasks:    tasks,
	}

	var known map[string]struct{}
	if policy == PromoteEmbeddedTasks {
		known = make(map[string]struct{}, len(tasks))
		for _, t := range tasks {
			if id := t.ID(); id != "" {
				known[id] = struct{}{}
			}
		}
		m.Tasks = append(make([]gtd.Task, 0, len(tasks)), tasks...)
	}

	for _, p := range projects {
		if !p.HasEmbeddedTasks() {
			m.Projects = append(m.Projects, p)
			continue
		}
		if embeddedLen(p) > 0 {
			m.Stripped++
		}
		if policy == PromoteEmbeddedTasks {
			for _, t := range p.EmbeddedTasks() {
				id := t.ID()
				if id == "" {
					continue
				}
				if _, ok := known[id]; ok {
					continue
				}
				known[id] = struct{}{}
				if t.ProjectID() == "" && p.ID() != "" {
					t = gtd.Task{Record: t.SetString(gtd.FieldProjectID, p.ID())}
				}
				m.Tasks = append(m.Tasks, t)
				m.Promoted++
			}
		}
		m.Projects = append(m.Projects, gtd.Project{Record: p.Without(gtd.FieldTasks)})
	}
	return m
}

// embeddedLen counts entries of the inline list, 0 when it is not an array
func embeddedLen(p gtd.Project) int {
	raw, _ := p.Get(gtd.FieldTasks)
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return 0
	}
	return len(items)
}
