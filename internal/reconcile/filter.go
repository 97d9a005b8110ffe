package reconcile

import "github.com/vthunder/goalstate/internal/gtd"

// Filtered holds the records that survive the reference checks
type Filtered struct {
	Projects        []gtd.Project
	Tasks           []gtd.Task
	ProjectsRemoved int
	TasksRemoved    int

	GoalIDs    map[string]struct{}
	ProjectIDs map[string]struct{} // ids of surviving projects only
}

// FilterReferences drops projects whose goal does not exist, then tasks
// whose project did not survive that first pass. Projects without a goal are
// kept; tasks without a project are not. With no goals at all nothing
// survives. Survivors keep their input order.
func FilterReferences(projects []gtd.Project, tasks []gtd.Task, goals []gtd.Goal) Filtered {
	f := Filtered{
		Projects: make([]gtd.Project, 0, len(projects)),
		Tasks:    make([]gtd.Task, 0, len(tasks)),
		GoalIDs:  gtd.Snapshot{Goals: goals}.GoalIDs(),
	}

	if len(goals) > 0 {
		for _, p := range projects {
			gid := p.GoalID()
			if gid == "" {
				f.Projects = append(f.Projects, p)
				continue
			}
			if _, ok := f.GoalIDs[gid]; ok {
				f.Projects = append(f.Projects, p)
			}
		}
	}

	// Tasks are checked against the filtered projects, not the input
	f.ProjectIDs = gtd.Snapshot{Projects: f.Projects}.ProjectIDs()

	if len(goals) > 0 {
		for _, t := range tasks {
			pid := t.ProjectID()
			if pid == "" {
				continue
			}
			if _, ok := f.ProjectIDs[pid]; ok {
				f.Tasks = append(f.Tasks, t)
			}
		}
	}

	f.ProjectsRemoved = len(projects) - len(f.Projects)
	f.TasksRemoved = len(tasks) - len(f.Tasks)
	return f
}
