package gtd

import "fmt"

// ViolationKind names a broken referential invariant
type ViolationKind string

const (
	DanglingProjectGoal    ViolationKind = "dangling_project_goal"
	DanglingTaskProject    ViolationKind = "dangling_task_project"
	UnlinkedTask           ViolationKind = "unlinked_task"
	EmbeddedTaskList       ViolationKind = "embedded_tasks"
	DanglingLinkProject    ViolationKind = "dangling_link_project"
	DanglingLinkGoal       ViolationKind = "dangling_link_goal"
	DependentsWithoutGoals ViolationKind = "dependents_without_goals"
)

// Violation is one broken reference
type Violation struct {
	Kind ViolationKind `json:"kind"`
	ID   string        `json:"id,omitempty"`  // offending record or link-map key
	Ref  string        `json:"ref,omitempty"` // the reference that does not resolve
}

func (v Violation) String() string {
	switch v.Kind {
	case DanglingProjectGoal:
		return fmt.Sprintf("project %s references missing goal %s", v.ID, v.Ref)
	case DanglingTaskProject:
		return fmt.Sprintf("task %s references missing project %s", v.ID, v.Ref)
	case UnlinkedTask:
		return fmt.Sprintf("task %s has no project", v.ID)
	case EmbeddedTaskList:
		return fmt.Sprintf("project %s carries an embedded task list", v.ID)
	case DanglingLinkProject:
		return fmt.Sprintf("link map entry %s references missing project", v.ID)
	case DanglingLinkGoal:
		return fmt.Sprintf("link map entry %s references missing goal %s", v.ID, v.Ref)
	case DependentsWithoutGoals:
		return "projects, tasks or links exist but there are no goals"
	}
	return string(v.Kind)
}

// CheckReferences lists every referential invariant the snapshot breaks.
// A clean snapshot returns nil.
func CheckReferences(s Snapshot) []Violation {
	var out []Violation

	goalIDs := s.GoalIDs()
	projectIDs := s.ProjectIDs()

	if len(s.Goals) == 0 && (len(s.Projects) > 0 || len(s.Tasks) > 0 || s.LinkMap.Len() > 0) {
		out = append(out, Violation{Kind: DependentsWithoutGoals})
	}

	for _, p := range s.Projects {
		if p.HasEmbeddedTasks() {
			out = append(out, Violation{Kind: EmbeddedTaskList, ID: p.ID()})
		}
		if gid := p.GoalID(); gid != "" {
			if _, ok := goalIDs[gid]; !ok {
				out = append(out, Violation{Kind: DanglingProjectGoal, ID: p.ID(), Ref: gid})
			}
		}
	}

	for _, t := range s.Tasks {
		pid := t.ProjectID()
		if pid == "" {
			out = append(out, Violation{Kind: UnlinkedTask, ID: t.ID()})
			continue
		}
		if _, ok := projectIDs[pid]; !ok {
			out = append(out, Violation{Kind: DanglingTaskProject, ID: t.ID(), Ref: pid})
		}
	}

	for _, e := range s.LinkMap.Entries() {
		if _, ok := projectIDs[e.ProjectID]; !ok {
			out = append(out, Violation{Kind: DanglingLinkProject, ID: e.ProjectID})
		}
		if _, ok := goalIDs[e.GoalID]; !ok {
			out = append(out, Violation{Kind: DanglingLinkGoal, ID: e.ProjectID, Ref: e.GoalID})
		}
	}

	return out
}
