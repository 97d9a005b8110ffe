package gtd

import "encoding/json"

// Store keys, bit-exact with the app's persisted layout
const (
	KeyGoals    = "goals"
	KeyProjects = "projects"
	KeyTasks    = "tasks"
	KeyLinkMap  = "projectGoalLinkMap"
)

// Keys lists the four store keys in load order
var Keys = []string{KeyGoals, KeyProjects, KeyTasks, KeyLinkMap}

// Field names the repair routine interprets. Everything else is display data.
const (
	FieldID        = "id"
	FieldGoalID    = "goalId"
	FieldProjectID = "projectId"
	FieldTasks     = "tasks" // deprecated: tasks copied inline into a project
)

// Goal is the root record. Only its id matters here.
type Goal struct {
	Record
}

// ID returns the goal id
func (g Goal) ID() string { return g.Ref(FieldID) }

// Project belongs to a goal, or to nothing when goalId is empty
type Project struct {
	Record
}

// ID returns the project id
func (p Project) ID() string { return p.Ref(FieldID) }

// GoalID returns the referenced goal, "" when unlinked
func (p Project) GoalID() string { return p.Ref(FieldGoalID) }

// HasEmbeddedTasks reports whether the legacy tasks field is present
func (p Project) HasEmbeddedTasks() bool { return p.Has(FieldTasks) }

// EmbeddedTasks decodes the legacy inline task list. Non-object entries and
// a non-array field yield nothing.
func (p Project) EmbeddedTasks() []Task {
	raw, ok := p.Get(FieldTasks)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	tasks := make([]Task, 0, len(items))
	for _, item := range items {
		rec, err := parseObject(item)
		if err != nil {
			continue
		}
		tasks = append(tasks, Task{rec})
	}
	return tasks
}

// Task belongs to exactly one project
type Task struct {
	Record
}

// ID returns the task id
func (t Task) ID() string { return t.Ref(FieldID) }

// ProjectID returns the owning project, "" when unlinked
func (t Task) ProjectID() string { return t.Ref(FieldProjectID) }

// LinkMap is the redundant project-id -> goal-id index
type LinkMap struct {
	Record
}

// LinkEntry is one project -> goal association
type LinkEntry struct {
	ProjectID string
	GoalID    string // "" when the stored value is falsy
	raw       json.RawMessage
}

// Entries returns associations in stored order
func (m LinkMap) Entries() []LinkEntry {
	entries := make([]LinkEntry, 0, len(m.fields))
	for _, f := range m.fields {
		entries = append(entries, LinkEntry{ProjectID: f.key, GoalID: refValue(f.value), raw: f.value})
	}
	return entries
}

// NewLinkMap builds a link map from entries, keeping their order
func NewLinkMap(entries []LinkEntry) LinkMap {
	var m LinkMap
	for _, e := range entries {
		raw := e.raw
		if raw == nil {
			raw, _ = json.Marshal(e.GoalID)
		}
		m.Record = m.setRaw(e.ProjectID, raw)
	}
	return m
}

// Counts holds collection sizes
type Counts struct {
	Goals          int `json:"goals"`
	Projects       int `json:"projects"`
	Tasks          int `json:"tasks"`
	LinkMapEntries int `json:"linkMapEntries"`
}

// Snapshot is the content of all four keys at one point in time
type Snapshot struct {
	Goals    []Goal
	Projects []Project
	Tasks    []Task
	LinkMap  LinkMap
}

// Counts returns the size of each collection
func (s Snapshot) Counts() Counts {
	return Counts{
		Goals:          len(s.Goals),
		Projects:       len(s.Projects),
		Tasks:          len(s.Tasks),
		LinkMapEntries: s.LinkMap.Len(),
	}
}

// GoalIDs returns the set of non-empty goal ids
func (s Snapshot) GoalIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Goals))
	for _, g := range s.Goals {
		if id := g.ID(); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids
}

// ProjectIDs returns the set of non-empty project ids
func (s Snapshot) ProjectIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Projects))
	for _, p := range s.Projects {
		if id := p.ID(); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids
}
