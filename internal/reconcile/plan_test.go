package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vthunder/goalstate/internal/gtd"
)

func projects(t *testing.T, raw string) []gtd.Project {
	t.Helper()
	var out []gtd.Project
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func tasks(t *testing.T, raw string) []gtd.Task {
	t.Helper()
	var out []gtd.Task
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func goals(t *testing.T, raw string) []gtd.Goal {
	t.Helper()
	var out []gtd.Goal
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func linkMap(t *testing.T, raw string) gtd.LinkMap {
	t.Helper()
	var out gtd.LinkMap
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestStripEmbeddedTasks_Discard(t *testing.T) {
	in := projects(t, `[
		{"id":"p1","tasks":[{"id":"a"},{"id":"b"}],"title":"One"},
		{"id":"p2","title":"Two"},
		{"id":"p3","tasks":[]}
	]`)
	before := toJSON(t, in)

	m := StripEmbeddedTasks(in, nil, DiscardEmbeddedTasks)

	assert.Equal(t, `[{"id":"p1","title":"One"},{"id":"p2","title":"Two"},{"id":"p3"}]`, toJSON(t, m.Projects))
	assert.Equal(t, 1, m.Stripped, "only non-empty lists count")
	assert.Zero(t, m.Promoted)
	assert.Empty(t, m.Tasks)
	assert.Equal(t, before, toJSON(t, in), "input must not be modified")
}

func TestStripEmbeddedTasks_Promote(t *testing.T) {
	in := projects(t, `[
		{"id":"p1","tasks":[{"id":"t1","name":"dup"},{"id":"inline1"},{"title":"no id"}]},
		{"id":"p2","tasks":[{"id":"inline1","projectId":"p2"},{"id":"inline2","projectId":"p9"}]}
	]`)
	existing := tasks(t, `[{"id":"t1","projectId":"p1"}]`)

	m := StripEmbeddedTasks(in, existing, PromoteEmbeddedTasks)

	assert.Equal(t, 2, m.Stripped)
	assert.Equal(t, 2, m.Promoted)
	assert.Equal(t,
		`[{"id":"t1","projectId":"p1"},{"id":"inline1","projectId":"p1"},{"id":"inline2","projectId":"p9"}]`,
		toJSON(t, m.Tasks))
	assert.Len(t, existing, 1, "input task slice must not grow")
}

func TestParseEmbeddedTaskPolicy(t *testing.T) {
	p, err := ParseEmbeddedTaskPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DiscardEmbeddedTasks, p)

	p, err = ParseEmbeddedTaskPolicy("promote")
	require.NoError(t, err)
	assert.Equal(t, PromoteEmbeddedTasks, p)

	_, err = ParseEmbeddedTaskPolicy("merge")
	assert.Error(t, err)
}

func TestFilterReferences(t *testing.T) {
	tests := []struct {
		name            string
		goals           string
		projects        string
		tasks           string
		expectProjects  string
		expectTasks     string
		projectsRemoved int
		tasksRemoved    int
	}{
		{
			name:            "dangling goal removes project and its tasks",
			goals:           `[{"id":"g1"}]`,
			projects:        `[{"id":"p1","goalId":"g1"},{"id":"p2","goalId":"gX"}]`,
			tasks:           `[{"id":"t1","projectId":"p1"},{"id":"t2","projectId":"p2"}]`,
			expectProjects:  `[{"id":"p1","goalId":"g1"}]`,
			expectTasks:     `[{"id":"t1","projectId":"p1"}]`,
			projectsRemoved: 1,
			tasksRemoved:    1,
		},
		{
			name:           "unlinked project kept, unlinked task dropped",
			goals:          `[{"id":"g1"}]`,
			projects:       `[{"id":"p1"},{"id":"p2","goalId":null},{"id":"p3","goalId":""}]`,
			tasks:          `[{"id":"t1","projectId":"p2"},{"id":"t2"},{"id":"t3","projectId":null}]`,
			expectProjects: `[{"id":"p1"},{"id":"p2","goalId":null},{"id":"p3","goalId":""}]`,
			expectTasks:    `[{"id":"t1","projectId":"p2"}]`,
			tasksRemoved:   2,
		},
		{
			name:            "no goals removes everything",
			goals:           `[]`,
			projects:        `[{"id":"p1","goalId":null}]`,
			tasks:           `[{"id":"t1","projectId":"p1"}]`,
			expectProjects:  `[]`,
			expectTasks:     `[]`,
			projectsRemoved: 1,
			tasksRemoved:    1,
		},
		{
			name:           "order preserved",
			goals:          `[{"id":"g2"},{"id":"g1"}]`,
			projects:       `[{"id":"p3","goalId":"g1"},{"id":"p1","goalId":"g2"},{"id":"p2","goalId":"g1"}]`,
			tasks:          `[{"id":"t9","projectId":"p2"},{"id":"t1","projectId":"p3"}]`,
			expectProjects: `[{"id":"p3","goalId":"g1"},{"id":"p1","goalId":"g2"},{"id":"p2","goalId":"g1"}]`,
			expectTasks:    `[{"id":"t9","projectId":"p2"},{"id":"t1","projectId":"p3"}]`,
		},
		{
			name:            "numeric ids match by value",
			goals:           `[{"id":1}]`,
			projects:        `[{"id":10,"goalId":1.0},{"id":11,"goalId":"1"},{"id":12,"goalId":2}]`,
			tasks:           `[{"id":"t1","projectId":1e1},{"id":"t2","projectId":12}]`,
			expectProjects:  `[{"id":10,"goalId":1.0},{"id":11,"goalId":"1"}]`,
			expectTasks:     `[{"id":"t1","projectId":1e1}]`,
			projectsRemoved: 1,
			tasksRemoved:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FilterReferences(projects(t, tt.projects), tasks(t, tt.tasks), goals(t, tt.goals))
			assert.Equal(t, tt.expectProjects, toJSON(t, f.Projects))
			assert.Equal(t, tt.expectTasks, toJSON(t, f.Tasks))
			assert.Equal(t, tt.projectsRemoved, f.ProjectsRemoved)
			assert.Equal(t, tt.tasksRemoved, f.TasksRemoved)
		})
	}
}

func TestReconcileLinkMap(t *testing.T) {
	in := linkMap(t, `{"p2":"g1","p1":"g1","pX":"g1","p3":"gX","p4":null}`)
	projectIDs := map[string]struct{}{"p1": {}, "p2": {}, "p3": {}, "p4": {}}
	goalIDs := map[string]struct{}{"g1": {}}

	out, removed := ReconcileLinkMap(in, projectIDs, goalIDs)

	assert.Equal(t, `{"p2":"g1","p1":"g1"}`, toJSON(t, out))
	assert.Equal(t, 3, removed)
}

func TestPlan_Scenario1(t *testing.T) {
	in := gtd.Snapshot{
		Goals:    goals(t, `[{"id":"g1"}]`),
		Projects: projects(t, `[{"id":"p1","goalId":"g1"},{"id":"p2","goalId":"gX"}]`),
		Tasks:    tasks(t, `[{"id":"t1","projectId":"p1"},{"id":"t2","projectId":"p2"}]`),
		LinkMap:  linkMap(t, `{"p1":"g1","p2":"gX"}`),
	}

	out, rep := Plan(in, Options{})

	assert.Equal(t, `[{"id":"p1","goalId":"g1"}]`, toJSON(t, out.Projects))
	assert.Equal(t, `[{"id":"t1","projectId":"p1"}]`, toJSON(t, out.Tasks))
	assert.Equal(t, `{"p1":"g1"}`, toJSON(t, out.LinkMap))

	expect := Report{
		Success:                 true,
		OrphanedProjectsRemoved: 1,
		OrphanedTasksRemoved:    1,
		LinkMapEntriesRemoved:   1,
		InitialCounts:           gtd.Counts{Goals: 1, Projects: 2, Tasks: 2, LinkMapEntries: 2},
		FinalCounts:             gtd.Counts{Goals: 1, Projects: 1, Tasks: 1, LinkMapEntries: 1},
	}
	if diff := cmp.Diff(expect, rep); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_LinkMapUsesFilteredProjects(t *testing.T) {
	// p2 exists in the input but is removed for its dangling goal, so its
	// link entry goes too even though it points at a real goal
	in := gtd.Snapshot{
		Goals:    goals(t, `[{"id":"g1"}]`),
		Projects: projects(t, `[{"id":"p2","goalId":"gX"}]`),
		LinkMap:  linkMap(t, `{"p2":"g1"}`),
	}

	out, rep := Plan(in, Options{})
	assert.Equal(t, `{}`, toJSON(t, out.LinkMap))
	assert.Equal(t, 1, rep.LinkMapEntriesRemoved)
}

func TestPlan_PromotedTasksAreFiltered(t *testing.T) {
	in := gtd.Snapshot{
		Goals:    goals(t, `[{"id":"g1"}]`),
		Projects: projects(t, `[{"id":"p1","goalId":"g1","tasks":[{"id":"i1"}]},{"id":"p2","goalId":"gX","tasks":[{"id":"i2"}]}]`),
	}

	out, rep := Plan(in, Options{EmbeddedTasks: PromoteEmbeddedTasks})

	assert.Equal(t, `[{"id":"i1","projectId":"p1"}]`, toJSON(t, out.Tasks))
	assert.Equal(t, 2, rep.EmbeddedTasksPromoted)
	assert.Equal(t, 1, rep.OrphanedTasksRemoved)
}
