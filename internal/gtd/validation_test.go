package gtd

import (
	"encoding/json"
	"testing"
)

func snapshotFromJSON(t *testing.T, goals, projects, tasks, links string) Snapshot {
	t.Helper()
	var s Snapshot
	for _, part := range []struct {
		raw string
		dst any
	}{
		{goals, &s.Goals}, {projects, &s.Projects}, {tasks, &s.Tasks}, {links, &s.LinkMap},
	} {
		if err := json.Unmarshal([]byte(part.raw), part.dst); err != nil {
			t.Fatalf("bad fixture %s: %v", part.raw, err)
		}
	}
	return s
}

func TestCheckReferences_Clean(t *testing.T) {
	s := snapshotFromJSON(t,
		`[{"id":"g1"}]`,
		`[{"id":"p1","goalId":"g1"},{"id":"p2","goalId":null}]`,
		`[{"id":"t1","projectId":"p1"},{"id":"t2","projectId":"p2"}]`,
		`{"p1":"g1"}`,
	)
	if v := CheckReferences(s); len(v) != 0 {
		t.Errorf("Expected no violations, got %v", v)
	}
}

func TestCheckReferences_FindsEveryKind(t *testing.T) {
	s := snapshotFromJSON(t,
		`[{"id":"g1"}]`,
		`[{"id":"p1","goalId":"g1","tasks":[]},{"id":"p2","goalId":"gX"}]`,
		`[{"id":"t1","projectId":"pX"},{"id":"t2"}]`,
		`{"p1":"gX","pX":"g1"}`,
	)

	kinds := map[ViolationKind]int{}
	for _, v := range CheckReferences(s) {
		kinds[v.Kind]++
		if v.String() == "" {
			t.Errorf("Expected description for %s", v.Kind)
		}
	}

	expect := map[ViolationKind]int{
		EmbeddedTaskList:    1,
		DanglingProjectGoal: 1,
		DanglingTaskProject: 1,
		UnlinkedTask:        1,
		DanglingLinkGoal:    1,
		DanglingLinkProject: 1,
	}
	for k, n := range expect {
		if kinds[k] != n {
			t.Errorf("Expected %d %s, got %d", n, k, kinds[k])
		}
	}
	if kinds[DependentsWithoutGoals] != 0 {
		t.Error("Did not expect dependents_without_goals with a goal present")
	}
}

func TestCheckReferences_NoGoals(t *testing.T) {
	s := snapshotFromJSON(t, `[]`, `[{"id":"p1"}]`, `[]`, `{}`)

	v := CheckReferences(s)
	if len(v) != 1 || v[0].Kind != DependentsWithoutGoals {
		t.Errorf("Expected only dependents_without_goals, got %v", v)
	}
}
