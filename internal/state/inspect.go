package state

import (
	"context"
	"fmt"
	"sort"

	"github.com/vthunder/goalstate/internal/gtd"
	"github.com/vthunder/goalstate/internal/reconcile"
)

// Inspector provides state introspection capabilities
type Inspector struct {
	repo *gtd.Repository
	opts reconcile.Options
}

// NewInspector creates a new state inspector
func NewInspector(repo *gtd.Repository, opts reconcile.Options) *Inspector {
	return &Inspector{repo: repo, opts: opts}
}

// StateSummary holds summary of all state
type StateSummary struct {
	Goals                    int `json:"goals"`
	Projects                 int `json:"projects"`
	Tasks                    int `json:"tasks"`
	LinkMapEntries           int `json:"link_map_entries"`
	ProjectsWithEmbeddedList int `json:"projects_with_embedded_tasks"`
	UnlinkedProjects         int `json:"unlinked_projects"`

	MissingKeys []string `json:"missing_keys,omitempty"` // never written, loaded as empty
}

// HealthReport holds health check results
type HealthReport struct {
	Status          string            `json:"status"` // "healthy", "warnings"
	Warnings        []string          `json:"warnings,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Violations      []gtd.Violation   `json:"violations,omitempty"`
	Preview         *reconcile.Report `json:"preview,omitempty"`
}

// Summary returns a summary of all state components
func (i *Inspector) Summary(ctx context.Context) (*StateSummary, error) {
	snap, err := i.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	summary := summarize(snap)
	if summary.MissingKeys, err = i.repo.MissingKeys(ctx); err != nil {
		return nil, err
	}
	return summary, nil
}

func summarize(snap gtd.Snapshot) *StateSummary {
	c := snap.Counts()
	summary := &StateSummary{
		Goals:          c.Goals,
		Projects:       c.Projects,
		Tasks:          c.Tasks,
		LinkMapEntries: c.LinkMapEntries,
	}
	for _, p := range snap.Projects {
		if p.HasEmbeddedTasks() {
			summary.ProjectsWithEmbeddedList++
		}
		if p.GoalID() == "" {
			summary.UnlinkedProjects++
		}
	}
	return summary
}

// Health runs health checks and returns a report
func (i *Inspector) Health(ctx context.Context) (*HealthReport, error) {
	snap, err := i.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	report := &HealthReport{Status: "healthy"}
	report.Violations = gtd.CheckReferences(snap)

	_, preview := reconcile.Plan(snap, i.opts)
	preview.DryRun = true
	report.Preview = &preview

	byKind := make(map[gtd.ViolationKind]int)
	for _, v := range report.Violations {
		byKind[v.Kind]++
	}
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	for _, k := range kinds {
		kind := gtd.ViolationKind(k)
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %d", describe(kind), byKind[kind]))
	}

	if byKind[gtd.DependentsWithoutGoals] > 0 {
		report.Recommendations = append(report.Recommendations, "Run nuclear to clear projects, tasks and links left without any goal")
	}
	if len(report.Violations) > byKind[gtd.DependentsWithoutGoals] {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Run reconcile to remove %d projects, %d tasks and %d link entries",
				preview.OrphanedProjectsRemoved, preview.OrphanedTasksRemoved, preview.LinkMapEntriesRemoved))
	}
	if i.opts.EmbeddedTasks != reconcile.PromoteEmbeddedTasks && byKind[gtd.EmbeddedTaskList] > 0 {
		report.Recommendations = append(report.Recommendations,
			"Embedded task lists are discarded by default; export first or use --embedded-tasks=promote to keep them")
	}

	if len(report.Warnings) > 0 {
		report.Status = "warnings"
	}
	return report, nil
}

func describe(kind gtd.ViolationKind) string {
	switch kind {
	case gtd.DanglingProjectGoal:
		return "Projects referencing missing goals"
	case gtd.DanglingTaskProject:
		return "Tasks referencing missing projects"
	case gtd.UnlinkedTask:
		return "Tasks without a project"
	case gtd.EmbeddedTaskList:
		return "Projects with embedded task lists"
	case gtd.DanglingLinkProject:
		return "Link map entries for missing projects"
	case gtd.DanglingLinkGoal:
		return "Link map entries for missing goals"
	case gtd.DependentsWithoutGoals:
		return "Dependent records with no goals"
	}
	return string(kind)
}
