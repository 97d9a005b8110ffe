// Package reconcile repairs drift between the goal, project and task
// collections and the project -> goal link map.
//
// A run loads all four keys, computes every output in memory, then writes
// the four keys back independently. The store offers no cross-key
// transaction: an interrupted run can leave, say, projects pruned and the
// link map not yet pruned. The next run converges to the same fixed point.
package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vthunder/goalstate/internal/gtd"
	"github.com/vthunder/goalstate/internal/logging"
)

// Nuclear cleanup actions
const (
	ActionNuclearCleanup  = "nuclear_cleanup"
	ActionNoCleanupNeeded = "no_cleanup_needed"
)

// Options configures a Reconciler
type Options struct {
	EmbeddedTasks EmbeddedTaskPolicy
}

// Report describes one reconcile or preview run
type Report struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Phase   string `json:"phase,omitempty"` // where a failed run stopped
	DryRun  bool   `json:"dryRun,omitempty"`
	RunID   string `json:"runId"`

	ProjectsWithEmbeddedTasksRemoved int `json:"projectsWithEmbeddedTasksRemoved"`
	EmbeddedTasksPromoted            int `json:"embeddedTasksPromoted,omitempty"`
	OrphanedProjectsRemoved          int `json:"orphanedProjectsRemoved"`
	OrphanedTasksRemoved             int `json:"orphanedTasksRemoved"`
	LinkMapEntriesRemoved            int `json:"linkMapEntriesRemoved"`

	InitialCounts gtd.Counts `json:"initialCounts"`
	FinalCounts   gtd.Counts `json:"finalCounts"`
}

// Changed reports whether the run removed or rewrote anything
func (r *Report) Changed() bool {
	return r.ProjectsWithEmbeddedTasksRemoved+r.EmbeddedTasksPromoted+r.OrphanedProjectsRemoved+
		r.OrphanedTasksRemoved+r.LinkMapEntriesRemoved > 0
}

// NuclearResult describes a NuclearClearIfNoGoals run
type NuclearResult struct {
	Success     bool        `json:"success"`
	Error       string      `json:"error,omitempty"`
	Action      string      `json:"action,omitempty"`
	Removed     *gtd.Counts `json:"removed,omitempty"`
	FinalCounts *gtd.Counts `json:"finalCounts,omitempty"`
}

// Plan runs the whole repair in memory: strip embedded task lists, filter
// projects then tasks, prune the link map. Goals pass through unchanged.
func Plan(in gtd.Snapshot, opts Options) (gtd.Snapshot, Report) {
	mig := StripEmbeddedTasks(in.Projects, in.Tasks, opts.EmbeddedTasks)
	filtered := FilterReferences(mig.Projects, mig.Tasks, in.Goals)
	links, linksRemoved := ReconcileLinkMap(in.LinkMap, filtered.ProjectIDs, filtered.GoalIDs)

	out := gtd.Snapshot{
		Goals:    in.Goals,
		Projects: filtered.Projects,
		Tasks:    filtered.Tasks,
		LinkMap:  links,
	}
	return out, Report{
		Success:                          true,
		ProjectsWithEmbeddedTasksRemoved: mig.Stripped,
		EmbeddedTasksPromoted:            mig.Promoted,
		OrphanedProjectsRemoved:          filtered.ProjectsRemoved,
		OrphanedTasksRemoved:             filtered.TasksRemoved,
		LinkMapEntriesRemoved:            linksRemoved,
		InitialCounts:                    in.Counts(),
		FinalCounts:                      out.Counts(),
	}
}

// Store is the persistence a Reconciler needs; *gtd.Repository satisfies it
type Store interface {
	Load(ctx context.Context) (gtd.Snapshot, error)
	Save(ctx context.Context, snap gtd.Snapshot) error
	ClearDependents(ctx context.Context) error
}

// Reconciler runs repairs against a store
type Reconciler struct {
	store Store
	opts  Options
}

// New creates a Reconciler
func New(store Store, opts Options) *Reconciler {
	if opts.EmbeddedTasks == "" {
		opts.EmbeddedTasks = DiscardEmbeddedTasks
	}
	return &Reconciler{store: store, opts: opts}
}

// Reconcile repairs the store and reports what it removed. On failure the
// report carries success=false and the error is also returned.
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	return r.run(ctx, false)
}

// Preview computes what Reconcile would remove without writing anything
func (r *Reconciler) Preview(ctx context.Context) (*Report, error) {
	return r.run(ctx, true)
}

func (r *Reconciler) run(ctx context.Context, dryRun bool) (rep *Report, err error) {
	runID := uuid.NewString()
	phase := "load"

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", phase, p)
		}
		if err != nil {
			logging.Error("reconcile", "run %s failed during %s: %v", runID, phase, err)
			rep = &Report{Success: false, Error: err.Error(), Phase: phase, DryRun: dryRun, RunID: runID}
		}
	}()

	snap, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	phase = "plan"
	out, report := Plan(snap, r.opts)
	report.RunID = runID
	report.DryRun = dryRun

	if dryRun {
		logging.Debug("reconcile", "run %s preview: %d projects, %d tasks, %d links would be removed",
			runID, report.OrphanedProjectsRemoved, report.OrphanedTasksRemoved, report.LinkMapEntriesRemoved)
		return &report, nil
	}

	phase = "save"
	if err := r.store.Save(ctx, out); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	logging.Info("reconcile", "run %s: stripped %d embedded lists, removed %d projects, %d tasks, %d links",
		runID, report.ProjectsWithEmbeddedTasksRemoved, report.OrphanedProjectsRemoved,
		report.OrphanedTasksRemoved, report.LinkMapEntriesRemoved)
	return &report, nil
}

// NuclearClearIfNoGoals empties projects, tasks and the link map when there
// are no goals at all. With any goal present nothing is written.
func (r *Reconciler) NuclearClearIfNoGoals(ctx context.Context) (res *NuclearResult, err error) {
	phase := "load"
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: panic: %v", phase, p)
		}
		if err != nil {
			logging.Error("reconcile", "nuclear cleanup failed during %s: %v", phase, err)
			res = &NuclearResult{Success: false, Error: err.Error()}
		}
	}()

	snap, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	if len(snap.Goals) > 0 {
		logging.Debug("reconcile", "%d goals present, nuclear cleanup not needed", len(snap.Goals))
		return &NuclearResult{Success: true, Action: ActionNoCleanupNeeded}, nil
	}

	phase = "save"
	if err := r.store.ClearDependents(ctx); err != nil {
		return nil, fmt.Errorf("save: %w", err)
	}

	removed := snap.Counts()
	removed.Goals = 0
	final := gtd.Counts{}
	logging.Info("reconcile", "nuclear cleanup: removed %d projects, %d tasks, %d links",
		removed.Projects, removed.Tasks, removed.LinkMapEntries)
	return &NuclearResult{
		Success:     true,
		Action:      ActionNuclearCleanup,
		Removed:     &removed,
		FinalCounts: &final,
	}, nil
}
