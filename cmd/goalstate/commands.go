package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vthunder/goalstate/internal/activity"
	"github.com/vthunder/goalstate/internal/gtd"
	"github.com/vthunder/goalstate/internal/logging"
	"github.com/vthunder/goalstate/internal/reconcile"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCounts(w io.Writer, label string, c gtd.Counts) {
	fmt.Fprintf(w, "%-9s goals=%d projects=%d tasks=%d links=%d\n",
		label, c.Goals, c.Projects, c.Tasks, c.LinkMapEntries)
}

func printReport(w io.Writer, rep *reconcile.Report) {
	if rep.DryRun {
		fmt.Fprintln(w, "Reconcile preview (no changes written)")
	} else {
		fmt.Fprintln(w, "Reconcile")
	}
	fmt.Fprintln(w, "=========")
	fmt.Fprintf(w, "Run:       %s\n", rep.RunID)
	if !rep.Success {
		fmt.Fprintf(w, "Failed:    %s (phase %s)\n", rep.Error, rep.Phase)
		return
	}
	fmt.Fprintf(w, "Embedded task lists removed: %d\n", rep.ProjectsWithEmbeddedTasksRemoved)
	if rep.EmbeddedTasksPromoted > 0 {
		fmt.Fprintf(w, "Embedded tasks promoted:     %d\n", rep.EmbeddedTasksPromoted)
	}
	fmt.Fprintf(w, "Orphaned projects removed:   %d\n", rep.OrphanedProjectsRemoved)
	fmt.Fprintf(w, "Orphaned tasks removed:      %d\n", rep.OrphanedTasksRemoved)
	fmt.Fprintf(w, "Link map entries removed:    %d\n", rep.LinkMapEntriesRemoved)
	printCounts(w, "Before:", rep.InitialCounts)
	printCounts(w, "After:", rep.FinalCounts)
	if !rep.Changed() {
		fmt.Fprintln(w, "Nothing to repair.")
	}
}

func reportRun(cmd *cobra.Command, a *app, rep *reconcile.Report, err error) error {
	if rep != nil {
		if a.jsonOut {
			if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil {
				return perr
			}
		} else {
			printReport(cmd.OutOrStdout(), rep)
		}
	}
	return err
}

// record appends to the run history; a history failure never fails the run
func (a *app) record(err error) {
	if err != nil {
		logging.Warn("main", "failed to record activity: %v", err)
	}
}

func runReconcile(cmd *cobra.Command, a *app, _ []string) error {
	rep, err := a.reconciler.Reconcile(cmd.Context())
	a.record(a.history.LogReconcile(rep))
	return reportRun(cmd, a, rep, err)
}

func runPreview(cmd *cobra.Command, a *app, _ []string) error {
	rep, err := a.reconciler.Preview(cmd.Context())
	return reportRun(cmd, a, rep, err)
}

func runNuclear(cmd *cobra.Command, a *app, _ []string) error {
	res, err := a.reconciler.NuclearClearIfNoGoals(cmd.Context())
	a.record(a.history.LogNuclear(res))
	if res == nil {
		return err
	}
	w := cmd.OutOrStdout()
	if a.jsonOut {
		if perr := printJSON(w, res); perr != nil {
			return perr
		}
		return err
	}

	switch {
	case !res.Success:
		fmt.Fprintf(w, "Nuclear cleanup failed: %s\n", res.Error)
	case res.Action == reconcile.ActionNoCleanupNeeded:
		fmt.Fprintln(w, "Goals exist, nothing cleared.")
	default:
		fmt.Fprintln(w, "No goals found, cleared all dependents.")
		if res.Removed != nil {
			printCounts(w, "Removed:", *res.Removed)
		}
	}
	return err
}

func runSummary(cmd *cobra.Command, a *app, _ []string) error {
	summary, err := a.inspector.Summary(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if a.jsonOut {
		return printJSON(w, summary)
	}

	fmt.Fprintln(w, "State Summary")
	fmt.Fprintln(w, "=============")
	fmt.Fprintf(w, "Backend:   %s (%s)\n", a.cfg.Backend, a.cfg.StatePath)
	fmt.Fprintf(w, "Goals:     %d\n", summary.Goals)
	fmt.Fprintf(w, "Projects:  %d (%d unlinked, %d with embedded tasks)\n",
		summary.Projects, summary.UnlinkedProjects, summary.ProjectsWithEmbeddedList)
	fmt.Fprintf(w, "Tasks:     %d\n", summary.Tasks)
	fmt.Fprintf(w, "Links:     %d\n", summary.LinkMapEntries)
	if len(summary.MissingKeys) > 0 {
		fmt.Fprintf(w, "Missing:   %s\n", strings.Join(summary.MissingKeys, ", "))
	}
	return nil
}

func runHealth(cmd *cobra.Command, a *app, _ []string) error {
	health, err := a.inspector.Health(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if a.jsonOut {
		return printJSON(w, health)
	}

	fmt.Fprintf(w, "Health Status: %s\n", health.Status)
	if len(health.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range health.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
	if len(health.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, r := range health.Recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, a *app, _ []string) error {
	data, err := a.repo.Export(cmd.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func runImport(cmd *cobra.Command, a *app, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	counts, err := a.repo.Import(cmd.Context(), data)
	if err != nil {
		a.record(a.history.Log(activity.Entry{Type: activity.TypeError, Summary: "import failed: " + err.Error()}))
		return err
	}
	a.record(a.history.LogImport(args[0], counts))
	if a.jsonOut {
		return printJSON(cmd.OutOrStdout(), counts)
	}
	printCounts(cmd.OutOrStdout(), "Imported:", counts)
	return nil
}

func newHistoryCmd(f *flags) *cobra.Command {
	var (
		limit   int
		typeArg string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent reconcile, nuclear and import runs",
		Args:  cobra.NoArgs,
		RunE: f.run(func(cmd *cobra.Command, a *app, _ []string) error {
			var (
				entries []activity.Entry
				err     error
			)
			if typeArg == "" {
				entries, err = a.history.Recent(limit)
			} else {
				t := activity.Type(typeArg)
				if !slices.Contains(activity.Types, t) {
					return fmt.Errorf("unknown activity type %q (want one of %v)", typeArg, activity.Types)
				}
				entries, err = a.history.ByType(t, limit)
				// oldest first, like the unfiltered listing
				slices.Reverse(entries)
			}
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(w, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "No activity recorded.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(w, "%s  %-9s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.Summary)
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	cmd.Flags().StringVar(&typeArg, "type", "", "only show entries of this type: reconcile, nuclear, import or error")
	return cmd
}
