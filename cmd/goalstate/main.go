// goalstate repairs and inspects the local goal/project/task store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vthunder/goalstate/internal/activity"
	"github.com/vthunder/goalstate/internal/config"
	"github.com/vthunder/goalstate/internal/gtd"
	"github.com/vthunder/goalstate/internal/kv"
	"github.com/vthunder/goalstate/internal/logging"
	"github.com/vthunder/goalstate/internal/reconcile"
	"github.com/vthunder/goalstate/internal/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flags shared by every command; empty values leave the config untouched
type flags struct {
	configPath    string
	statePath     string
	backend       string
	embeddedTasks string
	jsonOut       bool
}

// app is what a command gets once config and store are open
type app struct {
	cfg        *config.Config
	store      kv.Store
	repo       *gtd.Repository
	reconciler *reconcile.Reconciler
	inspector  *state.Inspector
	history    *activity.Log
	jsonOut    bool
}

func (f *flags) open() (*app, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if f.statePath != "" {
		cfg.StatePath = f.statePath
	}
	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.embeddedTasks != "" {
		cfg.EmbeddedTasks = f.embeddedTasks
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logging.SetDebug(cfg.Debug)

	store, err := kv.Open(cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	logging.Debug("main", "opened %s store at %s", cfg.Backend, cfg.StatePath)

	repo := gtd.NewRepository(store)
	return &app{
		cfg:        cfg,
		store:      store,
		repo:       repo,
		reconciler: reconcile.New(repo, cfg.Options()),
		inspector:  state.NewInspector(repo, cfg.Options()),
		history:    activity.New(cfg.StatePath),
		jsonOut:    f.jsonOut,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logging.Warn("main", "failed to close store: %v", err)
	}
}

// run opens the app, hands it to fn and closes it afterwards
func (f *flags) run(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := f.open()
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:   "goalstate",
		Short: "Repair and inspect the local goal/project/task store",
		Long: `goalstate keeps the goals, projects, tasks and project-to-goal link map
in the local store consistent with each other.

Environment:
  GOALSTATE_STATE_PATH      State directory (default: "state")
  GOALSTATE_BACKEND         file, sqlite, sqlite-pure, badger or memory
  GOALSTATE_EMBEDDED_TASKS  discard or promote
  DEBUG                     "true" enables debug logging`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default "+config.DefaultFile+" if present)")
	pf.StringVar(&f.statePath, "state", "", "state directory")
	pf.StringVar(&f.backend, "backend", "", "store backend")
	pf.StringVar(&f.embeddedTasks, "embedded-tasks", "", "embedded task policy: discard or promote")
	pf.BoolVar(&f.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		&cobra.Command{
			Use:   "reconcile",
			Short: "Remove embedded task lists, orphaned projects and tasks, stale links",
			Args:  cobra.NoArgs,
			RunE:  f.run(runReconcile),
		},
		&cobra.Command{
			Use:   "preview",
			Short: "Show what reconcile would remove without writing",
			Args:  cobra.NoArgs,
			RunE:  f.run(runPreview),
		},
		&cobra.Command{
			Use:   "nuclear",
			Short: "Clear projects, tasks and links when no goal exists",
			Args:  cobra.NoArgs,
			RunE:  f.run(runNuclear),
		},
		&cobra.Command{
			Use:   "summary",
			Short: "Overview of the store",
			Args:  cobra.NoArgs,
			RunE:  f.run(runSummary),
		},
		&cobra.Command{
			Use:   "health",
			Short: "Run reference checks with recommendations",
			Args:  cobra.NoArgs,
			RunE:  f.run(runHealth),
		},
		newHistoryCmd(f),
		&cobra.Command{
			Use:   "export",
			Short: "Print all four keys as one JSON document",
			Args:  cobra.NoArgs,
			RunE:  f.run(runExport),
		},
		&cobra.Command{
			Use:   "import <file>",
			Short: "Replace all four keys from a JSON document written by export",
			Args:  cobra.ExactArgs(1),
			RunE:  f.run(runImport),
		},
	)
	return root
}
