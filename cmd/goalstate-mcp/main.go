// goalstate-mcp exposes the goal store repair and inspection tools over
// MCP on stdio. Logs go to stderr; stdout carries the protocol.
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vthunder/goalstate/internal/config"
	"github.com/vthunder/goalstate/internal/gtd"
	"github.com/vthunder/goalstate/internal/kv"
	"github.com/vthunder/goalstate/internal/logging"
	"github.com/vthunder/goalstate/internal/mcp/tools"
	"github.com/vthunder/goalstate/internal/reconcile"
	"github.com/vthunder/goalstate/internal/state"
)

func main() {
	configPath := flag.String("config", "", "config file (default "+config.DefaultFile+" if present)")
	flag.Parse()

	// Load .env file - try executable's parent dir (repo root), then exe dir
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		for _, p := range []string{filepath.Join(filepath.Dir(exeDir), ".env"), filepath.Join(exeDir, ".env")} {
			if _, err := os.Stat(p); err == nil {
				_ = godotenv.Load(p)
				break
			}
		}
	}

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		logging.Error("main", "config: %v", err)
		os.Exit(1)
	}
	logging.SetDebug(cfg.Debug)

	store, err := kv.Open(cfg.StoreConfig())
	if err != nil {
		logging.Error("main", "failed to open %s store: %v", cfg.Backend, err)
		os.Exit(1)
	}
	defer store.Close()

	repo := gtd.NewRepository(store)
	deps := &tools.Dependencies{
		Reconciler:     reconcile.New(repo, cfg.Options()),
		StateInspector: state.NewInspector(repo, cfg.Options()),
		OnMCPToolCall: func(name string) {
			logging.Debug("mcp", "tool call: %s", name)
		},
	}

	s := server.NewMCPServer(
		"goalstate-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	tools.RegisterAll(s, deps)

	logging.Info("main", "serving %s store at %s on stdio", cfg.Backend, cfg.StatePath)
	if err := server.ServeStdio(s); err != nil {
		logging.Error("main", "server error: %v", err)
		store.Close()
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}
