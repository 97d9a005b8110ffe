package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vthunder/goalstate/internal/kv"
	"github.com/vthunder/goalstate/internal/reconcile"
)

// DefaultFile is read when no config path is given
const DefaultFile = "goalstate.yaml"

// Config holds everything the commands need to open and repair a store
type Config struct {
	StatePath     string `yaml:"state_path"`
	Backend       string `yaml:"backend"`        // file, sqlite, sqlite-pure, badger, memory
	EmbeddedTasks string `yaml:"embedded_tasks"` // discard or promote
	Debug         bool   `yaml:"debug"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		StatePath:     "state",
		Backend:       kv.BackendFile,
		EmbeddedTasks: string(reconcile.DiscardEmbeddedTasks),
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (DefaultFile when empty; a missing file is fine), then .env, then the
// environment. The result is not validated: callers apply their own
// overrides first and then call Validate.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := loadFile(path, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return nil, err
		}
	}

	// Load .env file (optional - won't error if missing)
	_ = godotenv.Load()
	applyEnv(cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GOALSTATE_STATE_PATH"); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv("GOALSTATE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("GOALSTATE_EMBEDDED_TASKS"); v != "" {
		cfg.EmbeddedTasks = v
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}
}

// Validate rejects unknown backends and policies
func (c *Config) Validate() error {
	if c.StatePath == "" {
		return errors.New("state_path must not be empty")
	}
	if !slices.Contains(kv.Backends, c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %v)", c.Backend, kv.Backends)
	}
	if _, err := reconcile.ParseEmbeddedTaskPolicy(c.EmbeddedTasks); err != nil {
		return err
	}
	return nil
}

// Options returns the reconcile options this configuration selects
func (c *Config) Options() reconcile.Options {
	policy, _ := reconcile.ParseEmbeddedTaskPolicy(c.EmbeddedTasks)
	return reconcile.Options{EmbeddedTasks: policy}
}

// StoreConfig returns the backend selection for kv.Open
func (c *Config) StoreConfig() kv.Config {
	return kv.Config{Backend: c.Backend, StatePath: c.StatePath}
}
