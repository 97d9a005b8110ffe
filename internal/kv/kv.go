// Package kv provides the key/value backends the goal store persists into.
//
// A Store offers per-key atomicity only: a Set is either fully visible to a
// later Get or not at all. Nothing spans more than one key.
package kv

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotFound is returned by Get when the key is absent
var ErrNotFound = errors.New("key not found")

// Store is a persistent key/value store holding whole JSON documents per key
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Backend names accepted by Open
const (
	BackendFile       = "file"
	BackendSQLite     = "sqlite"
	BackendSQLitePure = "sqlite-pure"
	BackendBadger     = "badger"
	BackendMemory     = "memory"
)

// Backends lists every backend Open understands
var Backends = []string{BackendFile, BackendSQLite, BackendSQLitePure, BackendBadger, BackendMemory}

// Config selects and locates a backend
type Config struct {
	Backend   string
	StatePath string
}

// Open opens the configured backend under StatePath
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return NewFileStore(filepath.Join(cfg.StatePath, "store"))
	case BackendSQLite:
		return OpenSQLite(filepath.Join(cfg.StatePath, "store.db"), DriverCGO)
	case BackendSQLitePure:
		return OpenSQLite(filepath.Join(cfg.StatePath, "store.db"), DriverPure)
	case BackendBadger:
		return OpenBadger(BadgerConfig{Path: filepath.Join(cfg.StatePath, "badger"), SyncWrites: true})
	case BackendMemory:
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
	}
}
