// Package kvtest provides store fakes for tests.
package kvtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/vthunder/goalstate/internal/kv"
)

// ErrInjected is returned by FaultyStore for every injected failure
var ErrInjected = errors.New("injected failure")

// FaultyStore wraps a store and fails selected operations per key
type FaultyStore struct {
	kv.Store

	mu       sync.Mutex
	failGet  map[string]bool
	failSet  map[string]bool
	panicGet map[string]bool
	sets     []string
}

// NewFaultyStore wraps inner, or a fresh MemStore when inner is nil
func NewFaultyStore(inner kv.Store) *FaultyStore {
	if inner == nil {
		inner = kv.NewMemStore()
	}
	return &FaultyStore{
		Store:    inner,
		failGet:  map[string]bool{},
		failSet:  map[string]bool{},
		panicGet: map[string]bool{},
	}
}

// FailGet makes Get on key return ErrInjected
func (s *FaultyStore) FailGet(key string) *FaultyStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet[key] = true
	return s
}

// FailSet makes Set on key return ErrInjected
func (s *FaultyStore) FailSet(key string) *FaultyStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSet[key] = true
	return s
}

// PanicGet makes Get on key panic
func (s *FaultyStore) PanicGet(key string) *FaultyStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panicGet[key] = true
	return s
}

// Sets returns the keys successfully written, in completion order
func (s *FaultyStore) Sets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sets...)
}

// Get fails or panics when configured, otherwise delegates
func (s *FaultyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	fail, panics := s.failGet[key], s.panicGet[key]
	s.mu.Unlock()
	if panics {
		panic("injected panic reading " + key)
	}
	if fail {
		return nil, ErrInjected
	}
	return s.Store.Get(ctx, key)
}

// Set fails when configured, otherwise delegates and records the key
func (s *FaultyStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	fail := s.failSet[key]
	s.mu.Unlock()
	if fail {
		return ErrInjected
	}
	if err := s.Store.Set(ctx, key, value); err != nil {
		return err
	}
	s.mu.Lock()
	s.sets = append(s.sets, key)
	s.mu.Unlock()
	return nil
}

// Seed writes raw JSON strings under their keys
func Seed(t testing.TB, store kv.Store, values map[string]string) {
	t.Helper()
	for k, v := range values {
		if err := store.Set(context.Background(), k, []byte(v)); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
}

// Raw reads a key and compacts its JSON for comparison. Missing keys return "".
func Raw(t testing.TB, store kv.Store, key string) string {
	t.Helper()
	data, err := store.Get(context.Background(), key)
	if errors.Is(err, kv.ErrNotFound) {
		return ""
	}
	if err != nil {
		t.Fatalf("read %s: %v", key, err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return string(data)
	}
	return buf.String()
}
