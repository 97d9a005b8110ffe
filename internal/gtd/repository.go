package gtd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/vthunder/goalstate/internal/kv"
	"github.com/vthunder/goalstate/internal/logging"
)

// Repository reads and writes whole collections under their fixed keys
type Repository struct {
	store kv.Store
}

// NewRepository wraps a key/value store
func NewRepository(store kv.Store) *Repository {
	return &Repository{store: store}
}

// readKey returns nil without error when the key is absent
func (r *Repository) readKey(ctx context.Context, key string) ([]byte, error) {
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		logging.Debug("gtd", "key %s not found, treating as empty", key)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// loadList decodes an array of objects. A missing key, invalid JSON or a
// non-array value all load as empty; non-object elements are skipped.
func loadList[T any](ctx context.Context, r *Repository, key string, wrap func(Record) T) ([]T, error) {
	data, err := r.readKey(ctx, key)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if data == nil {
		return out, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		logging.Debug("gtd", "%s is not a JSON array, treating as empty: %v", key, err)
		return out, nil
	}
	for i, item := range items {
		rec, err := parseObject(item)
		if err != nil {
			logging.Debug("gtd", "%s[%d] skipped: %v", key, i, err)
			continue
		}
		out = append(out, wrap(rec))
	}
	return out, nil
}

// Goals loads the goal collection
func (r *Repository) Goals(ctx context.Context) ([]Goal, error) {
	return loadList(ctx, r, KeyGoals, func(rec Record) Goal { return Goal{rec} })
}

// Projects loads the project collection
func (r *Repository) Projects(ctx context.Context) ([]Project, error) {
	return loadList(ctx, r, KeyProjects, func(rec Record) Project { return Project{rec} })
}

// Tasks loads the task collection
func (r *Repository) Tasks(ctx context.Context) ([]Task, error) {
	return loadList(ctx, r, KeyTasks, func(rec Record) Task { return Task{rec} })
}

// LinkMap loads the project -> goal index. Anything but a JSON object loads as empty.
func (r *Repository) LinkMap(ctx context.Context) (LinkMap, error) {
	data, err := r.readKey(ctx, KeyLinkMap)
	if err != nil || data == nil {
		return LinkMap{}, err
	}
	rec, err := parseObject(data)
	if err != nil {
		logging.Debug("gtd", "%s is not a JSON object, treating as empty: %v", KeyLinkMap, err)
		return LinkMap{}, nil
	}
	return LinkMap{rec}, nil
}

// MissingKeys returns the collection keys that have never been written, in
// Keys order. A missing key loads as empty; this tells it apart from a
// stored empty collection.
func (r *Repository) MissingKeys(ctx context.Context) ([]string, error) {
	stored, err := r.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	var missing []string
	for _, k := range Keys {
		if !slices.Contains(stored, k) {
			missing = append(missing, k)
		}
	}
	return missing, nil
}

// guard turns a panic inside a store call into an error so it cannot escape
// an errgroup goroutine
func guard(key string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%s: panic: %v", key, p)
			}
		}()
		return fn()
	}
}

// Load reads all four keys concurrently and waits for every read
func (r *Repository) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(guard(KeyGoals, func() (err error) {
		snap.Goals, err = r.Goals(gctx)
		return err
	}))
	g.Go(guard(KeyProjects, func() (err error) {
		snap.Projects, err = r.Projects(gctx)
		return err
	}))
	g.Go(guard(KeyTasks, func() (err error) {
		snap.Tasks, err = r.Tasks(gctx)
		return err
	}))
	g.Go(guard(KeyLinkMap, func() (err error) {
		snap.LinkMap, err = r.LinkMap(gctx)
		return err
	}))

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (r *Repository) writeKey(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// SaveGoals replaces the goal collection
func (r *Repository) SaveGoals(ctx context.Context, goals []Goal) error {
	if goals == nil {
		goals = []Goal{}
	}
	return r.writeKey(ctx, KeyGoals, goals)
}

// SaveProjects replaces the project collection
func (r *Repository) SaveProjects(ctx context.Context, projects []Project) error {
	if projects == nil {
		projects = []Project{}
	}
	return r.writeKey(ctx, KeyProjects, projects)
}

// SaveTasks replaces the task collection
func (r *Repository) SaveTasks(ctx context.Context, tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	return r.writeKey(ctx, KeyTasks, tasks)
}

// SaveLinkMap replaces the project -> goal index
func (r *Repository) SaveLinkMap(ctx context.Context, m LinkMap) error {
	return r.writeKey(ctx, KeyLinkMap, m)
}

// Save writes all four keys concurrently. Writes are independent: a failed
// write neither cancels nor rolls back the others, and the first error is
// returned once all of them finish.
func (r *Repository) Save(ctx context.Context, snap Snapshot) error {
	var g errgroup.Group
	g.Go(guard(KeyGoals, func() error { return r.SaveGoals(ctx, snap.Goals) }))
	g.Go(guard(KeyProjects, func() error { return r.SaveProjects(ctx, snap.Projects) }))
	g.Go(guard(KeyTasks, func() error { return r.SaveTasks(ctx, snap.Tasks) }))
	g.Go(guard(KeyLinkMap, func() error { return r.SaveLinkMap(ctx, snap.LinkMap) }))
	return g.Wait()
}

// ClearDependents overwrites projects and tasks with [] and the link map
// with {}, concurrently and independently. Goals are not touched.
func (r *Repository) ClearDependents(ctx context.Context) error {
	var g errgroup.Group
	g.Go(guard(KeyProjects, func() error { return r.SaveProjects(ctx, nil) }))
	g.Go(guard(KeyTasks, func() error { return r.SaveTasks(ctx, nil) }))
	g.Go(guard(KeyLinkMap, func() error { return r.SaveLinkMap(ctx, LinkMap{}) }))
	return g.Wait()
}

// dump is the export/import document layout
type dump struct {
	Goals    []Goal    `json:"goals"`
	Projects []Project `json:"projects"`
	Tasks    []Task    `json:"tasks"`
	LinkMap  LinkMap   `json:"projectGoalLinkMap"`
}

// Export returns all four keys as one indented JSON document
func (r *Repository) Export(ctx context.Context) ([]byte, error) {
	snap, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(dump{
		Goals:    snap.Goals,
		Projects: snap.Projects,
		Tasks:    snap.Tasks,
		LinkMap:  snap.LinkMap,
	}, "", "  ")
}

// Import replaces all four keys from a document produced by Export.
// Unlike loading, a malformed document is an error.
func (r *Repository) Import(ctx context.Context, data []byte) (Counts, error) {
	var d dump
	if err := json.Unmarshal(data, &d); err != nil {
		return Counts{}, fmt.Errorf("failed to parse import document: %w", err)
	}
	snap := Snapshot{Goals: d.Goals, Projects: d.Projects, Tasks: d.Tasks, LinkMap: d.LinkMap}
	if err := r.Save(ctx, snap); err != nil {
		return Counts{}, err
	}
	return snap.Counts(), nil
}
