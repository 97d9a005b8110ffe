// Package activity keeps an append-only JSONL history of repair runs next
// to the store, so a later reader can see what was removed and when.
package activity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vthunder/goalstate/internal/gtd"
	"github.com/vthunder/goalstate/internal/reconcile"
)

// FileName is the history file inside the state directory
const FileName = "activity.jsonl"

// Type identifies what kind of activity this is
type Type string

const (
	TypeReconcile Type = "reconcile" // Reconcile wrote its result
	TypeNuclear   Type = "nuclear"   // NuclearClearIfNoGoals ran
	TypeImport    Type = "import"    // All four keys replaced from a document
	TypeError     Type = "error"     // Something went wrong
)

// Entry represents a single activity log entry
type Entry struct {
	Timestamp time.Time      `json:"ts"`
	Type      Type           `json:"type"`
	Summary   string         `json:"summary"`
	RunID     string         `json:"run_id,omitempty"`
	Phase     string         `json:"phase,omitempty"` // where a failed run stopped
	Data      map[string]any `json:"data,omitempty"`  // Structured details
}

// Log is the activity logger
type Log struct {
	path string
	mu   sync.Mutex
}

// New creates an activity logger writing under statePath
func New(statePath string) *Log {
	return &Log{
		path: filepath.Join(statePath, FileName),
	}
}

// Log appends an entry to the activity log
func (l *Log) Log(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

func countsData(c gtd.Counts) map[string]any {
	return map[string]any{
		"goals":          c.Goals,
		"projects":       c.Projects,
		"tasks":          c.Tasks,
		"linkMapEntries": c.LinkMapEntries,
	}
}

// LogReconcile records a reconcile run. Previews are not recorded.
func (l *Log) LogReconcile(rep *reconcile.Report) error {
	if rep == nil || rep.DryRun {
		return nil
	}
	if !rep.Success {
		return l.Log(Entry{
			Type:    TypeError,
			Summary: "reconcile failed: " + rep.Error,
			RunID:   rep.RunID,
			Phase:   rep.Phase,
		})
	}
	return l.Log(Entry{
		Type: TypeReconcile,
		Summary: fmt.Sprintf("removed %d embedded lists, %d projects, %d tasks, %d links",
			rep.ProjectsWithEmbeddedTasksRemoved, rep.OrphanedProjectsRemoved,
			rep.OrphanedTasksRemoved, rep.LinkMapEntriesRemoved),
		RunID: rep.RunID,
		Data: map[string]any{
			"projectsWithEmbeddedTasksRemoved": rep.ProjectsWithEmbeddedTasksRemoved,
			"embeddedTasksPromoted":            rep.EmbeddedTasksPromoted,
			"orphanedProjectsRemoved":          rep.OrphanedProjectsRemoved,
			"orphanedTasksRemoved":             rep.OrphanedTasksRemoved,
			"linkMapEntriesRemoved":            rep.LinkMapEntriesRemoved,
			"finalCounts":                      countsData(rep.FinalCounts),
		},
	})
}

// LogNuclear records a nuclear cleanup. A no-op run is recorded too.
func (l *Log) LogNuclear(res *reconcile.NuclearResult) error {
	if res == nil {
		return nil
	}
	if !res.Success {
		return l.Log(Entry{Type: TypeError, Summary: "nuclear cleanup failed: " + res.Error})
	}
	entry := Entry{Type: TypeNuclear, Summary: res.Action}
	if res.Removed != nil {
		entry.Data = map[string]any{"removed": countsData(*res.Removed)}
	}
	return l.Log(entry)
}

// LogImport records an import that replaced the store contents
func (l *Log) LogImport(source string, counts gtd.Counts) error {
	return l.Log(Entry{
		Type:    TypeImport,
		Summary: "imported " + source,
		Data:    countsData(counts),
	})
}

// Recent returns the last n entries
func (l *Log) Recent(n int) ([]Entry, error) {
	entries, err := l.readAll()
	if err != nil {
		return nil, err
	}

	if n <= 0 || n >= len(entries) {
		return entries, nil
	}
	return entries[len(entries)-n:], nil
}

// Types lists every entry type the log writes
var Types = []Type{TypeReconcile, TypeNuclear, TypeImport, TypeError}

// ByType returns up to limit entries of a specific type, most recent first.
// A limit of 0 or less returns all of them.
func (l *Log) ByType(t Type, limit int) ([]Entry, error) {
	entries, err := l.readAll()
	if err != nil {
		return nil, err
	}

	var result []Entry
	for i := len(entries) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		if entries[i].Type == t {
			result = append(result, entries[i])
		}
	}
	return result, nil
}

// readAll reads all entries from the log file
func (l *Log) readAll() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue // skip malformed entries
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
