package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vthunder/goalstate/internal/gtd"
	"github.com/vthunder/goalstate/internal/kv"
	"github.com/vthunder/goalstate/internal/kv/kvtest"
	"github.com/vthunder/goalstate/internal/reconcile"
	"github.com/vthunder/goalstate/internal/state"
)

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	return res
}

func newDeps(t *testing.T) (*Dependencies, kv.Store) {
	t.Helper()
	store := kv.NewMemStore()
	kvtest.Seed(t, store, map[string]string{
		gtd.KeyGoals:    `[{"id":"g1"}]`,
		gtd.KeyProjects: `[{"id":"p1","goalId":"g1"},{"id":"p2","goalId":"gX"}]`,
		gtd.KeyTasks:    `[{"id":"t1","projectId":"p2"}]`,
	})
	repo := gtd.NewRepository(store)
	return &Dependencies{
		Reconciler:     reconcile.New(repo, reconcile.Options{}),
		StateInspector: state.NewInspector(repo, reconcile.Options{}),
	}, store
}

func TestReconcileTool(t *testing.T) {
	deps, store := newDeps(t)
	var called []string
	deps.OnMCPToolCall = func(name string) { called = append(called, name) }

	res := call(t, wrap("gtd_reconcile", deps, func(ctx context.Context, _ map[string]any) (any, error) {
		r, err := deps.Reconciler.Reconcile(ctx)
		return orNil(r, err)
	}), nil)

	assert.False(t, res.IsError)
	var rep reconcile.Report
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &rep))
	assert.True(t, rep.Success)
	assert.Equal(t, 1, rep.OrphanedProjectsRemoved)
	assert.Equal(t, 1, rep.OrphanedTasksRemoved)
	assert.Equal(t, []string{"gtd_reconcile"}, called)
	assert.Equal(t, `[{"id":"p1","goalId":"g1"}]`, kvtest.Raw(t, store, gtd.KeyProjects))
}

type failingReconciler struct{}

func (failingReconciler) Reconcile(context.Context) (*reconcile.Report, error) {
	return &reconcile.Report{Success: false, Error: "save: boom", Phase: "save"}, errors.New("save: boom")
}
func (failingReconciler) Preview(context.Context) (*reconcile.Report, error) { return nil, errors.New("no store") }
func (failingReconciler) NuclearClearIfNoGoals(context.Context) (*reconcile.NuclearResult, error) {
	return nil, errors.New("no store")
}

func TestFailuresBecomeToolErrors(t *testing.T) {
	deps := &Dependencies{Reconciler: failingReconciler{}}

	res := call(t, wrap("gtd_reconcile", deps, func(ctx context.Context, _ map[string]any) (any, error) {
		r, err := deps.Reconciler.Reconcile(ctx)
		return orNil(r, err)
	}), nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), `"phase": "save"`)

	res = call(t, wrap("gtd_reconcile_preview", deps, func(ctx context.Context, _ map[string]any) (any, error) {
		r, err := deps.Reconciler.Preview(ctx)
		return orNil(r, err)
	}), nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "no store", text(t, res))
}

func TestRegisterAll(t *testing.T) {
	deps, _ := newDeps(t)
	s := server.NewMCPServer("goalstate-test", "0.0.0", server.WithToolCapabilities(true))

	assert.NotPanics(t, func() { RegisterAll(s, deps) })
}
