package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vthunder/goalstate/internal/logging"
)

// RegisterAll registers all MCP tools with the given server and dependencies.
func RegisterAll(s *server.MCPServer, deps *Dependencies) {
	registerReconcileTools(s, deps)

	if deps.StateInspector != nil {
		registerStateTools(s, deps)
	}
}

type handler func(ctx context.Context, args map[string]any) (any, error)

// orNil keeps a typed nil pointer from becoming a non-nil interface
func orNil[T any](v *T, err error) (any, error) {
	if v == nil {
		return nil, err
	}
	return v, err
}

// wrap runs h, reports the call, and returns its result as indented JSON text
func wrap(name string, deps *Dependencies, h handler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.OnMCPToolCall != nil {
			deps.OnMCPToolCall(name)
		}
		args, _ := req.Params.Arguments.(map[string]any)

		result, err := h(ctx, args)
		if result == nil && err != nil {
			logging.Warn("mcp", "%s failed: %s", name, logging.Truncate(err.Error(), 200))
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, merr := json.MarshalIndent(result, "", "  ")
		if merr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", merr)), nil
		}
		if err != nil {
			// structured failure result: keep the body so callers see the phase
			logging.Warn("mcp", "%s failed: %s", name, logging.Truncate(err.Error(), 200))
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func registerReconcileTools(s *server.MCPServer, deps *Dependencies) {
	// gtd_reconcile - repair goal/project/task references
	s.AddTool(mcp.NewTool("gtd_reconcile",
		mcp.WithDescription("Repair the local goal store: drop embedded task lists from projects, remove projects whose goal no longer exists, tasks whose project was removed or never set, and stale project-to-goal link entries. Writes the result back and returns counts of what was removed."),
	), wrap("gtd_reconcile", deps, func(ctx context.Context, _ map[string]any) (any, error) {
		res, err := deps.Reconciler.Reconcile(ctx)
		return orNil(res, err)
	}))

	// gtd_reconcile_preview - same computation, nothing written
	s.AddTool(mcp.NewTool("gtd_reconcile_preview",
		mcp.WithDescription("Show what gtd_reconcile would remove without writing anything."),
	), wrap("gtd_reconcile_preview", deps, func(ctx context.Context, _ map[string]any) (any, error) {
		res, err := deps.Reconciler.Preview(ctx)
		return orNil(res, err)
	}))

	// gtd_nuclear_clear - empty dependents when no goal exists
	s.AddTool(mcp.NewTool("gtd_nuclear_clear",
		mcp.WithDescription("If there are no goals at all, delete every project, task and link map entry. With any goal present nothing changes and the action is no_cleanup_needed."),
	), wrap("gtd_nuclear_clear", deps, func(ctx context.Context, _ map[string]any) (any, error) {
		res, err := deps.Reconciler.NuclearClearIfNoGoals(ctx)
		return orNil(res, err)
	}))
}

func registerStateTools(s *server.MCPServer, deps *Dependencies) {
	s.AddTool(mcp.NewTool("state_summary",
		mcp.WithDescription("Count goals, projects, tasks and link map entries in the local store."),
	), wrap("state_summary", deps, func(ctx context.Context, _ map[string]any) (any, error) {
		res, err := deps.StateInspector.Summary(ctx)
		return orNil(res, err)
	}))

	s.AddTool(mcp.NewTool("state_health",
		mcp.WithDescription("Check the local store for broken references and embedded task lists, with recommendations."),
		mcp.WithBoolean("verbose",
			mcp.Description("Include every individual violation. Default: false"),
		),
	), wrap("state_health", deps, func(ctx context.Context, args map[string]any) (any, error) {
		report, err := deps.StateInspector.Health(ctx)
		if err != nil {
			return nil, err
		}
		if verbose, _ := args["verbose"].(bool); !verbose {
			report.Violations = nil
		}
		return report, nil
	}))
}
