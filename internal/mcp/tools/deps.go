// Package tools provides MCP tool registration with dependency injection.
package tools

import (
	"context"

	"github.com/vthunder/goalstate/internal/reconcile"
	"github.com/vthunder/goalstate/internal/state"
)

// Reconciler is the repair surface the tools call
type Reconciler interface {
	Reconcile(ctx context.Context) (*reconcile.Report, error)
	Preview(ctx context.Context) (*reconcile.Report, error)
	NuclearClearIfNoGoals(ctx context.Context) (*reconcile.NuclearResult, error)
}

// Dependencies holds all services that MCP tools may need.
// Optional fields may be nil.
type Dependencies struct {
	// Core services (required)
	Reconciler Reconciler

	// Optional services
	StateInspector *state.Inspector

	// If set, MCP tools will call this to notify that they've been executed
	OnMCPToolCall func(toolName string)
}
