package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/generic-mcp/internal/common"
	"github.com/bobmcallan/generic-mcp/internal/dispatch"
	"github.com/bobmcallan/generic-mcp/internal/tools"
)

// Backend supplies the tools to expose and executes calls to them.
type Backend interface {
	Tools() []*tools.ToolDefinition
	Invoke(ctx context.Context, name string, args map[string]any) (*dispatch.Result, error)
}

// BuildMCPTool converts a tool definition into an mcp.Tool carrying its JSON input schema as-is.
func BuildMCPTool(def *tools.ToolDefinition) mcp.Tool {
	tool := mcp.NewToolWithRawSchema(def.Name, def.Description, def.InputSchema())
	if ep := def.Endpoint; ep != nil {
		readOnly := ep.Method == "GET" || ep.Method == "HEAD"
		tool.Annotations.ReadOnlyHint = &readOnly
		if ep.Method == "DELETE" {
			destructive := true
			tool.Annotations.DestructiveHint = &destructive
		}
	}
	return tool
}

// RegisterTools registers every backend tool on s and returns how many were added.
func RegisterTools(s *server.MCPServer, b Backend, logger *common.Logger) int {
	defs := b.Tools()
	for _, def := range defs {
		s.AddTool(BuildMCPTool(def), ToolHandler(b, def.Name, logger))
	}
	return len(defs)
}
