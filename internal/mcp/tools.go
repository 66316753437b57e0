package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/generic-mcp/internal/common"
)

// ToolHandler routes an MCP tool call to the backend. Invocation errors are
// returned as error results, never as protocol errors.
func ToolHandler(b Backend, name string, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := r.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		result, err := b.Invoke(ctx, name, args)
		if err != nil {
			logger.Debug().Str("tool", name).Str("error", err.Error()).Msg("tool call returned error result")
			return errorResult(err), nil
		}

		text := result.Text()
		if len(result.Body) == 0 {
			text = fmt.Sprintf(`{"status":%d}`, result.Status)
		}
		return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}, nil
	}
}
