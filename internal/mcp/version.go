package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/generic-mcp/internal/common"
)

// VersionToolName is the name of the built-in version tool.
const VersionToolName = "get_version"

// SourceStatus describes one loaded API for the version tool.
type SourceStatus struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Version string `json:"api_version,omitempty"`
	BaseURL string `json:"base_url"`
	Tools   int    `json:"tools"`
}

// versionInfo is the get_version result.
type versionInfo struct {
	Version string         `json:"version"`
	Build   string         `json:"build"`
	Commit  string         `json:"commit"`
	Sources []SourceStatus `json:"sources"`
}

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool(VersionToolName,
		mcp.WithDescription("Get the server version and the APIs it exposes. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports build metadata and the loaded sources.
func VersionToolHandler(sources func() []SourceStatus) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info := versionInfo{
			Version: common.GetVersion(),
			Build:   common.GetBuild(),
			Commit:  common.GetGitCommit(),
			Sources: []SourceStatus{},
		}
		if sources != nil {
			if s := sources(); s != nil {
				info.Sources = s
			}
		}

		out, err := json.Marshal(info)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent("failed to marshal version info")},
				IsError: true,
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(out))},
		}, nil
	}
}
