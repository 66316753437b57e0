package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/generic-mcp/internal/common"
)

// NewServer builds the MCP server with one tool per backend tool plus
// get_version, unless an API tool already uses that name.
func NewServer(name, version string, b Backend, sources func() []SourceStatus, logger *common.Logger) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(
		name,
		version,
		mcpserver.WithToolCapabilities(true),
	)

	count := RegisterTools(s, b, logger)

	versionTaken := false
	for _, def := range b.Tools() {
		if def.Name == VersionToolName {
			versionTaken = true
			break
		}
	}
	if versionTaken {
		logger.Warn().Str("tool", VersionToolName).Msg("API defines a tool with the built-in version tool name, built-in tool not registered")
	} else {
		s.AddTool(VersionTool(), VersionToolHandler(sources))
	}

	logger.Info().Int("tools", count).Msg("MCP server initialized")
	return s
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler serves s over streamable HTTP without sessions.
func NewHandler(s *mcpserver.MCPServer, logger *common.Logger) *Handler {
	return &Handler{
		streamable: mcpserver.NewStreamableHTTPServer(s, mcpserver.WithStateLess(true)),
		logger:     logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
