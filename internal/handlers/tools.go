package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bobmcallan/generic-mcp/internal/common"
)

// ToolView is one tool as listed by GET /api/tools.
type ToolView struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Method      string          `json:"method"`
	Path        string          `json:"path"`
	Tags        []string        `json:"tags,omitempty"`
	Deprecated  bool            `json:"deprecated,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// SourceView is one loaded API and its tools.
type SourceView struct {
	Name     string     `json:"name"`
	Title    string     `json:"title,omitempty"`
	BaseURL  string     `json:"base_url"`
	Warnings []string   `json:"warnings,omitempty"`
	Tools    []ToolView `json:"tools"`
}

// ToolsHandler lists the tool catalog.
type ToolsHandler struct {
	logger  *common.Logger
	sources func() []SourceView
}

// NewToolsHandler creates a handler backed by the sources func.
func NewToolsHandler(logger *common.Logger, sources func() []SourceView) *ToolsHandler {
	return &ToolsHandler{logger: logger, sources: sources}
}

// ServeHTTP handles GET /api/tools. An optional ?tag= keeps only tools carrying that tag.
func (h *ToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	var sources []SourceView
	if h.sources != nil {
		sources = h.sources()
	}
	tag := strings.TrimSpace(r.URL.Query().Get("tag"))

	out := make([]SourceView, 0, len(sources))
	count := 0
	for _, s := range sources {
		view := s
		view.Tools = make([]ToolView, 0, len(s.Tools))
		for _, t := range s.Tools {
			if tag != "" && !hasTag(t.Tags, tag) {
				continue
			}
			view.Tools = append(view.Tools, t)
		}
		count += len(view.Tools)
		out = append(out, view)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"count":   count,
		"sources": out,
	})
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
