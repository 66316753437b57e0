package mcp

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/generic-mcp/internal/dispatch"
)

// errorPayload is the JSON body of an error result.
type errorPayload struct {
	Error   string                `json:"error"`
	Message string                `json:"message"`
	Status  int                   `json:"status,omitempty"`
	Body    string                `json:"body,omitempty"`
	Fields  []dispatch.FieldError `json:"fields,omitempty"`
}

// errorResult creates an MCP error result describing err.
func errorResult(err error) *mcp.CallToolResult {
	payload := errorPayload{
		Error:   dispatch.KindOf(err),
		Message: err.Error(),
	}

	var remote *dispatch.RemoteError
	if errors.As(err, &remote) {
		payload.Status = remote.Status
		payload.Body = remote.Body
	}
	var argErr *dispatch.ArgumentError
	if errors.As(err, &argErr) {
		payload.Fields = argErr.Fields
	}

	text, mErr := json.Marshal(payload)
	if mErr != nil {
		text = []byte(err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(string(text)),
		},
		IsError: true,
	}
}
