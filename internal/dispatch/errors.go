package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/generic-mcp/internal/spec"
)

// Invocation error classes. Compare with errors.Is.
var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrRemote           = errors.New("remote error")
	ErrTransport        = errors.New("transport error")
)

// Stable error kind names.
const (
	KindSpecUnavailable      = "SpecUnavailable"
	KindSpecInvalid          = "SpecInvalid"
	KindUnresolvedReference  = "UnresolvedReference"
	KindInvalidConfiguration = "InvalidConfiguration"
	KindToolNotFound         = "ToolNotFound"
	KindInvalidArguments     = "InvalidArguments"
	KindRemoteError          = "RemoteError"
	KindTransportError       = "TransportError"
	KindInternal             = "Internal"
)

// KindOf maps an error to its kind name, or "" for nil.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrToolNotFound):
		return KindToolNotFound
	case errors.Is(err, ErrInvalidArguments):
		return KindInvalidArguments
	case errors.Is(err, ErrRemote):
		return KindRemoteError
	case errors.Is(err, ErrTransport):
		return KindTransportError
	case errors.Is(err, spec.ErrSpecUnavailable):
		return KindSpecUnavailable
	case errors.Is(err, spec.ErrSpecInvalid):
		return KindSpecInvalid
	case errors.Is(err, spec.ErrUnresolvedReference):
		return KindUnresolvedReference
	case errors.Is(err, spec.ErrInvalidConfiguration):
		return KindInvalidConfiguration
	default:
		return KindInternal
	}
}

// FieldError is one argument that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ArgumentError lists every argument problem found before a request was made.
type ArgumentError struct {
	Tool   string
	Fields []FieldError
}

func (e *ArgumentError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Field == "" {
			parts[i] = f.Message
			continue
		}
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(parts, "; "))
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArguments }

// FieldNames returns the distinct offending argument names, sorted.
func (e *ArgumentError) FieldNames() []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range e.Fields {
		if f.Field != "" && !seen[f.Field] {
			seen[f.Field] = true
			out = append(out, f.Field)
		}
	}
	sort.Strings(out)
	return out
}

// maxErrorBodyInMessage bounds how much of a remote body Error() repeats.
const maxErrorBodyInMessage = 512

// RemoteError is a response with a status outside 2xx. Body holds the full response text.
type RemoteError struct {
	Status int
	Body   string
	Method string
	URL    string
}

func (e *RemoteError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > maxErrorBodyInMessage {
		body = body[:maxErrorBodyInMessage] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s %s returned HTTP %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s returned HTTP %d: %s", e.Method, e.URL, e.Status, body)
}

func (e *RemoteError) Unwrap() error { return ErrRemote }

// TransportError is a failure to get any response: connection, timeout or cancellation.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Method, e.URL, e.Err)
}

// Unwrap exposes both ErrTransport and the cause, so errors.Is(err, context.Canceled) works.
func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }
