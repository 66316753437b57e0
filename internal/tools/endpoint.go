// Package tools derives a catalog of named, schema-described tools from a loaded API description.
package tools

import (
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrInvalidEndpoint marks an operation whose path placeholders and path parameters disagree.
var ErrInvalidEndpoint = errors.New("invalid endpoint")

// Location is where a value travels in the HTTP request.
type Location string

const (
	LocationPath   Location = "path"
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationCookie Location = "cookie"
	LocationBody   Location = "body"
)

// Parameter is one declared operation parameter after path/operation merging.
type Parameter struct {
	Name        string
	In          Location
	Required    bool
	Description string
	Schema      *openapi3.Schema
	Style       string
}

// Body is the JSON request body of an operation.
type Body struct {
	ContentType string
	Schema      *openapi3.Schema
	Required    bool
	// Unsupported is set when no JSON media type was declared; Schema is nil then.
	Unsupported bool
}

// Endpoint is one (path template, method) pair.
type Endpoint struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	Parameters  []Parameter
	Body        *Body
	// ResponseType is the JSON type of the first 200/201/204 response schema, if any.
	ResponseType string
}

// Key returns "METHOD /path".
func (e *Endpoint) Key() string {
	return e.Method + " " + e.Path
}

// ParametersIn returns the parameters declared at loc, in declaration order.
func (e *Endpoint) ParametersIn(loc Location) []Parameter {
	var out []Parameter
	for _, p := range e.Parameters {
		if p.In == loc {
			out = append(out, p)
		}
	}
	return out
}

// Warning is a per-endpoint problem that degraded or excluded one endpoint.
type Warning struct {
	Method  string
	Path    string
	Message string
	Err     error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s: %s", w.Method, w.Path, w.Message)
}
