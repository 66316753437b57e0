// Package spec acquires REST API descriptions and normalizes them into a single
// OpenAPI 3 shape, whatever version the source document was written in.
package spec

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// Source says where a description lives. When several locations are set the
// highest-priority one wins: File, then URL, then DocsURL.
type Source struct {
	Name    string
	File    string
	URL     string
	DocsURL string
	// BaseURL overrides every server entry in the document.
	BaseURL string
}

// Document is a loaded, normalized API description. It is not modified after Load returns.
type Document struct {
	Title       string
	Description string
	APIVersion  string
	// SpecVersion is the version tag of the source document, "2.0" or "3.x.y".
	SpecVersion string
	BaseURL     string
	// SourceURL is where the description was fetched from; empty for files.
	SourceURL string
	// Paths lists path templates in document order.
	Paths []string
	// Unresolved lists operations removed during loading.
	Unresolved []*UnresolvedRefError

	API *openapi3.T
}

// IsSwagger reports whether the source document was Swagger 2.0.
func (d *Document) IsSwagger() bool {
	return d.SpecVersion == "2.0"
}
