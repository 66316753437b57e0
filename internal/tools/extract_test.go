package tools

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/generic-mcp/internal/spec"
)

func TestExtract_DocumentOrder(t *testing.T) {
	eps, warnings := Extract(parseFixture(t, "items_v3.yaml"))

	assert.Equal(t, []string{
		"GET /items",
		"POST /items",
		"GET /items/{id}",
		"DELETE /items/{id}",
		"GET /health",
	}, endpointKeys(eps))

	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Equal(t, "/remote", w.Path)
		assert.True(t, errors.Is(w.Err, spec.ErrUnresolvedReference), "warning %s should wrap ErrUnresolvedReference", w)
	}
}

func TestExtract_MethodOrderWithinPath(t *testing.T) {
	doc := parseInline(t, `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /things:
    trace: {responses: {"200": {description: ok}}}
    delete: {responses: {"200": {description: ok}}}
    options: {responses: {"200": {description: ok}}}
    patch: {responses: {"200": {description: ok}}}
    get: {responses: {"200": {description: ok}}}
    head: {responses: {"200": {description: ok}}}
    put: {responses: {"200": {description: ok}}}
    post: {responses: {"200": {description: ok}}}
`)
	eps, _ := Extract(doc)

	var methods []string
	for _, ep := range eps {
		methods = append(methods, ep.Method)
	}
	assert.Equal(t, []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE"}, methods)
}

func TestExtract_PathParametersAlwaysRequired(t *testing.T) {
	doc := parseInline(t, `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /users/{userId}/posts/{postId}:
    get:
      operationId: getPost
      parameters:
        - {name: userId, in: path, required: false, schema: {type: string}}
        - {name: postId, in: path, schema: {type: integer}}
        - {name: expand, in: query, schema: {type: boolean}}
      responses: {"200": {description: ok}}
`)
	eps, warnings := Extract(doc)
	require.Empty(t, warnings)
	require.Len(t, eps, 1)

	for _, p := range eps[0].ParametersIn(LocationPath) {
		assert.True(t, p.Required, "path parameter %s must be required", p.Name)
	}

	schema := SchemaFor(eps[0])
	assert.Equal(t, []string{"userId", "postId"}, schema.Required())
}

func TestExtract_OperationParameterOverridesPathLevel(t *testing.T) {
	doc := parseInline(t, `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /items:
    parameters:
      - {name: limit, in: query, description: shared, schema: {type: integer}}
      - {name: X-Trace, in: header, schema: {type: string}}
    get:
      parameters:
        - {name: limit, in: query, required: true, description: own, schema: {type: string}}
      responses: {"200": {description: ok}}
`)
	eps, _ := Extract(doc)
	require.Len(t, eps, 1)

	query := eps[0].ParametersIn(LocationQuery)
	require.Len(t, query, 1)
	assert.Equal(t, "own", query[0].Description)
	assert.True(t, query[0].Required)
	assert.Equal(t, []string{"string"}, schemaTypes(query[0].Schema))

	assert.Len(t, eps[0].ParametersIn(LocationHeader), 1)
}

func TestExtract_RequestBodyMediaTypes(t *testing.T) {
	doc := parseInline(t, `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /upload:
    post:
      requestBody:
        content:
          multipart/form-data:
            schema: {type: object, properties: {file: {type: string, format: binary}}}
      responses: {"200": {description: ok}}
  /vendor:
    post:
      requestBody:
        content:
          text/plain:
            schema: {type: string}
          application/vnd.api+json:
            schema: {type: object, properties: {data: {type: object}}}
      responses: {"200": {description: ok}}
  /plain:
    post:
      requestBody:
        content:
          application/xml:
            schema: {type: object}
          application/json:
            schema: {type: object, properties: {ok: {type: boolean}}}
      responses: {"200": {description: ok}}
`)
	eps, warnings := Extract(doc)
	require.Len(t, eps, 3)

	upload := findEndpoint(t, eps, "POST /upload")
	require.NotNil(t, upload.Body)
	assert.True(t, upload.Body.Unsupported)
	assert.Nil(t, upload.Body.Schema)
	assert.Empty(t, SchemaFor(upload).Properties)

	require.Len(t, warnings, 1)
	assert.Equal(t, "/upload", warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "multipart/form-data")

	vendor := findEndpoint(t, eps, "POST /vendor")
	assert.Equal(t, "application/vnd.api+json", vendor.Body.ContentType)
	assert.False(t, vendor.Body.Unsupported)

	plain := findEndpoint(t, eps, "POST /plain")
	assert.Equal(t, "application/json", plain.Body.ContentType)
}

func TestExtract_PlaceholderMismatchExcludesEndpoint(t *testing.T) {
	doc := parseInline(t, `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /orphans/{id}:
    get:
      responses: {"200": {description: ok}}
  /extra:
    get:
      parameters:
        - {name: id, in: path, required: true, schema: {type: string}}
      responses: {"200": {description: ok}}
  /fine:
    get:
      responses: {"200": {description: ok}}
`)
	eps, warnings := Extract(doc)

	assert.Equal(t, []string{"GET /fine"}, endpointKeys(eps))
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.True(t, errors.Is(w.Err, ErrInvalidEndpoint), "unexpected warning %s", w)
		assert.True(t, strings.HasPrefix(w.Message, "excluded"))
	}
}

func TestExtract_ResponseType(t *testing.T) {
	eps, _ := Extract(parseFixture(t, "items_v3.yaml"))

	assert.Equal(t, "array", findEndpoint(t, eps, "GET /items").ResponseType)
	assert.Equal(t, "object", findEndpoint(t, eps, "GET /items/{id}").ResponseType)
	assert.Equal(t, "", findEndpoint(t, eps, "GET /health").ResponseType)
}

func TestExtract_SwaggerMatchesOpenAPI3(t *testing.T) {
	v3, _ := Extract(parseFixture(t, "items_v3.yaml"))
	v2, _ := Extract(parseFixture(t, "items_v2.json"))

	require.Equal(t, endpointKeys(v3), endpointKeys(v2))

	for i := range v3 {
		a, b := v3[i], v2[i]
		assert.Equal(t, a.OperationID, b.OperationID, a.Key())
		assert.Equal(t, a.Tags, b.Tags, a.Key())

		sa, sb := SchemaFor(a), SchemaFor(b)
		assert.Equal(t, sa.JSONSchema(), sb.JSONSchema(), "input schema of %s", a.Key())
		for _, p := range sa.Properties {
			q, ok := sb.Lookup(p.Name)
			if assert.True(t, ok, "%s: %s missing from swagger form", a.Key(), p.Name) {
				assert.Equal(t, p.In, q.In, "%s: location of %s", a.Key(), p.Name)
			}
		}
	}
}
