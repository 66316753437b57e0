package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFor_LocationsAndPrecedence(t *testing.T) {
	doc := parseInline(t, `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /items/{id}:
    put:
      operationId: updateItem
      parameters:
        - {name: id, in: path, required: true, schema: {type: string}}
        - {name: id, in: query, schema: {type: string}}
        - {name: dryRun, in: query, schema: {type: boolean}}
        - {name: X-Request-Id, in: header, required: true, schema: {type: string}}
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                id: {type: string}
                name: {type: string}
                created: {type: string, readOnly: true}
      responses: {"200": {description: ok}}
`)
	eps, _ := Extract(doc)
	require.Len(t, eps, 1)
	schema := SchemaFor(eps[0])

	type row struct {
		name, wire string
		in         Location
		required   bool
	}
	var got []row
	for _, p := range schema.Properties {
		got = append(got, row{p.Name, p.WireName, p.In, p.Required})
	}
	assert.Equal(t, []row{
		{"id", "id", LocationPath, true},
		{"id_query", "id", LocationQuery, false},
		{"dryRun", "dryRun", LocationQuery, false},
		{"id_body", "id", LocationBody, false},
		{"name", "name", LocationBody, true},
	}, got)

	_, hasHeader := schema.Lookup("X-Request-Id")
	assert.False(t, hasHeader, "header parameters are not tool arguments")
	_, hasReadOnly := schema.Lookup("created")
	assert.False(t, hasReadOnly)

	js := schema.JSONSchema()
	assert.Equal(t, "object", js["type"])
	assert.Equal(t, false, js["additionalProperties"])
	assert.Equal(t, []string{"id", "name"}, js["required"])
}

func TestSchemaFor_NonObjectBody(t *testing.T) {
	doc := parseInline(t, `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /tags:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema: {type: array, items: {type: string}}
      responses: {"200": {description: ok}}
  /notes:
    post:
      requestBody:
        content:
          application/json:
            schema: {type: object, additionalProperties: true}
      responses: {"200": {description: ok}}
`)
	eps, _ := Extract(doc)
	require.Len(t, eps, 2)

	arr := SchemaFor(findEndpoint(t, eps, "POST /tags"))
	require.Len(t, arr.Properties, 1)
	body := arr.Properties[0]
	assert.Equal(t, BodyProperty, body.Name)
	assert.Equal(t, "", body.WireName)
	assert.Equal(t, LocationBody, body.In)
	assert.True(t, body.Required)
	assert.Equal(t, "array", body.Schema["type"])

	free := SchemaFor(findEndpoint(t, eps, "POST /notes"))
	require.Len(t, free.Properties, 1)
	assert.Equal(t, BodyProperty, free.Properties[0].Name)
	assert.False(t, free.Properties[0].Required)
}

func TestSchemaFor_AllOfAndNullable(t *testing.T) {
	doc := parseInline(t, `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /pets:
    post:
      requestBody:
        content:
          application/json:
            schema:
              allOf:
                - $ref: '#/components/schemas/Base'
                - type: object
                  required: [kind]
                  properties:
                    kind: {type: string, enum: [cat, dog]}
                    nickname: {type: string, nullable: true}
      responses: {"200": {description: ok}}
components:
  schemas:
    Base:
      type: object
      required: [name]
      properties:
        name: {type: string, minLength: 1}
`)
	eps, _ := Extract(doc)
	require.Len(t, eps, 1)
	schema := SchemaFor(eps[0])

	assert.Equal(t, []string{"kind", "name"}, schema.Required())

	nick, ok := schema.Lookup("nickname")
	require.True(t, ok)
	assert.Equal(t, []string{"string", "null"}, nick.Schema["type"])

	kind, _ := schema.Lookup("kind")
	assert.Equal(t, []any{"cat", "dog"}, kind.Schema["enum"])
}

func TestSchemaFor_RecursiveSchemaTerminates(t *testing.T) {
	doc := parseInline(t, `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /trees:
    post:
      requestBody:
        content:
          application/json:
            schema: {$ref: '#/components/schemas/Node'}
      responses: {"200": {description: ok}}
components:
  schemas:
    Node:
      type: object
      properties:
        label: {type: string}
        children:
          type: array
          items: {$ref: '#/components/schemas/Node'}
`)
	eps, _ := Extract(doc)
	require.Len(t, eps, 1)
	schema := SchemaFor(eps[0])

	children, ok := schema.Lookup("children")
	require.True(t, ok)
	items, ok := children.Schema["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", items["type"])

	_, err := json.Marshal(schema.JSONSchema())
	assert.NoError(t, err)
}

func TestSchemaFor_ParameterWithoutSchemaDefaultsToString(t *testing.T) {
	ep := &Endpoint{
		Path:   "/x/{slug}",
		Method: "GET",
		Parameters: []Parameter{
			{Name: "slug", In: LocationPath, Required: true, Description: "The slug"},
		},
	}
	p, ok := SchemaFor(ep).Lookup("slug")
	require.True(t, ok)
	assert.Equal(t, "string", p.Schema["type"])
	assert.Equal(t, "The slug", p.Schema["description"])
}
