package dispatch

import (
	"encoding/json"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/bobmcallan/generic-mcp/internal/tools"
)

// compileSchema prepares a tool's input schema for validation. A schema the
// validator cannot compile falls back to checking argument names and
// requiredness only.
func compileSchema(def *tools.ToolDefinition) (*gojsonschema.Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(def.InputSchema()))
	if err == nil {
		return compiled, nil
	}

	props := map[string]any{}
	for _, p := range def.Schema.Properties {
		props[p.Name] = map[string]any{}
	}
	fallback := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if req := def.Schema.Required(); len(req) > 0 {
		fallback["required"] = req
	}
	raw, mErr := json.Marshal(fallback)
	if mErr != nil {
		return nil, err
	}
	if compiled, fErr := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw)); fErr == nil {
		return compiled, err
	}
	return nil, err
}

// validateArguments checks args against the compiled schema and reports every
// failing field.
func validateArguments(tool string, schema *gojsonschema.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return &ArgumentError{Tool: tool, Fields: []FieldError{{Message: err.Error()}}}
	}
	if result.Valid() {
		return nil
	}

	fields := make([]FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		fields = append(fields, FieldError{Field: fieldName(re), Message: re.Description()})
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return &ArgumentError{Tool: tool, Fields: fields}
}

// fieldName returns the argument an error is about. Errors raised on the root
// object (missing or unknown properties) name the property in their details.
func fieldName(re gojsonschema.ResultError) string {
	field := re.Field()
	if field == "(root)" || field == "" {
		if p, ok := re.Details()["property"].(string); ok {
			return p
		}
		return ""
	}
	return field
}
