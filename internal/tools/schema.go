package tools

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// BodyProperty is the argument name used when the request body is not an object.
const BodyProperty = "body"

// Property is one argument of a tool, tagged with where it goes in the request.
type Property struct {
	// Name is the argument name callers use.
	Name string
	// WireName is the parameter or body field name sent to the API. It is empty
	// for the whole-body property.
	WireName string
	In       Location
	Required bool
	Schema   map[string]any
}

// InputSchema is the merged object schema of a tool's arguments.
type InputSchema struct {
	Properties []Property
}

// Lookup returns the property with the given argument name.
func (s *InputSchema) Lookup(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Required lists required argument names in property order.
func (s *InputSchema) Required() []string {
	var out []string
	for _, p := range s.Properties {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// JSONSchema renders the schema as a JSON Schema object. Unknown arguments are not allowed.
func (s *InputSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for _, p := range s.Properties {
		props[p.Name] = p.Schema
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if req := s.Required(); len(req) > 0 {
		out["required"] = req
	}
	return out
}

// SchemaFor merges an endpoint's path, query and body inputs into one object
// schema. Path parameters are always required. When a name is used by more than
// one location, path beats query beats body and the loser is renamed to
// "<name>_<location>".
func SchemaFor(ep *Endpoint) *InputSchema {
	s := &InputSchema{}
	taken := map[string]bool{}
	add := func(p Property) {
		name := p.Name
		if taken[name] {
			name = p.Name + "_" + string(p.In)
			for i := 2; taken[name]; i++ {
				name = fmt.Sprintf("%s_%s_%d", p.Name, p.In, i)
			}
		}
		taken[name] = true
		p.Name = name
		s.Properties = append(s.Properties, p)
	}

	for _, p := range ep.ParametersIn(LocationPath) {
		add(Property{Name: p.Name, WireName: p.Name, In: LocationPath, Required: true, Schema: parameterSchema(p)})
	}
	for _, p := range ep.ParametersIn(LocationQuery) {
		add(Property{Name: p.Name, WireName: p.Name, In: LocationQuery, Required: p.Required, Schema: parameterSchema(p)})
	}

	b := ep.Body
	if b == nil || b.Unsupported {
		return s
	}
	if b.Schema == nil {
		add(Property{Name: BodyProperty, In: LocationBody, Required: b.Required, Schema: map[string]any{}})
		return s
	}
	if props, required := objectProperties(b.Schema, 0); len(props) > 0 {
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ps := props[name]
			if ps.ReadOnly {
				continue
			}
			add(Property{Name: name, WireName: name, In: LocationBody, Required: required[name], Schema: toJSONSchema(ps, map[*openapi3.Schema]bool{})})
		}
		return s
	}
	add(Property{Name: BodyProperty, In: LocationBody, Required: b.Required, Schema: toJSONSchema(b.Schema, map[*openapi3.Schema]bool{})})
	return s
}

func parameterSchema(p Parameter) map[string]any {
	out := toJSONSchema(p.Schema, map[*openapi3.Schema]bool{})
	if len(out) == 0 {
		out["type"] = "string"
	}
	if _, ok := out["description"]; !ok && p.Description != "" {
		out["description"] = p.Description
	}
	return out
}

// objectProperties returns the properties of an object schema, including those
// contributed by allOf members.
func objectProperties(s *openapi3.Schema, depth int) (map[string]*openapi3.Schema, map[string]bool) {
	props := map[string]*openapi3.Schema{}
	required := map[string]bool{}
	if s == nil || depth > 8 {
		return props, required
	}
	types := schemaTypes(s)
	if len(types) > 0 && !contains(types, "object") {
		return props, required
	}

	for _, member := range s.AllOf {
		if member == nil || member.Value == nil {
			continue
		}
		mp, mr := objectProperties(member.Value, depth+1)
		for k, v := range mp {
			props[k] = v
		}
		for k := range mr {
			required[k] = true
		}
	}
	for name, ref := range s.Properties {
		if ref != nil && ref.Value != nil {
			props[name] = ref.Value
		}
	}
	for _, name := range s.Required {
		required[name] = true
	}
	return props, required
}

func schemaTypes(s *openapi3.Schema) []string {
	if s == nil || s.Type == nil {
		return nil
	}
	return []string(*s.Type)
}

// toJSONSchema converts an OpenAPI schema into a plain JSON Schema map. A
// schema already being converted higher up the stack is cut off as a bare object.
func toJSONSchema(s *openapi3.Schema, visiting map[*openapi3.Schema]bool) map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	if visiting[s] {
		out["type"] = "object"
		return out
	}
	visiting[s] = true
	defer delete(visiting, s)

	types := schemaTypes(s)
	if s.Nullable && len(types) > 0 && !contains(types, "null") {
		types = append(append([]string(nil), types...), "null")
	}
	switch len(types) {
	case 0:
	case 1:
		out["type"] = types[0]
	default:
		out["type"] = types
	}

	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Format != "" {
		out["format"] = s.Format
	}
	if len(s.Enum) > 0 {
		out["enum"] = append([]any(nil), s.Enum...)
	}
	if s.Default != nil {
		out["default"] = s.Default
	}
	if s.Pattern != "" {
		out["pattern"] = s.Pattern
	}
	if s.Min != nil {
		out["minimum"] = *s.Min
		if s.ExclusiveMin {
			out["exclusiveMinimum"] = true
		}
	}
	if s.Max != nil {
		out["maximum"] = *s.Max
		if s.ExclusiveMax {
			out["exclusiveMaximum"] = true
		}
	}
	if s.MinLength > 0 {
		out["minLength"] = s.MinLength
	}
	if s.MaxLength != nil {
		out["maxLength"] = *s.MaxLength
	}
	if s.MinItems > 0 {
		out["minItems"] = s.MinItems
	}
	if s.MaxItems != nil {
		out["maxItems"] = *s.MaxItems
	}

	if s.Items != nil && s.Items.Value != nil {
		out["items"] = toJSONSchema(s.Items.Value, visiting)
	}

	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, ref := range s.Properties {
			if ref != nil && ref.Value != nil {
				props[name] = toJSONSchema(ref.Value, visiting)
			}
		}
		out["properties"] = props
		if len(s.Required) > 0 {
			out["required"] = append([]string(nil), s.Required...)
		}
	}

	if ap := s.AdditionalProperties; ap.Has != nil {
		out["additionalProperties"] = *ap.Has
	} else if ap.Schema != nil && ap.Schema.Value != nil {
		out["additionalProperties"] = toJSONSchema(ap.Schema.Value, visiting)
	}

	for key, refs := range map[string]openapi3.SchemaRefs{"allOf": s.AllOf, "anyOf": s.AnyOf, "oneOf": s.OneOf} {
		if len(refs) == 0 {
			continue
		}
		list := make([]any, 0, len(refs))
		for _, ref := range refs {
			if ref != nil && ref.Value != nil {
				list = append(list, toJSONSchema(ref.Value, visiting))
			}
		}
		out[key] = list
	}

	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
