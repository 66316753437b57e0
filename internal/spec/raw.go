package spec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawDocument is the decoded, not yet normalized source document.
type rawDocument struct {
	root      map[string]any
	pathOrder []string
	version   string
	swagger   bool
}

// decodeRaw parses JSON or YAML and identifies the description format.
// Path order is captured here because the normalized model keeps paths in a map.
func decodeRaw(data []byte) (*rawDocument, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if len(trimmed) == 0 {
		return nil, invalid("empty document")
	}

	raw := &rawDocument{}
	versions := map[string]string{}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&raw.root); err != nil {
			return nil, invalid("parse JSON: %v", err)
		}
		order, err := jsonPathOrder(trimmed)
		if err != nil {
			return nil, invalid("parse JSON: %v", err)
		}
		raw.pathOrder = order
		for _, key := range []string{"openapi", "swagger"} {
			if v, ok := raw.root[key]; ok {
				versions[key] = scalarString(v)
			}
		}
	} else {
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, invalid("parse YAML: %v", err)
		}
		if node.Kind != yaml.DocumentNode || len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
			return nil, invalid("document root is not an object")
		}
		top := node.Content[0]
		var v any
		if err := top.Decode(&v); err != nil {
			return nil, invalid("decode YAML: %v", err)
		}
		root, ok := normalizeYAML(v).(map[string]any)
		if !ok {
			return nil, invalid("document root is not an object")
		}
		raw.root = root
		raw.pathOrder = yamlPathOrder(top)
		for i := 0; i+1 < len(top.Content); i += 2 {
			key := top.Content[i].Value
			if key == "openapi" || key == "swagger" {
				versions[key] = top.Content[i+1].Value
			}
		}
	}

	switch {
	case versions["openapi"] != "":
		v := versions["openapi"]
		if !strings.HasPrefix(v, "3.") {
			return nil, invalid("unsupported openapi version %q", v)
		}
		raw.version = v
		raw.root["openapi"] = v
	case versions["swagger"] != "":
		v := versions["swagger"]
		if v != "2.0" && v != "2" {
			return nil, invalid("unsupported swagger version %q", v)
		}
		raw.version = "2.0"
		raw.swagger = true
		raw.root["swagger"] = "2.0"
	default:
		return nil, invalid("document has neither an openapi nor a swagger version field")
	}

	return raw, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// normalizeYAML converts yaml.v3 generic values into JSON-compatible ones.
// Mappings with non-string keys (response codes written as 200:) become map[string]any.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}

func yamlPathOrder(top *yaml.Node) []string {
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value != "paths" {
			continue
		}
		paths := top.Content[i+1]
		if paths.Kind != yaml.MappingNode {
			return nil
		}
		order := make([]string, 0, len(paths.Content)/2)
		for j := 0; j+1 < len(paths.Content); j += 2 {
			order = append(order, paths.Content[j].Value)
		}
		return order
	}
	return nil
}

// jsonPathOrder walks the token stream to recover the key order of the top-level paths object.
func jsonPathOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("document root is not an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		if key != "paths" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}

		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if tok != json.Delim('{') {
			return nil, nil
		}
		var order []string
		for dec.More() {
			pathTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			p, _ := pathTok.(string)
			order = append(order, p)
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
		}
		return order, nil
	}
	return nil, nil
}
