package tools

import (
	"fmt"
	"mime"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bobmcallan/generic-mcp/internal/spec"
)

var methodRank = map[string]int{"GET": 0, "POST": 1, "PUT": 2, "PATCH": 3, "DELETE": 4}

var placeholderPattern = regexp.MustCompile(`\{([^{}/]+)\}`)

// Extract lists every endpoint in document path order. Within a path, methods
// come in the order GET, POST, PUT, PATCH, DELETE, then the rest alphabetically.
// Endpoints that cannot be described are skipped and reported as warnings.
func Extract(doc *spec.Document) ([]*Endpoint, []Warning) {
	var warnings []Warning
	for _, u := range doc.Unresolved {
		warnings = append(warnings, Warning{Method: u.Method, Path: u.Path, Message: "excluded: " + u.Error(), Err: u})
	}

	if doc.API == nil || doc.API.Paths == nil {
		return nil, warnings
	}

	var endpoints []*Endpoint
	for _, path := range doc.Paths {
		item := doc.API.Paths.Value(path)
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range sortedMethods(ops) {
			ep, warn, err := newEndpoint(path, method, item, ops[method])
			if err != nil {
				warnings = append(warnings, Warning{Method: method, Path: path, Message: "excluded: " + err.Error(), Err: err})
				continue
			}
			if warn != "" {
				warnings = append(warnings, Warning{Method: method, Path: path, Message: warn})
			}
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints, warnings
}

func sortedMethods(ops map[string]*openapi3.Operation) []string {
	methods := make([]string, 0, len(ops))
	for m, op := range ops {
		if op != nil {
			methods = append(methods, strings.ToUpper(m))
		}
	}
	sort.Slice(methods, func(i, j int) bool {
		ri, iKnown := methodRank[methods[i]]
		rj, jKnown := methodRank[methods[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return methods[i] < methods[j]
		}
	})
	return methods
}

// newEndpoint builds the descriptor for one operation. The returned string is a
// non-fatal warning.
func newEndpoint(path, method string, item *openapi3.PathItem, op *openapi3.Operation) (*Endpoint, string, error) {
	ep := &Endpoint{
		Path:        path,
		Method:      method,
		OperationID: op.OperationID,
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        append([]string(nil), op.Tags...),
		Deprecated:  op.Deprecated,
	}

	params, err := mergeParameters(item.Parameters, op.Parameters)
	if err != nil {
		return nil, "", err
	}
	ep.Parameters = params

	if err := checkPlaceholders(path, params); err != nil {
		return nil, "", err
	}

	var warn string
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		ep.Body = selectBody(op.RequestBody.Value)
		if ep.Body.Unsupported {
			warn = fmt.Sprintf("request body media type %q is not JSON; body schema left empty", ep.Body.ContentType)
		}
	}

	ep.ResponseType = responseType(op)
	return ep, warn, nil
}

// mergeParameters merges path-level and operation-level parameters. An
// operation parameter replaces a path-level one with the same name and location.
func mergeParameters(shared, own openapi3.Parameters) ([]Parameter, error) {
	var out []Parameter
	index := map[string]int{}

	add := func(refs openapi3.Parameters) error {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				return fmt.Errorf("%w: parameter reference not resolved", ErrInvalidEndpoint)
			}
			p := ref.Value
			if p.Name == "" {
				return fmt.Errorf("%w: parameter without a name", ErrInvalidEndpoint)
			}
			param := Parameter{
				Name:        p.Name,
				In:          Location(p.In),
				Required:    p.Required,
				Description: p.Description,
				Style:       p.Style,
			}
			if p.Schema != nil {
				param.Schema = p.Schema.Value
			} else if mt := firstJSONMedia(p.Content); mt != nil && mt.Schema != nil {
				param.Schema = mt.Schema.Value
			}
			if param.In == LocationPath {
				param.Required = true
			}

			key := string(param.In) + "\x00" + param.Name
			if i, ok := index[key]; ok {
				out[i] = param
				continue
			}
			index[key] = len(out)
			out = append(out, param)
		}
		return nil
	}

	if err := add(shared); err != nil {
		return nil, err
	}
	if err := add(own); err != nil {
		return nil, err
	}
	return out, nil
}

// checkPlaceholders enforces a one-to-one match between {x} placeholders and path parameters.
func checkPlaceholders(path string, params []Parameter) error {
	placeholders := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(path, -1) {
		placeholders[m[1]] = true
	}
	declared := map[string]bool{}
	for _, p := range params {
		if p.In == LocationPath {
			declared[p.Name] = true
		}
	}

	for name := range placeholders {
		if !declared[name] {
			return fmt.Errorf("%w: placeholder {%s} has no path parameter", ErrInvalidEndpoint, name)
		}
	}
	for name := range declared {
		if !placeholders[name] {
			return fmt.Errorf("%w: path parameter %q has no placeholder", ErrInvalidEndpoint, name)
		}
	}
	return nil
}

// selectBody picks the JSON media type of a request body: application/json
// when declared, otherwise the first JSON-compatible type in sorted order.
func selectBody(rb *openapi3.RequestBody) *Body {
	body := &Body{Required: rb.Required}

	types := make([]string, 0, len(rb.Content))
	for ct := range rb.Content {
		types = append(types, ct)
	}
	sort.Strings(types)

	chosen := ""
	if _, ok := rb.Content["application/json"]; ok {
		chosen = "application/json"
	} else {
		for _, ct := range types {
			if isJSONMediaType(ct) {
				chosen = ct
				break
			}
		}
	}

	if chosen == "" {
		body.Unsupported = true
		if len(types) > 0 {
			body.ContentType = types[0]
		}
		return body
	}

	body.ContentType = chosen
	if mt := rb.Content[chosen]; mt != nil && mt.Schema != nil {
		body.Schema = mt.Schema.Value
	}
	return body
}

func isJSONMediaType(ct string) bool {
	if ct == "*/*" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(ct)
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") ||
		(strings.HasPrefix(mediaType, "application/") && strings.Contains(mediaType, "json"))
}

func firstJSONMedia(content openapi3.Content) *openapi3.MediaType {
	if mt, ok := content["application/json"]; ok {
		return mt
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isJSONMediaType(k) {
			return content[k]
		}
	}
	return nil
}

func responseType(op *openapi3.Operation) string {
	if op.Responses == nil {
		return ""
	}
	for _, code := range []string{"200", "201", "204"} {
		resp := op.Responses.Value(code)
		if resp == nil || resp.Value == nil {
			continue
		}
		mt := firstJSONMedia(resp.Value.Content)
		if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
			continue
		}
		if t := schemaTypes(mt.Schema.Value); len(t) > 0 {
			return t[0]
		}
		if len(mt.Schema.Value.Properties) > 0 {
			return "object"
		}
	}
	return ""
}
