package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bobmcallan/generic-mcp/internal/tools"
)

var placeholderPattern = regexp.MustCompile(`\{([^{}/]+)\}`)

// outgoing is a request assembled from tool arguments, before headers are applied.
type outgoing struct {
	method      string
	url         string
	body        []byte
	contentType string
}

// assemble routes each argument to the location its property is tagged with.
func assemble(baseURL string, def *tools.ToolDefinition, args map[string]any) (*outgoing, error) {
	ep := def.Endpoint
	path := ep.Path
	query := url.Values{}
	fields := map[string]any{}
	var whole any
	hasWhole := false
	var bad []FieldError

	for _, p := range def.Schema.Properties {
		v, ok := args[p.Name]
		if !ok {
			continue
		}
		switch p.In {
		case tools.LocationPath:
			if v == nil {
				continue
			}
			s := scalarString(v)
			if s == "" {
				bad = append(bad, FieldError{Field: p.Name, Message: "path parameter must not be empty"})
				continue
			}
			path = strings.ReplaceAll(path, "{"+p.WireName+"}", url.PathEscape(s))
		case tools.LocationQuery:
			if v != nil {
				addQuery(query, p.WireName, v)
			}
		case tools.LocationBody:
			// An explicit null is sent as null.
			if p.WireName == "" {
				whole, hasWhole = v, true
				continue
			}
			fields[p.WireName] = v
		}
	}

	for _, m := range placeholderPattern.FindAllStringSubmatch(path, -1) {
		bad = append(bad, FieldError{Field: m[1], Message: "missing path parameter"})
	}
	if len(bad) > 0 {
		return nil, &ArgumentError{Tool: def.Name, Fields: bad}
	}

	out := &outgoing{method: ep.Method, url: baseURL + path}
	if len(query) > 0 {
		out.url += "?" + query.Encode()
	}

	var payload any
	hasPayload := true
	switch {
	case hasWhole:
		payload = whole
	case len(fields) > 0:
		payload = fields
	case ep.Body != nil && ep.Body.Required && !ep.Body.Unsupported:
		payload = map[string]any{}
	default:
		hasPayload = false
	}
	if hasPayload {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &ArgumentError{Tool: def.Name, Fields: []FieldError{{Field: tools.BodyProperty, Message: "cannot encode request body: " + err.Error()}}}
		}
		out.body = data
		out.contentType = "application/json"
		if ep.Body != nil && ep.Body.ContentType != "" && ep.Body.ContentType != "*/*" {
			out.contentType = ep.Body.ContentType
		}
	}
	return out, nil
}

// newHTTPRequest builds the request. Configured headers are set last so no
// earlier value can replace them.
func (o *outgoing) newHTTPRequest(ctx context.Context, headers http.Header) (*http.Request, error) {
	var body io.Reader
	if o.body != nil {
		body = bytes.NewReader(o.body)
	}
	req, err := http.NewRequestWithContext(ctx, o.method, o.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if o.contentType != "" {
		req.Header.Set("Content-Type", o.contentType)
	}
	for key, vals := range headers {
		req.Header.Del(key)
		for _, v := range vals {
			req.Header.Add(key, v)
		}
	}
	return req, nil
}

// addQuery encodes one query argument. Arrays repeat the key and objects use
// deepObject form, name[key]=value.
func addQuery(q url.Values, name string, v any) {
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if item != nil {
				q.Add(name, scalarString(item))
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if val[k] != nil {
				q.Add(name+"["+k+"]", scalarString(val[k]))
			}
		}
	default:
		q.Add(name, scalarString(v))
	}
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
