package spec

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// resolveBaseURL picks the URL requests are sent to: the override, then the
// first server entry, then the origin the document was fetched from. The origin
// is only used for documents fetched directly, never for discovered ones.
func resolveBaseURL(override string, doc *openapi3.T, sourceURL string, direct bool) (string, error) {
	if override != "" {
		u, err := url.Parse(override)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return "", fmt.Errorf("%w: base URL override %q is not an absolute URL", ErrInvalidConfiguration, override)
		}
		return strings.TrimRight(override, "/"), nil
	}

	if len(doc.Servers) > 0 && doc.Servers[0] != nil {
		server := serverURL(doc.Servers[0])
		u, err := url.Parse(server)
		if err != nil {
			return "", fmt.Errorf("%w: server URL %q: %v", ErrInvalidConfiguration, server, err)
		}
		if u.IsAbs() {
			return strings.TrimRight(u.String(), "/"), nil
		}
		if sourceURL != "" {
			src, err := url.Parse(sourceURL)
			if err == nil {
				return strings.TrimRight(src.ResolveReference(u).String(), "/"), nil
			}
		}
	}

	if direct && sourceURL != "" {
		src, err := url.Parse(sourceURL)
		if err == nil && src.Scheme != "" && src.Host != "" {
			return src.Scheme + "://" + src.Host, nil
		}
	}

	return "", fmt.Errorf("%w: no base URL in document and none configured", ErrInvalidConfiguration)
}

// serverURL substitutes server variables with their defaults.
func serverURL(s *openapi3.Server) string {
	u := s.URL
	for name, v := range s.Variables {
		if v == nil {
			continue
		}
		u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
	}
	return u
}
