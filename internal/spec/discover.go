package spec

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// maxScriptFetches bounds how many external scripts a documentation page may cost.
const maxScriptFetches = 5

// Patterns used by Swagger UI and ReDoc bootstraps to point at the description.
var inlineSpecPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\burl\s*:\s*["']([^"']+)["']`),
	regexp.MustCompile(`"url"\s*:\s*"([^"]+)"`),
	regexp.MustCompile(`spec-url\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`\bspecUrl\s*[:=]\s*["']([^"']+)["']`),
	regexp.MustCompile(`Redoc\.init\(\s*["']([^"']+)["']`),
}

var wellKnownSpecPaths = []string{
	"/openapi.json",
	"/swagger.json",
	"/api/openapi.json",
	"/api/swagger.json",
	"/v3/api-docs",
	"/api-docs",
	"/api-docs.json",
	"/docs/openapi.json",
	"/openapi.yaml",
	"/swagger.yaml",
}

var libraryScripts = []string{"swagger-ui-bundle", "swagger-ui-standalone", "redoc.standalone", "jquery"}

// discover finds the description a documentation page points at. It tries
// references embedded in the page, then references inside its non-library
// scripts, then well-known locations on the page's origin. When a referenced
// description exists but cannot be fetched the failure is reported as unavailable.
func (l *Loader) discover(ctx context.Context, pageURL string, page []byte) (*rawDocument, string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", invalid("documentation page URL %q: %v", pageURL, err)
	}

	tried := map[string]bool{}
	// lastUnavailable holds the most recent fetch failure of a referenced candidate.
	var lastUnavailable error
	try := func(ref string, located bool) (*rawDocument, string, bool) {
		u, err := base.Parse(ref)
		if err != nil {
			return nil, "", false
		}
		target := u.String()
		if tried[target] {
			return nil, "", false
		}
		tried[target] = true

		res, err := l.fetch(ctx, target)
		if err != nil {
			if located {
				lastUnavailable = err
			}
			return nil, "", false
		}
		raw, err := decodeRaw(res.body)
		if err != nil {
			l.logger.Debug().Str("url", target).Str("error", err.Error()).Msg("candidate is not an API description")
			return nil, "", false
		}
		l.logger.Info().Str("page", pageURL).Str("spec_url", res.url).Msg("API description discovered")
		return raw, res.url, true
	}

	refs, scripts := scanPage(page)
	for _, ref := range refs {
		if !likelySpecURL(ref) {
			continue
		}
		if raw, specURL, ok := try(ref, true); ok {
			return raw, specURL, nil
		}
	}

	fetched := 0
	for _, src := range scripts {
		if isLibraryScript(src) || fetched >= maxScriptFetches {
			continue
		}
		u, err := base.Parse(src)
		if err != nil {
			continue
		}
		fetched++
		res, err := l.fetch(ctx, u.String())
		if err != nil {
			continue
		}
		for _, ref := range scanText(string(res.body)) {
			if !likelySpecURL(ref) {
				continue
			}
			if raw, specURL, ok := try(ref, true); ok {
				return raw, specURL, nil
			}
		}
	}

	for _, p := range wellKnownSpecPaths {
		if ctx.Err() != nil {
			return nil, "", unavailable("discover from %s: %v", pageURL, ctx.Err())
		}
		if raw, specURL, ok := try(p, false); ok {
			return raw, specURL, nil
		}
	}

	if lastUnavailable != nil {
		return nil, "", lastUnavailable
	}
	return nil, "", invalid("no API description referenced from documentation page %s", pageURL)
}

// scanPage returns candidate description references (in page order) and external script sources.
func scanPage(page []byte) (refs []string, scripts []string) {
	seen := map[string]bool{}
	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref != "" && !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	z := html.NewTokenizer(bytes.NewReader(page))
	inScript := false
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return refs, scripts
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data == "script" {
				inScript = tt == html.StartTagToken
			}
			for _, attr := range tok.Attr {
				switch attr.Key {
				case "spec-url", "data-spec-url", "data-url":
					add(attr.Val)
				case "src":
					if tok.Data == "script" {
						scripts = append(scripts, attr.Val)
					}
				}
			}
		case html.EndTagToken:
			if tok := z.Token(); tok.Data == "script" {
				inScript = false
			}
		case html.TextToken:
			if inScript {
				for _, ref := range scanText(string(z.Text())) {
					add(ref)
				}
			}
		}
	}
}

func scanText(text string) []string {
	var refs []string
	for _, re := range inlineSpecPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			refs = append(refs, m[1])
		}
	}
	return refs
}

var staticSuffixes = []string{".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".woff", ".woff2", ".ttf", ".map"}

// likelySpecURL filters out static assets and keeps references that look like descriptions.
func likelySpecURL(ref string) bool {
	lower := strings.ToLower(strings.TrimSpace(ref))
	if lower == "" || strings.HasPrefix(lower, "#") || strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "javascript:") {
		return false
	}

	pathPart := lower
	if i := strings.IndexAny(pathPart, "?#"); i >= 0 {
		pathPart = pathPart[:i]
	}
	for _, suffix := range staticSuffixes {
		if strings.HasSuffix(pathPart, suffix) {
			return false
		}
	}
	for _, s := range []string{"swagger-ui", "favicon", "fonts.googleapis"} {
		if strings.Contains(lower, s) {
			return false
		}
	}

	for _, kw := range []string{"openapi", "swagger", "api-docs", "apidoc", ".json", ".yaml", ".yml", "/api/", "/v1/", "/v2/", "/v3/"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return strings.HasPrefix(lower, "/") && !strings.HasPrefix(lower, "//")
}

func isLibraryScript(src string) bool {
	lower := strings.ToLower(src)
	for _, lib := range libraryScripts {
		if strings.Contains(lower, lib) {
			return true
		}
	}
	return false
}
