package spec

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bobmcallan/generic-mcp/internal/common"
)

// Loader acquires descriptions from files, URLs and documentation pages.
// Network calls made by one Load are sequential.
type Loader struct {
	client *http.Client
	logger *common.Logger
}

// NewLoader creates a loader. A nil client gets a 30 second timeout.
func NewLoader(client *http.Client, logger *common.Logger) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{client: client, logger: logger}
}

// Load acquires, parses and normalizes the description named by src.
func (l *Loader) Load(ctx context.Context, src Source) (*Document, error) {
	raw, sourceURL, direct, err := l.acquire(ctx, src)
	if err != nil {
		return nil, err
	}

	doc, err := build(raw, sourceURL, src.BaseURL, direct)
	if err != nil {
		return nil, err
	}

	for _, u := range doc.Unresolved {
		l.logger.Warn().Str("source", src.Name).Str("method", u.Method).Str("path", u.Path).Str("ref", u.Ref).Msg("operation dropped: unresolved reference")
	}
	l.logger.Info().
		Str("source", src.Name).
		Str("title", doc.Title).
		Str("spec_version", doc.SpecVersion).
		Str("base_url", doc.BaseURL).
		Int("paths", len(doc.Paths)).
		Msg("API description loaded")

	return doc, nil
}

// Parse builds a Document from description bytes. sourceURL is where the bytes
// came from (empty for files); baseURL, when set, overrides the document's servers.
func Parse(data []byte, sourceURL, baseURL string) (*Document, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return nil, err
	}
	return build(raw, sourceURL, baseURL, true)
}

// acquire returns the raw description and where it came from. direct is false
// when the description was found through a documentation page.
func (l *Loader) acquire(ctx context.Context, src Source) (raw *rawDocument, sourceURL string, direct bool, err error) {
	switch {
	case src.File != "":
		data, err := os.ReadFile(src.File)
		if err != nil {
			return nil, "", false, unavailable("read %s: %v", src.File, err)
		}
		raw, err := decodeRaw(data)
		return raw, "", true, err

	case src.URL != "":
		res, err := l.fetch(ctx, src.URL)
		if err != nil {
			return nil, "", false, err
		}
		if looksLikeHTML(res.contentType, res.body) {
			raw, specURL, err := l.discover(ctx, res.url, res.body)
			return raw, specURL, false, err
		}
		raw, err := decodeRaw(res.body)
		return raw, res.url, true, err

	case src.DocsURL != "":
		res, err := l.fetch(ctx, src.DocsURL)
		if err != nil {
			return nil, "", false, err
		}
		if !looksLikeHTML(res.contentType, res.body) {
			if raw, err := decodeRaw(res.body); err == nil {
				return raw, res.url, true, nil
			}
		}
		raw, specURL, err := l.discover(ctx, res.url, res.body)
		return raw, specURL, false, err

	default:
		return nil, "", false, fmt.Errorf("%w: source %q has no file, url or docs url", ErrInvalidConfiguration, src.Name)
	}
}

func build(raw *rawDocument, sourceURL, baseURL string, direct bool) (*Document, error) {
	dropped := pruneUnresolved(raw.root)

	api, err := normalize(raw)
	if err != nil {
		return nil, err
	}

	base, err := resolveBaseURL(baseURL, api, sourceURL, direct)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		SpecVersion: raw.version,
		BaseURL:     base,
		SourceURL:   sourceURL,
		Paths:       orderedPaths(raw.pathOrder, api),
		API:         api,
	}
	if api.Info != nil {
		doc.Title = api.Info.Title
		doc.Description = api.Info.Description
		doc.APIVersion = api.Info.Version
	}

	rank := make(map[string]int, len(raw.pathOrder))
	for i, p := range raw.pathOrder {
		rank[p] = i
	}
	sort.SliceStable(dropped, func(i, j int) bool {
		if rank[dropped[i].Path] != rank[dropped[j].Path] {
			return rank[dropped[i].Path] < rank[dropped[j].Path]
		}
		return dropped[i].Method < dropped[j].Method
	})
	doc.Unresolved = dropped

	return doc, nil
}

// orderedPaths keeps document order, appending any path the raw scan missed in sorted order.
func orderedPaths(order []string, api *openapi3.T) []string {
	if api.Paths == nil {
		return nil
	}
	all := api.Paths.Map()
	out := make([]string, 0, len(all))
	listed := make(map[string]bool, len(order))
	for _, p := range order {
		if _, ok := all[p]; ok && !listed[p] {
			listed[p] = true
			out = append(out, p)
		}
	}
	var rest []string
	for p := range all {
		if !listed[p] {
			rest = append(rest, p)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
