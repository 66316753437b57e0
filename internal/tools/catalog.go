package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/generic-mcp/internal/spec"
)

// UntaggedGroup is the group name for tools whose endpoint has no tags.
const UntaggedGroup = "other"

// ToolDefinition is one callable tool bound to one endpoint.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      *InputSchema
	Endpoint    *Endpoint
	// RequiredHeaders names header parameters the API requires. They are not
	// tool arguments and must come from configured headers.
	RequiredHeaders []string

	inputSchema json.RawMessage
}

// InputSchema returns the JSON Schema of the tool's arguments.
func (t *ToolDefinition) InputSchema() json.RawMessage {
	return t.inputSchema
}

func (t *ToolDefinition) withName(name string) *ToolDefinition {
	c := *t
	c.Name = name
	return &c
}

// Group is the set of tools sharing a first tag.
type Group struct {
	Tag   string
	Tools []*ToolDefinition
}

// Catalog is the immutable set of tools built from one API description.
type Catalog struct {
	Source  string
	Title   string
	BaseURL string

	tools    []*ToolDefinition
	byName   map[string]*ToolDefinition
	warnings []Warning
}

// Build extracts endpoints from doc, names them, and applies the policy.
func Build(source string, doc *spec.Document, policy Policy) (*Catalog, error) {
	namer, err := NewNamer(policy)
	if err != nil {
		return nil, err
	}
	filter, err := NewFilter(policy, namer)
	if err != nil {
		return nil, err
	}

	endpoints, warnings := Extract(doc)
	names := assignNames(namer, endpoints)

	defs := make([]*ToolDefinition, 0, len(endpoints))
	for i, ep := range endpoints {
		def, err := newDefinition(names[i], ep)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	c := &Catalog{
		Source:   source,
		Title:    doc.Title,
		BaseURL:  doc.BaseURL,
		byName:   map[string]*ToolDefinition{},
		warnings: warnings,
	}
	for _, d := range filter.Apply(defs) {
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool name %q", spec.ErrInvalidConfiguration, d.Name)
		}
		c.byName[d.Name] = d
		c.tools = append(c.tools, d)
	}
	return c, nil
}

// assignNames gives every endpoint a distinct name, in endpoint order.
func assignNames(namer *Namer, endpoints []*Endpoint) []string {
	derived := namer.DerivedNames(endpoints)
	seen := make(map[string]bool, len(endpoints))
	names := make([]string, len(endpoints))
	for i, ep := range endpoints {
		names[i] = namer.Unique(derived[i], ep.Method, seen)
		seen[names[i]] = true
	}
	return names
}

func newDefinition(name string, ep *Endpoint) (*ToolDefinition, error) {
	schema := SchemaFor(ep)
	raw, err := json.Marshal(schema.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to encode input schema for %s: %w", ep.Key(), err)
	}

	var headers []string
	for _, p := range ep.ParametersIn(LocationHeader) {
		if p.Required {
			headers = append(headers, p.Name)
		}
	}

	return &ToolDefinition{
		Name:            name,
		Description:     describe(ep),
		Schema:          schema,
		Endpoint:        ep,
		RequiredHeaders: headers,
		inputSchema:     raw,
	}, nil
}

// describe builds a tool description from the summary and description, falling
// back to "METHOD /path".
func describe(ep *Endpoint) string {
	var parts []string
	if s := strings.TrimSpace(ep.Summary); s != "" {
		parts = append(parts, s)
	}
	if d := strings.TrimSpace(ep.Description); d != "" && d != strings.TrimSpace(ep.Summary) {
		parts = append(parts, d)
	}
	if len(parts) == 0 {
		parts = append(parts, ep.Key())
	}
	if ep.ResponseType != "" {
		parts = append(parts, "Returns: "+ep.ResponseType)
	}

	desc := strings.Join(parts, "\n\n")
	if ep.Deprecated {
		desc = "[deprecated] " + desc
	}
	return desc
}

// Lookup finds a tool by its final name.
func (c *Catalog) Lookup(name string) (*ToolDefinition, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// Tools returns the tools in endpoint order.
func (c *Catalog) Tools() []*ToolDefinition {
	return append([]*ToolDefinition(nil), c.tools...)
}

// Names returns tool names in endpoint order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.tools))
	for i, t := range c.tools {
		out[i] = t.Name
	}
	return out
}

func (c *Catalog) Len() int { return len(c.tools) }

// Warnings returns the per-endpoint problems found while building.
func (c *Catalog) Warnings() []Warning {
	return append([]Warning(nil), c.warnings...)
}

// Groups groups tools by their endpoint's first tag. Groups are sorted by tag
// with the untagged group last; tools keep endpoint order.
func (c *Catalog) Groups() []Group {
	index := map[string]int{}
	var groups []Group
	for _, t := range c.tools {
		tag := UntaggedGroup
		if len(t.Endpoint.Tags) > 0 && t.Endpoint.Tags[0] != "" {
			tag = t.Endpoint.Tags[0]
		}
		i, ok := index[tag]
		if !ok {
			i = len(groups)
			index[tag] = i
			groups = append(groups, Group{Tag: tag})
		}
		groups[i].Tools = append(groups[i].Tools, t)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Tag == UntaggedGroup || groups[j].Tag == UntaggedGroup {
			return groups[j].Tag == UntaggedGroup && groups[i].Tag != UntaggedGroup
		}
		return groups[i].Tag < groups[j].Tag
	})
	return groups
}

// Summary renders a markdown listing of the catalog grouped by tag.
func (c *Catalog) Summary() string {
	var b strings.Builder
	title := c.Title
	if title == "" {
		title = c.Source
	}
	fmt.Fprintf(&b, "# %s\n\n%d tools", title, len(c.tools))
	if c.BaseURL != "" {
		fmt.Fprintf(&b, " against %s", c.BaseURL)
	}
	b.WriteString("\n")
	for _, g := range c.Groups() {
		fmt.Fprintf(&b, "\n## %s\n\n", g.Tag)
		for _, t := range g.Tools {
			line := t.Endpoint.Summary
			if line == "" {
				line = t.Endpoint.Key()
			}
			fmt.Fprintf(&b, "- `%s` (%s %s): %s\n", t.Name, t.Endpoint.Method, t.Endpoint.Path, line)
		}
	}
	return b.String()
}
