package tools

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/bobmcallan/generic-mcp/internal/spec"
)

// Policy controls which endpoints become tools and how they are named.
type Policy struct {
	// IncludeAll exposes every endpoint. When false only Include matches and
	// endpoints carrying an IncludeTags tag are exposed.
	IncludeAll bool
	// Include and Exclude hold tool names, operation ids, paths or "METHOD /path"
	// patterns. '*' and '?' are wildcards, every other character is literal.
	Include []string
	Exclude []string
	// IncludeTags narrows IncludeAll to tagged endpoints, or adds tagged
	// endpoints to the Include matches when IncludeAll is off.
	IncludeTags []string
	ExcludeTags []string
	Prefix      string
	Case        string

	SimplifiedNames bool
}

type pattern struct {
	raw    string
	method string
	g      glob.Glob
}

func compilePattern(raw string) (pattern, error) {
	p := pattern{raw: raw}
	text := strings.TrimSpace(raw)
	if text == "" {
		return p, fmt.Errorf("%w: empty tool pattern", spec.ErrInvalidConfiguration)
	}
	if method, rest, ok := strings.Cut(text, " "); ok && strings.HasPrefix(strings.TrimSpace(rest), "/") {
		p.method = strings.ToUpper(method)
		text = strings.TrimSpace(rest)
	}

	// Braces in path templates are literal, so only '*' and '?' stay unquoted.
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '*', '?':
			b.WriteRune(r)
		default:
			b.WriteString(glob.QuoteMeta(string(r)))
		}
	}
	g, err := glob.Compile(b.String())
	if err != nil {
		return p, fmt.Errorf("%w: tool pattern %q: %v", spec.ErrInvalidConfiguration, raw, err)
	}
	p.g = g
	return p, nil
}

func (p pattern) matches(t *ToolDefinition) bool {
	ep := t.Endpoint
	if p.method != "" {
		return ep != nil && ep.Method == p.method && p.g.Match(ep.Path)
	}
	if p.g.Match(t.Name) {
		return true
	}
	if ep == nil {
		return false
	}
	return (ep.OperationID != "" && p.g.Match(ep.OperationID)) || p.g.Match(ep.Path)
}

// Filter applies include, exclude and prefix rules to derived tools.
type Filter struct {
	includeAll  bool
	include     []pattern
	exclude     []pattern
	includeTags map[string]bool
	excludeTags map[string]bool
	namer       *Namer
}

// NewFilter compiles the filtering half of a policy.
func NewFilter(p Policy, namer *Namer) (*Filter, error) {
	f := &Filter{
		includeAll:  p.IncludeAll,
		includeTags: toSet(p.IncludeTags),
		excludeTags: toSet(p.ExcludeTags),
		namer:       namer,
	}
	for _, raw := range p.Include {
		pt, err := compilePattern(raw)
		if err != nil {
			return nil, err
		}
		f.include = append(f.include, pt)
	}
	for _, raw := range p.Exclude {
		pt, err := compilePattern(raw)
		if err != nil {
			return nil, err
		}
		f.exclude = append(f.exclude, pt)
	}
	return f, nil
}

// Allowed reports whether a tool survives the policy. Exclusion always wins.
func (f *Filter) Allowed(t *ToolDefinition) bool {
	if f.excluded(t) {
		return false
	}
	if len(f.includeTags) == 0 {
		return f.includeAll || matchAny(f.include, t)
	}
	tagged := t.Endpoint != nil && hasTag(t.Endpoint.Tags, f.includeTags)
	if f.includeAll {
		return tagged
	}
	return tagged || matchAny(f.include, t)
}

func (f *Filter) excluded(t *ToolDefinition) bool {
	if matchAny(f.exclude, t) {
		return true
	}
	return t.Endpoint != nil && len(f.excludeTags) > 0 && hasTag(t.Endpoint.Tags, f.excludeTags)
}

// Apply keeps the allowed tools in order and prefixes their names. A prefixed
// name that collides is made unique again.
func (f *Filter) Apply(defs []*ToolDefinition) []*ToolDefinition {
	seen := map[string]bool{}
	var out []*ToolDefinition
	for _, d := range defs {
		if !f.Allowed(d) {
			continue
		}
		name := f.namer.Prefixed(d.Name)
		method := ""
		if d.Endpoint != nil {
			method = d.Endpoint.Method
		}
		name = f.namer.Unique(name, method, seen)
		seen[name] = true
		out = append(out, d.withName(name))
	}
	return out
}

func matchAny(patterns []pattern, t *ToolDefinition) bool {
	for _, p := range patterns {
		if p.matches(t) {
			return true
		}
	}
	return false
}

func hasTag(tags []string, set map[string]bool) bool {
	for _, t := range tags {
		if set[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

func toSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			set[strings.ToLower(v)] = true
		}
	}
	return set
}
