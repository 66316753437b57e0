package tools

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/bobmcallan/generic-mcp/internal/spec"
)

// Name cases.
const (
	CaseSnake    = "snake"
	CaseCamel    = "camel"
	CaseKebab    = "kebab"
	CasePreserve = "preserve"
)

var validPrefix = regexp.MustCompile(`^[A-Za-z0-9_.-]*$`)

var httpMethodWords = map[string]bool{"get": true, "post": true, "put": true, "patch": true, "delete": true, "head": true, "options": true}

// Namer derives tool names from endpoints.
type Namer struct {
	nameCase   string
	simplified bool
	prefix     string
}

// NewNamer validates the naming half of a policy.
func NewNamer(p Policy) (*Namer, error) {
	c := strings.ToLower(strings.TrimSpace(p.Case))
	switch c {
	case "":
		c = CaseSnake
	case CaseSnake, CaseCamel, CaseKebab, CasePreserve:
	default:
		return nil, fmt.Errorf("%w: unknown name case %q", spec.ErrInvalidConfiguration, p.Case)
	}
	if !validPrefix.MatchString(p.Prefix) {
		return nil, fmt.Errorf("%w: tool prefix %q may only contain letters, digits, '_', '-' and '.'", spec.ErrInvalidConfiguration, p.Prefix)
	}
	return &Namer{nameCase: c, simplified: p.SimplifiedNames, prefix: p.Prefix}, nil
}

// BaseName is the name an endpoint gets before simplification and collision handling:
// its operationId, or "<method>_<path>" when it has none.
func (n *Namer) BaseName(ep *Endpoint) string {
	if n.nameCase == CasePreserve && ep.OperationID != "" {
		return sanitizeName(ep.OperationID)
	}
	return n.render(baseWords(ep))
}

// SimplifiedName is the shortened form of BaseName.
func (n *Namer) SimplifiedName(ep *Endpoint) string {
	if n.nameCase == CasePreserve && ep.OperationID != "" {
		return sanitizeName(ep.OperationID)
	}
	return n.render(simplifyWords(baseWords(ep)))
}

// DerivedNames returns a name per endpoint. With simplified names on, an
// endpoint keeps its simplified name only if no other endpoint derives the same
// name, so simplification never creates a collision.
func (n *Namer) DerivedNames(eps []*Endpoint) []string {
	full := make([]string, len(eps))
	for i, ep := range eps {
		full[i] = n.BaseName(ep)
	}
	if !n.simplified {
		return full
	}

	simple := make([]string, len(eps))
	counts := map[string]int{}
	for i, ep := range eps {
		simple[i] = n.SimplifiedName(ep)
		counts[simple[i]]++
	}
	fullOwner := map[string]int{}
	for i, f := range full {
		if _, ok := fullOwner[f]; !ok {
			fullOwner[f] = i
		}
	}

	out := make([]string, len(eps))
	for i := range eps {
		s := simple[i]
		owner, usedAsFull := fullOwner[s]
		switch {
		case s == full[i]:
			out[i] = s
		case counts[s] > 1:
			out[i] = full[i]
		case usedAsFull && owner != i:
			out[i] = full[i]
		default:
			out[i] = s
		}
	}
	return out
}

// Unique returns name if unused. Otherwise the lower-cased method is appended,
// and after that a counter starting at 2.
func (n *Namer) Unique(name, method string, seen map[string]bool) string {
	if !seen[name] {
		return name
	}
	withMethod := n.join(name, strings.ToLower(method))
	if !seen[withMethod] {
		return withMethod
	}
	for i := 2; ; i++ {
		candidate := n.join(withMethod, strconv.Itoa(i))
		if !seen[candidate] {
			return candidate
		}
	}
}

// Prefixed applies the configured prefix.
func (n *Namer) Prefixed(name string) string {
	return n.prefix + name
}

func (n *Namer) join(name, word string) string {
	switch n.nameCase {
	case CaseCamel:
		return name + strcase.ToCamel(word)
	case CaseKebab:
		return name + "-" + word
	default:
		return name + "_" + word
	}
}

func (n *Namer) render(words []string) string {
	if len(words) == 0 {
		return "tool"
	}
	snake := strings.Join(words, "_")
	switch n.nameCase {
	case CaseCamel:
		return strcase.ToLowerCamel(snake)
	case CaseKebab:
		return strcase.ToKebab(snake)
	default:
		return snake
	}
}

func baseWords(ep *Endpoint) []string {
	if ep.OperationID != "" {
		if w := splitWords(ep.OperationID); len(w) > 0 {
			return w
		}
	}
	raw := strings.ToLower(ep.Method) + "_" + strings.NewReplacer("{", "", "}", "").Replace(ep.Path)
	return splitWords(raw)
}

// simplifyWords drops "api" segments, a trailing HTTP method, and the repeated
// path segments frameworks append to generated operation ids, e.g.
// get_supplier_detail_suppliers_supplier_id becomes get_supplier_detail.
func simplifyWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w != "api" {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return words
	}
	if len(out) > 1 && httpMethodWords[out[len(out)-1]] {
		out = out[:len(out)-1]
	}

	for i := 2; i < len(out); i++ {
		prefix, suffix := out[:i], out[i:]
		subject := prefix[1:]
		first := subject[0]
		if len(suffix) > 1 && (suffix[0] == first || suffix[0] == first+"s") {
			return prefix
		}
		if strings.HasPrefix(strings.Join(suffix, "_"), strings.Join(subject, "_")) {
			return prefix
		}
	}
	return out
}

var nonWordChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// splitWords breaks an identifier into lower-case words on separators and
// case boundaries: "listHTTPItems" gives [list http items]. Digit runs are
// words of their own.
func splitWords(s string) []string {
	snake := strcase.ToSnake(nonWordChars.ReplaceAllString(s, "_"))
	var words []string
	for _, w := range strings.Split(snake, "_") {
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

var invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func sanitizeName(s string) string {
	out := strings.Trim(invalidNameChars.ReplaceAllString(s, "_"), "_")
	if out == "" {
		return "tool"
	}
	return out
}
