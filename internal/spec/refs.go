package spec

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

var operationKeys = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// pruneUnresolved removes every operation that depends, directly or through other
// local references, on a $ref that is external or points nowhere in the document.
// Dangling references left elsewhere are then stripped so the remaining
// document loads cleanly.
func pruneUnresolved(root map[string]any) []*UnresolvedRefError {
	paths, _ := root["paths"].(map[string]any)
	r := &refResolver{root: root, bad: map[string]string{}}

	var dropped []*UnresolvedRefError
	for _, p := range sortedKeys(paths) {
		item, ok := paths[p].(map[string]any)
		if !ok {
			continue
		}
		if ref, ok := item["$ref"].(string); ok {
			dropped = append(dropped, &UnresolvedRefError{Method: "*", Path: p, Ref: ref})
			delete(paths, p)
			continue
		}

		shared := r.firstUnresolved(item["parameters"])
		for _, m := range operationKeys {
			op, ok := item[m]
			if !ok {
				continue
			}
			bad := shared
			if bad == "" {
				bad = r.firstUnresolved(op)
			}
			if bad != "" {
				dropped = append(dropped, &UnresolvedRefError{Method: strings.ToUpper(m), Path: p, Ref: bad})
				delete(item, m)
			}
		}
	}

	stripDangling(root, root)
	return dropped
}

type refResolver struct {
	root map[string]any
	// bad memoizes refs known to reach an unresolvable ref.
	bad map[string]string
}

// firstUnresolved returns the first unresolvable $ref reachable from v, or "".
func (r *refResolver) firstUnresolved(v any) string {
	return r.walk(v, map[string]bool{})
}

func (r *refResolver) walk(v any, visiting map[string]bool) string {
	switch t := v.(type) {
	case map[string]any:
		if ref, ok := t["$ref"].(string); ok {
			if bad := r.follow(ref, visiting); bad != "" {
				return bad
			}
		}
		for _, k := range sortedKeys(t) {
			if k == "$ref" {
				continue
			}
			if bad := r.walk(t[k], visiting); bad != "" {
				return bad
			}
		}
	case []any:
		for _, item := range t {
			if bad := r.walk(item, visiting); bad != "" {
				return bad
			}
		}
	}
	return ""
}

func (r *refResolver) follow(ref string, visiting map[string]bool) string {
	if visiting[ref] {
		return ""
	}
	if bad, ok := r.bad[ref]; ok {
		return bad
	}
	target, ok := lookupPointer(r.root, ref)
	if !ok {
		r.bad[ref] = ref
		return ref
	}

	visiting[ref] = true
	bad := r.walk(target, visiting)
	delete(visiting, ref)
	if bad != "" {
		r.bad[ref] = bad
	}
	return bad
}

// stripDangling deletes $ref keys that cannot be resolved.
func stripDangling(root map[string]any, v any) {
	switch t := v.(type) {
	case map[string]any:
		if ref, ok := t["$ref"].(string); ok {
			if _, found := lookupPointer(root, ref); !found {
				delete(t, "$ref")
			}
		}
		for _, val := range t {
			stripDangling(root, val)
		}
	case []any:
		for _, item := range t {
			stripDangling(root, item)
		}
	}
}

// lookupPointer resolves a local JSON pointer reference such as "#/components/schemas/Item".
func lookupPointer(root map[string]any, ref string) (any, bool) {
	if !strings.HasPrefix(ref, "#") {
		return nil, false
	}
	ptr := ref[1:]
	if ptr == "" {
		return root, true
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, false
	}

	var cur any = root
	for _, part := range strings.Split(ptr[1:], "/") {
		if unescaped, err := url.PathUnescape(part); err == nil {
			part = unescaped
		}
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")

		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
