// FILE: cfgman/helper.go
package cfgman

import "strings"

// Path identifies a node by walking mapping keys left to right.
// The last segment is the leaf key, the others are the prefix.
type Path []string

// SplitPath splits a dot-notation path ("web.port") into its segments.
// An empty string yields an empty path.
func SplitPath(s string) Path {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

// String returns the dot-notation form of the path.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// EnsurePathPrefix materializes every prefix segment of path in tree as a
// mapping and returns the mapping that directly holds the leaf key, together
// with that key. A prefix segment holding a non-mapping value is overwritten
// by a fresh mapping. The leaf value itself is left untouched.
// The path must be non-empty; an empty path yields tree and an empty key.
func EnsurePathPrefix(tree map[string]any, path Path) (map[string]any, string) {
	if len(path) == 0 {
		return tree, ""
	}

	current := tree
	for _, segment := range path[:len(path)-1] {
		next, ok := asMap(current[segment])
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}

	return current, path[len(path)-1]
}

// EnvelopSubpath nests node inside a chain of single-key mappings, one per
// path segment, and returns the outermost mapping. The input is not modified.
// With an empty path, a mapping node is returned as is and any other node
// yields nil.
func EnvelopSubpath(node any, path Path) Tree {
	if len(path) == 0 {
		m, _ := asMap(node)
		return Tree(m)
	}

	for i := len(path) - 1; i >= 0; i-- {
		node = map[string]any{path[i]: node}
	}
	return Tree(node.(map[string]any))
}

// lookupParent walks the prefix of path without creating anything and returns
// the mapping holding the leaf key.
func lookupParent(tree map[string]any, path Path) (map[string]any, bool) {
	current := tree
	for _, segment := range path[:len(path)-1] {
		next, ok := asMap(current[segment])
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// walkLeaves calls fn for every leaf of tree in depth-first, sorted-key order.
// A leaf is any value that is not a mapping, or an empty mapping.
// Walking stops when fn returns false.
func walkLeaves(tree map[string]any, prefix Path, fn func(path Path, value any) bool) bool {
	for _, key := range sortedKeys(tree) {
		path := make(Path, len(prefix)+1)
		copy(path, prefix)
		path[len(prefix)] = key

		value := tree[key]
		if sub, ok := asMap(value); ok && len(sub) > 0 {
			if !walkLeaves(sub, path, fn) {
				return false
			}
			continue
		}
		if !fn(path, value) {
			return false
		}
	}
	return true
}
