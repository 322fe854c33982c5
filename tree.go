// FILE: cfgman/tree.go
package cfgman

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Tree is the untyped configuration tree exchanged between fragment sources
// and the merge engine. Nested mappings are map[string]any, sequences are []any,
// anything else is a scalar.
type Tree map[string]any

// Absent is the type of the Absence Marker. A node holding an Absent value
// means "treat this path as unset" and is pruned from merged trees.
type Absent struct{}

// Missing is the Absence Marker.
var Missing = Absent{}

// Kind classifies a tree node.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
	KindMissing
)

func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindMissing:
		return "missing"
	default:
		return "scalar"
	}
}

// KindOf reports which node variant v is. Strings and byte slices are scalars.
func KindOf(v any) Kind {
	switch v.(type) {
	case Absent, *Absent:
		return KindMissing
	case map[string]any, Tree:
		return KindMapping
	case []any:
		return KindSequence
	case nil, string, []byte:
		return KindScalar
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		return KindMapping
	case reflect.Slice, reflect.Array:
		return KindSequence
	}
	return KindScalar
}

// IsMissing reports whether v is the Absence Marker.
func IsMissing(v any) bool {
	return KindOf(v) == KindMissing
}

// Clone returns a deep copy of t in canonical shape: every mapping becomes
// map[string]any and every sequence []any. A nil tree clones to an empty one.
func Clone(t Tree) Tree {
	return Tree(cloneMap(t))
}

// Lookup returns the node at a dotted path.
func (t Tree) Lookup(path string) (any, bool) {
	var current any = map[string]any(t)
	for _, key := range SplitPath(path) {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		if current, ok = m[key]; !ok {
			return nil, false
		}
	}
	return current, true
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneNode(v)
	}
	return out
}

// cloneNode deep copies a node, normalizing foreign map and slice shapes
// produced by parsers or written by hand in literal fragments.
func cloneNode(v any) any {
	switch n := v.(type) {
	case nil:
		return nil
	case Absent, *Absent:
		return Missing
	case map[string]any:
		return cloneMap(n)
	case Tree:
		return cloneMap(n)
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = cloneNode(e)
		}
		return out
	case string, bool, int, int64, float64:
		return n
	case []byte:
		return append([]byte(nil), n...)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[keyString(iter.Key())] = cloneNode(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = cloneNode(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func keyString(k reflect.Value) string {
	if k.Kind() == reflect.Interface {
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

// asMap returns v as a canonical mapping without copying.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Tree:
		return m, true
	}
	return nil, false
}

// sortedKeys returns the keys of m in lexical order so traversals and errors
// are deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// prune deletes every entry holding the Absence Marker, at any depth.
func prune(m map[string]any) {
	for k, v := range m {
		switch n := v.(type) {
		case Absent, *Absent:
			delete(m, k)
		case map[string]any:
			prune(n)
		case []any:
			m[k] = pruneSequence(n)
		}
	}
}

func pruneSequence(s []any) []any {
	out := s[:0]
	for _, e := range s {
		switch n := e.(type) {
		case Absent, *Absent:
			continue
		case map[string]any:
			prune(n)
		case []any:
			e = pruneSequence(n)
		}
		out = append(out, e)
	}
	return out
}
