// FILE: cfgman/visit.go
package cfgman

import "reflect"

var typeInterface = reflect.TypeOf((*reflect.Type)(nil)).Elem()

// graphWalker collects every registered schema value reachable from a root.
type graphWalker struct {
	m     *Manager
	found map[reflect.Type]any
	seen  map[visitKey]bool
}

// visitKey identifies a pointer by type and address. Distinct types may share
// an address (zero-size values, a struct and its first field).
type visitKey struct {
	t reflect.Type
	p uintptr
}

// collect walks the typed object graph rooted at v. When a schema type occurs
// more than once, the last visited instance wins.
func (m *Manager) collect(v reflect.Value) map[reflect.Type]any {
	w := &graphWalker{
		m:     m,
		found: make(map[reflect.Type]any),
		seen:  make(map[visitKey]bool),
	}
	w.visit(v)
	return w.found
}

func (w *graphWalker) visit(v reflect.Value) {
	if !v.IsValid() {
		return
	}

	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			w.visit(v.Elem())
		}

	case reflect.Ptr:
		// type values are never walked
		if v.IsNil() || v.Type().Implements(typeInterface) {
			return
		}
		key := visitKey{t: v.Type(), p: v.Pointer()}
		if w.seen[key] {
			return
		}
		w.seen[key] = true
		w.visit(v.Elem())

	case reflect.Struct:
		if s, ok := w.m.schemaFor(v.Type()); ok {
			w.found[v.Type()] = v.Interface()
			for _, f := range s.fields {
				w.visit(v.Field(f.index))
			}
			return
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				w.visit(v.Field(i))
			}
		}

	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			w.visit(iter.Value())
		}

	case reflect.Slice, reflect.Array:
		// byte sequences are scalars
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return
		}
		for i := 0; i < v.Len(); i++ {
			w.visit(v.Index(i))
		}
	}
}
