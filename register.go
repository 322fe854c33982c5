// FILE: cfgman/register.go
package cfgman

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jinzhu/copier"
)

// tagName is the struct tag used for config keys.
const tagName = "config"

// Schema is a registered configuration type together with its defaults.
type Schema struct {
	typ      reflect.Type
	defaults reflect.Value
	fields   []schemaField
	m        *Manager
}

// schemaField describes one exported field of a schema struct.
type schemaField struct {
	index int
	name  string
	key   string
}

// Type returns the struct type of the schema.
func (s *Schema) Type() reflect.Type {
	return s.typ
}

// Keys returns the config keys of the schema's top-level fields in declaration order.
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		keys = append(keys, f.key)
	}
	return keys
}

// Register makes the type of defaults a configuration schema. defaults must be
// a struct or a non-nil pointer to one; its field values are used for every
// field a load does not set. Registering the same type again replaces its
// defaults.
func (m *Manager) Register(defaults any) (*Schema, error) {
	v := reflect.ValueOf(defaults)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("schema defaults must be a non-nil struct pointer or value")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema defaults must be a struct or struct pointer, got %T", defaults)
	}

	t := v.Type()
	frozen := reflect.New(t)
	if err := copier.CopyWithOption(frozen.Interface(), v.Interface(), copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy defaults of %s: %w", t, err)
	}

	s := &Schema{
		typ:      t,
		defaults: frozen.Elem(),
		fields:   describeFields(t),
		m:        m,
	}

	m.mu.Lock()
	m.schemas[t] = s
	m.mu.Unlock()

	m.log().Debug().Str("schema", t.String()).Int("fields", len(s.fields)).Msg("registered config schema")
	return s, nil
}

// Schema returns the registered schema for t, if any.
func (m *Manager) Schema(t reflect.Type) (*Schema, bool) {
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return m.schemaFor(t)
}

func (m *Manager) schemaFor(t reflect.Type) (*Schema, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schemas[t]
	return s, ok
}

// RegisterTo registers T on m with the given defaults.
func RegisterTo[T any](m *Manager, defaults T) (*Schema, error) {
	return m.Register(defaults)
}

// Register registers T on the standard manager.
func Register[T any](defaults T) (*Schema, error) {
	return std.Register(defaults)
}

// MustRegister is like Register but panics on error. It is meant for
// package-level variable initialization.
func MustRegister[T any](defaults T) *Schema {
	s, err := Register(defaults)
	if err != nil {
		panic(fmt.Sprintf("config schema registration failed: %v", err))
	}
	return s
}

// SchemaOf returns the schema registered for T on the standard manager.
func SchemaOf[T any]() (*Schema, bool) {
	return std.Schema(reflect.TypeFor[T]())
}

// seed returns a pointer to a fresh copy of the schema defaults. Nested schema
// fields left at their zero value take their own registered defaults.
func (s *Schema) seed() (reflect.Value, error) {
	target := reflect.New(s.typ)
	if err := copier.CopyWithOption(target.Interface(), s.defaults.Interface(), copier.Option{DeepCopy: true}); err != nil {
		return reflect.Value{}, fmt.Errorf("failed to copy defaults of %s: %w", s.typ, err)
	}

	for _, f := range s.fields {
		field := target.Elem().Field(f.index)
		if field.Kind() != reflect.Struct || !field.IsZero() {
			continue
		}
		nested, ok := s.m.schemaFor(field.Type())
		if !ok {
			continue
		}
		value, err := nested.seed()
		if err != nil {
			return reflect.Value{}, err
		}
		field.Set(value.Elem())
	}

	return target, nil
}

// describeFields builds the field descriptor of a schema struct.
func describeFields(t reflect.Type) []schemaField {
	fields := make([]schemaField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		key := field.Name
		if tag := field.Tag.Get(tagName); tag != "" {
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				key = name
			}
		}

		fields = append(fields, schemaField{index: i, name: field.Name, key: key})
	}
	return fields
}
