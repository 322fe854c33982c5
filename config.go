// FILE: cfgman/config.go
package cfgman

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Source produces configuration layers for a load. A Source may return zero,
// one or several layers; their order is preserved.
type Source interface {
	Layers(s *Schema) ([]Tree, error)
}

// Layers returns the tree as a single layer.
func (t Tree) Layers(*Schema) ([]Tree, error) {
	return []Tree{t}, nil
}

// Layers is an ordered list of literal fragments usable as one Source.
type Layers []Tree

// Layers returns the fragments in order.
func (l Layers) Layers(*Schema) ([]Tree, error) {
	return l, nil
}

// LoaderFunc is a loader that receives the schema being loaded and returns
// its fragments in order.
type LoaderFunc func(s *Schema) ([]Tree, error)

// Layers calls f.
func (f LoaderFunc) Layers(s *Schema) ([]Tree, error) {
	return f(s)
}

// Func adapts a loader returning a single fragment.
func Func(fn func(s *Schema) (Tree, error)) Source {
	return LoaderFunc(func(s *Schema) ([]Tree, error) {
		t, err := fn(s)
		if err != nil {
			return nil, err
		}
		return []Tree{t}, nil
	})
}

// Manager owns a set of registered schemas and the default registry that
// records the most recently loaded instance of each of them.
type Manager struct {
	mu       sync.RWMutex
	schemas  map[reflect.Type]*Schema
	defaults *Defaults
	validate *validator.Validate
	logger   zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for debug events.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l.With().Str("component", "cfgman").Logger()
	}
}

// WithDefaults makes the manager record loaded instances in d.
func WithDefaults(d *Defaults) Option {
	return func(m *Manager) {
		if d != nil {
			m.defaults = d
		}
	}
}

// New creates a Manager with no registered schemas.
func New(opts ...Option) *Manager {
	m := &Manager{
		schemas:  make(map[reflect.Type]*Schema),
		defaults: NewDefaults(),
		validate: newValidator(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// std is the process-wide manager behind the package-level functions.
var std = New()

// Standard returns the process-wide manager.
func Standard() *Manager {
	return std
}

// Load merges the layers produced by sources, decodes and validates the result
// against schema type t and records every schema value reachable from it as
// the default for its type. It returns a pointer to the loaded struct.
//
// Either every step succeeds or the default registry is left unchanged.
func (m *Manager) Load(t reflect.Type, sources ...Source) (any, error) {
	v, err := m.load(t, sources)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (m *Manager) load(t reflect.Type, sources []Source) (reflect.Value, error) {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s, ok := m.schemaFor(t)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: %v", ErrSchemaNotRegistered, t)
	}

	var layers []Tree
	for i, src := range sources {
		if src == nil {
			return reflect.Value{}, fmt.Errorf("source %d for %s is nil", i, t)
		}
		fragments, err := src.Layers(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("failed to load source %d for %s: %w", i, t, err)
		}
		layers = append(layers, fragments...)
	}

	merged, err := MergeLayers(layers...)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("failed to merge configuration for %s: %w", t, err)
	}

	value, err := s.decode(merged)
	if err != nil {
		return reflect.Value{}, &ValidationError{Source: "load " + t.String(), Err: err}
	}

	found := m.collect(value)
	m.defaults.commit(found)

	m.log().Debug().
		Str("schema", t.String()).
		Int("layers", len(layers)).
		Int("defaults", len(found)).
		Msg("configuration loaded")

	return value, nil
}

// Default returns the most recently loaded instance of schema type t.
func (m *Manager) Default(t reflect.Type) (any, error) {
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if _, ok := m.schemaFor(t); !ok {
		return nil, fmt.Errorf("%w: %v is not a registered schema", ErrDefaultNotFound, t)
	}
	v, ok := m.defaults.Get(t)
	if !ok {
		return nil, fmt.Errorf("%w: %v has not been loaded", ErrDefaultNotFound, t)
	}
	return v, nil
}

// Reset clears the default registry. Registered schemas are kept.
func (m *Manager) Reset() {
	m.defaults.Clear()
}

// Load loads T from sources on m. T is a registered schema struct or a
// pointer to one.
func Load[T any](m *Manager, sources ...Source) (T, error) {
	var zero T
	t, isPtr := schemaTypeOf[T]()

	v, err := m.load(t, sources)
	if err != nil {
		return zero, err
	}
	if isPtr {
		return v.Interface().(T), nil
	}
	return v.Elem().Interface().(T), nil
}

// Default returns the default instance of T recorded by m.
func Default[T any](m *Manager) (T, error) {
	var zero T
	t, isPtr := schemaTypeOf[T]()

	v, err := m.Default(t)
	if err != nil {
		return zero, err
	}
	if isPtr {
		p := reflect.New(t)
		p.Elem().Set(reflect.ValueOf(v))
		return p.Interface().(T), nil
	}
	return v.(T), nil
}

// LoadConfig loads T from sources on the standard manager.
func LoadConfig[T any](sources ...Source) (T, error) {
	return Load[T](std, sources...)
}

// GetDefaultConfig returns the most recently loaded instance of T on the
// standard manager.
func GetDefaultConfig[T any]() (T, error) {
	return Default[T](std)
}

// Reset clears the standard default registry. Meant for tests.
func Reset() {
	std.Reset()
}

func schemaTypeOf[T any]() (reflect.Type, bool) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Ptr {
		return t.Elem(), true
	}
	return t, false
}

// Defaults records the most recently loaded instance of each schema type.
type Defaults struct {
	mu     sync.RWMutex
	values map[reflect.Type]any
}

// NewDefaults creates an empty default registry.
func NewDefaults() *Defaults {
	return &Defaults{values: make(map[reflect.Type]any)}
}

// Set records v as the default for t.
func (d *Defaults) Set(t reflect.Type, v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[t] = v
}

// Get returns the default for t.
func (d *Defaults) Get(t reflect.Type) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.values[t]
	return v, ok
}

// Len returns the number of recorded defaults.
func (d *Defaults) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.values)
}

// Clear removes every recorded default.
func (d *Defaults) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.values)
}

// commit records all values under one lock.
func (d *Defaults) commit(values map[reflect.Type]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for t, v := range values {
		d.values[t] = v
	}
}
