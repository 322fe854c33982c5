// FILE: cfgman/builder.go
package cfgman

import "fmt"

// ValidatorFunc is an application-level check run on a successfully loaded value.
type ValidatorFunc[T any] func(cfg T) error

// Builder provides a fluent interface for loading a configuration of type T.
// A build always starts from an empty layer, so T's defaults are returned
// when no source contributes anything.
type Builder[T any] struct {
	m          *Manager
	defaults   *T
	sources    []Source
	err        error
	validators []ValidatorFunc[T]
}

// NewBuilder creates a builder loading T on the standard manager.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{
		m:          std,
		sources:    []Source{Tree{}},
		validators: make([]ValidatorFunc[T], 0),
	}
}

// WithManager loads on m instead of the standard manager.
func (b *Builder[T]) WithManager(m *Manager) *Builder[T] {
	if m == nil {
		b.err = fmt.Errorf("builder manager must not be nil")
		return b
	}
	b.m = m
	return b
}

// WithDefaults registers defaults as the schema of T when building.
func (b *Builder[T]) WithDefaults(defaults T) *Builder[T] {
	b.defaults = &defaults
	return b
}

// WithLayer appends literal fragments.
func (b *Builder[T]) WithLayer(layers ...Tree) *Builder[T] {
	for _, layer := range layers {
		b.sources = append(b.sources, layer)
	}
	return b
}

// WithSource appends arbitrary sources.
func (b *Builder[T]) WithSource(sources ...Source) *Builder[T] {
	b.sources = append(b.sources, sources...)
	return b
}

// WithFiles appends a file loader.
func (b *Builder[T]) WithFiles(opts FileOptions) *Builder[T] {
	b.sources = append(b.sources, FileLoader(opts))
	return b
}

// WithEnv appends an environment loader.
func (b *Builder[T]) WithEnv(opts EnvOptions) *Builder[T] {
	b.sources = append(b.sources, EnvLoader(opts))
	return b
}

// WithFileDiscovery appends a file loader over the discovered candidate files.
// Missing candidates are skipped.
func (b *Builder[T]) WithFileDiscovery(opts FileDiscoveryOptions) *Builder[T] {
	return b.WithFiles(FileOptions{Files: DiscoverFiles(opts)})
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder[T]) WithValidator(fn ValidatorFunc[T]) *Builder[T] {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build loads T from the configured sources in order and runs the validators.
// Validators see a value whose defaults are already recorded on the manager.
func (b *Builder[T]) Build() (T, error) {
	var zero T
	if b.err != nil {
		return zero, b.err
	}

	// Register defaults if provided
	if b.defaults != nil {
		if _, err := RegisterTo(b.m, *b.defaults); err != nil {
			return zero, fmt.Errorf("failed to register defaults: %w", err)
		}
	}

	cfg, err := Load[T](b.m, b.sources...)
	if err != nil {
		return zero, err
	}

	for _, validator := range b.validators {
		if err := validator(cfg); err != nil {
			return zero, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return cfg, nil
}

// MustBuild is like Build but panics on error
func (b *Builder[T]) MustBuild() T {
	cfg, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return cfg
}
