// FILE: cfgman/env.go
package cfgman

import (
	"maps"
	"os"
	"slices"
	"strings"
)

// EnvOptions configures how environment variables are turned into a layer.
type EnvOptions struct {
	// Mapping maps variable names (without prefix) to dotted config paths.
	Mapping map[string]string

	// Prefix is prepended to every mapped variable name, e.g. "APP_".
	Prefix string

	// Subpath nests the result under a dotted path.
	Subpath string

	// Validate checks the result against the schema before returning it.
	Validate bool

	// Schema overrides the schema being loaded for validation.
	Schema *Schema

	// Env replaces the process environment when non-nil.
	Env map[string]string
}

// LoadEnv builds a tree from the environment variables named in opts.Mapping.
// Names and prefix are matched case-insensitively. Unset variables are left
// out; values are kept as strings and coerced when decoded.
func LoadEnv(s *Schema, opts EnvOptions) (Tree, error) {
	schema := opts.Schema
	if schema == nil {
		schema = s
	}
	if opts.Validate && schema == nil {
		return nil, ErrSchemaRequired
	}

	env := opts.Env
	if env == nil {
		env = environ()
	}
	upper := make(map[string]string, len(env))
	for k, v := range env {
		upper[strings.ToUpper(k)] = v
	}

	prefix := strings.ToUpper(opts.Prefix)
	result := make(map[string]any)
	for _, name := range slices.Sorted(maps.Keys(opts.Mapping)) {
		value, ok := upper[prefix+strings.ToUpper(name)]
		if !ok {
			continue
		}
		path := SplitPath(opts.Mapping[name])
		if len(path) == 0 {
			continue
		}
		parent, key := EnsurePathPrefix(result, path)
		parent[key] = value
	}

	if opts.Validate {
		if err := schema.Validate(result); err != nil {
			return nil, &ValidationError{Source: "env", Err: err}
		}
	}

	loggerFor(s).Debug().Str("prefix", prefix).Int("keys", len(result)).Msg("loaded environment")

	if opts.Subpath == "" {
		return Tree(result), nil
	}
	return EnvelopSubpath(map[string]any(result), SplitPath(opts.Subpath)), nil
}

// EnvLoader returns a Source reading the environment on each load.
func EnvLoader(opts EnvOptions) Source {
	return Func(func(s *Schema) (Tree, error) {
		return LoadEnv(s, opts)
	})
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
