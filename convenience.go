// FILE: cfgman/convenience.go
package cfgman

import (
	"encoding"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// Quick registers defaults on the standard manager and loads T from files
// and from environment variables derived from the schema keys with
// envPrefix (see EnvMapping). Later files win; the environment wins over
// every file. Missing files are skipped.
func Quick[T any](defaults T, envPrefix string, files ...string) (T, error) {
	var zero T
	s, err := Register(defaults)
	if err != nil {
		return zero, fmt.Errorf("failed to register defaults: %w", err)
	}

	return NewBuilder[T]().
		WithFiles(FileOptions{Files: files}).
		WithEnv(EnvOptions{Mapping: EnvMapping(s), Prefix: envPrefix}).
		Build()
}

// MustQuick is like Quick but panics on error
func MustQuick[T any](defaults T, envPrefix string, files ...string) T {
	cfg, err := Quick(defaults, envPrefix, files...)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return cfg
}

// MustLoad is like LoadConfig but panics on error.
func MustLoad[T any](sources ...Source) T {
	cfg, err := LoadConfig[T](sources...)
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}
	return cfg
}

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

// EnvMapping derives an environment mapping for every leaf of the schema:
// the dotted path "web.port" is read from WEB_PORT. Nested structs are
// descended, other values are leaves.
func EnvMapping(s *Schema) map[string]string {
	mapping := make(map[string]string)
	collectEnvPaths(s.typ, nil, mapping)
	return mapping
}

func collectEnvPaths(t reflect.Type, prefix Path, mapping map[string]string) {
	for _, f := range describeFields(t) {
		path := append(prefix[:len(prefix):len(prefix)], f.key)
		ft := t.Field(f.index).Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}

		if ft.Kind() == reflect.Struct && !isLeafStruct(ft) {
			collectEnvPaths(ft, path, mapping)
			continue
		}

		name := strings.ToUpper(strings.Join(path, "_"))
		mapping[name] = path.String()
	}
}

// isLeafStruct reports struct types decoded from a single string.
func isLeafStruct(t reflect.Type) bool {
	switch t {
	case reflect.TypeOf(time.Time{}), reflect.TypeOf(url.URL{}), reflect.TypeOf(net.IPNet{}):
		return true
	}
	return reflect.PointerTo(t).Implements(textUnmarshalerType)
}
