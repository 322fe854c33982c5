// FILE: cfgman/decode.go
package cfgman

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// fieldMap carries the entries of a mapping being decoded into a schema struct.
// Its distinct type keeps the schema hook from seeding the same struct twice.
type fieldMap map[string]any

// Decode decodes and validates tree against the schema and returns the
// resulting struct value. Absence Markers in tree are ignored.
func (s *Schema) Decode(tree Tree) (any, error) {
	v, err := s.decode(tree)
	if err != nil {
		return nil, err
	}
	return v.Elem().Interface(), nil
}

// Validate reports whether tree decodes and validates against the schema.
func (s *Schema) Validate(tree Tree) error {
	_, err := s.decode(tree)
	return err
}

// decode is the single authoritative path from a tree to a typed value.
// It returns a pointer to the decoded struct.
func (s *Schema) decode(tree Tree) (reflect.Value, error) {
	data := cloneMap(tree)
	prune(data)

	target, err := s.seed()
	if err != nil {
		return reflect.Value{}, err
	}

	if err := s.m.decodeInto(target.Interface(), fieldMap(data)); err != nil {
		return reflect.Value{}, err
	}

	if err := s.m.validate.Struct(target.Interface()); err != nil {
		return reflect.Value{}, err
	}

	return target, nil
}

func (m *Manager) decodeInto(target any, input any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          tagName,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       m.getDecodeHook(),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}
	return nil
}

// getDecodeHook returns the composite decode hook for all type conversions
func (m *Manager) getDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		// Network types
		stringToNetIPHookFunc(),
		stringToNetIPNetHookFunc(),
		stringToURLHookFunc(),

		// Standard hooks
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),

		// Nested schemas start from their defaults
		m.schemaHook(),
	)
}

// schemaHook decodes mappings targeting a registered schema wherever the
// schema appears (field, pointer, sequence element, mapping value). A target
// already holding a value, such as a default declared by the parent schema,
// is decoded onto; a zero target starts from the schema's own defaults.
func (m *Manager) schemaHook() mapstructure.DecodeHookFuncValue {
	return func(from reflect.Value, to reflect.Value) (any, error) {
		data := from.Interface()
		if !to.IsValid() || to.Kind() != reflect.Struct {
			return data, nil
		}
		fields, ok := data.(map[string]any)
		if !ok {
			return data, nil
		}
		s, ok := m.schemaFor(to.Type())
		if !ok {
			return data, nil
		}

		var target reflect.Value
		if to.IsZero() {
			seeded, err := s.seed()
			if err != nil {
				return nil, err
			}
			target = seeded
		} else {
			target = reflect.New(to.Type())
			target.Elem().Set(to)
		}

		if err := m.decodeInto(target.Interface(), fieldMap(fields)); err != nil {
			return nil, err
		}
		return target.Elem().Interface(), nil
	}
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}
		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}
		return ip, nil
	}
}

// stringToNetIPNetHookFunc handles net.IPNet conversion
func stringToNetIPNetHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(net.IPNet{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 49 { // Max IPv6 CIDR length
			return nil, fmt.Errorf("invalid CIDR length: %d", len(str))
		}
		_, ipnet, err := net.ParseCIDR(str)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR: %w", err)
		}
		if isPtr {
			return ipnet, nil
		}
		return *ipnet, nil
	}
}

// stringToURLHookFunc handles url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}

// newValidator reports field errors with config keys rather than Go field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get(tagName), ",")
		switch name {
		case "-":
			return ""
		case "":
			return field.Name
		}
		return name
	})
	return v
}
