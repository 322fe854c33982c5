// FILE: cfgman/errors.go
package cfgman

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaNotRegistered is returned when loading a type that was never registered.
	ErrSchemaNotRegistered = errors.New("type is not a registered config schema")

	// ErrNoLayers is returned when a load or merge has nothing to merge.
	ErrNoLayers = errors.New("no configuration layers to merge")

	// ErrTypeConflict classifies a path holding a list in one layer and a
	// non-list in another. Use errors.Is on a *ConflictError.
	ErrTypeConflict = errors.New("mixed list and non-list values")

	// ErrValidation classifies schema validation and coercion failures.
	ErrValidation = errors.New("config validation failed")

	// ErrUnsupportedFormat is returned for file extensions or types without a parser.
	ErrUnsupportedFormat = errors.New("unsupported config file format")

	// ErrNoConfigFile is returned when at least one file is required but none exist.
	ErrNoConfigFile = errors.New("no config file found")

	// ErrFileNotFound is returned when every file is required and one is missing.
	ErrFileNotFound = errors.New("config file not found")

	// ErrDefaultNotFound is returned when no default instance exists for a type.
	ErrDefaultNotFound = errors.New("default config not found")

	// ErrSchemaRequired is returned when validation is requested without a schema.
	ErrSchemaRequired = errors.New("validation requires a schema")
)

// ConflictError reports a list/non-list conflict at a dotted path.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("setting %q has mixed type 'list' and non-'list'", e.Path)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrTypeConflict
}

// ValidationError wraps a decoding or validation failure with the source that
// produced the offending tree (a file name, "env", or the loaded type).
type ValidationError struct {
	Source string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration from %s: %v", e.Source, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UnsupportedFormatError names the file and format that could not be parsed.
type UnsupportedFormatError struct {
	File   string
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("unsupported config file type for '%s'", e.File)
	}
	return fmt.Sprintf("unsupported config file format %q for '%s'", e.Format, e.File)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// NoConfigFileError lists every path that was tried.
type NoConfigFileError struct {
	Paths []string
}

func (e *NoConfigFileError) Error() string {
	return fmt.Sprintf("no config file found, tried: %s", strings.Join(e.Paths, ", "))
}

func (e *NoConfigFileError) Is(target error) bool {
	return target == ErrNoConfigFile
}
