// FILE: cfgman/loader.go
package cfgman

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

// FileOptions configures how configuration files are turned into layers.
type FileOptions struct {
	// Files are read in order; later files take precedence once merged.
	Files []string

	// Types limits the accepted formats. Nil accepts every supported format.
	Types []FileType

	// Subpath nests every file's content under a dotted path, e.g. "web".
	Subpath string

	// Schema validates each file on its own instead of the schema being loaded.
	Schema *Schema

	// SkipValidation disables the standalone validation of each file.
	SkipValidation bool

	// LoadAllFiles requires every file to exist.
	LoadAllFiles bool

	// LoadAtLeastOneFile requires at least one of the files to exist.
	LoadAtLeastOneFile bool

	// MaxFileSize rejects larger files when positive.
	MaxFileSize int64
}

// LoadFile reads the configured files and returns one layer per file read.
// Missing files are skipped unless LoadAllFiles is set. Each file is validated
// against the schema (opts.Schema, else s) unless SkipValidation is set.
func LoadFile(s *Schema, opts FileOptions) ([]Tree, error) {
	types := opts.Types
	if types == nil {
		types = AllFileTypes
	}
	for _, ft := range types {
		if !slices.Contains(AllFileTypes, ft) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ft)
		}
	}

	paths := opts.Files
	if !opts.LoadAllFiles {
		paths = existingFiles(opts.Files)
	}

	if opts.LoadAtLeastOneFile && len(paths) == 0 {
		return nil, &NoConfigFileError{Paths: slices.Clone(opts.Files)}
	}

	schema := opts.Schema
	if schema == nil {
		schema = s
	}
	if !opts.SkipValidation && schema == nil && len(paths) > 0 {
		return nil, ErrSchemaRequired
	}

	logger := loggerFor(s)
	contents := make([]Tree, 0, len(paths))
	for _, path := range paths {
		tree, err := readFile(path, types, opts.MaxFileSize)
		if err != nil {
			return nil, err
		}

		if !opts.SkipValidation {
			if err := schema.Validate(tree); err != nil {
				return nil, &ValidationError{Source: path, Err: err}
			}
		}

		logger.Debug().Str("file", path).Int("keys", len(tree)).Msg("loaded config file")
		contents = append(contents, tree)
	}

	if opts.Subpath == "" {
		return contents, nil
	}

	subpath := SplitPath(opts.Subpath)
	for i, tree := range contents {
		contents[i] = EnvelopSubpath(map[string]any(tree), subpath)
	}
	return contents, nil
}

// FileLoader returns a Source reading the configured files on each load.
func FileLoader(opts FileOptions) Source {
	return LoaderFunc(func(s *Schema) ([]Tree, error) {
		return LoadFile(s, opts)
	})
}

// existingFiles keeps the paths naming regular files.
func existingFiles(paths []string) []string {
	existing := make([]string, 0, len(paths))
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			existing = append(existing, path)
		}
	}
	return existing
}

// readFile reads and parses a single configuration file.
func readFile(path string, types []FileType, maxSize int64) (Tree, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrFileNotFound, err)
		}
		return nil, fmt.Errorf("failed to stat config file '%s': %w", path, err)
	}

	ft, ok := detectFileFormat(path)
	if !ok {
		return nil, &UnsupportedFormatError{File: path}
	}
	if !slices.Contains(types, ft) {
		return nil, &UnsupportedFormatError{File: path, Format: string(ft)}
	}

	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("config file '%s' exceeds maximum size %d bytes", path, maxSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if maxSize > 0 {
		reader = io.LimitReader(file, maxSize)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	tree, err := parseTree(data, ft)
	if err != nil {
		return nil, fmt.Errorf("config file '%s': %w", path, err)
	}
	return tree, nil
}
