// FILE: cfgman/io.go
package cfgman

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileType is a configuration file format.
type FileType string

const (
	FileTypeJSON FileType = "json"
	FileTypeYAML FileType = "yaml"
	FileTypeTOML FileType = "toml"
)

// AllFileTypes lists every supported format.
var AllFileTypes = []FileType{FileTypeJSON, FileTypeYAML, FileTypeTOML}

var fileSuffixes = map[string]FileType{
	".json": FileTypeJSON,
	".yaml": FileTypeYAML,
	".yml":  FileTypeYAML,
	".toml": FileTypeTOML,
	".tml":  FileTypeTOML,
}

// ParseFileType parses a format name such as "yaml" or "yml".
func ParseFileType(s string) (FileType, error) {
	name := strings.ToLower(strings.TrimPrefix(s, "."))
	if ft, ok := fileSuffixes["."+name]; ok {
		return ft, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) (FileType, bool) {
	ft, ok := fileSuffixes[strings.ToLower(filepath.Ext(path))]
	return ft, ok
}

// parseTree decodes a document into a canonical tree. An empty document is
// an empty tree; a document whose top level is not a mapping is an error.
func parseTree(data []byte, ft FileType) (Tree, error) {
	var raw map[string]any

	switch ft {
	case FileTypeTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case FileTypeJSON:
		if len(bytes.TrimSpace(data)) == 0 {
			return Tree{}, nil
		}
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number precision
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case FileTypeYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ft)
	}

	return Clone(raw), nil
}

// Dump writes tree to w in the given format.
func Dump(w io.Writer, tree Tree, ft FileType) error {
	data := cloneMap(tree)
	prune(data)

	switch ft {
	case FileTypeTOML:
		if err := toml.NewEncoder(w).Encode(data); err != nil {
			return fmt.Errorf("failed to marshal config data to TOML: %w", err)
		}
	case FileTypeYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to marshal config data to YAML: %w", err)
		}
		return encoder.Close()
	case FileTypeJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(data); err != nil {
			return fmt.Errorf("failed to marshal config data to JSON: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ft)
	}
	return nil
}

// ParseValue turns a command-line or literal string into a scalar: integers,
// floats and booleans are recognized, quotes are stripped, anything else stays
// a string.
func ParseValue(s string) any {
	// Try int64
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}

	// Try float64
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}

	// Try boolean
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}

	// Remove quotes if present
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}

	return s
}
