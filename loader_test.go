// FILE: cfgman/loader_test.go
package cfgman_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duilio/cfgman"
)

type fileB struct {
	X int `config:"x" validate:"gte=0"`
}

type fileA struct {
	Name   string `config:"name"`
	Number int    `config:"number"`
	Cls    fileB  `config:"cls"`
}

func newFileManager(t *testing.T) (*cfgman.Manager, *cfgman.Schema, *cfgman.Schema) {
	t.Helper()
	m := cfgman.New()
	b, err := cfgman.RegisterTo(m, fileB{})
	require.NoError(t, err)
	a, err := cfgman.RegisterTo(m, fileA{})
	require.NoError(t, err)
	return m, a, b
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFile(t *testing.T) {
	_, schemaA, schemaB := newFileManager(t)

	t.Run("WithoutFiles", func(t *testing.T) {
		layers, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{})
		require.NoError(t, err)
		assert.Empty(t, layers)
	})

	t.Run("WithoutExistingFiles", func(t *testing.T) {
		tmpDir := t.TempDir()
		files := []string{
			filepath.Join(tmpDir, "missing_file.yaml"),
			filepath.Join(tmpDir, "missing_file.json"),
		}

		layers, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: files})
		require.NoError(t, err)
		assert.Empty(t, layers)
	})

	t.Run("WithoutExistingFilesButOneRequired", func(t *testing.T) {
		tmpDir := t.TempDir()
		files := []string{
			filepath.Join(tmpDir, "missing_file.yaml"),
			filepath.Join(tmpDir, "missing_file.json"),
		}

		_, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: files, LoadAtLeastOneFile: true})
		require.ErrorIs(t, err, cfgman.ErrNoConfigFile)

		var noFile *cfgman.NoConfigFileError
		require.True(t, errors.As(err, &noFile))
		assert.Equal(t, files, noFile.Paths)
		for _, f := range files {
			assert.Contains(t, err.Error(), f)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "config.json", `{"name": "hello", "number": "2", "cls": {"x": 3}}`)

		layers, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}})
		require.NoError(t, err)
		assert.Equal(t, []cfgman.Tree{
			{"name": "hello", "number": "2", "cls": map[string]any{"x": int64(3)}},
		}, layers)
	})

	t.Run("MultipleFilesInOrder", func(t *testing.T) {
		tmpDir := t.TempDir()
		first := writeFile(t, tmpDir, "cfg1.json", `{"name": "obj1", "number": 1}`)
		second := writeFile(t, tmpDir, "cfg2.json", `{"name": "obj2", "number": 2.5}`)

		layers, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{
			Files:          []string{first, second},
			SkipValidation: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []cfgman.Tree{
			{"name": "obj1", "number": int64(1)},
			{"name": "obj2", "number": 2.5},
		}, layers)
	})

	t.Run("OneFileExists", func(t *testing.T) {
		tmpDir := t.TempDir()
		existing := writeFile(t, tmpDir, "cfg2.json", `{"name": "hello"}`)

		layers, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{
			filepath.Join(tmpDir, "cfg1.json"),
			existing,
			filepath.Join(tmpDir, "cfg3.json"),
		}})
		require.NoError(t, err)
		assert.Equal(t, []cfgman.Tree{{"name": "hello"}}, layers)
	})

	t.Run("SomeFilesExistButAllRequired", func(t *testing.T) {
		tmpDir := t.TempDir()
		existing := writeFile(t, tmpDir, "cfg2.json", `{"name": "hello"}`)

		_, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{
			Files:        []string{filepath.Join(tmpDir, "cfg1.json"), existing},
			LoadAllFiles: true,
		})
		assert.ErrorIs(t, err, cfgman.ErrFileNotFound)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Subpath", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "cfg.json", `{"x": 10}`)

		layers, err := cfgman.LoadFile(schemaB, cfgman.FileOptions{Files: []string{path}, Subpath: "a"})
		require.NoError(t, err)
		assert.Equal(t, []cfgman.Tree{{"a": map[string]any{"x": int64(10)}}}, layers)
	})

	t.Run("YAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		content := "name: hello\nnumber: 1\ncls:\n  x: 1\n"

		for _, name := range []string{"cfg.yaml", "cfg.yml"} {
			path := writeFile(t, tmpDir, name, content)
			layers, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}})
			require.NoError(t, err)
			assert.Equal(t, []cfgman.Tree{
				{"name": "hello", "number": 1, "cls": map[string]any{"x": 1}},
			}, layers, name)
		}
	})

	t.Run("TOML", func(t *testing.T) {
		tmpDir := t.TempDir()
		content := "name = \"hello\"\nnumber = 1\n[cls]\nx = 1\n"

		for _, name := range []string{"cfg.toml", "cfg.tml"} {
			path := writeFile(t, tmpDir, name, content)
			layers, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}})
			require.NoError(t, err)
			assert.Equal(t, []cfgman.Tree{
				{"name": "hello", "number": int64(1), "cls": map[string]any{"x": int64(1)}},
			}, layers, name)
		}
	})

	t.Run("EmptyFiles", func(t *testing.T) {
		tmpDir := t.TempDir()
		files := []string{
			writeFile(t, tmpDir, "empty.json", ""),
			writeFile(t, tmpDir, "empty.yaml", ""),
			writeFile(t, tmpDir, "empty.toml", ""),
		}

		layers, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: files})
		require.NoError(t, err)
		assert.Equal(t, []cfgman.Tree{{}, {}, {}}, layers)
	})

	t.Run("NonMappingDocument", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "list.yaml", "- a\n- b\n")

		_, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), path)
	})

	t.Run("UnsupportedExtension", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "cfg.ini", "name=hello")

		_, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}})
		require.ErrorIs(t, err, cfgman.ErrUnsupportedFormat)

		var unsupported *cfgman.UnsupportedFormatError
		require.True(t, errors.As(err, &unsupported))
		assert.Equal(t, path, unsupported.File)
	})

	t.Run("TypeNotAccepted", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "cfg.yaml", "name: hello\n")

		_, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{
			Files: []string{path},
			Types: []cfgman.FileType{cfgman.FileTypeJSON, cfgman.FileTypeTOML},
		})
		require.ErrorIs(t, err, cfgman.ErrUnsupportedFormat)
		assert.Contains(t, err.Error(), "yaml")
		assert.Contains(t, err.Error(), path)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Types: []cfgman.FileType{"ini"}})
		assert.ErrorIs(t, err, cfgman.ErrUnsupportedFormat)
	})

	t.Run("ValidationNamesFile", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "bad.json", `{"cls": {"x": -1}}`)

		_, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}})
		require.ErrorIs(t, err, cfgman.ErrValidation)

		var verr *cfgman.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, path, verr.Source)

		// skipped on request
		_, err = cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}, SkipValidation: true})
		assert.NoError(t, err)
	})

	t.Run("SchemaOverride", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "b.json", `{"x": 1}`)

		_, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}})
		assert.ErrorIs(t, err, cfgman.ErrValidation)

		_, err = cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}, Schema: schemaB})
		assert.NoError(t, err)
	})

	t.Run("ValidationWithoutSchema", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "b.json", `{"x": 1}`)

		_, err := cfgman.LoadFile(nil, cfgman.FileOptions{Files: []string{path}})
		assert.ErrorIs(t, err, cfgman.ErrSchemaRequired)

		layers, err := cfgman.LoadFile(nil, cfgman.FileOptions{Files: []string{path}, SkipValidation: true})
		require.NoError(t, err)
		assert.Len(t, layers, 1)
	})

	t.Run("MaxFileSize", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "big.json", `{"name": "`+strings.Repeat("x", 100)+`"}`)

		_, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}, MaxFileSize: 16})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds maximum size")

		_, err = cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}, MaxFileSize: 1024})
		assert.NoError(t, err)
	})

	t.Run("InvalidSyntax", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "broken.toml", "name = \n")

		_, err := cfgman.LoadFile(schemaA, cfgman.FileOptions{Files: []string{path}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TOML")
	})
}

func TestFileLoader(t *testing.T) {
	m, _, schemaB := newFileManager(t)
	path := writeFile(t, t.TempDir(), "cfg.json", `{"x": 5}`)

	cfg, err := cfgman.Load[fileA](m,
		cfgman.Tree{"name": "hello", "number": 1},
		cfgman.FileLoader(cfgman.FileOptions{Files: []string{path}, Subpath: "cls", Schema: schemaB}),
	)
	require.NoError(t, err)
	assert.Equal(t, fileA{Name: "hello", Number: 1, Cls: fileB{X: 5}}, cfg)

	b, err := cfgman.Default[fileB](m)
	require.NoError(t, err)
	assert.Equal(t, 5, b.X)
}

func TestFileLoaderPrecedence(t *testing.T) {
	m, _, _ := newFileManager(t)
	tmpDir := t.TempDir()
	system := writeFile(t, tmpDir, "system.toml", "name = \"system\"\nnumber = 1\n")
	user := writeFile(t, tmpDir, "user.yaml", "number: 2\n")

	cfg, err := cfgman.Load[fileA](m,
		cfgman.FileLoader(cfgman.FileOptions{Files: []string{system, user}}),
		cfgman.Tree{"cls": map[string]any{"x": 9}},
	)
	require.NoError(t, err)
	assert.Equal(t, fileA{Name: "system", Number: 2, Cls: fileB{X: 9}}, cfg)
}
