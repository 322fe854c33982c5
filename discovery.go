// FILE: cfgman/discovery.go
package cfgman

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// FileDiscoveryOptions configures automatic config file discovery
type FileDiscoveryOptions struct {
	// Base name of config file (without extension)
	Name string

	// Extensions to try, in increasing priority
	Extensions []string

	// Custom search paths (in addition to defaults)
	Paths []string

	// Environment variable to check for explicit path
	EnvVar string

	// CLI flag to check (e.g., "--config" or "-c")
	CLIFlag string

	// Args are scanned for CLIFlag; nil means os.Args[1:]
	Args []string

	// Whether to search in XDG config directories
	UseXDG bool

	// Whether to search in current directory
	UseCurrentDir bool
}

// DefaultDiscoveryOptions returns sensible defaults
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".json", ".toml", ".yaml", ".yml"},
		EnvVar:        strings.ToUpper(appName) + "_CONFIG",
		CLIFlag:       "--config",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// DiscoverFiles returns every candidate config file path, lowest priority
// first, ready to be used as FileOptions.Files: system directories, the user
// directory, the current directory, custom paths, then the path named by the
// environment variable and the path given on the command line.
// Candidates are not checked for existence.
func DiscoverFiles(opts FileDiscoveryOptions) []string {
	var dirs []string

	if opts.UseXDG {
		dirs = append(dirs, xdgConfigDirs(opts.Name)...)
	}

	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}

	dirs = append(dirs, opts.Paths...)

	var files []string
	for _, dir := range dirs {
		for _, ext := range opts.Extensions {
			files = appendUnique(files, filepath.Join(dir, opts.Name+ext))
		}
	}

	// Explicit paths take precedence over everything discovered
	if opts.EnvVar != "" {
		if path := os.Getenv(opts.EnvVar); path != "" {
			files = appendUnique(files, path)
		}
	}
	if path := cliPath(opts); path != "" {
		files = appendUnique(files, path)
	}

	return files
}

// cliPath returns the value of the config flag in the arguments, if any.
func cliPath(opts FileDiscoveryOptions) string {
	if opts.CLIFlag == "" {
		return ""
	}
	args := opts.Args
	if args == nil && len(os.Args) > 1 {
		args = os.Args[1:]
	}
	for i, arg := range args {
		if arg == opts.CLIFlag && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, opts.CLIFlag+"=") {
			return strings.TrimPrefix(arg, opts.CLIFlag+"=")
		}
	}
	return ""
}

// xdgConfigDirs returns XDG-compliant config directories, lowest priority first
func xdgConfigDirs(appName string) []string {
	var paths []string

	// XDG_CONFIG_DIRS is ordered by preference, most important first
	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		for _, dir := range slices.Backward(filepath.SplitList(xdgDirs)) {
			paths = append(paths, filepath.Join(dir, appName))
		}
	} else {
		// Default system paths
		paths = append(paths,
			filepath.Join("/etc", appName),
			filepath.Join("/etc/xdg", appName),
		)
	}

	// XDG_CONFIG_HOME
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, appName))
	} else if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	return paths
}

// appendUnique moves path to the end when it is already listed so it keeps
// its highest priority.
func appendUnique(files []string, path string) []string {
	if i := slices.Index(files, path); i >= 0 {
		files = slices.Delete(files, i, i+1)
	}
	return append(files, path)
}
