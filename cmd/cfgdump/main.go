// FILE: cfgman/cmd/cfgdump/main.go

// Command cfgdump merges configuration files, environment variables and
// literal overrides the way cfgman does and prints the merged tree.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/duilio/cfgman"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type dumpOptions struct {
	env       []string
	envPrefix string
	set       []string
	unset     []string
	get       string
	output    string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &dumpOptions{}

	cmd := &cobra.Command{
		Use:   "cfgdump [files...]",
		Short: "Merge configuration layers and print the result",
		Long: `Merge configuration layers in order and print the result.

Layers, lowest priority first: the files in argument order, the mapped
environment variables, every --set override, then every --unset.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVar(&opts.env, "env", nil, "map an environment variable to a path (NAME=path)")
	flags.StringVar(&opts.envPrefix, "env-prefix", "", "prefix of mapped environment variables")
	flags.StringArrayVar(&opts.set, "set", nil, "override a value (path=value)")
	flags.StringArrayVar(&opts.unset, "unset", nil, "remove a value (path)")
	flags.StringVar(&opts.get, "get", "", "print only the value at this path")
	flags.StringVarP(&opts.output, "output", "o", "yaml", "output format: json, yaml or toml")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log loading steps to stderr")

	return cmd
}

func runDump(cmd *cobra.Command, files []string, opts *dumpOptions) error {
	if opts.verbose {
		cfgman.SetLogger(zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(zerolog.DebugLevel))
	}

	format, err := cfgman.ParseFileType(opts.output)
	if err != nil {
		return err
	}

	layers := []cfgman.Tree{{}}

	fileLayers, err := cfgman.LoadFile(nil, cfgman.FileOptions{
		Files:          files,
		LoadAllFiles:   true,
		SkipValidation: true,
	})
	if err != nil {
		return err
	}
	layers = append(layers, fileLayers...)

	if len(opts.env) > 0 {
		mapping, err := parsePairs(opts.env, "--env")
		if err != nil {
			return err
		}
		envLayer, err := cfgman.LoadEnv(nil, cfgman.EnvOptions{Mapping: mapping, Prefix: opts.envPrefix})
		if err != nil {
			return err
		}
		layers = append(layers, envLayer)
	}

	for _, pair := range opts.set {
		path, value, ok := strings.Cut(pair, "=")
		if !ok || path == "" {
			return fmt.Errorf("invalid --set value %q, expected path=value", pair)
		}
		layers = append(layers, literal(path, cfgman.ParseValue(value)))
	}
	for _, path := range opts.unset {
		if path == "" {
			return fmt.Errorf("--unset requires a path")
		}
		layers = append(layers, literal(path, cfgman.Missing))
	}

	merged, err := cfgman.MergeLayers(layers...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.get == "" {
		return cfgman.Dump(out, merged, format)
	}

	value, ok := merged.Lookup(opts.get)
	if !ok {
		return fmt.Errorf("path %q is not set", opts.get)
	}
	if node, ok := value.(map[string]any); ok {
		return cfgman.Dump(out, node, format)
	}
	_, err = fmt.Fprintln(out, value)
	return err
}

// literal builds a single-value layer.
func literal(path string, value any) cfgman.Tree {
	tree := cfgman.Tree{}
	parent, key := cfgman.EnsurePathPrefix(tree, cfgman.SplitPath(path))
	parent[key] = value
	return tree
}

func parsePairs(pairs []string, flag string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("invalid %s value %q, expected NAME=path", flag, pair)
		}
		out[name] = value
	}
	return out, nil
}
