// FILE: cfgman/doc.go

// Package cfgman loads typed configuration from an ordered list of layers.
//
// A layer is an untyped Tree produced by a Source: a literal fragment, a file
// loader (JSON, YAML, TOML), an environment loader or any function. Layers are
// merged left to right, the result is decoded into a registered schema struct
// with its defaults, validated, and every schema value reachable from the
// result becomes the default instance for its type.
//
// Merge rules:
//   - mappings merge recursively, later layers win on scalars
//   - sequences are concatenated in layer order
//   - Missing removes a previously set value unless a later layer sets it again
//   - a sequence meeting a non-sequence at the same path is a *ConflictError
//
// Quick Start:
//
//	type Web struct {
//	    Host string `config:"host"`
//	    Port int    `config:"port" validate:"gt=0"`
//	}
//
//	type App struct {
//	    Name string `config:"name" validate:"required"`
//	    Web  Web    `config:"web"`
//	}
//
//	cfgman.MustRegister(Web{Host: "localhost", Port: 80})
//	cfgman.MustRegister(App{})
//
//	app, err := cfgman.LoadConfig[App](
//	    cfgman.FileLoader(cfgman.FileOptions{Files: []string{"/etc/app.toml", "app.yaml"}}),
//	    cfgman.EnvLoader(cfgman.EnvOptions{
//	        Prefix:  "APP_",
//	        Mapping: map[string]string{"PORT": "web.port"},
//	    }),
//	    cfgman.Tree{"name": "demo"},
//	)
//
//	web, _ := cfgman.GetDefaultConfig[Web]()
//
// Thread Safety:
// Managers and default registries are safe for concurrent use. Package-level
// functions use a process-wide Manager; tests and embedders can create their
// own with New.
package cfgman
