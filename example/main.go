// FILE: cfgman/example/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/duilio/cfgman"
)

type ServerConfig struct {
	Host         string        `config:"host" validate:"required"`
	Port         int           `config:"port" validate:"gt=0,lte=65535"`
	ReadTimeout  time.Duration `config:"read_timeout"`
	WriteTimeout time.Duration `config:"write_timeout"`
}

type DatabaseConfig struct {
	URL         string        `config:"url" validate:"required,url"`
	MaxConns    int           `config:"max_conns" validate:"gte=1"`
	IdleTimeout time.Duration `config:"idle_timeout"`
}

// AppConfig defines the configuration of the demo application.
type AppConfig struct {
	Server       ServerConfig    `config:"server"`
	Database     DatabaseConfig  `config:"database"`
	FeatureFlags map[string]bool `config:"feature_flags"`
	Admins       []string        `config:"admins"`
}

const configFilePath = "config.toml"

const initialConfig = `
admins = ["root"]

[server]
port = 8080

[database]
url = "postgres://localhost/myapp"
max_conns = 25

[feature_flags]
rate_limit = true
`

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	cfgman.SetLogger(logger.Level(zerolog.DebugLevel))

	if err := os.WriteFile(configFilePath, []byte(initialConfig), 0o644); err != nil {
		logger.Fatal().Err(err).Msg("failed to write initial config")
	}
	defer os.Remove(configFilePath)

	cfgman.MustRegister(ServerConfig{
		Host:         "localhost",
		Port:         3000,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
	cfgman.MustRegister(DatabaseConfig{MaxConns: 10, IdleTimeout: 30 * time.Second})

	// Precedence: defaults < config.toml < environment < admin override layer
	cfg, err := cfgman.NewBuilder[AppConfig]().
		WithDefaults(AppConfig{Admins: []string{}}).
		WithFiles(cfgman.FileOptions{Files: []string{configFilePath}, LoadAtLeastOneFile: true}).
		WithEnv(cfgman.EnvOptions{
			Prefix: "MYAPP_",
			Mapping: map[string]string{
				"SERVER_PORT":  "server.port",
				"DATABASE_URL": "database.url",
			},
		}).
		WithLayer(cfgman.Tree{"admins": []any{"ops"}}).
		WithValidator(func(c AppConfig) error {
			if c.Server.WriteTimeout < c.Server.ReadTimeout {
				return errWriteTimeout
			}
			return nil
		}).
		Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logConfig(logger, cfg)

	// Every schema value reachable from the loaded config is a default now.
	db, err := cfgman.GetDefaultConfig[DatabaseConfig]()
	if err != nil {
		logger.Fatal().Err(err).Msg("no database default")
	}
	logger.Info().Str("url", db.URL).Msg("database default")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := cfgman.WatchConfig[AppConfig](cfgman.Standard(), cfgman.DefaultWatchOptions(), []string{configFilePath})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create watcher")
	}
	changes := watcher.Subscribe()

	go func() {
		for ev := range changes {
			if ev.Err != nil {
				logger.Error().Err(ev.Err).Str("file", ev.Path).Msg("reload failed, keeping previous config")
				continue
			}
			current, _ := cfgman.GetDefaultConfig[AppConfig]()
			logConfig(logger, current)
		}
	}()

	logger.Info().Msgf("watching %s for changes, press Ctrl+C to exit", configFilePath)
	if err := watcher.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("watcher failed")
	}
	logger.Info().Msg("shutting down")
}

var errWriteTimeout = errors.New("server.write_timeout must not be shorter than server.read_timeout")

func logConfig(logger zerolog.Logger, cfg AppConfig) {
	logger.Info().
		Str("server", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.URL).
		Int("max_conns", cfg.Database.MaxConns).
		Interface("flags", cfg.FeatureFlags).
		Strs("admins", cfg.Admins).
		Msg("current configuration")
}
