package cliutil

import (
	"context"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/docmap/docmap/docmap"
	"github.com/docmap/docmap/docmap/storage"
	"github.com/docmap/docmap/docmap/storage/postgres"
	"github.com/docmap/docmap/docmap/storage/sqlite"
	"github.com/docmap/docmap/internal/cliopt"
	"github.com/docmap/docmap/internal/config"
)

// LoadConfig reads the config named by the global flags and applies flag
// overrides. A missing file at the default path yields the default config.
func LoadConfig(g cliopt.GlobalOptions) (*config.Config, error) {
	var cfg *config.Config
	_, statErr := os.Stat(g.ConfigPath)
	switch {
	case statErr == nil:
		c, err := config.LoadFile(g.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	case os.IsNotExist(statErr) && g.ConfigPath == cliopt.DefaultGlobalOptions().ConfigPath:
		cfg = config.Default()
	default:
		return nil, errors.Wrapf(statErr, "config %s", g.ConfigPath)
	}

	if g.Backend != "" {
		cfg.Backend = g.Backend
	}
	if g.SQLitePath != "" {
		cfg.SQLite.Path = g.SQLitePath
	}
	if g.SQLiteDriver != "" {
		cfg.SQLite.Driver = g.SQLiteDriver
	}
	if g.PostgresDSN != "" {
		cfg.Postgres.DSN = g.PostgresDSN
	}
	if g.Schema != "" {
		cfg.Schema = g.Schema
	}
	return cfg, nil
}

// NewAdapter picks the storage adapter for the configured backend.
func NewAdapter(cfg *config.Config) (storage.Adapter, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlite.NewWithDriver(cfg.SQLite.Path, cfg.SQLite.Driver), nil
	case config.BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return nil, errors.New("postgres backend needs --pg-dsn or postgres.dsn")
		}
		return postgres.New(cfg.Postgres.DSN, cfg.Schema), nil
	default:
		return nil, errors.Errorf("unknown backend %q", cfg.Backend)
	}
}

// OpenSchema builds the document schema for the config with every declared
// document registered. connect=false stays offline, which is enough for DDL
// export.
func OpenSchema(ctx context.Context, g cliopt.GlobalOptions, connect bool) (*docmap.DocumentSchema, *config.Config, error) {
	cfg, err := LoadConfig(g)
	if err != nil {
		return nil, nil, err
	}
	adapter, err := NewAdapter(cfg)
	if err != nil {
		return nil, nil, err
	}
	regs, err := cfg.Registrations()
	if err != nil {
		return nil, nil, err
	}

	opts := cfg.StoreOptions()
	level := slog.LevelWarn
	if g.Verbose {
		level = slog.LevelDebug
	}
	opts.Logger = docmap.NewDefaultLogger(level)

	var s *docmap.DocumentSchema
	if connect {
		s, err = docmap.Open(ctx, adapter, opts)
	} else {
		s, err = docmap.NewDocumentSchema(adapter, opts)
	}
	if err != nil {
		return nil, nil, err
	}
	if err := s.Register(regs...); err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return s, cfg, nil
}
