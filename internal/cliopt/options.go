package cliopt

import "flag"

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
// Non-empty values override the config file.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command router and per-command code.
type GlobalOptions struct {
	ConfigPath   string
	Backend      string
	SQLitePath   string
	SQLiteDriver string
	PostgresDSN  string
	Schema       string

	Format  string
	Verbose bool
	Metrics bool
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigPath: "docmap.yaml",
		Format:     "pretty",
	}
}

func BindGlobalFlags(fs *flag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.ConfigPath, "config", g.ConfigPath, "YAML config declaring the store and its documents")
	fs.StringVar(&g.ConfigPath, "c", g.ConfigPath, "config file (shorthand)")

	fs.StringVar(&g.Backend, "backend", g.Backend, "backend: sqlite|postgres")

	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "sqlite database file")
	fs.StringVar(&g.SQLiteDriver, "sqlite-driver", g.SQLiteDriver, "sqlite driver: sqlite (pure Go) or sqlite3 (cgo builds)")

	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.StringVar(&g.Schema, "schema", g.Schema, "database schema for document tables")

	fs.StringVar(&g.Format, "format", g.Format, "output: pretty|json")
	fs.BoolVar(&g.Verbose, "v", g.Verbose, "log DDL and construction to stderr")
	fs.BoolVar(&g.Metrics, "metrics", g.Metrics, "print docmap metrics to stderr on exit")
}
