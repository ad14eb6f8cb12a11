package cli

import (
	"fmt"
	"io"
)

func PrintRootHelp(w io.Writer) {
	fmt.Fprintln(w, `docmap - document tables, field locators and DDL for JSON documents

USAGE
  docmap [global flags] <command> [args]

GLOBAL FLAGS
  --config, -c <file.yaml>   (default docmap.yaml)
  --backend sqlite|postgres
  --sqlite-path <file.db>
  --sqlite-driver sqlite|sqlite3
  --pg-dsn <dsn>
  --schema <name>
  --format pretty|json
  --metrics                  print docmap metrics to stderr on exit
  -v                         log DDL to stderr

COMMANDS
  ddl [-o file|-]            export DDL for every declared document
  ddl-by-type [-d dir]       one DDL file per document table
  ensure [-t alias]...       create or update document tables
  tables [--documents]       list docmap tables in the database
  functions                  list docmap functions in the database
  describe [-t alias]        show mappings, locators and table shapes
  put -t alias --set k=v | --json | --import file.jsonl
  get -t alias --id <id>
  delete -t alias --id <id>
  search -t alias -w <filter> [--arg v]... [--explain]`)
}
