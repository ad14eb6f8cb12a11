package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/docmap/docmap/internal/cliopt"
	"github.com/docmap/docmap/internal/cliutil"
)

// RunTables lists the docmap tables present in the database.
func RunTables(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("tables", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var docsOnly bool
	fs.BoolVar(&docsOnly, "documents", false, "only document tables")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	ctx := context.Background()
	s, _, err := cliutil.OpenSchema(ctx, g, true)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()

	list := s.SchemaTables
	if docsOnly {
		list = s.DocumentTables
	}
	tables, err := list(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cliutil.PrintList(stdout, cliutil.ParseOutputFormat(g.Format), tables)
	return 0
}

// RunFunctions lists the docmap functions present in the database.
func RunFunctions(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("functions", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	ctx := context.Background()
	s, _, err := cliutil.OpenSchema(ctx, g, true)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()

	fns, err := s.SchemaFunctionNames(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cliutil.PrintList(stdout, cliutil.ParseOutputFormat(g.Format), fns)
	return 0
}
