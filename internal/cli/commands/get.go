package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/docmap/docmap/internal/cliopt"
	"github.com/docmap/docmap/internal/cliutil"
)

func RunGet(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var alias, id string
	fs.StringVar(&alias, "type", "", "document alias")
	fs.StringVar(&alias, "t", "", "document alias (shorthand)")
	fs.StringVar(&id, "id", "", "document id")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if alias == "" || id == "" {
		fmt.Fprintln(stderr, "missing --type or --id")
		return 2
	}

	ctx := context.Background()
	s, r, err := openDocuments(ctx, g, alias)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()

	doc, err := r.Load(ctx, id)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cliutil.PrintJSON(stdout, doc)
	return 0
}
