package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/docmap/docmap/internal/cliopt"
)

func RunDelete(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
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

	ok, err := r.Delete(ctx, id)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if !ok {
		fmt.Fprintf(stdout, "not found %s %s\n", alias, id)
		return 1
	}
	fmt.Fprintf(stdout, "deleted %s %s\n", alias, id)
	return 0
}
