package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/docmap/docmap/docmap"
	"github.com/docmap/docmap/internal/cliopt"
	"github.com/docmap/docmap/internal/cliutil"
)

// RunEnsure brings the tables of the declared documents up to date. Drift is
// reported per document and makes the command fail.
func RunEnsure(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("ensure", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var only multiString
	fs.Var(&only, "type", "document alias to ensure (repeatable; default all)")
	fs.Var(&only, "t", "document alias (shorthand)")
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

	var mappings []*docmap.DocumentMapping
	if len(only) > 0 {
		for _, alias := range only {
			m, err := s.MappingForAlias(alias)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			mappings = append(mappings, m)
		}
	} else {
		for m := range s.AllDocumentMaps() {
			mappings = append(mappings, m)
		}
	}

	code := 0
	for _, m := range mappings {
		if err := s.EnsureStorageExistsFor(ctx, m); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", m.Alias(), err)
			code = 1
			continue
		}
		fmt.Fprintf(stdout, "%s: %s ok\n", m.Alias(), m.TableName())
	}
	return code
}
