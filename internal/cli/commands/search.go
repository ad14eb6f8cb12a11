package commands

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/docmap/docmap/docmap"
	"github.com/docmap/docmap/docmap/planner"
	"github.com/docmap/docmap/internal/cliopt"
	"github.com/docmap/docmap/internal/cliutil"
)

// RunSearch runs a filter against one document table. Each ? in the filter
// takes the next --arg.
func RunSearch(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var alias, where string
	var args multiString
	var explain bool
	fs.StringVar(&alias, "type", "", "document alias")
	fs.StringVar(&alias, "t", "", "document alias (shorthand)")
	fs.StringVar(&where, "where", "", "filter, e.g. \"customer.name = ? AND total > 10\"")
	fs.StringVar(&where, "w", "", "filter (shorthand)")
	fs.Var(&args, "arg", "positional parameter value (repeatable)")
	fs.BoolVar(&explain, "explain", false, "print the compiled SQL")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if alias == "" || where == "" {
		fmt.Fprintln(stderr, "missing --type or --where")
		return 2
	}

	ctx := context.Background()
	s, r, err := openDocuments(ctx, g, alias)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()

	values := make([]any, len(args))
	for i, a := range args {
		values[i] = parseValue(a)
	}

	start := time.Now()
	docs, err := r.Where(ctx, where, values...)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	elapsed := time.Since(start)

	var q *planner.CompiledQuery
	if explain {
		if q, err = r.Compile(where); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	printSearch(cliutil.ParseOutputFormat(g.Format), r.Storage().Mapping(), docs, q, elapsed)
	return 0
}

func printSearch(format cliutil.OutputFormat, m *docmap.DocumentMapping, docs []*docmap.DynamicDocument, q *planner.CompiledQuery, dur time.Duration) {
	if format == cliutil.FormatJSON {
		out := map[string]any{"items": docs}
		if q != nil {
			out["sql"] = q.SQL
		}
		cliutil.PrintJSON(stdout, out)
		return
	}
	fmt.Fprintf(stdout, "Found %d %s in %dms\n", len(docs), m.Alias(), dur.Milliseconds())
	idMember := m.Identity().Member
	for _, d := range docs {
		fmt.Fprintf(stdout, "- %v\n", (*d)[idMember])
	}
	if q != nil {
		fmt.Fprintf(stdout, "\n%s\n", planner.Explain(q))
	}
}
