package commands

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docmap/docmap/docmap"
	"github.com/docmap/docmap/internal/cliopt"
)

// RunPut stores one document built from --set pairs, or JSON lines from a
// file or stdin. Missing numeric and UUID identities are assigned.
func RunPut(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var alias, importPath string
	var jsonStdin bool
	var sets multiString
	fs.StringVar(&alias, "type", "", "document alias")
	fs.StringVar(&alias, "t", "", "document alias (shorthand)")
	fs.BoolVar(&jsonStdin, "json", false, "read JSON lines from stdin")
	fs.StringVar(&importPath, "import", "", "import JSONL file")
	fs.Var(&sets, "set", "set path=value (repeatable)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if alias == "" {
		fmt.Fprintln(stderr, "missing --type")
		return 2
	}

	var docs []docmap.DynamicDocument
	switch {
	case len(sets) > 0:
		doc := docmap.DynamicDocument{}
		for _, kv := range sets {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				setPath(doc, kv, true)
				continue
			}
			setPath(doc, k, parseValue(v))
		}
		docs = append(docs, doc)
	case importPath != "" || jsonStdin:
		var r io.Reader = stdin
		if importPath != "" {
			f, err := os.Open(importPath)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			defer f.Close()
			r = f
		}
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			doc, err := decodeDocument(line)
			if err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			docs = append(docs, doc)
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	default:
		fmt.Fprintln(stderr, "provide --set, --json or --import")
		return 2
	}

	ctx := context.Background()
	s, r, err := openDocuments(ctx, g, alias)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()

	idMember := r.Storage().Mapping().Identity().Member
	for i := range docs {
		if err := r.Store(ctx, &docs[i]); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintf(stdout, "put %s %v\n", alias, docs[i][idMember])
	}
	return 0
}
