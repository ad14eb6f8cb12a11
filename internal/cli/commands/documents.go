package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/docmap/docmap/docmap"
	"github.com/docmap/docmap/internal/cliopt"
	"github.com/docmap/docmap/internal/cliutil"
)

// openDocuments connects and returns the resolver of a config-declared
// document. The caller closes the schema.
func openDocuments(ctx context.Context, g cliopt.GlobalOptions, alias string) (*docmap.DocumentSchema, *docmap.Resolver[docmap.DynamicDocument], error) {
	s, _, err := cliutil.OpenSchema(ctx, g, true)
	if err != nil {
		return nil, nil, err
	}
	r, err := docmap.ResolverForAlias[docmap.DynamicDocument](ctx, s, alias)
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	return s, r, nil
}

// parseValue reads a command line value as JSON when it is valid JSON and as
// a plain string otherwise, so 42 and true keep their types and Bob needs no
// quoting.
func parseValue(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}

// setPath assigns v under a dotted path, creating nested objects.
func setPath(doc docmap.DynamicDocument, path string, v any) {
	parts := strings.Split(path, ".")
	cur := map[string]any(doc)
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func decodeDocument(line []byte) (docmap.DynamicDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var doc docmap.DynamicDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
