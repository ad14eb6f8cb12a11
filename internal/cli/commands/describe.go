package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/docmap/docmap/docmap"
	"github.com/docmap/docmap/internal/cliopt"
	"github.com/docmap/docmap/internal/cliutil"
)

type memberView struct {
	Path         string   `json:"path"`
	Kind         string   `json:"kind"`
	Column       string   `json:"column,omitempty"`
	RawLocator   string   `json:"raw_locator,omitempty"`
	TypedLocator string   `json:"typed_locator,omitempty"`
	Containment  bool     `json:"containment,omitempty"`
	Values       []string `json:"values,omitempty"`
	Computed     bool     `json:"computed,omitempty"`
}

type mappingView struct {
	Alias    string                   `json:"alias"`
	Table    string                   `json:"table"`
	Upsert   string                   `json:"upsert_function"`
	Identity string                   `json:"identity"`
	HiloLo   int                      `json:"hilo_max_lo,omitempty"`
	Members  []memberView             `json:"members"`
	Columns  []docmap.TableColumn     `json:"columns"`
	Indexes  []docmap.IndexDefinition `json:"indexes"`
}

// RunDescribe prints the mappings, their field locators and the table
// definitions derived from them. It works offline.
func RunDescribe(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var alias string
	fs.StringVar(&alias, "type", "", "document alias (default all)")
	fs.StringVar(&alias, "t", "", "document alias (shorthand)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	s, _, err := cliutil.OpenSchema(context.Background(), g, false)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()

	var views []mappingView
	if alias != "" {
		m, err := s.MappingForAlias(alias)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		views = append(views, describeMapping(s, m))
	} else {
		for m := range s.AllDocumentMaps() {
			views = append(views, describeMapping(s, m))
		}
	}

	if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
		cliutil.PrintJSON(stdout, views)
		return 0
	}
	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		printMapping(v)
	}
	return 0
}

func describeMapping(s *docmap.DocumentSchema, m *docmap.DocumentMapping) mappingView {
	id := m.Identity()
	v := mappingView{
		Alias:    m.Alias(),
		Table:    m.TableName().QualifiedName(),
		Upsert:   m.UpsertFunction().QualifiedName(),
		Identity: id.Member + " " + string(id.Kind),
	}
	if h, ok := m.Hilo(); ok {
		v.HiloLo = h.MaxLo
	}
	for _, mem := range m.Members() {
		mv := memberView{Path: mem.Path, Kind: string(mem.Kind), Values: mem.EnumValues, Computed: mem.Computed}
		if f, ok := m.TryField(mem.Path); ok {
			mv.Column = f.Column()
			mv.RawLocator = f.RawLocator()
			mv.TypedLocator = f.TypedLocator()
			mv.Containment = f.UseContainmentOperator()
		}
		v.Members = append(v.Members, mv)
	}
	def := s.TableSchemaFor(m)
	v.Columns = def.Columns
	v.Indexes = def.Indexes
	return v
}

func printMapping(v mappingView) {
	fmt.Fprintf(stdout, "%s -> %s (identity %s", v.Alias, v.Table, v.Identity)
	if v.HiloLo > 0 {
		fmt.Fprintf(stdout, ", hilo %d", v.HiloLo)
	}
	fmt.Fprintln(stdout, ")")
	fmt.Fprintln(stdout, "  members:")
	for _, m := range v.Members {
		if m.Computed {
			fmt.Fprintf(stdout, "    %-20s computed\n", m.Path)
			continue
		}
		fmt.Fprintf(stdout, "    %-20s %-7s %s\n", m.Path, m.Kind, m.TypedLocator)
	}
	fmt.Fprintln(stdout, "  columns:")
	for _, c := range v.Columns {
		fmt.Fprintf(stdout, "    %-20s %s\n", c.Name, c.Type)
	}
	for _, ix := range v.Indexes {
		fmt.Fprintf(stdout, "  index %s on %s\n", ix.Name, ix.Expression)
	}
}
