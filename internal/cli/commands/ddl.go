package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/docmap/docmap/internal/cliopt"
	"github.com/docmap/docmap/internal/cliutil"
)

// RunDDL writes the DDL of every declared document to a file, or to stdout
// with -o -.
func RunDDL(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("ddl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var out string
	fs.StringVar(&out, "out", "", "output file; - for stdout (default from config output.ddl)")
	fs.StringVar(&out, "o", "", "output file (shorthand)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	s, cfg, err := cliutil.OpenSchema(context.Background(), g, false)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()

	if out == "-" {
		ddl, err := s.ToDDL()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprint(stdout, ddl)
		return 0
	}
	if out == "" {
		out = cfg.Output.DDL
	}
	if err := s.WriteDDL(out); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s\n", out)
	return 0
}

// RunDDLByType writes one DDL file per document table into a directory.
func RunDDLByType(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("ddl-by-type", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var dir string
	fs.StringVar(&dir, "dir", "", "output directory (default from config output.ddl_dir)")
	fs.StringVar(&dir, "d", "", "output directory (shorthand)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	s, cfg, err := cliutil.OpenSchema(context.Background(), g, false)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()

	if dir == "" {
		dir = cfg.Output.DDLDir
	}
	if err := s.WriteDDLByType(dir); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s\n", dir)
	return 0
}
