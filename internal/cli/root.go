package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docmap/docmap/docmap"
	"github.com/docmap/docmap/internal/cli/commands"
	"github.com/docmap/docmap/internal/cliopt"
	"github.com/docmap/docmap/internal/cliutil"
)

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	globalFS := flag.NewFlagSet("docmap", flag.ContinueOnError)
	globalFS.SetOutput(os.Stderr)
	g := cliopt.DefaultGlobalOptions()
	cliopt.BindGlobalFlags(globalFS, &g)

	if err := globalFS.Parse(argv); err != nil {
		// flag package already printed the error
		return 2
	}

	args := globalFS.Args()
	if len(args) == 0 {
		PrintRootHelp(os.Stdout)
		return 0
	}

	var reg *prometheus.Registry
	if g.Metrics {
		reg = prometheus.NewRegistry()
		if err := docmap.RegisterMetrics(reg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	code := dispatch(g, args[0], args[1:])
	if reg != nil {
		if err := cliutil.PrintMetrics(os.Stderr, reg); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return code
}

func dispatch(g cliopt.GlobalOptions, verb string, rest []string) int {
	switch verb {
	case "--help", "-h", "help":
		PrintRootHelp(os.Stdout)
		return 0
	case "ddl":
		return commands.RunDDL(g, rest)
	case "ddl-by-type":
		return commands.RunDDLByType(g, rest)
	case "ensure":
		return commands.RunEnsure(g, rest)
	case "tables":
		return commands.RunTables(g, rest)
	case "functions":
		return commands.RunFunctions(g, rest)
	case "describe":
		return commands.RunDescribe(g, rest)
	case "put":
		return commands.RunPut(g, rest)
	case "get":
		return commands.RunGet(g, rest)
	case "delete":
		return commands.RunDelete(g, rest)
	case "search":
		return commands.RunSearch(g, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", verb)
		PrintRootHelp(os.Stderr)
		return 2
	}
}
