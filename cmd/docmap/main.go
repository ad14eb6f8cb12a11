package main

import (
	"os"

	"github.com/docmap/docmap/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
