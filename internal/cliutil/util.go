package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
)

type OutputFormat string

const (
	FormatPretty OutputFormat = "pretty"
	FormatJSON   OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatPretty, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatPretty
	}
}

func PrintJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

// PrintList writes items one per line, or as a JSON array.
func PrintList[T fmt.Stringer](w io.Writer, format OutputFormat, items []T) {
	if format == FormatJSON {
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.String()
		}
		PrintJSON(w, out)
		return
	}
	for _, it := range items {
		fmt.Fprintln(w, it.String())
	}
}
