package storage

import (
	"strings"
	"unicode"
)

// ColumnConflict is a live column or index that cannot be reconciled
// additively.
type ColumnConflict struct {
	Column  string
	Desired string
	Actual  string
	Reason  string
}

// SchemaDelta is the additive change set that brings a live table in line
// with its desired definition. Columns present only in the live table are
// left alone.
type SchemaDelta struct {
	Table         TableName
	CreateTable   bool
	AddColumns    []TableColumn
	CreateIndexes []IndexDefinition
	Conflicts     []ColumnConflict
}

// Empty reports whether no DDL is needed.
func (d SchemaDelta) Empty() bool {
	return !d.CreateTable && len(d.AddColumns) == 0 && len(d.CreateIndexes) == 0
}

// ShapeChanged reports whether the column layout changes, which invalidates
// any generated function bound to the old layout.
func (d SchemaDelta) ShapeChanged() bool {
	return d.CreateTable || len(d.AddColumns) > 0
}

// Diff computes the delta from actual to desired. A nil actual means the table
// does not exist. normalize maps a database type name onto a canonical
// spelling so "character varying" and "varchar" compare equal; nil compares
// the raw strings.
func Diff(desired TableDefinition, actual *TableDefinition, normalize func(string) string) SchemaDelta {
	delta := SchemaDelta{Table: desired.Table}
	if normalize == nil {
		normalize = func(s string) string { return s }
	}

	if actual == nil {
		delta.CreateTable = true
		delta.CreateIndexes = append(delta.CreateIndexes, desired.Indexes...)
		return delta
	}

	for _, want := range desired.Columns {
		have, ok := actual.Column(want.Name)
		if !ok {
			if !want.Nullable && want.Default == "" {
				delta.Conflicts = append(delta.Conflicts, ColumnConflict{
					Column:  want.Name,
					Desired: want.Type,
					Reason:  "missing NOT NULL column cannot be added to an existing table",
				})
				continue
			}
			delta.AddColumns = append(delta.AddColumns, want)
			continue
		}
		if normalize(have.Type) != normalize(want.Type) {
			delta.Conflicts = append(delta.Conflicts, ColumnConflict{
				Column:  want.Name,
				Desired: want.Type,
				Actual:  have.Type,
				Reason:  "column type differs",
			})
		}
		if have.PrimaryKey != want.PrimaryKey {
			delta.Conflicts = append(delta.Conflicts, ColumnConflict{
				Column:  want.Name,
				Desired: keyLabel(want.PrimaryKey),
				Actual:  keyLabel(have.PrimaryKey),
				Reason:  "primary key differs",
			})
		}
		if have.Nullable && !want.Nullable {
			delta.Conflicts = append(delta.Conflicts, ColumnConflict{
				Column:  want.Name,
				Desired: "NOT NULL",
				Actual:  "NULL",
				Reason:  "column is nullable",
			})
		}
	}

	for _, idx := range desired.Indexes {
		have, ok := actual.Index(idx.Name)
		if !ok {
			delta.CreateIndexes = append(delta.CreateIndexes, idx)
			continue
		}
		if have.Expression != "" && CanonicalExpression(have.Expression) != CanonicalExpression(idx.Expression) {
			delta.Conflicts = append(delta.Conflicts, ColumnConflict{
				Column:  idx.Name,
				Desired: idx.Expression,
				Actual:  have.Expression,
				Reason:  "index expression differs",
			})
		}
		if have.Unique != idx.Unique {
			delta.Conflicts = append(delta.Conflicts, ColumnConflict{
				Column:  idx.Name,
				Desired: uniqueLabel(idx.Unique),
				Actual:  uniqueLabel(have.Unique),
				Reason:  "index uniqueness differs",
			})
		}
	}
	return delta
}

func keyLabel(pk bool) string {
	if pk {
		return "primary key"
	}
	return "not a key"
}

func uniqueLabel(unique bool) string {
	if unique {
		return "unique"
	}
	return "not unique"
}

// CanonicalExpression reduces an index expression to a token sequence that
// survives the rewriting databases apply when they store one: parentheses,
// whitespace, keyword case, CAST(x AS t) versus x::t, and Postgres' implicit
// ::text on string literals. Quoted literals and identifiers are kept as is.
func CanonicalExpression(expr string) string {
	var tokens []string
	runes := []rune(expr)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r) || r == '(' || r == ')':
			i++
		case r == '\'' || r == '"':
			j := i + 1
			for j < len(runes) {
				if runes[j] == r {
					if j+1 < len(runes) && runes[j+1] == r {
						j += 2
						continue
					}
					break
				}
				j++
			}
			end := min(j+1, len(runes))
			tokens = append(tokens, string(runes[i:end]))
			i = end
		case isWordRune(r):
			j := i
			for j < len(runes) && isWordRune(runes[j]) {
				j++
			}
			tokens = append(tokens, strings.ToLower(string(runes[i:j])))
			i = j
		default:
			j := i
			for j < len(runes) && isOperatorRune(runes[j]) {
				j++
			}
			tokens = append(tokens, string(runes[i:j]))
			i = j
		}
	}

	out := tokens[:0]
	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "cast", "as":
			continue
		case "::":
			if i+1 < len(tokens) && tokens[i+1] == "text" {
				i++
			}
			continue
		}
		out = append(out, tokens[i])
	}
	return strings.Join(out, " ")
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isOperatorRune(r rune) bool {
	return !isWordRune(r) && !unicode.IsSpace(r) && r != '(' && r != ')' && r != '\'' && r != '"'
}
