package sqlite

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docmap/docmap/docmap/storage"
	"github.com/docmap/docmap/docmap/storage/sqlbuilder"
)

// Dialect renders SQLite SQL. Documents are stored as JSON text and read back
// with json_extract.
type Dialect struct{}

func (Dialect) Backend() storage.Backend { return storage.BackendSQLite }

func (Dialect) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderQuestion }

var plainIdentRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func (Dialect) QuoteIdent(ident string) string {
	if plainIdentRe.MatchString(ident) {
		return ident
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d Dialect) QualifiedTable(t storage.TableName) string { return d.QuoteIdent(t.Name) }

func (d Dialect) QualifiedFunction(f storage.FunctionName) string { return d.QuoteIdent(f.Name) }

func (Dialect) JSONColumnType() string { return "TEXT" }

func (Dialect) ColumnType(kind storage.ValueKind) string {
	switch kind {
	case storage.KindInt, storage.KindInt64, storage.KindBool:
		return "INTEGER"
	case storage.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (Dialect) NormalizeType(sqlType string) string {
	return strings.ToUpper(strings.TrimSpace(sqlType))
}

// JSONLocator builds a json_extract path. Keys are identifiers, so the path
// needs no quoting beyond the enclosing literal.
func (Dialect) JSONLocator(root string, keys []string) string {
	return fmt.Sprintf("json_extract(%s, '$.%s')", root, strings.Join(keys, "."))
}

func (Dialect) Cast(expr, sqlType string) string {
	return "CAST(" + expr + " AS " + sqlType + ")"
}

// ParameterValue matches the JSON encoding read back by json_extract:
// booleans become 1/0 and times are compared as UTC RFC 3339 text.
func (Dialect) ParameterValue(_ storage.ValueKind, v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case uuid.UUID:
		return x.String()
	default:
		return v
	}
}

func (Dialect) SupportsContainment() bool { return false }

func (Dialect) ContainmentLocator(root, placeholder string) string {
	return root + " = " + placeholder
}

func (d Dialect) columnDef(col storage.TableColumn) string {
	s := d.QuoteIdent(col.Name) + " " + col.Type
	if col.Default != "" {
		s += " DEFAULT " + col.Default
	}
	if !col.Nullable {
		s += " NOT NULL"
	}
	return s
}

func (d Dialect) CreateTable(def storage.TableDefinition) string {
	parts := make([]string, 0, len(def.Columns)+1)
	for _, col := range def.Columns {
		parts = append(parts, d.columnDef(col))
	}
	if pk, ok := def.PrimaryKey(); ok {
		parts = append(parts, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", d.QuoteIdent("pk_"+def.Table.Name), d.QuoteIdent(pk.Name)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n);", d.QualifiedTable(def.Table), strings.Join(parts, ",\n    "))
}

// AddColumn has no IF NOT EXISTS form in SQLite; callers only add columns the
// live table lacks.
func (d Dialect) AddColumn(table storage.TableName, col storage.TableColumn) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", d.QualifiedTable(table), d.columnDef(col))
}

func (d Dialect) CreateIndex(table storage.TableName, idx storage.IndexDefinition) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s);",
		unique, d.QuoteIdent(idx.Name), d.QualifiedTable(table), idx.Expression)
}

func (Dialect) DocumentFunctions(storage.TableDefinition, storage.FunctionName) []storage.FunctionDefinition {
	return nil
}

// UpsertStatement inlines the upsert that Postgres wraps in a function.
func (d Dialect) UpsertStatement(def storage.TableDefinition, _ storage.FunctionName) string {
	cols := make([]string, len(def.Columns))
	vals := make([]string, len(def.Columns))
	var sets []string
	var key string
	for i, col := range def.Columns {
		cols[i] = d.QuoteIdent(col.Name)
		vals[i] = sqlbuilder.Placeholder(sqlbuilder.PlaceholderQuestion, i+1)
		if col.PrimaryKey {
			key = cols[i]
			continue
		}
		sets = append(sets, cols[i]+" = excluded."+cols[i])
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		d.QualifiedTable(def.Table), strings.Join(cols, ", "), strings.Join(vals, ", "), key, strings.Join(sets, ", "))
}

func (Dialect) HiloFunctions(string) []storage.FunctionDefinition { return nil }

func (d Dialect) NextHiStatement(schema string) string {
	table := d.QualifiedTable(storage.NewTableName(schema, storage.HiloTableName))
	return "INSERT INTO " + table + " (entity_name, hi_value) VALUES (?1, 0) " +
		"ON CONFLICT (entity_name) DO UPDATE SET hi_value = hi_value + 1 RETURNING hi_value"
}

var _ storage.Dialect = Dialect{}
