package postgres

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docmap/docmap/docmap/storage"
	"github.com/docmap/docmap/docmap/storage/sqlbuilder"
)

// Dialect renders Postgres SQL. The zero value is ready to use and holds no
// connection, so it can generate DDL offline.
type Dialect struct{}

func (Dialect) Backend() storage.Backend { return storage.BackendPostgres }

func (Dialect) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

var plainIdentRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// QuoteIdent leaves lower-case identifiers bare and double-quotes the rest.
func (Dialect) QuoteIdent(ident string) string {
	if plainIdentRe.MatchString(ident) {
		return ident
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d Dialect) qualify(schema, name string) string {
	if schema == "" {
		return d.QuoteIdent(name)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(name)
}

func (d Dialect) QualifiedTable(t storage.TableName) string { return d.qualify(t.Schema, t.Name) }

func (d Dialect) QualifiedFunction(f storage.FunctionName) string {
	return d.qualify(f.Schema, f.Name)
}

func (Dialect) JSONColumnType() string { return "jsonb" }

func (Dialect) ColumnType(kind storage.ValueKind) string {
	switch kind {
	case storage.KindInt:
		return "integer"
	case storage.KindInt64:
		return "bigint"
	case storage.KindFloat:
		return "double precision"
	case storage.KindBool:
		return "boolean"
	case storage.KindTime:
		return "timestamp with time zone"
	case storage.KindUUID:
		return "uuid"
	case storage.KindObject:
		return "jsonb"
	default:
		return "varchar"
	}
}

var typeAliases = map[string]string{
	"character varying":           "varchar",
	"int":                         "integer",
	"int4":                        "integer",
	"int8":                        "bigint",
	"float8":                      "double precision",
	"bool":                        "boolean",
	"timestamptz":                 "timestamp with time zone",
	"timestamp with time zone":    "timestamp with time zone",
	"timestamp without time zone": "timestamp",
}

func (Dialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(strings.TrimSpace(sqlType))
	if i := strings.IndexByte(t, '('); i > 0 {
		t = strings.TrimSpace(t[:i])
	}
	if alias, ok := typeAliases[t]; ok {
		return alias
	}
	return t
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// JSONLocator walks objects with -> and extracts the leaf as text with ->>.
func (Dialect) JSONLocator(root string, keys []string) string {
	var b strings.Builder
	b.WriteString(root)
	for i, k := range keys {
		if i == len(keys)-1 {
			b.WriteString(" ->> ")
		} else {
			b.WriteString(" -> ")
		}
		b.WriteString(quoteLiteral(k))
	}
	return b.String()
}

func (Dialect) Cast(expr, sqlType string) string {
	return "CAST(" + expr + " as " + sqlType + ")"
}

func (Dialect) ParameterValue(_ storage.ValueKind, v any) any { return v }

func (Dialect) SupportsContainment() bool { return true }

func (Dialect) ContainmentLocator(root, placeholder string) string {
	return root + " @> CAST(" + placeholder + " as jsonb)"
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

func pkName(t storage.TableName) string { return "pk_" + t.Name }

func (d Dialect) CreateTable(def storage.TableDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", d.QualifiedTable(def.Table))
	for _, col := range def.Columns {
		fmt.Fprintf(&b, "    %s,\n", d.columnDef(col))
	}
	if pk, ok := def.PrimaryKey(); ok {
		fmt.Fprintf(&b, "    CONSTRAINT %s PRIMARY KEY (%s)\n", d.QuoteIdent(pkName(def.Table)), d.QuoteIdent(pk.Name))
	} else {
		s := strings.TrimSuffix(b.String(), ",\n")
		b.Reset()
		b.WriteString(s + "\n")
	}
	b.WriteString(");")
	return b.String()
}

func (d Dialect) AddColumn(table storage.TableName, col storage.TableColumn) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s;", d.QualifiedTable(table), d.columnDef(col))
}

func (d Dialect) CreateIndex(table storage.TableName, idx storage.IndexDefinition) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s);",
		unique, d.QuoteIdent(idx.Name), d.QualifiedTable(table), idx.Expression)
}

// DocumentFunctions generates the upsert function taking one argument per
// column, in column order.
func (d Dialect) DocumentFunctions(def storage.TableDefinition, upsert storage.FunctionName) []storage.FunctionDefinition {
	args := make([]string, len(def.Columns))
	cols := make([]string, len(def.Columns))
	vals := make([]string, len(def.Columns))
	var sets []string
	for i, col := range def.Columns {
		arg := "arg_" + col.Name
		args[i] = d.QuoteIdent(arg) + " " + col.Type
		cols[i] = d.QuoteIdent(col.Name)
		vals[i] = d.QuoteIdent(arg)
		if !col.PrimaryKey {
			sets = append(sets, cols[i]+" = "+vals[i])
		}
	}
	fn := d.QualifiedFunction(upsert)

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE OR REPLACE FUNCTION %s(%s) RETURNS void LANGUAGE plpgsql AS $function$\n", fn, strings.Join(args, ", "))
	b.WriteString("BEGIN\n")
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)\n", d.QualifiedTable(def.Table), strings.Join(cols, ", "), strings.Join(vals, ", "))
	fmt.Fprintf(&b, "  ON CONFLICT ON CONSTRAINT %s\n", d.QuoteIdent(pkName(def.Table)))
	fmt.Fprintf(&b, "  DO UPDATE SET %s;\n", strings.Join(sets, ", "))
	b.WriteString("END;\n$function$;")

	return []storage.FunctionDefinition{{
		Name:   upsert,
		Create: b.String(),
		Drop:   "DROP FUNCTION IF EXISTS " + fn + ";",
	}}
}

func (d Dialect) UpsertStatement(def storage.TableDefinition, upsert storage.FunctionName) string {
	params := make([]string, len(def.Columns))
	for i, col := range def.Columns {
		p := sqlbuilder.Placeholder(sqlbuilder.PlaceholderDollar, i+1)
		params[i] = d.Cast(p, col.Type)
	}
	return "SELECT " + d.QualifiedFunction(upsert) + "(" + strings.Join(params, ", ") + ")"
}

// HiloFunctions generates mt_get_next_hi, which claims the next hi value for
// an entity, creating its row on first use.
func (d Dialect) HiloFunctions(schema string) []storage.FunctionDefinition {
	name := storage.NewFunctionName(schema, storage.NextHiFunctionName)
	fn := d.QualifiedFunction(name)
	table := d.QualifiedTable(storage.NewTableName(schema, storage.HiloTableName))

	create := fmt.Sprintf(`CREATE OR REPLACE FUNCTION %s(entity varchar) RETURNS bigint LANGUAGE plpgsql AS $function$
DECLARE
    current_value bigint;
BEGIN
    INSERT INTO %s (entity_name, hi_value) VALUES (entity, 0)
      ON CONFLICT (entity_name) DO UPDATE SET hi_value = %s.hi_value + 1
      RETURNING hi_value INTO current_value;
    RETURN current_value;
END;
$function$;`, fn, table, storage.HiloTableName)

	return []storage.FunctionDefinition{{
		Name:   name,
		Create: create,
		Drop:   "DROP FUNCTION IF EXISTS " + fn + ";",
	}}
}

func (d Dialect) NextHiStatement(schema string) string {
	return "SELECT " + d.QualifiedFunction(storage.NewFunctionName(schema, storage.NextHiFunctionName)) + "($1)"
}

var _ storage.Dialect = Dialect{}
