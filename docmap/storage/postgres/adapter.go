package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/docmap/docmap/docmap/storage"
)

// Adapter targets one Postgres database. Schema is created on connect when
// missing and pinned first on the search_path.
type Adapter struct {
	Dialect
	DSN    string
	Schema string
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

func (a *Adapter) ID() string { return "postgres:" + a.Schema }

func (a *Adapter) Close() error { return nil }

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (a *Adapter) ensureSchema(ctx context.Context, db *sql.DB) error {
	if a.Schema == "" || !schemaNameRe.MatchString(a.Schema) {
		return fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}
	_, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+a.QuoteIdent(a.Schema))
	return errors.Wrapf(err, "create schema %s", a.Schema)
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	// 1) Connect without search_path to ensure schema exists
	cfg0, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	db0 := stdlib.OpenDB(*cfg0)
	if err := db0.PingContext(ctx); err != nil {
		_ = db0.Close()
		return nil, errors.Wrap(err, "ping")
	}
	if err := a.ensureSchema(ctx, db0); err != nil {
		_ = db0.Close()
		return nil, err
	}
	_ = db0.Close()

	// 2) Connect with search_path pinned to the schema
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", a.QuoteIdent(a.Schema))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping")
	}
	return db, nil
}

func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

func (a *Adapter) ListTables(ctx context.Context, db *sql.DB, schema, prefix string) ([]storage.TableName, error) {
	rows, err := db.QueryContext(ctx, listTablesSQL, schema, likePrefix(prefix))
	if err != nil {
		return nil, errors.Wrapf(err, "list tables in %s", schema)
	}
	defer rows.Close()

	var out []storage.TableName
	for rows.Next() {
		var t storage.TableName
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, errors.Wrap(err, "scan table name")
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "list tables")
}

func (a *Adapter) ListFunctions(ctx context.Context, db *sql.DB, schema, prefix string) ([]storage.FunctionName, error) {
	rows, err := db.QueryContext(ctx, listFunctionsSQL, schema, likePrefix(prefix))
	if err != nil {
		return nil, errors.Wrapf(err, "list functions in %s", schema)
	}
	defer rows.Close()

	var out []storage.FunctionName
	for rows.Next() {
		var f storage.FunctionName
		if err := rows.Scan(&f.Schema, &f.Name); err != nil {
			return nil, errors.Wrap(err, "scan function name")
		}
		out = append(out, f)
	}
	return out, errors.Wrap(rows.Err(), "list functions")
}

func (a *Adapter) TableExists(ctx context.Context, db *sql.DB, table storage.TableName) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, tableExistsSQL, a.schemaOf(table), table.Name).Scan(&exists)
	return exists, errors.Wrapf(err, "check table %s", table)
}

func (a *Adapter) ReadTable(ctx context.Context, db *sql.DB, table storage.TableName) (*storage.TableDefinition, error) {
	schema := a.schemaOf(table)
	rows, err := db.QueryContext(ctx, tableColumnsSQL, schema, table.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "read columns of %s", table)
	}
	def := &storage.TableDefinition{Table: table}
	for rows.Next() {
		var col storage.TableColumn
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan column")
		}
		col.Nullable = nullable == "YES"
		def.Columns = append(def.Columns, col)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "read columns of %s", table)
	}
	if len(def.Columns) == 0 {
		return nil, nil
	}

	pkRows, err := db.QueryContext(ctx, primaryKeySQL, schema, table.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "read primary key of %s", table)
	}
	pk := map[string]bool{}
	for pkRows.Next() {
		var name string
		if err := pkRows.Scan(&name); err != nil {
			pkRows.Close()
			return nil, errors.Wrap(err, "scan primary key")
		}
		pk[name] = true
	}
	pkRows.Close()
	for i := range def.Columns {
		def.Columns[i].PrimaryKey = pk[def.Columns[i].Name]
	}

	idxRows, err := db.QueryContext(ctx, tableIndexesSQL, schema, table.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "read indexes of %s", table)
	}
	defer idxRows.Close()
	for idxRows.Next() {
		var idx storage.IndexDefinition
		var indexDef string
		if err := idxRows.Scan(&idx.Name, &indexDef, &idx.Unique); err != nil {
			return nil, errors.Wrap(err, "scan index")
		}
		idx.Expression = indexExpression(indexDef)
		def.Indexes = append(def.Indexes, idx)
	}
	return def, errors.Wrapf(idxRows.Err(), "read indexes of %s", table)
}

// indexExpression extracts the key list from pg_get_indexdef output,
// "CREATE INDEX n ON s.t USING btree (expr)".
func indexExpression(indexDef string) string {
	i := strings.Index(indexDef, " USING ")
	if i < 0 {
		return ""
	}
	rest := indexDef[i:]
	open, end := strings.Index(rest, "("), strings.LastIndex(rest, ")")
	if open < 0 || end <= open {
		return ""
	}
	return rest[open+1 : end]
}

func (a *Adapter) schemaOf(t storage.TableName) string {
	if t.Schema != "" {
		return t.Schema
	}
	return a.Schema
}

var _ storage.Adapter = (*Adapter)(nil)
