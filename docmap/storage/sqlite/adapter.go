package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/docmap/docmap/docmap/storage"
)

// Adapter targets one SQLite database file. SQLite has no schemas: the schema
// half of a TableName is kept for bookkeeping and never rendered.
type Adapter struct {
	Dialect
	Path       string
	DriverName string
}

// New uses the pure-Go modernc driver registered as "sqlite".
func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: "sqlite"}
}

// NewWithDriver selects another registered driver, e.g. "sqlite3" for
// mattn/go-sqlite3 in cgo builds.
func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) ID() string { return "sqlite:" + a.Path }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) dsn() string {
	params := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if a.DriverName == "sqlite3" {
		params = "_busy_timeout=5000&_foreign_keys=on"
	}
	if strings.Contains(a.Path, "?") {
		return a.Path + "&" + params
	}
	return a.Path + "?" + params
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(a.DriverName, a.dsn())
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", a.Path)
	}
	// One writer at a time; DDL and hilo claims serialize instead of failing
	// with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s", a.Path)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	return db, nil
}

func (a *Adapter) ListTables(ctx context.Context, db *sql.DB, schema, prefix string) ([]storage.TableName, error) {
	rows, err := db.QueryContext(ctx, listTablesSQL, likePrefix(prefix))
	if err != nil {
		return nil, errors.Wrap(err, "list tables")
	}
	defer rows.Close()

	var out []storage.TableName
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan table name")
		}
		out = append(out, storage.NewTableName(schema, name))
	}
	return out, errors.Wrap(rows.Err(), "list tables")
}

// ListFunctions always returns nothing: SQLite has no stored functions.
func (a *Adapter) ListFunctions(context.Context, *sql.DB, string, string) ([]storage.FunctionName, error) {
	return nil, nil
}

func (a *Adapter) TableExists(ctx context.Context, db *sql.DB, table storage.TableName) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, tableExistsSQL, table.Name).Scan(&n); err != nil {
		return false, errors.Wrapf(err, "check table %s", table.Name)
	}
	return n > 0, nil
}

func (a *Adapter) ReadTable(ctx context.Context, db *sql.DB, table storage.TableName) (*storage.TableDefinition, error) {
	rows, err := db.QueryContext(ctx, tableColumnsSQL, table.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "read columns of %s", table.Name)
	}
	def := &storage.TableDefinition{Table: table}
	for rows.Next() {
		var (
			col     storage.TableColumn
			notNull int
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.Type, &notNull, &pk); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan column")
		}
		col.PrimaryKey = pk > 0
		col.Nullable = notNull == 0 && !col.PrimaryKey
		def.Columns = append(def.Columns, col)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "read columns of %s", table.Name)
	}
	if len(def.Columns) == 0 {
		return nil, nil
	}

	idxRows, err := db.QueryContext(ctx, tableIndexesSQL, table.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "read indexes of %s", table.Name)
	}
	defer idxRows.Close()
	for idxRows.Next() {
		var idx storage.IndexDefinition
		var ddl string
		if err := idxRows.Scan(&idx.Name, &ddl); err != nil {
			return nil, errors.Wrap(err, "scan index")
		}
		idx.Unique = strings.HasPrefix(strings.ToUpper(ddl), "CREATE UNIQUE")
		if open := strings.Index(ddl, "("); open >= 0 && strings.HasSuffix(ddl, ")") {
			idx.Expression = ddl[open+1 : len(ddl)-1]
		}
		def.Indexes = append(def.Indexes, idx)
	}
	return def, errors.Wrapf(idxRows.Err(), "read indexes of %s", table.Name)
}

var _ storage.Adapter = (*Adapter)(nil)
