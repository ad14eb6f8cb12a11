package storage

import (
	"context"
	"database/sql"

	"github.com/docmap/docmap/docmap/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Dialect renders database-specific SQL. Implementations are pure: output
// depends only on the arguments, never on a connection.
type Dialect interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle

	QuoteIdent(ident string) string
	QualifiedTable(t TableName) string
	QualifiedFunction(f FunctionName) string

	// JSONColumnType is the native type of the document payload column.
	JSONColumnType() string
	// ColumnType maps a scalar kind onto a native column type.
	ColumnType(kind ValueKind) string
	// NormalizeType canonicalizes a type name for drift comparison.
	NormalizeType(sqlType string) string

	// JSONLocator returns an expression yielding the text value found by
	// descending keys from root. Keys are pre-validated identifiers.
	JSONLocator(root string, keys []string) string
	Cast(expr, sqlType string) string
	// ParameterValue adapts a bind value to what the driver and the column
	// representation expect for kind.
	ParameterValue(kind ValueKind, v any) any

	SupportsContainment() bool
	// ContainmentLocator renders "root contains parameter".
	ContainmentLocator(root, placeholder string) string

	CreateTable(def TableDefinition) string
	AddColumn(table TableName, col TableColumn) string
	CreateIndex(table TableName, idx IndexDefinition) string

	// DocumentFunctions returns the functions generated for a document table.
	DocumentFunctions(def TableDefinition, upsert FunctionName) []FunctionDefinition
	// UpsertStatement binds (id, data, duplicated columns...) in column order.
	UpsertStatement(def TableDefinition, upsert FunctionName) string

	HiloFunctions(schema string) []FunctionDefinition
	// NextHiStatement claims the next hi value for the entity bound as $1.
	NextHiStatement(schema string) string
}

// Adapter is a Dialect bound to a database it can introspect and change.
type Adapter interface {
	Dialect

	// ID identifies the target database for logs.
	ID() string
	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	ListTables(ctx context.Context, db *sql.DB, schema, prefix string) ([]TableName, error)
	ListFunctions(ctx context.Context, db *sql.DB, schema, prefix string) ([]FunctionName, error)
	TableExists(ctx context.Context, db *sql.DB, table TableName) (bool, error)
	// ReadTable returns the live definition, or nil when the table is absent.
	ReadTable(ctx context.Context, db *sql.DB, table TableName) (*TableDefinition, error)
}
