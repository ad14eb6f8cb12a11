package storage

import "strings"

// ValueKind is the storage-side kind of a searchable value.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindInt    ValueKind = "int"
	KindInt64  ValueKind = "int64"
	KindFloat  ValueKind = "float"
	KindBool   ValueKind = "bool"
	KindTime   ValueKind = "time"
	KindUUID   ValueKind = "uuid"
	KindEnum   ValueKind = "enum"
	KindObject ValueKind = "object"
)

// TableName addresses a table by database schema and local name.
// It is comparable and is used directly as a map key.
type TableName struct {
	Schema string
	Name   string
}

func NewTableName(schema, name string) TableName {
	return TableName{Schema: schema, Name: name}
}

// QualifiedName returns "schema.name", or just the name when no schema is set.
func (t TableName) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

func (t TableName) String() string { return t.QualifiedName() }

// FunctionName addresses a generated database function.
type FunctionName struct {
	Schema string
	Name   string
}

func NewFunctionName(schema, name string) FunctionName {
	return FunctionName{Schema: schema, Name: name}
}

func (f FunctionName) QualifiedName() string {
	if f.Schema == "" {
		return f.Name
	}
	return f.Schema + "." + f.Name
}

func (f FunctionName) String() string { return f.QualifiedName() }

// TableColumn describes one column. Default is only used when rendering DDL
// and takes no part in comparisons.
type TableColumn struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// IndexDefinition describes an index by name. Expression is the indexed
// expression or quoted column list, rendered against the bare table.
type IndexDefinition struct {
	Name       string
	Expression string
	Unique     bool
}

// TableDefinition is used both for the desired shape derived from a mapping
// and for the actual shape read back from the database.
type TableDefinition struct {
	Table   TableName
	Columns []TableColumn
	Indexes []IndexDefinition
}

func (d *TableDefinition) Column(name string) (TableColumn, bool) {
	for _, c := range d.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return TableColumn{}, false
}

func (d *TableDefinition) PrimaryKey() (TableColumn, bool) {
	for _, c := range d.Columns {
		if c.PrimaryKey {
			return c, true
		}
	}
	return TableColumn{}, false
}

func (d *TableDefinition) Index(name string) (IndexDefinition, bool) {
	for _, idx := range d.Indexes {
		if strings.EqualFold(idx.Name, name) {
			return idx, true
		}
	}
	return IndexDefinition{}, false
}

func (d *TableDefinition) HasIndex(name string) bool {
	_, ok := d.Index(name)
	return ok
}

// ColumnNames returns the column names in declaration order.
func (d *TableDefinition) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Equal compares two definitions structurally: same table, same columns in the
// same order (name, type, nullability, key), same index names.
func (d *TableDefinition) Equal(o *TableDefinition) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Table != o.Table || len(d.Columns) != len(o.Columns) || len(d.Indexes) != len(o.Indexes) {
		return false
	}
	for i := range d.Columns {
		a, b := d.Columns[i], o.Columns[i]
		if a.Name != b.Name || a.Type != b.Type || a.Nullable != b.Nullable || a.PrimaryKey != b.PrimaryKey {
			return false
		}
	}
	for i := range d.Indexes {
		if d.Indexes[i].Name != o.Indexes[i].Name || d.Indexes[i].Unique != o.Indexes[i].Unique {
			return false
		}
	}
	return true
}

// FunctionDefinition is a generated function with its create and drop DDL.
type FunctionDefinition struct {
	Name   FunctionName
	Create string
	Drop   string
}

// MaxIdentifierLength is the longest name Postgres keeps without truncating
// (NAMEDATALEN - 1). Generated names are held to it on every backend.
const MaxIdentifierLength = 63

// System object names shared by every dialect.
const (
	HiloTableName      = "mt_hilo"
	NextHiFunctionName = "mt_get_next_hi"
)

// HiloTable is the definition of the hi-value table backing hilo sequences.
func HiloTable(schema string, d Dialect) TableDefinition {
	return TableDefinition{
		Table: NewTableName(schema, HiloTableName),
		Columns: []TableColumn{
			{Name: "entity_name", Type: d.ColumnType(KindString), PrimaryKey: true},
			{Name: "hi_value", Type: d.ColumnType(KindInt64), Default: "0"},
		},
	}
}
