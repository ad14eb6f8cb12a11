package docmap

import "github.com/docmap/docmap/docmap/storage"

type (
	TableName          = storage.TableName
	FunctionName       = storage.FunctionName
	TableDefinition    = storage.TableDefinition
	TableColumn        = storage.TableColumn
	IndexDefinition    = storage.IndexDefinition
	FunctionDefinition = storage.FunctionDefinition
	SchemaDelta        = storage.SchemaDelta
)

func NewTableName(schema, name string) TableName { return storage.NewTableName(schema, name) }

func NewFunctionName(schema, name string) FunctionName { return storage.NewFunctionName(schema, name) }

// tableSchemaFor derives the desired table: id, data, then duplicated columns
// sorted by name.
func tableSchemaFor(m *DocumentMapping) TableDefinition {
	d := m.dialect
	def := TableDefinition{
		Table: m.table,
		Columns: []TableColumn{
			{Name: idColumn, Type: d.ColumnType(m.identity.Kind.memberKind()), PrimaryKey: true},
			{Name: dataColumnName, Type: d.JSONColumnType()},
		},
	}
	for _, f := range m.duplicatedFields() {
		def.Columns = append(def.Columns, TableColumn{Name: f.Column(), Type: f.sqlType(), Nullable: true})
	}
	for _, decl := range m.indexes {
		f, ok := m.TryField(decl.Path)
		if !ok {
			continue
		}
		idx := IndexDefinition{
			Name:   m.indexName(decl.Path),
			Unique: decl.Unique,
		}
		if f.Column() != "" {
			idx.Expression = d.QuoteIdent(f.Column())
		} else {
			idx.Expression = "(" + f.LocatorFor("") + ")"
		}
		def.Indexes = append(def.Indexes, idx)
	}
	return def
}
