package docmap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/docmap/docmap/docmap/planner"
	"github.com/docmap/docmap/docmap/query"
	"github.com/docmap/docmap/docmap/storage/sqlbuilder"
)

// DocumentStorage is the storage handle of one document type: its table, the
// statements rendered for it and its compiled filters. One handle exists per
// document for the lifetime of the schema.
type DocumentStorage struct {
	schema     *DocumentSchema
	mapping    *DocumentMapping
	table      TableDefinition
	duplicated []*Field
	enums      []enumMember

	upsertSQL string
	loadSQL   string
	deleteSQL string
	selectSQL string

	queries *planner.Cache
}

func newDocumentStorage(s *DocumentSchema, m *DocumentMapping) (*DocumentStorage, error) {
	queries, err := planner.NewCache(s.opts.CompiledQueryCacheSize)
	if err != nil {
		return nil, Wrap(ErrConstruction, "create compiled query cache", err)
	}
	d := s.adapter
	table := tableSchemaFor(m)
	qt := d.QualifiedTable(m.table)
	id := d.QuoteIdent(idColumn)
	ph := sqlbuilder.Placeholder(d.PlaceholderStyle(), 1)

	return &DocumentStorage{
		schema:     s,
		mapping:    m,
		table:      table,
		duplicated: m.duplicatedFields(),
		enums:      m.enumMembers(),
		upsertSQL:  d.UpsertStatement(table, m.upsert),
		loadSQL:    "SELECT " + d.QuoteIdent(dataColumnName) + " FROM " + qt + " WHERE " + id + " = " + ph,
		deleteSQL:  "DELETE FROM " + qt + " WHERE " + id + " = " + ph,
		selectSQL:  "SELECT " + documentAlias + "." + d.QuoteIdent(dataColumnName) + " FROM " + qt + " AS " + documentAlias,
		queries:    queries,
	}, nil
}

func (st *DocumentStorage) Mapping() *DocumentMapping { return st.mapping }

// Table is the desired table definition the handle was built against.
func (st *DocumentStorage) Table() TableDefinition { return st.table }

func (st *DocumentStorage) UpsertSQL() string { return st.upsertSQL }

// Compile parses and compiles a filter. Compiled filters are cached by text.
func (st *DocumentStorage) Compile(filter string) (*planner.CompiledQuery, error) {
	if q, ok := st.queries.Get(filter); ok {
		CompiledQueryCache.WithLabelValues("hit").Inc()
		return q, nil
	}
	CompiledQueryCache.WithLabelValues("miss").Inc()

	expr, err := query.Parse(filter)
	if err != nil {
		return nil, &Error{Kind: ErrQueryParse, Type: st.mapping.docType.String(), Message: "parse filter", Cause: err}
	}
	expr, err = query.Normalize(expr, query.DefaultNormalizeOptions())
	if err != nil {
		return nil, &Error{Kind: ErrQueryRejected, Type: st.mapping.docType.String(), Message: "normalize filter", Cause: err}
	}

	q, err := planner.Compile(planner.ResolverFunc(st.resolveField), st.schema.adapter.PlaceholderStyle(), expr)
	if err != nil {
		var rejected *planner.RejectedError
		if errors.As(err, &rejected) {
			return nil, &Error{Kind: ErrQueryRejected, Type: st.mapping.docType.String(), Member: rejected.Path, Message: rejected.Reason}
		}
		return nil, err
	}
	st.queries.Add(filter, q)
	return q, nil
}

func (st *DocumentStorage) resolveField(path string) (planner.Field, error) {
	f, err := st.mapping.FieldFor(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// idValue normalizes a caller supplied id to the id column's bind value.
func (st *DocumentStorage) idValue(id any) any {
	kind := st.mapping.identity.Kind
	return st.schema.adapter.ParameterValue(kind.memberKind(), dynamicID(kind, id))
}

// assignID fills in a missing identity: hilo for numeric ids, a version 7
// UUID for UUID ids. String ids must be set by the caller.
func (st *DocumentStorage) assignID(ctx context.Context, doc any) (any, error) {
	ident := st.mapping.identity
	id := dynamicID(ident.Kind, ident.get(doc))
	switch ident.Kind {
	case IDInt, IDInt64:
		if id.(int64) != 0 {
			return id, nil
		}
		hilo, _ := st.mapping.Hilo()
		next, err := st.schema.sequences.SequenceFor(st.mapping.alias, hilo).NextInt64(ctx)
		if err != nil {
			return nil, err
		}
		ident.set(doc, next)
		return next, nil
	case IDUUID:
		if id.(uuid.UUID) != uuid.Nil {
			return id, nil
		}
		next, err := uuid.NewV7()
		if err != nil {
			return nil, Wrap(ErrConstruction, "generate identity", err)
		}
		ident.set(doc, next)
		return next, nil
	default:
		if id.(string) == "" {
			return nil, MappingError(st.mapping.docType.String(), ident.Member, "string identity must be set before storing")
		}
		return id, nil
	}
}

// store writes doc, a pointer to the mapped type, assigning its identity
// first when it is missing.
func (st *DocumentStorage) store(ctx context.Context, doc any) error {
	db, err := st.schema.database()
	if err != nil {
		return err
	}
	id, err := st.assignID(ctx, doc)
	if err != nil {
		return err
	}
	data, err := st.schema.opts.Serializer.Marshal(doc)
	if err != nil {
		return Wrap(ErrConstruction, "serialize document", err)
	}

	var obj map[string]any
	if len(st.duplicated) > 0 || len(st.enums) > 0 {
		tree, err := decodeTree(data)
		if err != nil {
			return Wrap(ErrConstruction, "decode serialized document", err)
		}
		obj, _ = tree.(map[string]any)
		if obj != nil && storedEnums(obj, st.enums) {
			if data, err = json.Marshal(obj); err != nil {
				return Wrap(ErrConstruction, "serialize document", err)
			}
		}
	}

	args := make([]any, 0, 2+len(st.duplicated))
	args = append(args, st.schema.adapter.ParameterValue(st.mapping.identity.Kind.memberKind(), id), string(data))
	for _, f := range st.duplicated {
		v, err := duplicatedValue(f, obj)
		if err != nil {
			return err
		}
		args = append(args, v)
	}

	if _, err := db.ExecContext(ctx, st.upsertSQL, args...); err != nil {
		return Wrap(ErrSQL, "upsert "+st.mapping.alias, err)
	}
	return nil
}

func duplicatedValue(f *Field, doc map[string]any) (any, error) {
	v, ok := f.valueIn(doc)
	if !ok || v == nil {
		return nil, nil
	}
	if f.Kind() == KindObject {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, Wrap(ErrConstruction, "serialize "+f.Path(), err)
		}
		return string(b), nil
	}
	return f.GetValueForCompiledQueryParameter(v), nil
}

// goPayload rewrites a stored payload into the form the Go type decodes.
func (st *DocumentStorage) goPayload(data []byte) ([]byte, error) {
	if len(st.enums) == 0 {
		return data, nil
	}
	tree, err := decodeTree(data)
	if err != nil {
		return nil, err
	}
	obj, ok := tree.(map[string]any)
	if !ok || !goEnums(obj, st.enums) {
		return data, nil
	}
	return json.Marshal(obj)
}

// loadJSON returns the stored payload of the document with the given id.
func (st *DocumentStorage) loadJSON(ctx context.Context, id any) ([]byte, error) {
	db, err := st.schema.database()
	if err != nil {
		return nil, err
	}
	var data string
	err = db.QueryRowContext(ctx, st.loadSQL, st.idValue(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFoundError(st.mapping.docType.String(), id)
	}
	if err != nil {
		return nil, Wrap(ErrSQL, "load "+st.mapping.alias, err)
	}
	return []byte(data), nil
}

func (st *DocumentStorage) delete(ctx context.Context, id any) (bool, error) {
	db, err := st.schema.database()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, st.deleteSQL, st.idValue(id))
	if err != nil {
		return false, Wrap(ErrSQL, "delete "+st.mapping.alias, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, Wrap(ErrSQL, "delete "+st.mapping.alias, err)
	}
	return n > 0, nil
}

// whereJSON returns the payloads matching filter, ordered by id.
func (st *DocumentStorage) whereJSON(ctx context.Context, filter string, args []any) ([][]byte, error) {
	db, err := st.schema.database()
	if err != nil {
		return nil, err
	}
	q, err := st.Compile(filter)
	if err != nil {
		return nil, err
	}
	binds, err := q.Bind(args...)
	if err != nil {
		return nil, &Error{Kind: ErrQueryRejected, Type: st.mapping.docType.String(), Message: "bind filter arguments", Cause: err}
	}

	var b strings.Builder
	b.WriteString(st.selectSQL)
	b.WriteString(" WHERE ")
	b.WriteString(q.SQL)
	b.WriteString(" ORDER BY ")
	b.WriteString(documentAlias + "." + st.schema.adapter.QuoteIdent(idColumn))

	rows, err := db.QueryContext(ctx, b.String(), binds...)
	if err != nil {
		return nil, Wrap(ErrSQL, "query "+st.mapping.alias, err)
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, Wrap(ErrSQL, "scan "+st.mapping.alias, err)
		}
		out = append(out, []byte(data))
	}
	if err := rows.Err(); err != nil {
		return nil, Wrap(ErrSQL, "query "+st.mapping.alias, err)
	}
	return out, nil
}
