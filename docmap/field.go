package docmap

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docmap/docmap/docmap/storage"
)

type fieldSource int

const (
	fromJSON fieldSource = iota
	fromColumn
)

// Field locates one member chain inside a document's storage. It is immutable
// once built and safe to share between goroutines and queries.
type Field struct {
	members     []string
	keys        []string
	kind        MemberKind
	enumValues  []string
	enumStorage EnumStorage
	dialect     storage.Dialect
	root        string
	source      fieldSource
	column      string
	containment bool

	raw   string
	typed string
}

// NewJSONLocatorField builds a Field that extracts the member from the JSON
// payload. keys are the cased JSON keys, one per member.
func NewJSONLocatorField(d storage.Dialect, root string, settings SerializerSettings, m *Member, keys []string, containment bool) *Field {
	f := &Field{
		members:     m.Chain(),
		keys:        slices.Clone(keys),
		kind:        m.Kind,
		enumValues:  slices.Clone(m.EnumValues),
		enumStorage: settings.EnumStorage,
		dialect:     d,
		root:        root,
		source:      fromJSON,
		containment: containment && d.SupportsContainment() && isScalar(m.Kind),
	}
	f.raw, f.typed = f.render(root)
	return f
}

// NewDuplicatedField builds a Field that reads the member from its own column.
func NewDuplicatedField(d storage.Dialect, root string, settings SerializerSettings, m *Member, column string) *Field {
	f := &Field{
		members:     m.Chain(),
		kind:        m.Kind,
		enumValues:  slices.Clone(m.EnumValues),
		enumStorage: settings.EnumStorage,
		dialect:     d,
		root:        root,
		source:      fromColumn,
		column:      column,
	}
	f.keys = jsonKeys(settings.Casing, f.members)
	f.raw, f.typed = f.render(root)
	return f
}

func isScalar(k MemberKind) bool {
	return k != KindObject
}

// Members is the member chain the field was resolved from.
func (f *Field) Members() []string { return slices.Clone(f.members) }

// Path is the dotted member chain.
func (f *Field) Path() string { return strings.Join(f.members, ".") }

func (f *Field) Kind() MemberKind { return f.kind }

// Column is the duplicated column name, or "" for JSON fields.
func (f *Field) Column() string { return f.column }

// TypedLocator casts the extracted value to its native type; use it for
// comparisons and ordering.
func (f *Field) TypedLocator() string { return f.typed }

// RawLocator extracts the value without a cast; on Postgres this is text.
func (f *Field) RawLocator() string { return f.raw }

// UseContainmentOperator reports whether equality against this field should
// be expressed as document containment.
func (f *Field) UseContainmentOperator() bool { return f.containment }

// LocatorFor renders the typed locator against another table alias. An empty
// alias addresses the bare columns, as index definitions need.
func (f *Field) LocatorFor(alias string) string {
	_, typed := f.render(alias)
	return typed
}

func (f *Field) render(alias string) (raw, typed string) {
	if f.source == fromColumn {
		col := f.dialect.QuoteIdent(f.column)
		if alias != "" {
			col = alias + "." + col
		}
		return col, col
	}
	raw = f.dialect.JSONLocator(dataColumn(alias), f.keys)
	if f.kind == KindObject {
		return raw, raw
	}
	return raw, f.dialect.Cast(raw, f.sqlType())
}

func dataColumn(alias string) string {
	if alias == "" {
		return "data"
	}
	return alias + ".data"
}

// sqlType is the native type the typed locator casts to.
func (f *Field) sqlType() string {
	return f.dialect.ColumnType(storageKind(f.kind, f.enumStorage))
}

// storageKind maps enums onto the scalar kind they are written as.
func storageKind(k MemberKind, es EnumStorage) MemberKind {
	if k != KindEnum {
		return k
	}
	if es == EnumAsString {
		return KindString
	}
	return KindInt
}

// ContainmentJSON renders {"a":{"b":v}} for the field's key chain, with v
// already corrected for the field.
func (f *Field) ContainmentJSON(v any) (string, error) {
	var doc any = v
	for i := len(f.keys) - 1; i >= 0; i-- {
		doc = map[string]any{f.keys[i]: doc}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ContainmentLocator renders the containment predicate against placeholder.
func (f *Field) ContainmentLocator(placeholder string) string {
	return f.dialect.ContainmentLocator(dataColumn(f.root), placeholder)
}

// GetValueForCompiledQueryParameter converts a constant supplied to a compiled
// query into the representation the locators compare against. It is pure:
// the same input always yields the same output.
func (f *Field) GetValueForCompiledQueryParameter(v any) any {
	v = f.correct(v)
	if f.containment {
		// containment parameters are JSON, not column values
		return v
	}
	return f.dialect.ParameterValue(storageKind(f.kind, f.enumStorage), v)
}

func (f *Field) correct(v any) any {
	if v == nil {
		return nil
	}
	switch f.kind {
	case KindEnum:
		return f.enumValue(v)
	case KindInt, KindInt64:
		if n, ok := toInt64(v); ok {
			return n
		}
	case KindFloat:
		if n, ok := toFloat64(v); ok {
			return n
		}
	case KindTime:
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t
			}
		}
	case KindUUID:
		if s, ok := v.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				return id
			}
		}
	}
	return v
}

// enumValue maps an enum constant onto its stored form: the name under
// string storage, the ordinal under integer storage.
func (f *Field) enumValue(v any) any {
	if f.enumStorage == EnumAsString {
		if n, ok := v.(json.Number); ok {
			v = n.String()
			if i, err := n.Int64(); err == nil {
				v = i
			}
		}
		if s, ok := v.(fmt.Stringer); ok {
			return f.canonicalEnumName(s.String())
		}
		if n, ok := toInt64(v); ok {
			if n >= 0 && int(n) < len(f.enumValues) {
				return f.enumValues[n]
			}
			return strconv.FormatInt(n, 10)
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
			return f.canonicalEnumName(rv.String())
		}
		return v
	}

	if n, ok := toInt64(v); ok {
		return n
	}
	var name string
	switch x := v.(type) {
	case fmt.Stringer:
		name = x.String()
	default:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
			name = rv.String()
		}
	}
	if name != "" {
		for i, candidate := range f.enumValues {
			if strings.EqualFold(candidate, name) {
				return int64(i)
			}
		}
	}
	return v
}

// canonicalEnumName returns the declared spelling of name, matched without
// regard to case.
func (f *Field) canonicalEnumName(name string) string {
	for _, candidate := range f.enumValues {
		if strings.EqualFold(candidate, name) {
			return candidate
		}
	}
	return name
}

// CheckValue rejects a corrected constant the stored form cannot hold: under
// integer storage an enum name that is not declared never becomes an ordinal.
func (f *Field) CheckValue(v any) error {
	if f.kind != KindEnum || f.enumStorage != EnumAsInteger || v == nil {
		return nil
	}
	if _, ok := toInt64(v); ok {
		return nil
	}
	return fmt.Errorf("%v is not a value of %s (%s)", v, f.Path(), strings.Join(f.enumValues, ", "))
}

func toInt64(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		i, err := n.Int64()
		return i, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		fv := rv.Float()
		if fv == float64(int64(fv)) {
			return int64(fv), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		fv, err := n.Float64()
		return fv, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// valueIn walks the field's JSON keys through a decoded document.
func (f *Field) valueIn(doc map[string]any) (any, bool) {
	var cur any = doc
	for _, k := range f.keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}
