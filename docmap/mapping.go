package docmap

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/docmap/docmap/docmap/storage"
)

// IdentityKind is the type of a document's identity member.
type IdentityKind string

const (
	IDString IdentityKind = "string"
	IDInt    IdentityKind = "int"
	IDInt64  IdentityKind = "int64"
	IDUUID   IdentityKind = "uuid"
)

func (k IdentityKind) memberKind() MemberKind {
	switch k {
	case IDInt:
		return KindInt
	case IDInt64:
		return KindInt64
	case IDUUID:
		return KindUUID
	default:
		return KindString
	}
}

// numeric identities are assigned from a hilo sequence.
func (k IdentityKind) numeric() bool { return k == IDInt || k == IDInt64 }

// Identity describes the identity member and how to read and assign it.
type Identity struct {
	Member string
	Kind   IdentityKind
	get    func(doc any) any
	set    func(doc any, id any)
}

// HiloSettings tunes the hilo sequence of a numeric identity.
type HiloSettings struct {
	MaxLo int
}

// IndexDecl is an index declared on a member path.
type IndexDecl struct {
	Path   string
	Unique bool
}

type IndexOption func(*IndexDecl)

// Unique makes the index unique.
func Unique() IndexOption {
	return func(d *IndexDecl) { d.Unique = true }
}

// MappingBuilder collects the explicit configuration of one document type.
// Calls chain; errors are reported by Build.
type MappingBuilder[T any] struct {
	typ      reflect.Type
	alias    string
	schema   string
	identity *Identity
	members  []*Member
	indexes  []IndexDecl
	hilo     *HiloSettings
	errs     []string
}

// For starts the mapping of document type T.
func For[T any]() *MappingBuilder[T] {
	return &MappingBuilder[T]{typ: reflect.TypeFor[T]()}
}

// Alias overrides the document alias, which names the table and functions.
func (b *MappingBuilder[T]) Alias(alias string) *MappingBuilder[T] {
	b.alias = alias
	return b
}

// Schema places this document in another database schema.
func (b *MappingBuilder[T]) Schema(schema string) *MappingBuilder[T] {
	b.schema = schema
	return b
}

// ID declares the identity member with untyped accessors.
func (b *MappingBuilder[T]) ID(member string, kind IdentityKind, get func(*T) any, set func(*T, any)) *MappingBuilder[T] {
	b.identity = &Identity{
		Member: member,
		Kind:   kind,
		get:    func(doc any) any { return get(doc.(*T)) },
		set:    func(doc any, id any) { set(doc.(*T), id) },
	}
	return b
}

func (b *MappingBuilder[T]) StringID(member string, get func(*T) string, set func(*T, string)) *MappingBuilder[T] {
	return b.ID(member, IDString,
		func(d *T) any { return get(d) },
		func(d *T, id any) { set(d, id.(string)) })
}

func (b *MappingBuilder[T]) IntID(member string, get func(*T) int, set func(*T, int)) *MappingBuilder[T] {
	return b.ID(member, IDInt,
		func(d *T) any { return int64(get(d)) },
		func(d *T, id any) { set(d, int(id.(int64))) })
}

func (b *MappingBuilder[T]) Int64ID(member string, get func(*T) int64, set func(*T, int64)) *MappingBuilder[T] {
	return b.ID(member, IDInt64,
		func(d *T) any { return get(d) },
		func(d *T, id any) { set(d, id.(int64)) })
}

func (b *MappingBuilder[T]) UUIDID(member string, get func(*T) uuid.UUID, set func(*T, uuid.UUID)) *MappingBuilder[T] {
	return b.ID(member, IDUUID,
		func(d *T) any { return get(d) },
		func(d *T, id any) { set(d, id.(uuid.UUID)) })
}

func (b *MappingBuilder[T]) declare(m *Member) {
	for _, existing := range b.members {
		if strings.EqualFold(existing.Path, m.Path) {
			b.errs = append(b.errs, "member "+m.Path+" declared twice")
			return
		}
	}
	b.members = append(b.members, m)
}

func (b *MappingBuilder[T]) lookup(path string) *Member {
	for _, m := range b.members {
		if strings.EqualFold(m.Path, path) {
			return m
		}
	}
	return nil
}

// Searchable declares a member path that filters may reference.
func (b *MappingBuilder[T]) Searchable(path string, kind MemberKind) *MappingBuilder[T] {
	b.declare(&Member{Path: path, Kind: kind})
	return b
}

// Enum declares an enum member; values are the names in ordinal order.
func (b *MappingBuilder[T]) Enum(path string, values ...string) *MappingBuilder[T] {
	b.declare(&Member{Path: path, Kind: KindEnum, EnumValues: slices.Clone(values)})
	return b
}

// Duplicate copies a member into its own column. An already declared member
// is switched to duplicated; otherwise it is declared with kind.
func (b *MappingBuilder[T]) Duplicate(path string, kind MemberKind) *MappingBuilder[T] {
	if m := b.lookup(path); m != nil {
		m.Duplicated = true
		return b
	}
	b.declare(&Member{Path: path, Kind: kind, Duplicated: true})
	return b
}

// Computed declares a member that exists only in Go and has no storage path.
func (b *MappingBuilder[T]) Computed(path string) *MappingBuilder[T] {
	b.declare(&Member{Path: path, Kind: KindString, Computed: true})
	return b
}

// Index declares an index on a searchable member.
func (b *MappingBuilder[T]) Index(path string, opts ...IndexOption) *MappingBuilder[T] {
	d := IndexDecl{Path: path}
	for _, o := range opts {
		o(&d)
	}
	b.indexes = append(b.indexes, d)
	return b
}

// Hilo overrides the hilo block size for a numeric identity.
func (b *MappingBuilder[T]) Hilo(s HiloSettings) *MappingBuilder[T] {
	b.hilo = &s
	return b
}

// DocumentType is the Go type being mapped.
func (b *MappingBuilder[T]) DocumentType() reflect.Type { return b.typ }

func (b *MappingBuilder[T]) defaultAlias() string {
	if b.alias != "" {
		return strings.ToLower(b.alias)
	}
	return snakeCase(b.typ.Name())
}

// Build produces the immutable mapping for dialect d. It never mutates the
// builder, so two builds with the same inputs are Equal.
func (b *MappingBuilder[T]) Build(d storage.Dialect, opts StoreOptions) (*DocumentMapping, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	typeName := b.typ.String()
	alias := b.defaultAlias()
	if len(b.errs) > 0 {
		return nil, MappingError(typeName, "", strings.Join(b.errs, "; "))
	}
	if !identRe.MatchString(alias) {
		return nil, MappingError(typeName, "", "invalid document alias "+alias)
	}
	schema := opts.Schema
	if b.schema != "" {
		schema = b.schema
	}
	if !identRe.MatchString(schema) {
		return nil, MappingError(typeName, "", "invalid database schema "+schema)
	}
	if b.identity == nil {
		return nil, MappingError(typeName, "", "identity member is required")
	}

	m := &DocumentMapping{
		docType:           b.typ,
		alias:             alias,
		table:             storage.NewTableName(schema, tablePrefix+alias),
		upsert:            storage.NewFunctionName(schema, upsertPrefix+alias),
		identity:          &Identity{Member: b.identity.Member, Kind: b.identity.Kind, get: b.identity.get, set: b.identity.set},
		byPath:            make(map[string]*Member),
		settings:          opts.Serializer.Settings(),
		propertySearching: opts.PropertySearching,
		dialect:           d,
		sources:           opts.FieldSources,
		fields:            xsync.NewMapOf[string, *Field](),
	}
	if err := m.addMember(&Member{Path: b.identity.Member, Kind: b.identity.Kind.memberKind()}); err != nil {
		return nil, err
	}
	for _, decl := range b.members {
		cp := *decl
		cp.EnumValues = slices.Clone(decl.EnumValues)
		if err := m.addMember(&cp); err != nil {
			return nil, err
		}
	}

	if b.identity.Kind.numeric() {
		maxLo := opts.HiloMaxLo
		if b.hilo != nil && b.hilo.MaxLo > 0 {
			maxLo = b.hilo.MaxLo
		}
		m.hilo = &HiloSettings{MaxLo: maxLo}
	} else if b.hilo != nil {
		return nil, MappingError(typeName, b.identity.Member, "hilo requires an int or int64 identity")
	}

	columns := map[string]string{idColumn: b.identity.Member, dataColumnName: ""}
	for _, mem := range m.members {
		if !mem.Duplicated || mem.Path == m.identity.Member {
			continue
		}
		col := columnName(mem.Chain())
		if owner, taken := columns[col]; taken {
			return nil, MappingError(typeName, mem.Path, "duplicated column "+col+" collides with "+owner)
		}
		columns[col] = mem.Path
	}

	for _, decl := range b.indexes {
		if err := m.addIndex(decl); err != nil {
			return nil, err
		}
	}
	if err := m.checkIdentifierLengths(columns); err != nil {
		return nil, err
	}
	return m, nil
}

// checkIdentifierLengths refuses generated names the database would truncate.
// A truncated object no longer answers to the name introspection asks for.
func (m *DocumentMapping) checkIdentifierLengths(columns map[string]string) error {
	type generated struct{ name, member string }
	names := []generated{
		{m.table.Name, ""},
		{m.upsert.Name, ""},
		{"pk_" + m.table.Name, ""},
	}
	cols := make([]string, 0, len(columns))
	for col := range columns {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	for _, col := range cols {
		names = append(names, generated{col, columns[col]}, generated{"arg_" + col, columns[col]})
	}
	for _, decl := range m.indexes {
		names = append(names, generated{m.indexName(decl.Path), decl.Path})
	}
	for _, g := range names {
		if len(g.name) > storage.MaxIdentifierLength {
			return MappingError(m.docType.String(), g.member,
				fmt.Sprintf("generated name %s is longer than %d bytes", g.name, storage.MaxIdentifierLength))
		}
	}
	return nil
}

func (m *DocumentMapping) indexName(path string) string {
	return m.table.Name + "_idx_" + columnName(m.byPath[strings.ToLower(path)].Chain())
}

const (
	idColumn       = "id"
	dataColumnName = "data"
)

// DocumentMapping is the immutable storage metadata of one document type.
type DocumentMapping struct {
	docType           reflect.Type
	alias             string
	table             storage.TableName
	upsert            storage.FunctionName
	identity          *Identity
	members           []*Member
	byPath            map[string]*Member
	indexes           []IndexDecl
	hilo              *HiloSettings
	settings          SerializerSettings
	propertySearching PropertySearching
	dialect           storage.Dialect
	sources           FieldSources

	fields *xsync.MapOf[string, *Field]
}

func (m *DocumentMapping) addMember(mem *Member) error {
	typeName := m.docType.String()
	if mem.Path == "" {
		return MappingError(typeName, "", "empty member path")
	}
	for _, name := range mem.Chain() {
		if !identRe.MatchString(name) {
			return MappingError(typeName, mem.Path, "invalid member name "+name)
		}
	}
	if mem.Kind == KindEnum && len(mem.EnumValues) == 0 {
		return MappingError(typeName, mem.Path, "enum member needs at least one value")
	}
	key := strings.ToLower(mem.Path)
	if _, dup := m.byPath[key]; dup {
		return MappingError(typeName, mem.Path, "member declared twice")
	}
	m.byPath[key] = mem
	m.members = append(m.members, mem)
	return nil
}

func (m *DocumentMapping) addIndex(decl IndexDecl) error {
	typeName := m.docType.String()
	mem, ok := m.byPath[strings.ToLower(decl.Path)]
	if !ok || mem.Computed {
		return MappingError(typeName, decl.Path, "index on an unknown or computed member")
	}
	if mem.Path == m.identity.Member {
		return MappingError(typeName, decl.Path, "identity member is already the primary key")
	}
	if mem.Kind == KindTime && !mem.Duplicated {
		return MappingError(typeName, decl.Path, "time members must be duplicated to be indexed")
	}
	for _, existing := range m.indexes {
		if strings.EqualFold(existing.Path, decl.Path) {
			return MappingError(typeName, decl.Path, "index declared twice")
		}
	}
	decl.Path = mem.Path
	m.indexes = append(m.indexes, decl)
	return nil
}

func (m *DocumentMapping) DocumentType() reflect.Type { return m.docType }

// Alias is the short name used for the table, functions and hilo entity.
func (m *DocumentMapping) Alias() string { return m.alias }

func (m *DocumentMapping) TableName() storage.TableName { return m.table }

func (m *DocumentMapping) UpsertFunction() storage.FunctionName { return m.upsert }

func (m *DocumentMapping) Identity() Identity { return *m.identity }

func (m *DocumentMapping) Settings() SerializerSettings { return m.settings }

func (m *DocumentMapping) Dialect() storage.Dialect { return m.dialect }

// Hilo returns the hilo settings of a numeric identity.
func (m *DocumentMapping) Hilo() (HiloSettings, bool) {
	if m.hilo == nil {
		return HiloSettings{}, false
	}
	return *m.hilo, true
}

// Members returns the declared members in declaration order, identity first.
func (m *DocumentMapping) Members() []Member {
	out := make([]Member, len(m.members))
	for i, mem := range m.members {
		out[i] = *mem
	}
	return out
}

func (m *DocumentMapping) Indexes() []IndexDecl { return slices.Clone(m.indexes) }

// Member looks up a declared member path, ignoring case.
func (m *DocumentMapping) Member(path string) (Member, bool) {
	mem, ok := m.byPath[strings.ToLower(path)]
	if !ok {
		return Member{}, false
	}
	return *mem, true
}

// duplicatedFields returns the duplicated column fields sorted by column name.
func (m *DocumentMapping) duplicatedFields() []*Field {
	var out []*Field
	for _, mem := range m.members {
		if !mem.Duplicated || mem.Path == m.identity.Member {
			continue
		}
		if f, ok := m.TryField(mem.Path); ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Column() < out[j].Column() })
	return out
}

// TryField resolves a member path through the field sources. False means the
// path is not searchable, e.g. an undeclared or computed member.
func (m *DocumentMapping) TryField(path string) (*Field, bool) {
	key := strings.ToLower(path)
	if f, ok := m.fields.Load(key); ok {
		return f, true
	}
	mem, ok := m.byPath[key]
	if !ok {
		return nil, false
	}
	f, ok := m.sources.TryResolve(FieldRequest{
		Root:              documentAlias,
		Dialect:           m.dialect,
		Settings:          m.settings,
		PropertySearching: m.propertySearching,
		Mapping:           m,
		Member:            mem,
	})
	if !ok {
		return nil, false
	}
	f, _ = m.fields.LoadOrStore(key, f)
	return f, true
}

// FieldFor is TryField for callers that need a Field.
func (m *DocumentMapping) FieldFor(path string) (*Field, error) {
	if f, ok := m.TryField(path); ok {
		return f, nil
	}
	return nil, UnresolvableMemberError(m.docType.String(), path)
}

// Equal compares mappings structurally.
func (m *DocumentMapping) Equal(o *DocumentMapping) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.docType != o.docType || m.alias != o.alias || m.table != o.table || m.upsert != o.upsert ||
		m.settings != o.settings || m.propertySearching != o.propertySearching ||
		m.dialect.Backend() != o.dialect.Backend() {
		return false
	}
	if m.identity.Member != o.identity.Member || m.identity.Kind != o.identity.Kind {
		return false
	}
	if (m.hilo == nil) != (o.hilo == nil) || (m.hilo != nil && *m.hilo != *o.hilo) {
		return false
	}
	if len(m.members) != len(o.members) || !slices.Equal(m.indexes, o.indexes) {
		return false
	}
	for i := range m.members {
		if !m.members[i].equal(o.members[i]) {
			return false
		}
	}
	return true
}
