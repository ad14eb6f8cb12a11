package docmap

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"

	"github.com/docmap/docmap/docmap/storage"
)

// Registration is a document type declaration accepted by Register; every
// *MappingBuilder[T] is one.
type Registration interface {
	DocumentType() reflect.Type
	Build(d storage.Dialect, opts StoreOptions) (*DocumentMapping, error)
	defaultAlias() string
}

// DocumentSchema owns the mappings and storage handles of one store. Mappings
// and handles are built lazily, at most once each, and live until Close.
type DocumentSchema struct {
	adapter storage.Adapter
	opts    StoreOptions
	log     Logger
	db      atomic.Pointer[sql.DB]

	regMu         sync.RWMutex
	registrations map[string]Registration
	typeIndex     map[reflect.Type]string

	mappings *xsync.MapOf[string, *DocumentMapping]
	storages *xsync.MapOf[string, *DocumentStorage]
	group    singleflight.Group

	ensureLocks *xsync.MapOf[string, *sync.Mutex]
	systemMu    sync.Mutex
	systemDone  bool

	sequences *Sequences
}

var dynamicType = reflect.TypeFor[DynamicDocument]()

// NewDocumentSchema creates a schema that has not connected yet. Mappings,
// table definitions and DDL export work offline.
func NewDocumentSchema(adapter storage.Adapter, opts StoreOptions) (*DocumentSchema, error) {
	if adapter == nil {
		return nil, NewError(ErrConstruction, "storage adapter is required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	s := &DocumentSchema{
		adapter:       adapter,
		opts:          opts,
		log:           opts.Logger,
		registrations: make(map[string]Registration),
		typeIndex:     make(map[reflect.Type]string),
		mappings:      xsync.NewMapOf[string, *DocumentMapping](),
		storages:      xsync.NewMapOf[string, *DocumentStorage](),
		ensureLocks:   xsync.NewMapOf[string, *sync.Mutex](),
	}
	s.sequences = NewSequences(dbHiSource{schema: s})
	return s, nil
}

// Open creates a schema and connects it.
func Open(ctx context.Context, adapter storage.Adapter, opts StoreOptions) (*DocumentSchema, error) {
	s, err := NewDocumentSchema(adapter, opts)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect opens the database connection. Calling it again is a no-op.
func (s *DocumentSchema) Connect(ctx context.Context) error {
	if s.db.Load() != nil {
		return nil
	}
	db, err := s.adapter.Connect(ctx)
	if err != nil {
		return Wrap(ErrIO, "connect to database", err)
	}
	if !s.db.CompareAndSwap(nil, db) {
		_ = db.Close()
		return nil
	}
	s.log.InfoCtx(ctx, "connected", "target", s.adapter.ID(), "schema", s.opts.Schema)
	return nil
}

// Close releases the connection. Cached mappings stay usable offline.
func (s *DocumentSchema) Close() error {
	if db := s.db.Swap(nil); db != nil {
		if err := db.Close(); err != nil {
			return Wrap(ErrIO, "close database", err)
		}
	}
	return s.adapter.Close()
}

func (s *DocumentSchema) database() (*sql.DB, error) {
	db := s.db.Load()
	if db == nil {
		return nil, NewError(ErrConstruction, "document schema is not connected")
	}
	return db, nil
}

func (s *DocumentSchema) connected() bool { return s.db.Load() != nil }

// Options returns the validated options.
func (s *DocumentSchema) Options() StoreOptions { return s.opts }

func (s *DocumentSchema) Adapter() storage.Adapter { return s.adapter }

// Sequences returns the hilo sequences shared by every document of this schema.
func (s *DocumentSchema) Sequences() *Sequences { return s.sequences }

// Register declares document types. A type or alias can be registered once.
func (s *DocumentSchema) Register(regs ...Registration) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	for _, r := range regs {
		alias := r.defaultAlias()
		typ := r.DocumentType()
		if _, taken := s.registrations[alias]; taken {
			return MappingError(typ.String(), "", "document alias "+alias+" is already registered")
		}
		if typ != dynamicType {
			if other, taken := s.typeIndex[typ]; taken {
				return MappingError(typ.String(), "", "type is already registered as "+other)
			}
			s.typeIndex[typ] = alias
		}
		s.registrations[alias] = r
		s.log.Debug("document registered", "type", typ.String(), "alias", alias)
	}
	return nil
}

func (s *DocumentSchema) aliasFor(t reflect.Type) (string, error) {
	if t == nil {
		return "", UnknownTypeError("<nil>")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s.regMu.RLock()
	alias, ok := s.typeIndex[t]
	s.regMu.RUnlock()
	if !ok {
		if t == dynamicType {
			return "", &Error{Kind: ErrUnknownType, Type: t.String(), Message: "dynamic documents are addressed by alias"}
		}
		return "", UnknownTypeError(t.String())
	}
	return alias, nil
}

func (s *DocumentSchema) registration(alias string) (Registration, bool) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	r, ok := s.registrations[strings.ToLower(alias)]
	return r, ok
}

func (s *DocumentSchema) aliases() []string {
	s.regMu.RLock()
	out := make([]string, 0, len(s.registrations))
	for alias := range s.registrations {
		out = append(out, alias)
	}
	s.regMu.RUnlock()
	sort.Strings(out)
	return out
}

// MappingFor returns the mapping of a registered type, building it on first
// use. Every call for the same type returns the same mapping.
func (s *DocumentSchema) MappingFor(t reflect.Type) (*DocumentMapping, error) {
	alias, err := s.aliasFor(t)
	if err != nil {
		return nil, err
	}
	return s.MappingForAlias(alias)
}

// MappingForAlias returns the mapping registered under alias.
func (s *DocumentSchema) MappingForAlias(alias string) (*DocumentMapping, error) {
	alias = strings.ToLower(alias)
	if m, ok := s.mappings.Load(alias); ok {
		return m, nil
	}
	r, ok := s.registration(alias)
	if !ok {
		return nil, UnknownTypeError(alias)
	}
	v, err, _ := s.group.Do("mapping:"+alias, func() (any, error) {
		if m, ok := s.mappings.Load(alias); ok {
			return m, nil
		}
		m, err := r.Build(s.adapter, s.opts)
		if err != nil {
			return nil, err
		}
		s.mappings.Store(alias, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DocumentMapping), nil
}

// StorageFor returns the storage handle of a registered type. Concurrent first
// calls share one construction, including its schema check when AutoCreate
// allows changes; they all receive the same handle or the same error.
func (s *DocumentSchema) StorageFor(ctx context.Context, t reflect.Type) (*DocumentStorage, error) {
	alias, err := s.aliasFor(t)
	if err != nil {
		return nil, err
	}
	return s.StorageForAlias(ctx, alias)
}

// StorageForAlias is StorageFor for a registered alias.
func (s *DocumentSchema) StorageForAlias(ctx context.Context, alias string) (*DocumentStorage, error) {
	alias = strings.ToLower(alias)
	if st, ok := s.storages.Load(alias); ok {
		return st, nil
	}
	v, err, _ := s.group.Do("storage:"+alias, func() (any, error) {
		if st, ok := s.storages.Load(alias); ok {
			return st, nil
		}
		st, err := s.buildStorage(ctx, alias)
		if err != nil {
			StorageConstructions.WithLabelValues(alias, "error").Inc()
			return nil, err
		}
		s.storages.Store(alias, st)
		StorageConstructions.WithLabelValues(alias, "ok").Inc()
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DocumentStorage), nil
}

func (s *DocumentSchema) buildStorage(ctx context.Context, alias string) (*DocumentStorage, error) {
	m, err := s.MappingForAlias(alias)
	if err != nil {
		return nil, err
	}
	st, err := newDocumentStorage(s, m)
	if err != nil {
		return nil, err
	}
	if s.connected() && s.opts.AutoCreate != AutoCreateNone {
		if err := s.ensure(ctx, m, s.opts.AutoCreate); err != nil {
			return nil, err
		}
	}
	s.log.DebugCtx(ctx, "storage ready", "document", alias, "table", m.table.QualifiedName())
	return st, nil
}

// EnsureStorageExists brings the table of a registered type up to date with
// additive DDL only. A table that already matches runs no DDL.
func (s *DocumentSchema) EnsureStorageExists(ctx context.Context, t reflect.Type) error {
	m, err := s.MappingFor(t)
	if err != nil {
		return err
	}
	return s.EnsureStorageExistsFor(ctx, m)
}

// EnsureStorageExistsFor is EnsureStorageExists for a mapping, e.g. one taken
// from AllDocumentMaps.
func (s *DocumentSchema) EnsureStorageExistsFor(ctx context.Context, m *DocumentMapping) error {
	mode := AutoCreateCreateOrUpdate
	if s.opts.AutoCreate == AutoCreateCreateOnly {
		mode = AutoCreateCreateOnly
	}
	return s.ensure(ctx, m, mode)
}

type ddlStatement struct {
	object string
	sql    string
}

func (s *DocumentSchema) ensureLock(alias string) *sync.Mutex {
	mu, _ := s.ensureLocks.LoadOrCompute(alias, func() *sync.Mutex { return &sync.Mutex{} })
	return mu
}

func (s *DocumentSchema) ensure(ctx context.Context, m *DocumentMapping, mode AutoCreate) error {
	mu := s.ensureLock(m.alias)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	defer func() { EnsureDuration.WithLabelValues(m.alias).Observe(time.Since(start).Seconds()) }()

	db, err := s.database()
	if err != nil {
		return err
	}
	if m.hilo != nil {
		if err := s.ensureSystemObjects(ctx); err != nil {
			return err
		}
	}

	desired := tableSchemaFor(m)
	actual, err := s.adapter.ReadTable(ctx, db, desired.Table)
	if err != nil {
		return Wrap(ErrSQL, "read table "+desired.Table.QualifiedName(), err)
	}
	delta := storage.Diff(desired, actual, s.adapter.NormalizeType)
	if err := s.checkDelta(ctx, m.docType.String(), delta); err != nil {
		return err
	}
	if mode == AutoCreateCreateOnly && actual != nil && !delta.Empty() {
		return DriftError(m.docType.String(), desired.Table.QualifiedName(),
			[]string{"table differs from mapping and auto-create mode is " + string(mode)})
	}

	stmts := s.deltaStatements(desired, delta)

	if fns := s.adapter.DocumentFunctions(desired, m.upsert); len(fns) > 0 {
		missing := delta.ShapeChanged()
		if !missing {
			names, err := s.adapter.ListFunctions(ctx, db, m.upsert.Schema, m.upsert.Name)
			if err != nil {
				return Wrap(ErrSQL, "list functions", err)
			}
			missing = !slices.Contains(names, m.upsert)
		}
		if missing {
			for _, fn := range fns {
				stmts = append(stmts,
					ddlStatement{object: fn.Name.QualifiedName(), sql: fn.Drop},
					ddlStatement{object: fn.Name.QualifiedName(), sql: fn.Create})
			}
		}
	}

	if len(stmts) == 0 {
		s.log.DebugCtx(ctx, "storage up to date", "table", desired.Table.QualifiedName())
		return nil
	}
	return s.execute(ctx, db, stmts)
}

func (s *DocumentSchema) checkDelta(ctx context.Context, typeName string, delta SchemaDelta) error {
	if len(delta.Conflicts) == 0 {
		return nil
	}
	conflicts := make([]string, len(delta.Conflicts))
	for i, c := range delta.Conflicts {
		conflicts[i] = fmt.Sprintf("%s: %s (desired %s, actual %s)", c.Column, c.Reason, c.Desired, c.Actual)
	}
	s.log.ErrorCtx(ctx, "schema drift", "table", delta.Table.QualifiedName(), "conflicts", conflicts)
	return DriftError(typeName, delta.Table.QualifiedName(), conflicts)
}

func (s *DocumentSchema) deltaStatements(desired TableDefinition, delta SchemaDelta) []ddlStatement {
	var stmts []ddlStatement
	table := desired.Table.QualifiedName()
	if delta.CreateTable {
		stmts = append(stmts, ddlStatement{object: table, sql: s.adapter.CreateTable(desired)})
	}
	for _, col := range delta.AddColumns {
		stmts = append(stmts, ddlStatement{object: table, sql: s.adapter.AddColumn(desired.Table, col)})
	}
	for _, idx := range delta.CreateIndexes {
		stmts = append(stmts, ddlStatement{object: table, sql: s.adapter.CreateIndex(desired.Table, idx)})
	}
	return stmts
}

// ensureSystemObjects creates the hilo table and functions once per schema.
// A failed attempt is retried by the next caller.
func (s *DocumentSchema) ensureSystemObjects(ctx context.Context) error {
	s.systemMu.Lock()
	defer s.systemMu.Unlock()
	if s.systemDone {
		return nil
	}

	db, err := s.database()
	if err != nil {
		return err
	}
	desired := storage.HiloTable(s.opts.Schema, s.adapter)
	actual, err := s.adapter.ReadTable(ctx, db, desired.Table)
	if err != nil {
		return Wrap(ErrSQL, "read table "+desired.Table.QualifiedName(), err)
	}
	delta := storage.Diff(desired, actual, s.adapter.NormalizeType)
	if err := s.checkDelta(ctx, storage.HiloTableName, delta); err != nil {
		return err
	}
	stmts := s.deltaStatements(desired, delta)

	if fns := s.adapter.HiloFunctions(s.opts.Schema); len(fns) > 0 {
		names, err := s.adapter.ListFunctions(ctx, db, s.opts.Schema, storage.NextHiFunctionName)
		if err != nil {
			return Wrap(ErrSQL, "list functions", err)
		}
		for _, fn := range fns {
			if delta.ShapeChanged() || !slices.Contains(names, fn.Name) {
				stmts = append(stmts, ddlStatement{object: fn.Name.QualifiedName(), sql: fn.Create})
			}
		}
	}

	if len(stmts) > 0 {
		if err := s.execute(ctx, db, stmts); err != nil {
			return err
		}
	}
	s.systemDone = true
	return nil
}

// execute runs stmts in one transaction.
func (s *DocumentSchema) execute(ctx context.Context, db *sql.DB, stmts []ddlStatement) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Wrap(ErrSQL, "begin transaction", err)
	}
	defer tx.Rollback()

	for _, st := range stmts {
		s.log.InfoCtx(ctx, "ddl", "object", st.object, "sql", st.sql)
		if _, err := tx.ExecContext(ctx, st.sql); err != nil {
			return Wrap(ErrSQL, "execute ddl for "+st.object, err)
		}
		DDLStatements.WithLabelValues(st.object).Inc()
	}
	if err := tx.Commit(); err != nil {
		return Wrap(ErrSQL, "commit", err)
	}
	return nil
}

// schemas lists the database schemas holding generated objects.
func (s *DocumentSchema) schemas() []string {
	out := []string{s.opts.Schema}
	if s.adapter.Backend() == storage.BackendSQLite {
		return out
	}
	for m := range s.AllDocumentMaps() {
		if !slices.Contains(out, m.table.Schema) {
			out = append(out, m.table.Schema)
		}
	}
	sort.Strings(out)
	return out
}

func (s *DocumentSchema) listTables(ctx context.Context, prefix string) ([]TableName, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}
	var out []TableName
	for _, schema := range s.schemas() {
		tables, err := s.adapter.ListTables(ctx, db, schema, prefix)
		if err != nil {
			return nil, Wrap(ErrSQL, "list tables", err)
		}
		out = append(out, tables...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName() < out[j].QualifiedName() })
	return out, nil
}

// SchemaTables lists every generated table, including system tables.
func (s *DocumentSchema) SchemaTables(ctx context.Context) ([]TableName, error) {
	return s.listTables(ctx, artifactPrefix)
}

// DocumentTables lists the document tables only.
func (s *DocumentSchema) DocumentTables(ctx context.Context) ([]TableName, error) {
	return s.listTables(ctx, tablePrefix)
}

// SchemaFunctionNames lists the generated functions. Backends without stored
// functions return none.
func (s *DocumentSchema) SchemaFunctionNames(ctx context.Context) ([]FunctionName, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}
	var out []FunctionName
	for _, schema := range s.schemas() {
		fns, err := s.adapter.ListFunctions(ctx, db, schema, artifactPrefix)
		if err != nil {
			return nil, Wrap(ErrSQL, "list functions", err)
		}
		out = append(out, fns...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName() < out[j].QualifiedName() })
	return out, nil
}

func (s *DocumentSchema) TableExists(ctx context.Context, table TableName) (bool, error) {
	db, err := s.database()
	if err != nil {
		return false, err
	}
	ok, err := s.adapter.TableExists(ctx, db, table)
	if err != nil {
		return false, Wrap(ErrSQL, "check table "+table.QualifiedName(), err)
	}
	return ok, nil
}

// TableSchema returns the desired table of a registered type without touching
// the database.
func (s *DocumentSchema) TableSchema(t reflect.Type) (TableDefinition, error) {
	m, err := s.MappingFor(t)
	if err != nil {
		return TableDefinition{}, err
	}
	return s.TableSchemaFor(m), nil
}

func (s *DocumentSchema) TableSchemaFor(m *DocumentMapping) TableDefinition {
	return tableSchemaFor(m)
}

// AllDocumentMaps yields the mappings of every registered document, sorted by
// alias. The set is captured when AllDocumentMaps is called, so every pass
// over the sequence sees the same registrations; mappings that fail to build
// are logged and skipped.
func (s *DocumentSchema) AllDocumentMaps() iter.Seq[*DocumentMapping] {
	aliases := s.aliases()
	return func(yield func(*DocumentMapping) bool) {
		for _, alias := range aliases {
			m, err := s.MappingForAlias(alias)
			if err != nil {
				s.log.Warn("skipping document mapping", "alias", alias, "error", err)
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

// mappingsByTable builds every mapping, failing on the first error.
func (s *DocumentSchema) mappingsByTable() ([]*DocumentMapping, error) {
	var out []*DocumentMapping
	for _, alias := range s.aliases() {
		m, err := s.MappingForAlias(alias)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].table.QualifiedName() < out[j].table.QualifiedName()
	})
	return out, nil
}
