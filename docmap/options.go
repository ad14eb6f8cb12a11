package docmap

import (
	"regexp"

	"github.com/docmap/docmap/docmap/storage"
)

// Casing is the naming convention applied to member names when they become
// JSON keys and column names.
type Casing string

const (
	CasingDefault Casing = "default" // member names unchanged
	CasingCamel   Casing = "camel"   // "FirstName" -> "firstName"
	CasingSnake   Casing = "snake"   // "FirstName" -> "first_name"
)

// EnumStorage selects how enum members are written to documents.
type EnumStorage string

const (
	EnumAsInteger EnumStorage = "integer"
	EnumAsString  EnumStorage = "string"
)

// PropertySearching selects how equality filters reach into documents.
type PropertySearching string

const (
	JSONLocatorOnly PropertySearching = "json_locator"
	// ContainmentOperator matches equality with jsonb @> where the backend
	// supports it.
	ContainmentOperator PropertySearching = "containment"
)

// AutoCreate controls what StorageFor may change in the database.
type AutoCreate string

const (
	AutoCreateNone           AutoCreate = "none"             // never touch the schema implicitly
	AutoCreateCreateOnly     AutoCreate = "create_only"      // create missing tables, refuse other changes
	AutoCreateCreateOrUpdate AutoCreate = "create_or_update" // additive changes
)

// MemberKind is the storage kind of a searchable member.
type MemberKind = storage.ValueKind

const (
	KindString = storage.KindString
	KindInt    = storage.KindInt
	KindInt64  = storage.KindInt64
	KindFloat  = storage.KindFloat
	KindBool   = storage.KindBool
	KindTime   = storage.KindTime
	KindUUID   = storage.KindUUID
	KindEnum   = storage.KindEnum
	KindObject = storage.KindObject
)

const (
	DefaultSchema                 = "public"
	DefaultHiloMaxLo              = 1000
	DefaultCompiledQueryCacheSize = 512

	tablePrefix    = "mt_doc_"
	upsertPrefix   = "mt_upsert_"
	artifactPrefix = "mt_"
	documentAlias  = "d"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SerializerSettings are the serialization choices locators depend on.
type SerializerSettings struct {
	Casing      Casing
	EnumStorage EnumStorage
}

// StoreOptions configures a DocumentSchema.
type StoreOptions struct {
	Schema            string
	Casing            Casing
	EnumStorage       EnumStorage
	PropertySearching PropertySearching
	AutoCreate        AutoCreate
	// HiloMaxLo is the block size used by mappings that do not set their own.
	HiloMaxLo              int
	CompiledQueryCacheSize int
	// Serializer defaults to a JSONSerializer built from Casing and EnumStorage.
	Serializer Serializer
	Logger     Logger
	// FieldSources overrides the resolution chain; nil means DefaultFieldSources.
	FieldSources FieldSources
}

func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		Schema:                 DefaultSchema,
		Casing:                 CasingDefault,
		EnumStorage:            EnumAsInteger,
		PropertySearching:      JSONLocatorOnly,
		AutoCreate:             AutoCreateCreateOrUpdate,
		HiloMaxLo:              DefaultHiloMaxLo,
		CompiledQueryCacheSize: DefaultCompiledQueryCacheSize,
	}
}

// validate fills zero values with defaults and rejects what cannot be fixed.
func (o *StoreOptions) validate() error {
	if o.Schema == "" {
		o.Schema = DefaultSchema
	}
	if !identRe.MatchString(o.Schema) {
		return NewError(ErrMapping, "invalid database schema name "+o.Schema)
	}
	switch o.Casing {
	case CasingDefault, CasingCamel, CasingSnake:
	case "":
		o.Casing = CasingDefault
	default:
		return NewError(ErrMapping, "unknown casing "+string(o.Casing))
	}
	switch o.EnumStorage {
	case EnumAsInteger, EnumAsString:
	case "":
		o.EnumStorage = EnumAsInteger
	default:
		return NewError(ErrMapping, "unknown enum storage "+string(o.EnumStorage))
	}
	if o.PropertySearching == "" {
		o.PropertySearching = JSONLocatorOnly
	}
	if o.AutoCreate == "" {
		o.AutoCreate = AutoCreateCreateOrUpdate
	}
	if o.HiloMaxLo < 1 {
		o.HiloMaxLo = DefaultHiloMaxLo
	}
	if o.CompiledQueryCacheSize < 1 {
		o.CompiledQueryCacheSize = DefaultCompiledQueryCacheSize
	}
	if o.Serializer == nil {
		o.Serializer = NewJSONSerializer(SerializerSettings{Casing: o.Casing, EnumStorage: o.EnumStorage})
	}
	if o.Logger == nil {
		o.Logger = NopLogger{}
	}
	if o.FieldSources == nil {
		o.FieldSources = DefaultFieldSources()
	}
	return nil
}
