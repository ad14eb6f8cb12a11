package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/docmap/docmap/docmap"
)

// Config is the YAML file read by the docmap CLI. Documents are declared
// without Go types and mapped as docmap.DynamicDocument by alias.
type Config struct {
	Backend           string     `yaml:"backend"`
	SQLite            SQLite     `yaml:"sqlite"`
	Postgres          Postgres   `yaml:"postgres"`
	Schema            string     `yaml:"schema"`
	Casing            string     `yaml:"casing"`
	EnumStorage       string     `yaml:"enum_storage"`
	PropertySearching string     `yaml:"property_searching"`
	AutoCreate        string     `yaml:"auto_create"`
	HiloMaxLo         int        `yaml:"hilo_max_lo"`
	Output            Output     `yaml:"output"`
	Documents         []Document `yaml:"documents"`
}

type SQLite struct {
	Path   string `yaml:"path"`
	Driver string `yaml:"driver"`
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

// Output holds the default destinations of the ddl commands.
type Output struct {
	DDL    string `yaml:"ddl"`
	DDLDir string `yaml:"ddl_dir"`
}

type Document struct {
	Alias     string   `yaml:"alias"`
	Schema    string   `yaml:"schema"`
	ID        ID       `yaml:"id"`
	HiloMaxLo int      `yaml:"hilo_max_lo"`
	Members   []Member `yaml:"members"`
	Indexes   []Index  `yaml:"indexes"`
}

type ID struct {
	Member string `yaml:"member"`
	Kind   string `yaml:"kind"`
}

// Member declares one member path. Kind "enum" takes Values; Computed members
// are recorded but never searchable.
type Member struct {
	Path      string   `yaml:"path"`
	Kind      string   `yaml:"kind"`
	Values    []string `yaml:"values"`
	Duplicate bool     `yaml:"duplicate"`
	Computed  bool     `yaml:"computed"`
}

type Index struct {
	Path   string `yaml:"path"`
	Unique bool   `yaml:"unique"`
}

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var knownKinds = map[docmap.MemberKind]bool{
	docmap.KindString: true,
	docmap.KindInt:    true,
	docmap.KindInt64:  true,
	docmap.KindFloat:  true,
	docmap.KindBool:   true,
	docmap.KindTime:   true,
	docmap.KindUUID:   true,
	docmap.KindEnum:   true,
	docmap.KindObject: true,
}

// LoadFile reads and parses the config at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML config data and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "parse config YAML")
	}
	applyDefaults(&c)
	return &c, nil
}

// Default is the config used when no file exists.
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	c.Backend = strings.ToLower(c.Backend)
	if c.Backend == "" {
		c.Backend = BackendSQLite
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "docmap.db"
	}
	if c.SQLite.Driver == "" {
		c.SQLite.Driver = "sqlite"
	}
	if c.Schema == "" {
		c.Schema = docmap.DefaultSchema
	}
	if c.Output.DDL == "" {
		c.Output.DDL = "docmap.sql"
	}
	if c.Output.DDLDir == "" {
		c.Output.DDLDir = "ddl"
	}
	for i := range c.Documents {
		d := &c.Documents[i]
		if d.ID.Member == "" {
			d.ID.Member = "id"
		}
		if d.ID.Kind == "" {
			d.ID.Kind = string(docmap.IDString)
		}
		for j := range d.Members {
			m := &d.Members[j]
			m.Kind = strings.ToLower(m.Kind)
			switch {
			case m.Kind != "":
			case len(m.Values) > 0:
				m.Kind = string(docmap.KindEnum)
			default:
				m.Kind = string(docmap.KindString)
			}
		}
	}
}

// StoreOptions converts the store-wide settings; zero values are left for
// docmap to default.
func (c *Config) StoreOptions() docmap.StoreOptions {
	opts := docmap.DefaultStoreOptions()
	opts.Schema = c.Schema
	if c.Casing != "" {
		opts.Casing = docmap.Casing(c.Casing)
	}
	if c.EnumStorage != "" {
		opts.EnumStorage = docmap.EnumStorage(c.EnumStorage)
	}
	if c.PropertySearching != "" {
		opts.PropertySearching = docmap.PropertySearching(c.PropertySearching)
	}
	if c.AutoCreate != "" {
		opts.AutoCreate = docmap.AutoCreate(c.AutoCreate)
	}
	if c.HiloMaxLo > 0 {
		opts.HiloMaxLo = c.HiloMaxLo
	}
	return opts
}

// Registrations builds one dynamic mapping per declared document.
func (c *Config) Registrations() ([]docmap.Registration, error) {
	seen := make(map[string]bool, len(c.Documents))
	out := make([]docmap.Registration, 0, len(c.Documents))
	for _, d := range c.Documents {
		if d.Alias == "" {
			return nil, errors.New("document without alias")
		}
		key := strings.ToLower(d.Alias)
		if seen[key] {
			return nil, errors.Errorf("document %s declared twice", d.Alias)
		}
		seen[key] = true
		reg, err := d.Registration()
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, nil
}

// Registration builds the dynamic mapping of d. Member and index mistakes
// surface later from Build with docmap's own mapping errors.
func (d Document) Registration() (docmap.Registration, error) {
	kind := docmap.IdentityKind(strings.ToLower(d.ID.Kind))
	switch kind {
	case docmap.IDString, docmap.IDInt, docmap.IDInt64, docmap.IDUUID:
	default:
		return nil, errors.Errorf("document %s: unknown id kind %q", d.Alias, d.ID.Kind)
	}

	b := docmap.Dynamic(d.Alias, d.ID.Member, kind)
	if d.Schema != "" {
		b.Schema(d.Schema)
	}
	if d.HiloMaxLo > 0 {
		b.Hilo(docmap.HiloSettings{MaxLo: d.HiloMaxLo})
	}
	for _, m := range d.Members {
		if !m.Computed && !knownKinds[docmap.MemberKind(m.Kind)] {
			return nil, errors.Errorf("document %s: member %s has unknown kind %q", d.Alias, m.Path, m.Kind)
		}
		switch {
		case m.Computed:
			b.Computed(m.Path)
		case docmap.MemberKind(m.Kind) == docmap.KindEnum:
			b.Enum(m.Path, m.Values...)
		case m.Duplicate:
			b.Duplicate(m.Path, docmap.MemberKind(m.Kind))
		default:
			b.Searchable(m.Path, docmap.MemberKind(m.Kind))
		}
	}
	for _, idx := range d.Indexes {
		if idx.Unique {
			b.Index(idx.Path, docmap.Unique())
		} else {
			b.Index(idx.Path)
		}
	}
	return b, nil
}
