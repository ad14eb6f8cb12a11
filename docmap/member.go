package docmap

import (
	"slices"
	"strings"
)

// Member is one declared searchable path of a document.
type Member struct {
	// Path is the dotted member chain as declared, e.g. "Address.City".
	Path string
	Kind MemberKind
	// EnumValues lists enum names in ordinal order.
	EnumValues []string
	// Duplicated members are copied into their own column on every write.
	Duplicated bool
	// Computed members have no storage path and cannot be searched.
	Computed bool
}

// Chain splits Path into member names.
func (m *Member) Chain() []string {
	return strings.Split(m.Path, ".")
}

func (m *Member) equal(o *Member) bool {
	return m.Path == o.Path && m.Kind == o.Kind && m.Duplicated == o.Duplicated &&
		m.Computed == o.Computed && slices.Equal(m.EnumValues, o.EnumValues)
}

// jsonKeys renders every segment of the chain under casing.
func jsonKeys(casing Casing, chain []string) []string {
	keys := make([]string, len(chain))
	for i, name := range chain {
		keys[i] = ApplyCasing(casing, name)
	}
	return keys
}

// columnName is the duplicated column for a chain: "Address.City" -> "address_city".
func columnName(chain []string) string {
	parts := make([]string, len(chain))
	for i, name := range chain {
		parts[i] = snakeCase(name)
	}
	return strings.Join(parts, "_")
}
