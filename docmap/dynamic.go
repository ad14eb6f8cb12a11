package docmap

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// DynamicDocument is a document without a Go type, declared from
// configuration. Every dynamic mapping shares this type and is told apart by
// alias.
type DynamicDocument map[string]any

// Dynamic starts the mapping of a configuration-declared document. The
// identity lives under idMember at the top level of the document.
func Dynamic(alias, idMember string, kind IdentityKind) *MappingBuilder[DynamicDocument] {
	b := For[DynamicDocument]().Alias(alias)
	return b.ID(idMember, kind,
		func(d *DynamicDocument) any { return dynamicID(kind, (*d)[idMember]) },
		func(d *DynamicDocument, id any) {
			if *d == nil {
				*d = DynamicDocument{}
			}
			if u, ok := id.(uuid.UUID); ok {
				id = u.String()
			}
			(*d)[idMember] = id
		})
}

// dynamicID normalizes an identity read from decoded JSON or YAML.
func dynamicID(kind IdentityKind, v any) any {
	switch kind {
	case IDInt, IDInt64:
		if n, ok := toInt64(v); ok {
			return n
		}
		if s, ok := v.(string); ok {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		}
		return int64(0)
	case IDUUID:
		switch x := v.(type) {
		case uuid.UUID:
			return x
		case string:
			if id, err := uuid.Parse(x); err == nil {
				return id
			}
		}
		return uuid.Nil
	default:
		switch x := v.(type) {
		case nil:
			return ""
		case string:
			return x
		case json.Number:
			return x.String()
		default:
			return fmt.Sprint(x)
		}
	}
}
