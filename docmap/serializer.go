package docmap

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// Serializer turns documents into the JSON payload and back. Its settings
// decide how locators address the payload.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Settings() SerializerSettings
}

// JSONSerializer is encoding/json with struct field keys rewritten to the
// casing convention. Keys of map members are user data and keep their
// spelling. Structs should rely on field names rather than json tags when a
// casing other than CasingDefault is used.
type JSONSerializer struct {
	settings SerializerSettings
}

func NewJSONSerializer(s SerializerSettings) *JSONSerializer {
	if s.Casing == "" {
		s.Casing = CasingDefault
	}
	if s.EnumStorage == "" {
		s.EnumStorage = EnumAsInteger
	}
	return &JSONSerializer{settings: s}
}

func (s *JSONSerializer) Settings() SerializerSettings { return s.settings }

func (s *JSONSerializer) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil || s.settings.Casing == CasingDefault {
		return b, err
	}
	tree, err := decodeTree(b)
	if err != nil {
		return nil, err
	}
	rename := func(k string) string { return ApplyCasing(s.settings.Casing, k) }
	if isUntyped(v) {
		return json.Marshal(renameKeys(tree, rename))
	}
	return json.Marshal(renameFields(tree, reflect.TypeOf(v), sameName, func(key, _ string) string { return rename(key) }))
}

// Unmarshal maps snake keys back onto the JSON names of the struct fields
// they were written from; "first_name" finds FirstName.
func (s *JSONSerializer) Unmarshal(data []byte, v any) error {
	if s.settings.Casing != CasingSnake {
		return decodeInto(data, v)
	}
	if isUntyped(v) {
		return decodeInto(data, v)
	}
	tree, err := decodeTree(data)
	if err != nil {
		return err
	}
	b, err := json.Marshal(renameFields(tree, reflect.TypeOf(v), sameSnakeName, func(_, name string) string { return name }))
	if err != nil {
		return err
	}
	return decodeInto(b, v)
}

func decodeInto(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func decodeTree(data []byte) (any, error) {
	var tree any
	if err := decodeInto(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func renameKeys(v any, rename func(string) string) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[rename(k)] = renameKeys(val, rename)
		}
		return out
	case []any:
		for i := range x {
			x[i] = renameKeys(x[i], rename)
		}
		return x
	default:
		return v
	}
}

// isUntyped reports documents that are plain maps, where every key is a member.
func isUntyped(v any) bool {
	switch v.(type) {
	case DynamicDocument, *DynamicDocument, map[string]any, *map[string]any:
		return true
	}
	return false
}

func sameName(name, key string) bool { return name == key }

func sameSnakeName(name, key string) bool {
	return strings.EqualFold(stripUnderscores(name), stripUnderscores(key))
}

func stripUnderscores(k string) string { return strings.ReplaceAll(k, "_", "") }

var jsonMarshalerType = reflect.TypeFor[json.Marshaler]()

// renameFields rewrites the object keys that encode struct fields of t.
// rename receives the key and the field's JSON name. Map keys and content
// under interface or custom-marshaled types are left alone.
func renameFields(v any, t reflect.Type, same func(name, key string) bool, rename func(key, name string) string) any {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Implements(jsonMarshalerType) || reflect.PointerTo(t).Implements(jsonMarshalerType) {
		return v
	}
	switch x := v.(type) {
	case map[string]any:
		switch t.Kind() {
		case reflect.Struct:
			out := make(map[string]any, len(x))
			for k, val := range x {
				sf, name, ok := jsonField(t, k, same)
				if !ok {
					out[k] = val
					continue
				}
				out[rename(k, name)] = renameFields(val, sf.Type, same, rename)
			}
			return out
		case reflect.Map:
			for k, val := range x {
				x[k] = renameFields(val, t.Elem(), same, rename)
			}
		}
		return x
	case []any:
		if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
			for i := range x {
				x[i] = renameFields(x[i], t.Elem(), same, rename)
			}
		}
		return x
	}
	return v
}

// jsonField finds the field encoding/json writes under key, following
// embedded structs.
func jsonField(t reflect.Type, key string, same func(name, key string) bool) (reflect.StructField, string, bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if tag == "-" {
			continue
		}
		if sf.Anonymous && tag == "" {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				if f, name, ok := jsonField(et, key, same); ok {
					return f, name, true
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		name := tag
		if name == "" {
			name = sf.Name
		}
		if same(name, key) {
			return sf, name, true
		}
	}
	return reflect.StructField{}, "", false
}
