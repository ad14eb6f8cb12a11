package docmap

import (
	"reflect"
	"strings"
)

// enumMember is an enum field of a mapping together with the shape its Go
// member has. A Go member that is a string holds the name; any other kind
// holds the ordinal. Dynamic documents have no Go shape and keep the stored
// form.
type enumMember struct {
	field  *Field
	goText bool
	typed  bool
}

func (m *DocumentMapping) enumMembers() []enumMember {
	var out []enumMember
	for _, mem := range m.members {
		if mem.Kind != KindEnum || mem.Computed {
			continue
		}
		f, ok := m.TryField(mem.Path)
		if !ok {
			continue
		}
		kind, typed := goKindAt(m.docType, mem.Chain())
		out = append(out, enumMember{field: f, goText: kind == reflect.String, typed: typed})
	}
	return out
}

// goKindAt follows chain through struct fields, matching names the way
// encoding/json does.
func goKindAt(t reflect.Type, chain []string) (reflect.Kind, bool) {
	for _, name := range chain {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return reflect.Invalid, false
		}
		sf, ok := structField(t, name)
		if !ok {
			return reflect.Invalid, false
		}
		t = sf.Type
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind(), true
}

func structField(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if tag == "-" {
			continue
		}
		if strings.EqualFold(sf.Name, name) || (tag != "" && strings.EqualFold(tag, name)) {
			return sf, true
		}
	}
	return reflect.StructField{}, false
}

// storedEnums rewrites enum members of a decoded payload into their stored
// form. It reports whether anything changed.
func storedEnums(doc map[string]any, enums []enumMember) bool {
	changed := false
	for _, e := range enums {
		changed = e.field.replaceIn(doc, e.field.enumValue) || changed
	}
	return changed
}

// goEnums rewrites stored enum values back into the form the Go members
// decode from.
func goEnums(doc map[string]any, enums []enumMember) bool {
	changed := false
	for _, e := range enums {
		if !e.typed {
			continue
		}
		e := e
		changed = e.field.replaceIn(doc, func(v any) any { return e.field.goEnumValue(v, e.goText) }) || changed
	}
	return changed
}

// goEnumValue converts a stored enum value to the name when text is set and
// to the ordinal otherwise.
func (f *Field) goEnumValue(v any, text bool) any {
	if text {
		if n, ok := toInt64(v); ok && n >= 0 && int(n) < len(f.enumValues) {
			return f.enumValues[n]
		}
		return v
	}
	if s, ok := v.(string); ok {
		for i, candidate := range f.enumValues {
			if strings.EqualFold(candidate, s) {
				return int64(i)
			}
		}
	}
	return v
}

// replaceIn applies fn to the value at the field's JSON keys, if present.
func (f *Field) replaceIn(doc map[string]any, fn func(any) any) bool {
	if len(f.keys) == 0 {
		return false
	}
	cur := doc
	for _, k := range f.keys[:len(f.keys)-1] {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return false
		}
		cur = next
	}
	last := f.keys[len(f.keys)-1]
	v, ok := cur[last]
	if !ok || v == nil {
		return false
	}
	nv := fn(v)
	if reflect.DeepEqual(nv, v) {
		return false
	}
	cur[last] = nv
	return true
}
