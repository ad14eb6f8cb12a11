package docmap

import (
	"github.com/docmap/docmap/docmap/storage"
)

// FieldRequest carries everything a FieldSource may consult.
type FieldRequest struct {
	// Root is the table alias locators are rendered against.
	Root              string
	Dialect           storage.Dialect
	Settings          SerializerSettings
	PropertySearching PropertySearching
	Mapping           *DocumentMapping
	Member            *Member
}

// FieldSource is one resolution strategy. TryResolve returns false when the
// strategy does not apply; that is a signal to try the next one, not an error.
type FieldSource interface {
	TryResolve(req FieldRequest) (*Field, bool)
}

// FieldSourceFunc adapts a function to FieldSource.
type FieldSourceFunc func(req FieldRequest) (*Field, bool)

func (fn FieldSourceFunc) TryResolve(req FieldRequest) (*Field, bool) { return fn(req) }

// FieldSources is an ordered chain; the first source that resolves wins.
type FieldSources []FieldSource

func (s FieldSources) TryResolve(req FieldRequest) (*Field, bool) {
	if req.Member == nil || req.Member.Computed {
		return nil, false
	}
	for _, src := range s {
		if f, ok := src.TryResolve(req); ok {
			return f, true
		}
	}
	return nil, false
}

// DefaultFieldSources resolves the identity member, then duplicated columns,
// then JSON paths.
func DefaultFieldSources() FieldSources {
	return FieldSources{IdentityFieldSource{}, DuplicatedFieldSource{}, DefaultFieldSource{}}
}

// IdentityFieldSource maps the identity member onto the id column.
type IdentityFieldSource struct{}

func (IdentityFieldSource) TryResolve(req FieldRequest) (*Field, bool) {
	if req.Mapping == nil || req.Mapping.identity == nil || req.Member.Path != req.Mapping.identity.Member {
		return nil, false
	}
	return NewDuplicatedField(req.Dialect, req.Root, req.Settings, req.Member, idColumn), true
}

// DuplicatedFieldSource maps duplicated members onto their own column.
type DuplicatedFieldSource struct{}

func (DuplicatedFieldSource) TryResolve(req FieldRequest) (*Field, bool) {
	if !req.Member.Duplicated {
		return nil, false
	}
	return NewDuplicatedField(req.Dialect, req.Root, req.Settings, req.Member, columnName(req.Member.Chain())), true
}

// DefaultFieldSource descends the JSON payload, one cased key per member.
type DefaultFieldSource struct{}

func (DefaultFieldSource) TryResolve(req FieldRequest) (*Field, bool) {
	keys := jsonKeys(req.Settings.Casing, req.Member.Chain())
	for _, k := range keys {
		if !identRe.MatchString(k) {
			return nil, false
		}
	}
	containment := req.PropertySearching == ContainmentOperator
	return NewJSONLocatorField(req.Dialect, req.Root, req.Settings, req.Member, keys, containment), true
}
