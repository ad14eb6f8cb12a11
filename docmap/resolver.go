package docmap

import (
	"context"
	"reflect"

	"github.com/docmap/docmap/docmap/planner"
)

// Resolver reads and writes documents of type T through the storage handle
// of T's mapping.
type Resolver[T any] struct {
	storage *DocumentStorage
}

// ResolverFor returns a resolver for the registered type T.
func ResolverFor[T any](ctx context.Context, s *DocumentSchema) (*Resolver[T], error) {
	st, err := s.StorageFor(ctx, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Resolver[T]{storage: st}, nil
}

// ResolverForAlias returns a resolver for the document registered under
// alias; T must be the mapped type, e.g. DynamicDocument.
func ResolverForAlias[T any](ctx context.Context, s *DocumentSchema, alias string) (*Resolver[T], error) {
	st, err := s.StorageForAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	if want := reflect.TypeFor[T](); st.mapping.docType != want {
		return nil, MappingError(want.String(), "", "alias "+alias+" maps "+st.mapping.docType.String())
	}
	return &Resolver[T]{storage: st}, nil
}

func (r *Resolver[T]) Storage() *DocumentStorage { return r.storage }

// Store inserts or replaces doc. A zero numeric or UUID identity is assigned
// and written back to doc.
func (r *Resolver[T]) Store(ctx context.Context, docs ...*T) error {
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if err := r.storage.store(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the document with id, or an ErrNotFound error.
func (r *Resolver[T]) Load(ctx context.Context, id any) (*T, error) {
	data, err := r.storage.loadJSON(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.decode(data)
}

// Delete removes the document with id and reports whether it existed.
func (r *Resolver[T]) Delete(ctx context.Context, id any) (bool, error) {
	return r.storage.delete(ctx, id)
}

// Where returns the documents matching filter, ordered by id. Each "?" in the
// filter takes the next value of args.
func (r *Resolver[T]) Where(ctx context.Context, filter string, args ...any) ([]*T, error) {
	payloads, err := r.storage.whereJSON(ctx, filter, args)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(payloads))
	for _, data := range payloads {
		doc, err := r.decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Compile compiles filter without running it.
func (r *Resolver[T]) Compile(filter string) (*planner.CompiledQuery, error) {
	return r.storage.Compile(filter)
}

func (r *Resolver[T]) decode(data []byte) (*T, error) {
	data, err := r.storage.goPayload(data)
	if err != nil {
		return nil, Wrap(ErrConstruction, "deserialize "+r.storage.mapping.alias, err)
	}
	doc := new(T)
	if err := r.storage.schema.opts.Serializer.Unmarshal(data, doc); err != nil {
		return nil, Wrap(ErrConstruction, "deserialize "+r.storage.mapping.alias, err)
	}
	return doc, nil
}
