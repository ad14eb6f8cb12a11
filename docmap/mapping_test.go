package docmap

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmap/docmap/docmap/storage/postgres"
)

type OrderLine struct {
	Id      string
	Sku     string
	Created string
}

func TestMappingForIsIdempotent(t *testing.T) {
	s := offlinePostgres(t, nil, userMapping())

	var wg sync.WaitGroup
	results := make([]*DocumentMapping, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := s.MappingFor(userType)
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()
	for _, m := range results {
		assert.Same(t, results[0], m)
	}

	ptr, err := s.MappingFor(reflect.TypeFor[*User]())
	require.NoError(t, err)
	assert.Same(t, results[0], ptr)
}

func TestBuildIsPure(t *testing.T) {
	b := userMapping().Duplicate("Address.City", KindString).Index("Name")
	a, err := b.Build(postgres.Dialect{}, DefaultStoreOptions())
	require.NoError(t, err)
	c, err := b.Build(postgres.Dialect{}, DefaultStoreOptions())
	require.NoError(t, err)
	assert.True(t, a.Equal(c))

	other, err := userMapping().Build(postgres.Dialect{}, DefaultStoreOptions())
	require.NoError(t, err)
	assert.False(t, a.Equal(other))
}

func TestMappingDefaults(t *testing.T) {
	s := offlinePostgres(t, nil, userMapping(), orderMapping(),
		For[OrderLine]().StringID("Id", func(o *OrderLine) string { return o.Id }, func(o *OrderLine, id string) { o.Id = id }))

	m, err := s.MappingFor(reflect.TypeFor[OrderLine]())
	require.NoError(t, err)
	assert.Equal(t, "order_line", m.Alias())
	assert.Equal(t, NewTableName("public", "mt_doc_order_line"), m.TableName())
	assert.Equal(t, NewFunctionName("public", "mt_upsert_order_line"), m.UpsertFunction())
	_, ok := m.Hilo()
	assert.False(t, ok)

	orders, err := s.MappingFor(reflect.TypeFor[Order]())
	require.NoError(t, err)
	hilo, ok := orders.Hilo()
	require.True(t, ok)
	assert.Equal(t, DefaultHiloMaxLo, hilo.MaxLo)

	members := orders.Members()
	require.Len(t, members, 3)
	assert.Equal(t, "Id", members[0].Path)
}

func TestExplicitDeclarationsWin(t *testing.T) {
	b := orderMapping().Alias("Purchases").Schema("sales").Hilo(HiloSettings{MaxLo: 50})
	m, err := b.Build(postgres.Dialect{}, DefaultStoreOptions())
	require.NoError(t, err)
	assert.Equal(t, NewTableName("sales", "mt_doc_purchases"), m.TableName())
	hilo, _ := m.Hilo()
	assert.Equal(t, 50, hilo.MaxLo)
}

func TestBuildValidation(t *testing.T) {
	id := func(u *User) string { return u.Id }
	setID := func(u *User, v string) { u.Id = v }

	cases := map[string]*MappingBuilder[User]{
		"missing identity":   For[User]().Searchable("Name", KindString),
		"duplicate member":   For[User]().StringID("Id", id, setID).Searchable("Name", KindString).Searchable("name", KindString),
		"enum without value": For[User]().StringID("Id", id, setID).Enum("Status"),
		"bad member name":    For[User]().StringID("Id", id, setID).Searchable("Na-me", KindString),
		"index on unknown":   For[User]().StringID("Id", id, setID).Index("Name"),
		"index on computed":  For[User]().StringID("Id", id, setID).Computed("FullName").Index("FullName"),
		"time index":         For[User]().StringID("Id", id, setID).Searchable("Joined", KindTime).Index("Joined"),
		"hilo on string id":  For[User]().StringID("Id", id, setID).Hilo(HiloSettings{MaxLo: 10}),
		"bad alias":          For[User]().Alias("user-table").StringID("Id", id, setID),
		"column collision": For[User]().StringID("Id", id, setID).
			Duplicate("Address.City", KindString).Duplicate("AddressCity", KindString),
		"table name too long": For[User]().Alias(strings.Repeat("a", 60)).StringID("Id", id, setID),
		"index name too long": For[User]().Alias(strings.Repeat("a", 40)).StringID("Id", id, setID).
			Searchable("Address.City", KindString).Index("Address.City"),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := b.Build(postgres.Dialect{}, DefaultStoreOptions())
			require.Error(t, err)
			assert.True(t, IsKind(err, ErrMapping), "got %v", err)

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, "docmap.User", e.Type)
		})
	}
}

func TestLongestNamesFitTheIdentifierLimit(t *testing.T) {
	id := func(u *User) string { return u.Id }
	setID := func(u *User, v string) { u.Id = v }

	// mt_upsert_ + 53 is exactly 63 bytes
	m, err := For[User]().Alias(strings.Repeat("a", 53)).StringID("Id", id, setID).
		Build(postgres.Dialect{}, DefaultStoreOptions())
	require.NoError(t, err)
	assert.Len(t, m.UpsertFunction().Name, 63)

	_, err = For[User]().Alias(strings.Repeat("a", 54)).StringID("Id", id, setID).
		Build(postgres.Dialect{}, DefaultStoreOptions())
	assert.ErrorContains(t, err, "longer than 63 bytes")
}

func TestDuplicatedTimeCanBeIndexed(t *testing.T) {
	b := For[User]().
		StringID("Id", func(u *User) string { return u.Id }, func(u *User, id string) { u.Id = id }).
		Duplicate("Joined", KindTime).
		Index("Joined")
	_, err := b.Build(postgres.Dialect{}, DefaultStoreOptions())
	assert.NoError(t, err)
}

func TestUnknownType(t *testing.T) {
	s := offlinePostgres(t, nil, userMapping())

	_, err := s.MappingFor(reflect.TypeFor[Order]())
	assert.True(t, IsKind(err, ErrUnknownType), "got %v", err)

	_, err = s.MappingForAlias("nothing")
	assert.True(t, IsKind(err, ErrUnknownType), "got %v", err)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s := offlinePostgres(t, nil, userMapping())
	assert.True(t, IsKind(s.Register(userMapping()), ErrMapping))
	assert.True(t, IsKind(s.Register(userMapping().Alias("people")), ErrMapping))
}

func TestDynamicMappingsAreAddressedByAlias(t *testing.T) {
	s := offlinePostgres(t, nil,
		Dynamic("invoice", "id", IDInt64).Searchable("customer", KindString),
		Dynamic("note", "key", IDString).Searchable("text", KindString))

	inv, err := s.MappingForAlias("invoice")
	require.NoError(t, err)
	assert.Equal(t, NewTableName("public", "mt_doc_invoice"), inv.TableName())
	f, err := inv.FieldFor("customer")
	require.NoError(t, err)
	assert.Equal(t, "d.data ->> 'customer'", f.RawLocator())

	_, err = s.MappingFor(reflect.TypeFor[DynamicDocument]())
	assert.True(t, IsKind(err, ErrUnknownType), "got %v", err)
}

func TestAllDocumentMapsIsSortedSnapshot(t *testing.T) {
	s := offlinePostgres(t, nil, userMapping(), orderMapping(), ticketMapping())

	var aliases []string
	for m := range s.AllDocumentMaps() {
		aliases = append(aliases, m.Alias())
	}
	assert.Equal(t, []string{"order", "ticket", "user"}, aliases)

	var first []string
	for m := range s.AllDocumentMaps() {
		first = append(first, m.Alias())
		break
	}
	assert.Equal(t, []string{"order"}, first)

	// registrations after the call do not show up in an earlier sequence
	seq := s.AllDocumentMaps()
	require.NoError(t, s.Register(personMapping()))
	var again []string
	for m := range seq {
		again = append(again, m.Alias())
	}
	assert.Equal(t, []string{"order", "ticket", "user"}, again)
}
