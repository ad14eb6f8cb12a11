package docmap

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldFor(t *testing.T, s *DocumentSchema, typ reflect.Type, path string) *Field {
	t.Helper()
	m, err := s.MappingFor(typ)
	require.NoError(t, err)
	f, err := m.FieldFor(path)
	require.NoError(t, err)
	return f
}

var userType = reflect.TypeFor[User]()

func TestNameLocators(t *testing.T) {
	s := offlinePostgres(t, nil, userMapping())
	f := fieldFor(t, s, userType, "Name")

	assert.Equal(t, "d.data ->> 'Name'", f.RawLocator())
	assert.Equal(t, "CAST(d.data ->> 'Name' as varchar)", f.TypedLocator())
	assert.Equal(t, "CAST(data ->> 'Name' as varchar)", f.LocatorFor(""))
	assert.Equal(t, []string{"Name"}, f.Members())
	assert.False(t, f.UseContainmentOperator())
}

func TestNestedSnakeCaseLocator(t *testing.T) {
	s := offlinePostgres(t, func(o *StoreOptions) { o.Casing = CasingSnake }, userMapping())
	f := fieldFor(t, s, userType, "Address.City")

	assert.Equal(t, "d.data -> 'address' ->> 'city'", f.RawLocator())
	assert.Equal(t, "Address.City", f.Path())
}

func TestCamelCaseLocator(t *testing.T) {
	s := offlinePostgres(t, func(o *StoreOptions) { o.Casing = CasingCamel }, userMapping())
	f := fieldFor(t, s, userType, "address.city")

	assert.Equal(t, "d.data -> 'address' ->> 'city'", f.RawLocator())
	assert.Equal(t, "CAST(d.data ->> 'age' as integer)", fieldFor(t, s, userType, "Age").TypedLocator())
}

func TestLocatorsAreDeterministic(t *testing.T) {
	a := offlinePostgres(t, nil, userMapping())
	b := offlinePostgres(t, nil, userMapping())
	for _, path := range []string{"Id", "Name", "Age", "Active", "Address.City", "Status"} {
		fa, fb := fieldFor(t, a, userType, path), fieldFor(t, b, userType, path)
		assert.Equal(t, fa.RawLocator(), fb.RawLocator(), path)
		assert.Equal(t, fa.TypedLocator(), fb.TypedLocator(), path)
	}

	m, err := a.MappingFor(userType)
	require.NoError(t, err)
	f1, err := m.FieldFor("name")
	require.NoError(t, err)
	f2, err := m.FieldFor("Name")
	require.NoError(t, err)
	assert.Same(t, f1, f2)
}

func TestIdentityAndDuplicatedFields(t *testing.T) {
	s := offlinePostgres(t, nil, userMapping().Duplicate("Address.City", KindString))

	id := fieldFor(t, s, userType, "Id")
	assert.Equal(t, "d.id", id.RawLocator())
	assert.Equal(t, "id", id.Column())

	city := fieldFor(t, s, userType, "Address.City")
	assert.Equal(t, "address_city", city.Column())
	assert.Equal(t, "d.address_city", city.TypedLocator())
}

func TestEnumLocatorFollowsStorage(t *testing.T) {
	ints := offlinePostgres(t, nil, userMapping())
	assert.Equal(t, "CAST(d.data ->> 'Status' as integer)", fieldFor(t, ints, userType, "Status").TypedLocator())

	names := offlinePostgres(t, func(o *StoreOptions) { o.EnumStorage = EnumAsString }, userMapping())
	assert.Equal(t, "CAST(d.data ->> 'Status' as varchar)", fieldFor(t, names, userType, "Status").TypedLocator())
}

func TestEnumParameterCorrection(t *testing.T) {
	names := offlinePostgres(t, func(o *StoreOptions) { o.EnumStorage = EnumAsString }, userMapping())
	f := fieldFor(t, names, userType, "Status")
	assert.Equal(t, "Inactive", f.GetValueForCompiledQueryParameter(1))
	assert.Equal(t, "Inactive", f.GetValueForCompiledQueryParameter(Inactive))
	assert.Equal(t, "Active", f.GetValueForCompiledQueryParameter(int64(0)))

	ints := offlinePostgres(t, nil, userMapping())
	f = fieldFor(t, ints, userType, "Status")
	assert.Equal(t, int64(1), f.GetValueForCompiledQueryParameter(Inactive))
	assert.Equal(t, int64(1), f.GetValueForCompiledQueryParameter("inactive"))
	assert.Equal(t, int64(0), f.GetValueForCompiledQueryParameter(0))
}

func TestEnumNamesMatchWithoutCase(t *testing.T) {
	names := offlinePostgres(t, func(o *StoreOptions) { o.EnumStorage = EnumAsString }, userMapping())
	f := fieldFor(t, names, userType, "Status")
	assert.Equal(t, "Inactive", f.GetValueForCompiledQueryParameter("inactive"))
	assert.Equal(t, "Inactive", f.GetValueForCompiledQueryParameter("INACTIVE"))
	assert.Equal(t, "Bogus", f.GetValueForCompiledQueryParameter("Bogus"))
	assert.NoError(t, f.CheckValue("Bogus"))

	ints := offlinePostgres(t, nil, userMapping())
	f = fieldFor(t, ints, userType, "Status")
	assert.Equal(t, int64(1), f.GetValueForCompiledQueryParameter("inactive"))
	assert.NoError(t, f.CheckValue(int64(1)))
	assert.Error(t, f.CheckValue(f.GetValueForCompiledQueryParameter("Bogus")))
	assert.NoError(t, fieldFor(t, ints, userType, "Name").CheckValue("Bogus"))
}

func TestParameterNormalization(t *testing.T) {
	s := offlinePostgres(t, nil, userMapping())
	assert.Equal(t, int64(42), fieldFor(t, s, userType, "Age").GetValueForCompiledQueryParameter(int32(42)))
	assert.Equal(t, int64(3), fieldFor(t, s, userType, "Age").GetValueForCompiledQueryParameter(3.0))
	assert.Nil(t, fieldFor(t, s, userType, "Name").GetValueForCompiledQueryParameter(nil))
}

func TestComputedMemberIsUnresolvable(t *testing.T) {
	s := offlinePostgres(t, nil, userMapping())
	m, err := s.MappingFor(userType)
	require.NoError(t, err)

	_, ok := m.TryField("FullName")
	assert.False(t, ok)

	_, err = m.FieldFor("FullName")
	assert.True(t, IsKind(err, ErrUnresolvableMember), "got %v", err)

	_, err = m.FieldFor("Nickname")
	assert.True(t, IsKind(err, ErrUnresolvableMember), "got %v", err)
}

func TestContainment(t *testing.T) {
	pg := offlinePostgres(t, func(o *StoreOptions) { o.PropertySearching = ContainmentOperator }, userMapping())
	f := fieldFor(t, pg, userType, "Address.City")
	require.True(t, f.UseContainmentOperator())

	doc, err := f.ContainmentJSON("Oslo")
	require.NoError(t, err)
	assert.Equal(t, `{"Address":{"City":"Oslo"}}`, doc)
	assert.Equal(t, "d.data @> CAST($1 as jsonb)", f.ContainmentLocator("$1"))

	lite, _ := openSQLite(t, func(o *StoreOptions) { o.PropertySearching = ContainmentOperator }, userMapping())
	assert.False(t, fieldFor(t, lite, userType, "Address.City").UseContainmentOperator())
}

func TestCustomFieldSource(t *testing.T) {
	upper := FieldSourceFunc(func(req FieldRequest) (*Field, bool) {
		if req.Member.Path != "Name" {
			return nil, false
		}
		return NewJSONLocatorField(req.Dialect, req.Root, req.Settings, req.Member, []string{"display_name"}, false), true
	})
	s := offlinePostgres(t, func(o *StoreOptions) {
		o.FieldSources = append(FieldSources{upper}, DefaultFieldSources()...)
	}, userMapping())

	assert.Equal(t, "d.data ->> 'display_name'", fieldFor(t, s, userType, "Name").RawLocator())
	assert.Equal(t, "d.data ->> 'Age'", fieldFor(t, s, userType, "Age").RawLocator())
}

func TestGoKindAt(t *testing.T) {
	kind, ok := goKindAt(userType, []string{"address", "city"})
	require.True(t, ok)
	assert.Equal(t, reflect.String, kind)

	kind, ok = goKindAt(reflect.TypeFor[*User](), []string{"Status"})
	require.True(t, ok)
	assert.Equal(t, reflect.Int, kind)

	_, ok = goKindAt(userType, []string{"FullName"})
	assert.False(t, ok)
	_, ok = goKindAt(reflect.TypeFor[DynamicDocument](), []string{"state"})
	assert.False(t, ok)
}
