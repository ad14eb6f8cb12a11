package docmap

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUsers(t *testing.T, r *Resolver[User]) {
	t.Helper()
	joined := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, r.Store(context.Background(),
		&User{Id: "u1", Name: "Ann", Age: 31, Active: true, Address: Address{City: "Oslo"}, Status: Active, Joined: joined},
		&User{Id: "u2", Name: "Bob", Age: 17, Address: Address{City: "Bergen"}, Status: Inactive, Joined: joined.AddDate(0, 1, 0)},
		&User{Id: "u3", Name: "Cid", Age: 45, Active: true, Address: Address{City: "Oslo"}, Status: Inactive},
	))
}

func ids(users []*User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Id
	}
	return out
}

func TestResolverRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, nil, userMapping())
	r, err := ResolverFor[User](ctx, s)
	require.NoError(t, err)
	seedUsers(t, r)

	u, err := r.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "Oslo", u.Address.City)
	assert.Equal(t, Active, u.Status)

	u.Age = 32
	require.NoError(t, r.Store(ctx, u))
	u, err = r.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 32, u.Age)

	_, err = r.Load(ctx, "missing")
	assert.True(t, IsKind(err, ErrNotFound), "got %v", err)

	ok, err := r.Delete(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Delete(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolverWhere(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, nil, userMapping())
	r, err := ResolverFor[User](ctx, s)
	require.NoError(t, err)
	seedUsers(t, r)

	cases := []struct {
		filter string
		args   []any
		want   []string
	}{
		{"Name = 'Bob'", nil, []string{"u2"}},
		{"Age >= ?", []any{18}, []string{"u1", "u3"}},
		{"Address.City:Oslo AND Age < 40", nil, []string{"u1"}},
		{"Active", nil, []string{"u1", "u3"}},
		{"NOT Active", nil, []string{"u2"}},
		{"Status = ?", []any{Inactive}, []string{"u2", "u3"}},
		{"Status = 0", nil, []string{"u1"}},
		{"Name = 'Ann' OR Name = 'Cid'", nil, []string{"u1", "u3"}},
		{"Id = 'u2'", nil, []string{"u2"}},
		{"Address.City IS NULL", nil, []string{}},
	}
	for _, c := range cases {
		got, err := r.Where(ctx, c.filter, c.args...)
		require.NoError(t, err, c.filter)
		assert.Equal(t, c.want, ids(got), c.filter)
	}
}

func TestResolverWhereErrors(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, nil, userMapping())
	r, err := ResolverFor[User](ctx, s)
	require.NoError(t, err)

	_, err = r.Where(ctx, "Name = ")
	assert.True(t, IsKind(err, ErrQueryParse), "got %v", err)

	_, err = r.Where(ctx, "FullName = 'x'")
	assert.True(t, IsKind(err, ErrUnresolvableMember), "got %v", err)

	_, err = r.Where(ctx, "Age = 'old'")
	assert.True(t, IsKind(err, ErrQueryRejected), "got %v", err)

	_, err = r.Where(ctx, "Age = ?")
	assert.True(t, IsKind(err, ErrQueryRejected), "got %v", err)
}

func TestCompiledQueriesAreCached(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, nil, userMapping())
	r, err := ResolverFor[User](ctx, s)
	require.NoError(t, err)

	a, err := r.Compile("Age > ?")
	require.NoError(t, err)
	b, err := r.Compile("Age > ?")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "CAST(json_extract(d.data, '$.Age') AS INTEGER) > ?1", a.SQL)
}

func TestStringIdentityIsRequired(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, nil, userMapping())
	r, err := ResolverFor[User](ctx, s)
	require.NoError(t, err)

	err = r.Store(ctx, &User{Name: "nobody"})
	assert.True(t, IsKind(err, ErrMapping), "got %v", err)
}

func TestHiloIdentityAssignment(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, nil, orderMapping())
	r, err := ResolverFor[Order](ctx, s)
	require.NoError(t, err)

	a, b := &Order{Customer: "acme", Total: 10}, &Order{Customer: "globex", Total: 2.5}
	require.NoError(t, r.Store(ctx, a, b))
	assert.Equal(t, int64(1), a.Id)
	assert.Equal(t, int64(2), b.Id)

	explicit := &Order{Id: 500, Customer: "initech"}
	require.NoError(t, r.Store(ctx, explicit))
	assert.Equal(t, int64(500), explicit.Id)

	// duplicated column is written on every store
	got, err := r.Where(ctx, "Customer = ?", "globex")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Id)

	got, err = r.Where(ctx, "Total > 5")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "acme", got[0].Customer)

	loaded, err := r.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "acme", loaded.Customer)

	assert.Equal(t, []string{"order"}, s.Sequences().Entities())
}

func TestUUIDIdentityAssignment(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, nil, ticketMapping())
	r, err := ResolverFor[Ticket](ctx, s)
	require.NoError(t, err)

	tk := &Ticket{Title: "broken"}
	require.NoError(t, r.Store(ctx, tk))
	require.NotEqual(t, uuid.Nil, tk.Id)
	assert.Equal(t, uuid.Version(7), tk.Id.Version())

	loaded, err := r.Load(ctx, tk.Id.String())
	require.NoError(t, err)
	assert.Equal(t, "broken", loaded.Title)
}

func TestSnakeCaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, func(o *StoreOptions) { o.Casing = CasingSnake }, userMapping())
	r, err := ResolverFor[User](ctx, s)
	require.NoError(t, err)
	seedUsers(t, r)

	got, err := r.Where(ctx, "Address.City = 'Bergen'")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].Name)
	assert.Equal(t, "Bergen", got[0].Address.City)
}

func TestDuplicatedTimeColumn(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, nil, userMapping().Duplicate("Joined", KindTime))
	r, err := ResolverFor[User](ctx, s)
	require.NoError(t, err)
	seedUsers(t, r)

	got, err := r.Where(ctx, "Joined > ?", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, ids(got))
}

func TestDynamicDocuments(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, nil, Dynamic("invoice", "id", IDInt64).Searchable("customer", KindString))
	r, err := ResolverForAlias[DynamicDocument](ctx, s, "invoice")
	require.NoError(t, err)

	doc := DynamicDocument{"customer": "acme", "lines": []any{"a", "b"}}
	require.NoError(t, r.Store(ctx, &doc))
	assert.Equal(t, int64(1), doc["id"])

	got, err := r.Where(ctx, "customer = 'acme'")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, json.Number("1"), (*got[0])["id"])

	_, err = ResolverForAlias[User](ctx, s, "invoice")
	assert.True(t, IsKind(err, ErrMapping), "got %v", err)
}

func TestEnumStoredAsNameRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, func(o *StoreOptions) { o.EnumStorage = EnumAsString }, userMapping())
	r, err := ResolverFor[User](ctx, s)
	require.NoError(t, err)
	seedUsers(t, r)

	// ordinal, typed constant and name all select the same rows
	for _, arg := range []any{1, Inactive, "Inactive", "inactive"} {
		got, err := r.Where(ctx, "Status = ?", arg)
		require.NoError(t, err)
		assert.Equal(t, []string{"u2", "u3"}, ids(got), "%v", arg)
	}

	u, err := r.Load(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, Inactive, u.Status)

	db, err := s.database()
	require.NoError(t, err)
	var raw string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT data FROM mt_doc_user WHERE id = 'u2'").Scan(&raw))
	assert.Contains(t, raw, `"Status":"Inactive"`)
}

func TestUnknownEnumNameIsRejected(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t, nil, userMapping())
	r, err := ResolverFor[User](ctx, s)
	require.NoError(t, err)
	seedUsers(t, r)

	got, err := r.Where(ctx, "Status = 'inactive'")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, ids(got))

	_, err = r.Where(ctx, "Status = 'Bogus'")
	assert.True(t, IsKind(err, ErrQueryRejected), "got %v", err)

	_, err = r.Where(ctx, "Status = ?", "Bogus")
	assert.True(t, IsKind(err, ErrQueryRejected), "got %v", err)
}
