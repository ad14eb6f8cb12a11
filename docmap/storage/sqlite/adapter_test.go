package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmap/docmap/docmap/storage"
)

func openTestDB(t *testing.T) (*Adapter, *sql.DB) {
	t.Helper()
	a := New(filepath.Join(t.TempDir(), "test.db"))
	db, err := a.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return a, db
}

func userDef() storage.TableDefinition {
	var d Dialect
	return storage.TableDefinition{
		Table: storage.NewTableName("public", "mt_doc_user"),
		Columns: []storage.TableColumn{
			{Name: "id", Type: d.ColumnType(storage.KindString), PrimaryKey: true},
			{Name: "data", Type: d.JSONColumnType()},
			{Name: "address_city", Type: d.ColumnType(storage.KindString), Nullable: true},
		},
		Indexes: []storage.IndexDefinition{
			{Name: "mt_doc_user_idx_name", Expression: d.JSONLocator("data", []string{"Name"})},
		},
	}
}

func TestDialectRendering(t *testing.T) {
	var d Dialect
	assert.Equal(t, "json_extract(d.data, '$.address.city')", d.JSONLocator("d.data", []string{"address", "city"}))
	assert.Equal(t, "CAST(json_extract(d.data, '$.Age') AS INTEGER)", d.Cast(d.JSONLocator("d.data", []string{"Age"}), d.ColumnType(storage.KindInt)))
	assert.Equal(t, "mt_doc_user", d.QualifiedTable(storage.NewTableName("public", "mt_doc_user")))
	assert.False(t, d.SupportsContainment())
	assert.Nil(t, d.DocumentFunctions(userDef(), storage.NewFunctionName("public", "mt_upsert_user")))
	assert.Equal(t,
		"INSERT INTO mt_doc_user (id, data, address_city) VALUES (?1, ?2, ?3) ON CONFLICT (id) DO UPDATE SET data = excluded.data, address_city = excluded.address_city",
		d.UpsertStatement(userDef(), storage.NewFunctionName("public", "mt_upsert_user")))
}

func TestParameterValue(t *testing.T) {
	var d Dialect
	assert.Equal(t, int64(1), d.ParameterValue(storage.KindBool, true))
	assert.Equal(t, int64(0), d.ParameterValue(storage.KindBool, false))
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, "2024-03-01T11:00:00Z", d.ParameterValue(storage.KindTime, ts))
	assert.Equal(t, "abc", d.ParameterValue(storage.KindString, "abc"))
}

func TestReadTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	a, db := openTestDB(t)
	def := userDef()

	live, err := a.ReadTable(ctx, db, def.Table)
	require.NoError(t, err)
	assert.Nil(t, live)

	_, err = db.ExecContext(ctx, a.CreateTable(def))
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, a.CreateIndex(def.Table, def.Indexes[0]))
	require.NoError(t, err)

	live, err = a.ReadTable(ctx, db, def.Table)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, []string{"id", "data", "address_city"}, live.ColumnNames())
	pk, ok := live.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "id", pk.Name)
	assert.True(t, live.HasIndex("mt_doc_user_idx_name"))

	delta := storage.Diff(def, live, a.NormalizeType)
	assert.True(t, delta.Empty())
	assert.Empty(t, delta.Conflicts)

	exists, err := a.TableExists(ctx, db, def.Table)
	require.NoError(t, err)
	assert.True(t, exists)

	tables, err := a.ListTables(ctx, db, "public", "mt_doc_")
	require.NoError(t, err)
	assert.Equal(t, []storage.TableName{def.Table}, tables)
}

func TestNextHi(t *testing.T) {
	ctx := context.Background()
	a, db := openTestDB(t)
	_, err := db.ExecContext(ctx, a.CreateTable(storage.HiloTable("public", a)))
	require.NoError(t, err)

	for want := int64(0); want < 3; want++ {
		var hi int64
		require.NoError(t, db.QueryRowContext(ctx, a.NextHiStatement("public"), "user").Scan(&hi))
		assert.Equal(t, want, hi)
	}
}
