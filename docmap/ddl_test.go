package docmap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDDLIsStable(t *testing.T) {
	a := offlinePostgres(t, nil, userMapping().Index("Name"), orderMapping(), ticketMapping())
	b := offlinePostgres(t, nil, ticketMapping(), orderMapping(), userMapping().Index("Name"))

	first, err := a.ToDDL()
	require.NoError(t, err)
	again, err := a.ToDDL()
	require.NoError(t, err)
	other, err := b.ToDDL()
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, first, other, "registration order must not matter")

	require.True(t, strings.HasPrefix(first, "-- docmap DDL\n\n-- table public.mt_hilo fingerprint="))
	order := strings.Index(first, "-- table public.mt_doc_order ")
	ticket := strings.Index(first, "-- table public.mt_doc_ticket ")
	user := strings.Index(first, "-- table public.mt_doc_user ")
	assert.True(t, order > 0 && order < ticket && ticket < user, first)

	assert.Contains(t, first, "CREATE OR REPLACE FUNCTION public.mt_get_next_hi(entity varchar)")
	assert.Contains(t, first, "CREATE OR REPLACE FUNCTION public.mt_upsert_user(")
	assert.Contains(t, first, "CREATE INDEX IF NOT EXISTS mt_doc_user_idx_name ON public.mt_doc_user ((CAST(data ->> 'Name' as varchar)));")
	assert.Contains(t, first, "CREATE INDEX IF NOT EXISTS mt_doc_order_idx_customer ON public.mt_doc_order (customer);")
}

func TestToDDLWithoutHilo(t *testing.T) {
	s := offlinePostgres(t, nil, userMapping())
	ddl, err := s.ToDDL()
	require.NoError(t, err)
	assert.NotContains(t, ddl, "mt_hilo")
	assert.True(t, strings.HasSuffix(ddl, "$function$;\n"))
}

func TestFingerprintFollowsShape(t *testing.T) {
	fingerprint := func(s *DocumentSchema) string {
		ddl, err := s.ToDDL()
		require.NoError(t, err)
		for _, line := range strings.Split(ddl, "\n") {
			if strings.HasPrefix(line, "-- table public.mt_doc_user ") {
				return line
			}
		}
		t.Fatal("no user table block")
		return ""
	}
	plain := fingerprint(offlinePostgres(t, nil, userMapping()))
	assert.Equal(t, plain, fingerprint(offlinePostgres(t, nil, userMapping())))
	assert.NotEqual(t, plain, fingerprint(offlinePostgres(t, nil, userMapping().Duplicate("Age", KindInt))))
}

func TestWriteDDLByType(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ddl")
	s := offlinePostgres(t, nil, userMapping(), orderMapping())
	require.NoError(t, s.WriteDDLByType(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"public.mt_doc_order.sql", "public.mt_doc_user.sql", "system_objects.sql"}, names)

	user, err := os.ReadFile(filepath.Join(dir, "public.mt_doc_user.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(user), "CREATE TABLE IF NOT EXISTS public.mt_doc_user (")
	assert.NotContains(t, string(user), "mt_doc_order")
}

func TestWriteDDL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.sql")
	s := offlinePostgres(t, nil, userMapping())
	require.NoError(t, s.WriteDDL(path))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	want, err := s.ToDDL()
	require.NoError(t, err)
	assert.Equal(t, want, string(written))

	err = s.WriteDDL(filepath.Join(t.TempDir(), "missing", "schema.sql"))
	assert.True(t, IsKind(err, ErrIO), "got %v", err)
}
