//go:build cgo

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCgoDriverReadsTables(t *testing.T) {
	ctx := context.Background()
	a := NewWithDriver(filepath.Join(t.TempDir(), "cgo.db"), "sqlite3")
	db, err := a.Connect(ctx)
	require.NoError(t, err)
	defer db.Close()

	def := userDef()
	_, err = db.ExecContext(ctx, a.CreateTable(def))
	require.NoError(t, err)

	got, err := a.ReadTable(ctx, db, def.Table)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"id", "data", "address_city"}, got.ColumnNames())
}
