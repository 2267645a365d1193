package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/lootshop/internal/client/migrations"
	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, "."))
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k1", []byte{0x01, 0x02}))

	v, err := r.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, v)
}

func TestGet_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSet_Upserts(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestDelete_Keys(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, r.Set(ctx, k, []byte(k)))
	}
	require.NoError(t, r.Delete(ctx, "a", "c", "missing"))
	require.NoError(t, r.Delete(ctx))

	_, err := r.Get(ctx, "a")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.Get(ctx, "c")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	v, err := r.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), v)
}

func TestClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeySession, []byte("{}")))
	require.NoError(t, r.Set(ctx, KeyAdminStatus, []byte("{}")))
	require.NoError(t, r.Clear(ctx))

	_, err := r.Get(ctx, KeySession)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestJSONHelpers(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, SetJSON(ctx, r, "p", payload{Name: "x", Count: 2}))

	var got payload
	require.NoError(t, GetJSON(ctx, r, "p", &got))
	assert.Equal(t, payload{Name: "x", Count: 2}, got)

	require.NoError(t, r.Set(ctx, "bad", []byte("{")))
	assert.Error(t, GetJSON(ctx, r, "bad", &got))
	assert.ErrorIs(t, GetJSON(ctx, r, "none", &got), common.ErrorNotFound)
}
