package tokenstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adminkit/session/internal/models"

	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", "file:tokenstore?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteStore(context.Background(), db)
	require.NoError(t, err)
	require.NoError(t, store.Clear(context.Background()))
	return store
}

func TestSQLiteStore_EmptyGet(t *testing.T) {
	store := setupStore(t)
	pair, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pair)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	in := models.TokenPair{AccessToken: "A1", RefreshToken: "R1", ExpiresAt: exp}
	require.NoError(t, store.Set(ctx, in))

	out, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "A1", out.AccessToken)
	assert.Equal(t, "R1", out.RefreshToken)
	assert.True(t, exp.Equal(out.ExpiresAt))
}

func TestSQLiteStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	require.NoError(t, store.Set(ctx, models.TokenPair{AccessToken: "A1", RefreshToken: "R1"}))
	require.NoError(t, store.Set(ctx, models.TokenPair{AccessToken: "A2", RefreshToken: "R2"}))

	out, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "A2", out.AccessToken)
	assert.Equal(t, "R2", out.RefreshToken)
	assert.True(t, out.ExpiresAt.IsZero())
}

func TestSQLiteStore_LegacyRefreshKey(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	// A store written by an older release: refresh token under the short key.
	_, err := store.db.ExecContext(ctx, `INSERT INTO credentials (key, value) VALUES (?, ?), (?, ?)`,
		KeyAccess, "A1", KeyRefreshLegacy, "R-legacy")
	require.NoError(t, err)

	out, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "R-legacy", out.RefreshToken)

	// A new write migrates away from the alias.
	require.NoError(t, store.Set(ctx, models.TokenPair{AccessToken: "A2", RefreshToken: "R2"}))
	var n int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials WHERE key = ?`, KeyRefreshLegacy).Scan(&n))
	assert.Zero(t, n)
}

func TestSQLiteStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	require.NoError(t, store.Set(ctx, models.TokenPair{AccessToken: "A", RefreshToken: "R"}))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clear is idempotent")

	out, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	pair, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, pair)

	require.NoError(t, store.Set(ctx, models.TokenPair{AccessToken: "A", RefreshToken: "R"}))
	pair, err = store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "A", pair.AccessToken)

	require.NoError(t, store.Clear(ctx))
	pair, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, pair)
}
