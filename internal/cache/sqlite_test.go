package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSQLite(t *testing.T) (*SQLiteMedium, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	medium, err := OpenSQLiteMedium(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = medium.Close() })
	return medium, path
}

func TestSQLiteMedium_GetMiss(t *testing.T) {
	medium, _ := setupTestSQLite(t)

	data, err := medium.Get(context.Background(), "shop:nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, data)
}

func TestSQLiteMedium_SetOverwriteDelete(t *testing.T) {
	medium, _ := setupTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, medium.Set(ctx, "shop:cart", []byte(`{"v":1}`), 0))
	require.NoError(t, medium.Set(ctx, "shop:cart", []byte(`{"v":2}`), time.Hour))

	data, err := medium.Get(ctx, "shop:cart")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(data))

	require.NoError(t, medium.Delete(ctx, "shop:cart"))
	_, err = medium.Get(ctx, "shop:cart")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.NoError(t, medium.Delete(ctx, "shop:cart"), "deleting a missing key is fine")
}

func TestSQLiteMedium_KeysByPrefix(t *testing.T) {
	medium, _ := setupTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, medium.Set(ctx, "shop:session_id", []byte("1"), 0))
	require.NoError(t, medium.Set(ctx, "shop:cart", []byte("2"), 0))
	require.NoError(t, medium.Set(ctx, "other:cart", []byte("3"), 0))
	require.NoError(t, medium.Set(ctx, "a_shop:cart", []byte("4"), 0))

	keys, err := medium.Keys(ctx, "shop:")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop:cart", "shop:session_id"}, keys)

	all, err := medium.Keys(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSQLiteMedium_RowExpiry(t *testing.T) {
	medium, _ := setupTestSQLite(t)
	ctx := context.Background()
	clock := newFakeClock()
	medium.now = clock.Now

	require.NoError(t, medium.Set(ctx, "shop:token", []byte("v"), time.Minute))
	require.NoError(t, medium.Set(ctx, "shop:forever", []byte("v"), 0))

	clock.Advance(2 * time.Minute)

	_, err := medium.Get(ctx, "shop:token")
	assert.ErrorIs(t, err, ErrCacheMiss)
	keys, err := medium.Keys(ctx, "shop:")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop:forever"}, keys)

	require.NoError(t, medium.Prune(ctx))
	var rows int
	require.NoError(t, medium.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSQLiteMedium_SurvivesReopen(t *testing.T) {
	medium, path := setupTestSQLite(t)
	ctx := context.Background()

	c := New(medium)
	require.True(t, c.Set(ctx, SessionKey, "9b2f0c4e", time.Hour))
	require.True(t, c.Set(ctx, CartKey, cartSnapshot{SessionID: "9b2f0c4e", ItemCount: 2}, time.Hour))
	require.NoError(t, medium.Close())

	reopened, err := OpenSQLiteMedium(ctx, path)
	require.NoError(t, err, "migrations are idempotent")
	t.Cleanup(func() { _ = reopened.Close() })

	c = New(reopened)
	assert.Equal(t, "9b2f0c4e", GetOr(ctx, c, SessionKey, ""))
	var snap cartSnapshot
	require.True(t, c.Get(ctx, CartKey, &snap))
	assert.Equal(t, 2, snap.ItemCount)
	assert.ElementsMatch(t, []string{SessionKey, CartKey}, c.Keys(ctx))
}

func TestSQLiteMedium_CacheExpiryIsLazy(t *testing.T) {
	medium, _ := setupTestSQLite(t)
	ctx := context.Background()
	clock := newFakeClock()
	c := New(medium, WithClock(clock))

	c.Set(ctx, "token", "v", time.Hour)
	clock.Advance(2 * time.Hour)

	_, err := medium.Get(ctx, "shop:token")
	require.NoError(t, err, "row expiry follows wall time")

	assert.False(t, c.Has(ctx, "token"))
	_, err = medium.Get(ctx, "shop:token")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestOpenSQLiteMedium_BadPath(t *testing.T) {
	_, err := OpenSQLiteMedium(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "cache.db"))
	assert.Error(t, err)
}
