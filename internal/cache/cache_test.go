package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// brokenMedium fails every call, like a disabled or full storage backend.
type brokenMedium struct{}

var errBroken = errors.New("storage disabled")

func (brokenMedium) Get(context.Context, string) ([]byte, error) { return nil, errBroken }
func (brokenMedium) Set(context.Context, string, []byte, time.Duration) error {
	return errBroken
}
func (brokenMedium) Delete(context.Context, string) error { return errBroken }
func (brokenMedium) Keys(context.Context, string) ([]string, error) {
	return nil, errBroken
}

type cartSnapshot struct {
	SessionID string `json:"session_id"`
	ItemCount int    `json:"item_count"`
}

func setupCache(t *testing.T) (*Cache, *MemoryMedium, *fakeClock) {
	t.Helper()
	medium := NewMemoryMedium(0)
	clock := newFakeClock()
	return New(medium, WithClock(clock)), medium, clock
}

func TestCache_SetGet(t *testing.T) {
	c, _, _ := setupCache(t)
	ctx := context.Background()

	require.True(t, c.Set(ctx, "cart", cartSnapshot{SessionID: "s-1", ItemCount: 3}, time.Hour))

	var got cartSnapshot
	require.True(t, c.Get(ctx, "cart", &got))
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, 3, got.ItemCount)
	assert.True(t, c.Has(ctx, "cart"))
}

func TestCache_KeysAreNamespaced(t *testing.T) {
	c, medium, _ := setupCache(t)
	ctx := context.Background()

	c.Set(ctx, "session_id", "abc", 0)
	require.NoError(t, medium.Set(ctx, "other:thing", []byte("x"), 0))

	_, err := medium.Get(ctx, "shop:session_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"session_id"}, c.Keys(ctx))
}

func TestCache_ExpiryIsLazy(t *testing.T) {
	c, medium, clock := setupCache(t)
	ctx := context.Background()

	c.Set(ctx, "token", "v", 100*time.Millisecond)
	assert.Equal(t, "v", GetOr(ctx, c, "token", "default"))

	clock.Advance(150 * time.Millisecond)

	// still stored until someone looks at it
	_, err := medium.Get(ctx, "shop:token")
	require.NoError(t, err)

	assert.Equal(t, "default", GetOr(ctx, c, "token", "default"))
	assert.False(t, c.Has(ctx, "token"))

	_, err = medium.Get(ctx, "shop:token")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_ExpiryRealTime(t *testing.T) {
	c := New(NewMemoryMedium(0))
	ctx := context.Background()

	c.Set(ctx, "k", "v", 100*time.Millisecond)
	assert.Equal(t, "v", GetOr(ctx, c, "k", "default"))

	time.Sleep(150 * time.Millisecond)

	assert.Equal(t, "default", GetOr(ctx, c, "k", "default"))
	assert.False(t, c.Has(ctx, "k"))
}

func TestCache_NoTTLNeverExpires(t *testing.T) {
	c, _, clock := setupCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", 42, 0)
	clock.Advance(365 * 24 * time.Hour)

	assert.Equal(t, 42, GetOr(ctx, c, "k", 0))
}

func TestCache_CorruptEntryIsDropped(t *testing.T) {
	c, medium, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, medium.Set(ctx, "shop:cart", []byte("{not json"), 0))

	var got cartSnapshot
	assert.False(t, c.Get(ctx, "cart", &got))
	_, err := medium.Get(ctx, "shop:cart")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_WrongTypeIsAMiss(t *testing.T) {
	c, _, _ := setupCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", "a string", 0)
	assert.Equal(t, 7, GetOr(ctx, c, "k", 7))
	assert.False(t, c.Has(ctx, "k"))
}

func TestCache_RemoveAndClear(t *testing.T) {
	c, _, _ := setupCache(t)
	ctx := context.Background()

	c.Set(ctx, "a", 1, 0)
	c.Set(ctx, "b", 2, 0)
	c.Set(ctx, "c", 3, 0)

	c.Remove(ctx, "a")
	assert.False(t, c.Has(ctx, "a"))
	c.Remove(ctx, "missing")

	c.Clear(ctx, "b")
	keys := c.Keys(ctx)
	assert.Equal(t, []string{"c"}, keys)

	c.Set(ctx, "d", 4, 0)
	c.Clear(ctx)
	assert.Empty(t, c.Keys(ctx))
}

func TestCache_QuotaExceededDegrades(t *testing.T) {
	c := New(NewMemoryMedium(64))
	ctx := context.Background()

	assert.True(t, c.Set(ctx, "small", 1, 0))
	assert.False(t, c.Set(ctx, "big", string(make([]byte, 128)), 0))
	assert.False(t, c.Has(ctx, "big"))
	assert.True(t, c.Has(ctx, "small"))
}

func TestCache_BrokenMediumDegrades(t *testing.T) {
	c := New(brokenMedium{})
	ctx := context.Background()

	assert.False(t, c.Set(ctx, "k", "v", time.Minute))
	assert.Equal(t, "default", GetOr(ctx, c, "k", "default"))
	assert.False(t, c.Has(ctx, "k"))
	assert.Nil(t, c.Keys(ctx))
	assert.False(t, c.Available(ctx))
	assert.NotPanics(t, func() {
		c.Remove(ctx, "k")
		c.Clear(ctx)
	})
}

func TestCache_NilMedium(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	assert.False(t, c.Set(ctx, "k", "v", 0))
	assert.Equal(t, "default", GetOr(ctx, c, "k", "default"))
	assert.False(t, c.Available(ctx))
	assert.Nil(t, c.Keys(ctx))
}

func TestCache_AvailableLeavesNoProbe(t *testing.T) {
	c, _, _ := setupCache(t)
	ctx := context.Background()

	assert.True(t, c.Available(ctx))
	assert.Empty(t, c.Keys(ctx))
}

func TestMemoryMedium_Keys(t *testing.T) {
	m := NewMemoryMedium(0)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "shop:a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "shop:b", []byte("2"), 0))
	require.NoError(t, m.Set(ctx, "x:c", []byte("3"), 0))

	keys, err := m.Keys(ctx, "shop:")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"shop:a", "shop:b"}, keys)
}

func TestMemoryMedium_QuotaAccountsOverwrites(t *testing.T) {
	m := NewMemoryMedium(10)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("12345678"), 0))
	require.NoError(t, m.Set(ctx, "k", []byte("87654321"), 0))
	assert.ErrorIs(t, m.Set(ctx, "j", []byte("123456789"), 0), ErrQuotaExceeded)

	require.NoError(t, m.Delete(ctx, "k"))
	assert.NoError(t, m.Set(ctx, "j", []byte("12345678"), 0))
}
