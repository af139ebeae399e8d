package cartapi

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
)

func setupTestDB(t *testing.T) *MongoStore {
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, MongoOptions{URI: uri, Database: "testdb", MaxPoolSize: 5})
	require.NoError(t, err)

	store := NewMongoStore(db)
	require.NoError(t, store.CreateIndexes(ctx))
	return store
}

func TestMongoStore_LoadNotFound(t *testing.T) {
	store := setupTestDB(t)

	cart, err := store.Load(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestMongoStore_SaveAndLoad(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	cart := domain.NewCart("c-1", "s-1")
	cart.AddItem("tee-black", 2, decimal.RequireFromString("19.99"), "USD")
	require.True(t, cart.AssignID("tmp-1", "i-1"))
	require.NoError(t, store.Save(ctx, cart))

	loaded, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", loaded.ID())
	require.Len(t, loaded.Items(), 1)
	item := loaded.Items()[0]
	assert.Equal(t, "i-1", item.ID())
	assert.True(t, decimal.RequireFromString("19.99").Equal(item.PriceAtAdd()))
	assert.True(t, decimal.RequireFromString("39.98").Equal(loaded.Total()))
	assert.Equal(t, 2, loaded.ItemCount())
}

func TestMongoStore_SaveUpsertsBySession(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	cart := domain.NewCart("c-1", "s-1")
	cart.AddItem("mug-white", 1, decimal.RequireFromString("12.50"), "USD")
	require.NoError(t, store.Save(ctx, cart))

	store.now = func() time.Time { return time.Now().Add(time.Minute) }
	cart.Clear()
	require.NoError(t, store.Save(ctx, cart))

	loaded, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", loaded.ID())
	assert.True(t, loaded.IsEmpty())

	count, err := store.collection.CountDocuments(ctx, bson.M{"session_id": "s-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMongoStore_BacksCarts(t *testing.T) {
	store := setupTestDB(t)
	carts := NewCarts(store, DemoCatalog())
	ctx := context.Background()

	cart, err := carts.AddItem(ctx, "s-1", "sticker-pack", 3)
	require.NoError(t, err)
	itemID := cart.Items()[0].ID()

	cart, err = carts.UpdateQuantity(ctx, "s-1", itemID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.ItemCount())

	loaded, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, itemID, loaded.Items()[0].ID())
	assert.Equal(t, 7, loaded.ItemCount())
}
