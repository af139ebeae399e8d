package cartapi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrItemNotFound       = errors.New("item not found in cart")
	ErrProductUnavailable = errors.New("product not available")
	ErrQuantityExceeded   = errors.New("quantity exceeds maximum")
)

// Carts applies cart operations against a Store. Every method returns the cart
// as stored after the operation.
type Carts struct {
	store   Store
	catalog Catalog

	// serializes load-modify-save
	mu sync.Mutex
}

func NewCarts(store Store, catalog Catalog) *Carts {
	return &Carts{store: store, catalog: catalog}
}

// Get returns the session's cart, creating an empty one on first access.
func (c *Carts) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.getOrCreate(ctx, sessionID)
}

func (c *Carts) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	product, err := c.catalog.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cart, err := c.getOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	requested := quantity
	if existing, ok := cart.ItemByProductID(productID); ok {
		requested += existing.Quantity()
	}
	if requested > domain.MaxQuantity {
		return nil, fmt.Errorf("%w: %d requested, max %d", ErrQuantityExceeded, requested, domain.MaxQuantity)
	}
	if !product.Available(requested) {
		return nil, fmt.Errorf("%w: %d requested, %d in stock", ErrProductUnavailable, requested, product.Stock)
	}

	cart.AddItem(productID, quantity, product.Price, product.Currency)
	for _, item := range cart.Items() {
		if domain.IsTemporaryID(item.ID()) {
			cart.AssignID(item.ID(), uuid.NewString())
		}
	}

	if err := c.store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (c *Carts) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cart, err := c.existingItem(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}

	cart.UpdateItemQuantity(itemID, quantity)
	if err := c.store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (c *Carts) RemoveItem(ctx context.Context, sessionID, itemID string) (*domain.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cart, err := c.existingItem(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}

	cart.RemoveItem(itemID)
	if err := c.store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear empties an existing cart. A session that never had a cart gets
// ErrCartNotFound.
func (c *Carts) Clear(ctx context.Context, sessionID string) (*domain.Cart, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cart, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cart.Clear()
	if err := c.store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (c *Carts) getOrCreate(ctx context.Context, sessionID string) (*domain.Cart, error) {
	cart, err := c.store.Load(ctx, sessionID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	cart = domain.NewCart(uuid.NewString(), sessionID)
	if err := c.store.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (c *Carts) existingItem(ctx context.Context, sessionID, itemID string) (*domain.Cart, error) {
	cart, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := cart.ItemByID(itemID); !ok {
		return nil, ErrItemNotFound
	}
	return cart, nil
}
