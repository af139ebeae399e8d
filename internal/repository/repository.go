package repository

import (
	"context"

	"github.com/fjod/go_cart/cartsync/internal/domain"
)

// CartRepository is the remote source of truth for carts.
// Every call returns the cart as the server sees it after the operation.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error)
}

// AddItemRequest is the body of POST /cart/items.
type AddItemRequest struct {
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateQuantityRequest is the body of PUT /cart/items/{item_id}.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}
