package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/fjod/go_cart/cartsync/internal/events"
)

const opAddItem = "add_item"

type AddItem struct {
	core *Core
}

func NewAddItem(core *Core) *AddItem {
	return &AddItem{core: core}
}

func (uc *AddItem) Execute(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	c := uc.core

	if err := errors.Join(
		requireValue("session_id", sessionID),
		requireValue("product_id", productID),
		requireQuantity(quantity),
	); err != nil {
		c.metrics.Operation(opAddItem, outcomeInvalid)
		return nil, fmt.Errorf("failed to add item to cart: %w", err)
	}

	cart, err := c.repo.AddItem(ctx, sessionID, productID, quantity)
	if err != nil {
		c.log.ErrorContext(ctx, "add item failed",
			"session_id", sessionID, "product_id", productID, "quantity", quantity, "error", err)
		c.metrics.Operation(opAddItem, outcomeError)
		return nil, fmt.Errorf("failed to add item to cart: %w", err)
	}

	c.commit(ctx, cart)

	added := events.ItemAdded{SessionID: sessionID, ProductID: productID, Quantity: quantity}
	if item, ok := cart.ItemByProductID(productID); ok {
		added.ItemID = item.ID()
	}
	c.publish(ctx, events.CartItemAdded, added, cart)
	c.metrics.Operation(opAddItem, outcomeSuccess)
	return cart.Clone(), nil
}
