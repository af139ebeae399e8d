package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/fjod/go_cart/cartsync/internal/events"
)

const opRemoveItem = "remove_item"

// RemoveItem deletes one line. An unknown item id is whatever the server says it
// is, usually a 404; it is not swallowed.
type RemoveItem struct {
	core *Core
}

func NewRemoveItem(core *Core) *RemoveItem {
	return &RemoveItem{core: core}
}

func (uc *RemoveItem) Execute(ctx context.Context, sessionID, itemID string) (*domain.Cart, error) {
	c := uc.core

	if err := errors.Join(
		requireValue("session_id", sessionID),
		requireValue("item_id", itemID),
	); err != nil {
		c.metrics.Operation(opRemoveItem, outcomeInvalid)
		return nil, fmt.Errorf("failed to remove item from cart: %w", err)
	}

	cart, err := c.repo.RemoveItem(ctx, sessionID, itemID)
	if err != nil {
		c.log.ErrorContext(ctx, "remove item failed",
			"session_id", sessionID, "item_id", itemID, "error", err)
		c.metrics.Operation(opRemoveItem, outcomeError)
		return nil, fmt.Errorf("failed to remove item from cart: %w", err)
	}

	c.commit(ctx, cart)
	c.publish(ctx, events.CartItemRemoved, events.ItemRemoved{SessionID: sessionID, ItemID: itemID}, cart)
	c.metrics.Operation(opRemoveItem, outcomeSuccess)
	return cart.Clone(), nil
}
