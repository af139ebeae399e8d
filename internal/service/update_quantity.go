package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/fjod/go_cart/cartsync/internal/events"
)

const opUpdateQuantity = "update_quantity"

type UpdateQuantity struct {
	core *Core
}

func NewUpdateQuantity(core *Core) *UpdateQuantity {
	return &UpdateQuantity{core: core}
}

func (uc *UpdateQuantity) Execute(ctx context.Context, sessionID, itemID string, quantity int) (*domain.Cart, error) {
	c := uc.core

	if err := errors.Join(
		requireValue("session_id", sessionID),
		requireValue("item_id", itemID),
		requireQuantity(quantity),
	); err != nil {
		c.metrics.Operation(opUpdateQuantity, outcomeInvalid)
		return nil, fmt.Errorf("failed to update item quantity: %w", err)
	}

	cart, err := c.repo.UpdateItemQuantity(ctx, sessionID, itemID, quantity)
	if err != nil {
		c.log.ErrorContext(ctx, "update quantity failed",
			"session_id", sessionID, "item_id", itemID, "quantity", quantity, "error", err)
		c.metrics.Operation(opUpdateQuantity, outcomeError)
		return nil, fmt.Errorf("failed to update item quantity: %w", err)
	}

	c.commit(ctx, cart)
	c.publish(ctx, events.CartQuantityChanged, events.QuantityChanged{
		SessionID: sessionID,
		ItemID:    itemID,
		Quantity:  quantity,
	}, cart)
	c.metrics.Operation(opUpdateQuantity, outcomeSuccess)
	return cart.Clone(), nil
}
