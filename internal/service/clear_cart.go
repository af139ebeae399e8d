package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/fjod/go_cart/cartsync/internal/events"
)

const opClearCart = "clear_cart"

// ClearCart empties the cart. Clearing an empty cart succeeds and still
// announces a zero count.
type ClearCart struct {
	core *Core
}

func NewClearCart(core *Core) *ClearCart {
	return &ClearCart{core: core}
}

func (uc *ClearCart) Execute(ctx context.Context, sessionID string) (*domain.Cart, error) {
	c := uc.core

	if err := requireValue("session_id", sessionID); err != nil {
		c.metrics.Operation(opClearCart, outcomeInvalid)
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	cart, err := c.repo.ClearCart(ctx, sessionID)
	if err != nil {
		c.log.ErrorContext(ctx, "clear cart failed", "session_id", sessionID, "error", err)
		c.metrics.Operation(opClearCart, outcomeError)
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	c.commit(ctx, cart)
	c.publish(ctx, events.CartCleared, events.Cleared{SessionID: sessionID}, cart)
	c.metrics.Operation(opClearCart, outcomeSuccess)
	return cart.Clone(), nil
}
