package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_cart/cartsync/internal/domain"
)

const opGetCart = "get_cart"

// GetCart loads the cart from the server. When the server cannot be reached or
// rejects the read, the cached snapshot for the same session is returned instead.
type GetCart struct {
	core *Core
	sfg  singleflight.Group
}

func NewGetCart(core *Core) *GetCart {
	return &GetCart{core: core}
}

func (uc *GetCart) Execute(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if err := requireValue("session_id", sessionID); err != nil {
		uc.core.metrics.Operation(opGetCart, outcomeInvalid)
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	// concurrent reads of one session share a single remote call
	v, err, _ := uc.sfg.Do(sessionID, func() (interface{}, error) {
		return uc.load(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart).Clone(), nil
}

func (uc *GetCart) load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	c := uc.core

	cart, err := c.repo.GetCart(ctx, sessionID)
	if err != nil {
		if cached, ok := c.snapshot(ctx, sessionID); ok {
			c.log.WarnContext(ctx, "cart api read failed, serving cached cart",
				"session_id", sessionID, "error", err)
			c.metrics.CacheFallback()
			c.metrics.Operation(opGetCart, outcomeFallback)
			return cached, nil
		}
		c.log.ErrorContext(ctx, "cart api read failed, no cached cart",
			"session_id", sessionID, "error", err)
		c.metrics.Operation(opGetCart, outcomeError)
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	c.commit(ctx, cart)
	c.publish(ctx, "", nil, cart)
	c.metrics.Operation(opGetCart, outcomeSuccess)
	return cart, nil
}
