package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/cartsync/internal/cache"
	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/fjod/go_cart/cartsync/internal/events"
	"github.com/fjod/go_cart/cartsync/internal/repository"
	"github.com/fjod/go_cart/cartsync/internal/session"
	"github.com/fjod/go_cart/cartsync/pkg/logger"
)

const (
	outcomeSuccess  = "success"
	outcomeFallback = "fallback"
	outcomeError    = "error"
	outcomeInvalid  = "invalid"
)

// Recorder receives operation outcomes, e.g. for Prometheus counters.
type Recorder interface {
	Operation(name, outcome string)
	CacheFallback()
}

type nopRecorder struct{}

func (nopRecorder) Operation(string, string) {}
func (nopRecorder) CacheFallback()           {}

type Deps struct {
	Repo    repository.CartRepository
	Cache   cache.KeyValueCache
	Bus     *events.Bus
	Log     *slog.Logger
	Metrics Recorder
	// CartTTL is how long the cart snapshot stays cached; defaults to the session TTL.
	CartTTL time.Duration
}

// Core is the state shared by the cart orchestrators: collaborators and the
// last cart confirmed by the server.
type Core struct {
	repo    repository.CartRepository
	cache   cache.KeyValueCache
	bus     *events.Bus
	log     *slog.Logger
	metrics Recorder
	ttl     time.Duration

	mu      sync.RWMutex
	current *domain.Cart
}

func NewCore(d Deps) *Core {
	c := &Core{
		repo:    d.Repo,
		cache:   d.Cache,
		bus:     d.Bus,
		log:     logger.OrDefault(d.Log).With("component", "cart_sync"),
		metrics: d.Metrics,
		ttl:     d.CartTTL,
	}
	if c.cache == nil {
		c.cache = cache.New(nil)
	}
	if c.bus == nil {
		c.bus = events.NewBus(d.Log)
	}
	if c.metrics == nil {
		c.metrics = nopRecorder{}
	}
	if c.ttl <= 0 {
		c.ttl = session.DefaultTTL
	}
	return c
}

// Current returns a copy of the last cart confirmed by the server, or nil.
func (c *Core) Current() *domain.Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Clone()
}

// commit makes cart the authoritative state: it replaces the current cart and
// overwrites the cached snapshot.
func (c *Core) commit(ctx context.Context, cart *domain.Cart) {
	c.mu.Lock()
	c.current = cart.Clone()
	c.mu.Unlock()

	c.cache.Set(ctx, cache.CartKey, cart, c.ttl)
}

func (c *Core) publish(ctx context.Context, name string, payload any, cart *domain.Cart) {
	if name != "" {
		c.bus.Publish(ctx, name, payload)
	}
	c.bus.Publish(ctx, events.CartCountUpdated, events.CountUpdated{
		SessionID: cart.SessionID(),
		Count:     cart.ItemCount(),
	})
}

// snapshot returns the cached cart if it belongs to sessionID.
func (c *Core) snapshot(ctx context.Context, sessionID string) (*domain.Cart, bool) {
	var cart domain.Cart
	if !c.cache.Get(ctx, cache.CartKey, &cart) {
		return nil, false
	}
	if cart.SessionID() != sessionID {
		return nil, false
	}
	return &cart, true
}

// CartService bundles the orchestrators over one shared Core.
type CartService struct {
	core *Core

	get    *GetCart
	add    *AddItem
	remove *RemoveItem
	update *UpdateQuantity
	clear  *ClearCart
}

func NewCartService(d Deps) *CartService {
	core := NewCore(d)
	return &CartService{
		core:   core,
		get:    NewGetCart(core),
		add:    NewAddItem(core),
		remove: NewRemoveItem(core),
		update: NewUpdateQuantity(core),
		clear:  NewClearCart(core),
	}
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return s.get.Execute(ctx, sessionID)
}

func (s *CartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	return s.add.Execute(ctx, sessionID, productID, quantity)
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, itemID string) (*domain.Cart, error) {
	return s.remove.Execute(ctx, sessionID, itemID)
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.Cart, error) {
	return s.update.Execute(ctx, sessionID, itemID, quantity)
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return s.clear.Execute(ctx, sessionID)
}

func (s *CartService) Current() *domain.Cart {
	return s.core.Current()
}

func (s *CartService) Bus() *events.Bus {
	return s.core.bus
}
