package cartapi

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Currency string
	Stock    int
}

func (p Product) Available(quantity int) bool {
	return p.Stock >= quantity
}

// Catalog prices products at the moment they are added to a cart.
type Catalog interface {
	Product(ctx context.Context, productID string) (Product, error)
}

type StaticCatalog map[string]Product

func NewStaticCatalog(products ...Product) StaticCatalog {
	c := make(StaticCatalog, len(products))
	for _, p := range products {
		c[p.ID] = p
	}
	return c
}

func (c StaticCatalog) Product(_ context.Context, productID string) (Product, error) {
	p, ok := c[productID]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

// DemoCatalog is the product list served by "cartsync serve".
func DemoCatalog() StaticCatalog {
	return NewStaticCatalog(
		Product{ID: "tee-black", Name: "Black T-Shirt", Price: decimal.RequireFromString("19.99"), Currency: "USD", Stock: 250},
		Product{ID: "mug-white", Name: "White Mug", Price: decimal.RequireFromString("12.50"), Currency: "USD", Stock: 120},
		Product{ID: "cap-navy", Name: "Navy Cap", Price: decimal.RequireFromString("24.00"), Currency: "USD", Stock: 40},
		Product{ID: "sticker-pack", Name: "Sticker Pack", Price: decimal.RequireFromString("4.75"), Currency: "USD", Stock: 1000},
		Product{ID: "poster-limited", Name: "Limited Poster", Price: decimal.RequireFromString("49.00"), Currency: "USD", Stock: 3},
	)
}
