package domain

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

const (
	MinQuantity     = 1
	MaxQuantity     = 100
	DefaultCurrency = "USD"

	tempIDPrefix = "tmp-"
)

var ErrInvalidCart = errors.New("invalid cart")

// CartItem is one line of a cart. PriceAtAdd is the unit price captured when the
// product was first added; it never follows later catalog price changes.
type CartItem struct {
	id         string
	productID  string
	quantity   int
	priceAtAdd decimal.Decimal
	currency   string
	subtotal   decimal.Decimal
}

func NewCartItem(id, productID string, quantity int, priceAtAdd decimal.Decimal, currency string) (CartItem, error) {
	currency = normalizeCurrency(currency)
	switch {
	case strings.TrimSpace(productID) == "":
		return CartItem{}, errors.Join(ErrInvalidCart, errors.New("product id is empty"))
	case quantity < MinQuantity:
		return CartItem{}, errors.Join(ErrInvalidCart, errors.New("quantity must be positive"))
	case priceAtAdd.IsNegative():
		return CartItem{}, errors.Join(ErrInvalidCart, errors.New("price cannot be negative"))
	case len(currency) != 3:
		return CartItem{}, errors.Join(ErrInvalidCart, errors.New("currency must be a 3-letter code"))
	}

	item := CartItem{
		id:         id,
		productID:  productID,
		quantity:   quantity,
		priceAtAdd: priceAtAdd,
		currency:   currency,
	}
	item.recompute()
	return item, nil
}

func (i CartItem) ID() string                  { return i.id }
func (i CartItem) ProductID() string           { return i.productID }
func (i CartItem) Quantity() int               { return i.quantity }
func (i CartItem) PriceAtAdd() decimal.Decimal { return i.priceAtAdd }
func (i CartItem) Currency() string            { return i.currency }
func (i CartItem) Subtotal() decimal.Decimal   { return i.subtotal }

// PriceChanged reports whether the live catalog price differs from the snapshot.
func (i CartItem) PriceChanged(current decimal.Decimal) bool {
	return !i.priceAtAdd.Equal(current)
}

// PriceDelta is current minus the snapshot price, per unit.
func (i CartItem) PriceDelta(current decimal.Decimal) decimal.Decimal {
	return current.Sub(i.priceAtAdd)
}

func (i CartItem) FormattedPrice(tag language.Tag) string {
	return FormatMoney(tag, i.priceAtAdd, i.currency)
}

func (i CartItem) FormattedSubtotal(tag language.Tag) string {
	return FormatMoney(tag, i.subtotal, i.currency)
}

func (i *CartItem) setQuantity(q int) {
	i.quantity = q
	i.recompute()
}

func (i *CartItem) recompute() {
	i.subtotal = i.priceAtAdd.Mul(decimal.NewFromInt(int64(i.quantity)))
}

// Cart is the in-memory view of one session's cart. Total and ItemCount are
// recomputed on every mutation.
type Cart struct {
	id        string
	sessionID string
	items     []CartItem
	total     decimal.Decimal
	itemCount int
	lastTemp  int
}

func NewCart(id, sessionID string) *Cart {
	return &Cart{id: id, sessionID: sessionID}
}

func (c *Cart) ID() string             { return c.id }
func (c *Cart) SessionID() string      { return c.sessionID }
func (c *Cart) Total() decimal.Decimal { return c.total }
func (c *Cart) ItemCount() int         { return c.itemCount }
func (c *Cart) IsEmpty() bool          { return len(c.items) == 0 }

// Currency is the currency of the first line, or DefaultCurrency for an empty cart.
func (c *Cart) Currency() string {
	if len(c.items) == 0 {
		return DefaultCurrency
	}
	return c.items[0].currency
}

// AddItem increments the quantity of an existing line for productID or appends
// a new line with a temporary id. Invalid input leaves the cart untouched.
func (c *Cart) AddItem(productID string, quantity int, price decimal.Decimal, currency string) *Cart {
	if quantity <= 0 || strings.TrimSpace(productID) == "" || price.IsNegative() {
		return c
	}

	if idx := c.indexByProduct(productID); idx >= 0 {
		c.items[idx].setQuantity(c.items[idx].quantity + quantity)
		c.recalculate()
		return c
	}

	item, err := NewCartItem(c.nextTempID(), productID, quantity, price, currency)
	if err != nil {
		return c
	}
	c.items = append(c.items, item)
	c.recalculate()
	return c
}

func (c *Cart) RemoveItem(itemID string) *Cart {
	kept := c.items[:0]
	for _, item := range c.items {
		if item.id != itemID {
			kept = append(kept, item)
		}
	}
	c.items = kept
	c.recalculate()
	return c
}

// UpdateItemQuantity sets the quantity of itemID; quantity <= 0 removes the line.
// An unknown itemID is a no-op.
func (c *Cart) UpdateItemQuantity(itemID string, quantity int) *Cart {
	if quantity <= 0 {
		return c.RemoveItem(itemID)
	}
	if idx := c.indexByID(itemID); idx >= 0 {
		c.items[idx].setQuantity(quantity)
		c.recalculate()
	}
	return c
}

func (c *Cart) Clear() *Cart {
	c.items = nil
	c.recalculate()
	return c
}

// Merge folds other into c. Quantities of shared products are summed and capped
// at MaxQuantity; c keeps its own price snapshots.
func (c *Cart) Merge(other *Cart) *Cart {
	if other == nil {
		return c
	}
	for _, o := range other.items {
		if idx := c.indexByProduct(o.productID); idx >= 0 {
			c.items[idx].setQuantity(min(c.items[idx].quantity+o.quantity, MaxQuantity))
			continue
		}
		o.id = c.nextTempID()
		c.items = append(c.items, o)
	}
	c.recalculate()
	return c
}

// AssignID replaces a temporary line id with the authoritative one.
func (c *Cart) AssignID(tempID, id string) bool {
	if !IsTemporaryID(tempID) || id == "" {
		return false
	}
	idx := c.indexByID(tempID)
	if idx < 0 {
		return false
	}
	c.items[idx].id = id
	return true
}

func (c *Cart) ItemByProductID(productID string) (CartItem, bool) {
	if idx := c.indexByProduct(productID); idx >= 0 {
		return c.items[idx], true
	}
	return CartItem{}, false
}

func (c *Cart) ItemByID(itemID string) (CartItem, bool) {
	if idx := c.indexByID(itemID); idx >= 0 {
		return c.items[idx], true
	}
	return CartItem{}, false
}

// Items returns a copy of the lines.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.items = c.Items()
	return &cp
}

// Equal compares identity, lines and derived totals.
func (c *Cart) Equal(o *Cart) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.id != o.id || c.sessionID != o.sessionID || c.itemCount != o.itemCount ||
		!c.total.Equal(o.total) || len(c.items) != len(o.items) {
		return false
	}
	for i := range c.items {
		a, b := c.items[i], o.items[i]
		if a.id != b.id || a.productID != b.productID || a.quantity != b.quantity ||
			a.currency != b.currency || !a.priceAtAdd.Equal(b.priceAtAdd) || !a.subtotal.Equal(b.subtotal) {
			return false
		}
	}
	return true
}

func (c *Cart) FormattedTotal(tag language.Tag) string {
	return FormatMoney(tag, c.total, c.Currency())
}

func (c *Cart) recalculate() {
	total := decimal.Zero
	count := 0
	for _, item := range c.items {
		total = total.Add(item.subtotal)
		count += item.quantity
	}
	c.total = total
	c.itemCount = count
}

func (c *Cart) nextTempID() string {
	c.lastTemp++
	return tempIDPrefix + strconv.Itoa(c.lastTemp)
}

// tempSeq returns the counter behind a temporary id, or 0 for any other id.
func tempSeq(id string) int {
	if !IsTemporaryID(id) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, tempIDPrefix))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (c *Cart) indexByProduct(productID string) int {
	for i, item := range c.items {
		if item.productID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) indexByID(itemID string) int {
	for i, item := range c.items {
		if item.id == itemID {
			return i
		}
	}
	return -1
}

// IsTemporaryID reports whether id was allocated client-side and not yet confirmed.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

func normalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}
