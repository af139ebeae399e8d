package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CartDTO is the wire shape of a cart shared with the remote cart API and the
// local snapshot cache.
type CartDTO struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Items     []CartItemDTO `json:"items"`
	Total     Amount        `json:"total"`
	ItemCount int           `json:"item_count"`
}

type CartItemDTO struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceAtAdd Amount `json:"price_at_add"`
	Currency   string `json:"currency"`
	Subtotal   Amount `json:"subtotal"`
}

func (c *Cart) ToJSON() CartDTO {
	dto := CartDTO{
		ID:        c.id,
		SessionID: c.sessionID,
		Items:     make([]CartItemDTO, 0, len(c.items)),
		Total:     NewAmount(c.total),
		ItemCount: c.itemCount,
	}
	for _, item := range c.items {
		dto.Items = append(dto.Items, CartItemDTO{
			ID:         item.id,
			ProductID:  item.productID,
			Quantity:   item.quantity,
			PriceAtAdd: NewAmount(item.priceAtAdd),
			Currency:   item.currency,
			Subtotal:   NewAmount(item.subtotal),
		})
	}
	return dto
}

// FromAPI builds a cart from its wire shape. Subtotals, total and item count are
// recomputed from the lines rather than trusted.
func FromAPI(dto CartDTO) (*Cart, error) {
	if strings.TrimSpace(dto.SessionID) == "" {
		return nil, errors.Join(ErrInvalidCart, errors.New("session_id is empty"))
	}

	cart := NewCart(dto.ID, dto.SessionID)
	cart.items = make([]CartItem, 0, len(dto.Items))
	for i, raw := range dto.Items {
		item, err := NewCartItem(raw.ID, raw.ProductID, raw.Quantity, raw.PriceAtAdd.Decimal, raw.Currency)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		cart.items = append(cart.items, item)
		cart.lastTemp = max(cart.lastTemp, tempSeq(item.id))
	}
	cart.recalculate()
	return cart, nil
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToJSON())
}

func (c *Cart) UnmarshalJSON(b []byte) error {
	var dto CartDTO
	if err := json.Unmarshal(b, &dto); err != nil {
		return err
	}
	parsed, err := FromAPI(dto)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}
