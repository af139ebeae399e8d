package events

const (
	CartItemAdded       = "cart:item-added"
	CartItemRemoved     = "cart:item-removed"
	CartQuantityChanged = "cart:quantity-changed"
	CartCleared         = "cart:cleared"
	// CartCountUpdated follows every successful cart operation, reads included.
	CartCountUpdated = "cart:count-updated"
)

// CartEventNames lists every cart event.
var CartEventNames = []string{
	CartItemAdded,
	CartItemRemoved,
	CartQuantityChanged,
	CartCleared,
	CartCountUpdated,
}

// SessionScoped payloads name the cart session they belong to.
type SessionScoped interface {
	Session() string
}

type ItemAdded struct {
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ItemRemoved struct {
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id"`
}

type QuantityChanged struct {
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
}

type Cleared struct {
	SessionID string `json:"session_id"`
}

type CountUpdated struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
}

func (p ItemAdded) Session() string       { return p.SessionID }
func (p ItemRemoved) Session() string     { return p.SessionID }
func (p QuantityChanged) Session() string { return p.SessionID }
func (p Cleared) Session() string         { return p.SessionID }
func (p CountUpdated) Session() string    { return p.SessionID }
