package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCart_AddItem(t *testing.T) {
	cart := NewCart("c-1", "s-1").
		AddItem("p-1", 2, price("19.99"), "usd").
		AddItem("p-2", 1, price("5.00"), "")

	require.Len(t, cart.Items(), 2)
	assert.Equal(t, 3, cart.ItemCount())
	assert.True(t, cart.Total().Equal(price("44.98")))

	item, ok := cart.ItemByProductID("p-1")
	require.True(t, ok)
	assert.Equal(t, "USD", item.Currency())
	assert.True(t, IsTemporaryID(item.ID()))
	assert.True(t, item.Subtotal().Equal(price("39.98")))

	second, _ := cart.ItemByProductID("p-2")
	assert.Equal(t, DefaultCurrency, second.Currency())
	assert.NotEqual(t, item.ID(), second.ID())
}

func TestCart_AddItemExistingProductKeepsSnapshotPrice(t *testing.T) {
	cart := NewCart("c-1", "s-1").
		AddItem("p-1", 1, price("10.00"), "USD").
		AddItem("p-1", 2, price("12.00"), "USD")

	require.Len(t, cart.Items(), 1)
	item := cart.Items()[0]
	assert.Equal(t, 3, item.Quantity())
	assert.True(t, item.PriceAtAdd().Equal(price("10.00")))
	assert.True(t, cart.Total().Equal(price("30.00")))
}

func TestCart_AddItemInvalidIsNoop(t *testing.T) {
	cart := NewCart("c-1", "s-1")
	cart.AddItem("p-1", 0, price("1"), "USD").
		AddItem("p-1", -3, price("1"), "USD").
		AddItem("", 1, price("1"), "USD").
		AddItem("p-1", 1, price("-1"), "USD")

	assert.True(t, cart.IsEmpty())
	assert.Equal(t, 0, cart.ItemCount())
	assert.True(t, cart.Total().IsZero())
}

func TestCart_UpdateItemQuantity(t *testing.T) {
	cart := NewCart("c-1", "s-1").AddItem("p-1", 1, price("2.50"), "EUR")
	id := cart.Items()[0].ID()

	cart.UpdateItemQuantity(id, 4)
	assert.Equal(t, 4, cart.ItemCount())
	assert.True(t, cart.Total().Equal(price("10.00")))

	cart.UpdateItemQuantity("missing", 9)
	assert.Equal(t, 4, cart.ItemCount())

	cart.UpdateItemQuantity(id, 0)
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Total().IsZero())
}

func TestCart_RemoveAndClear(t *testing.T) {
	cart := NewCart("c-1", "s-1").
		AddItem("p-1", 1, price("1.00"), "USD").
		AddItem("p-2", 2, price("2.00"), "USD")
	first := cart.Items()[0].ID()

	cart.RemoveItem(first)
	_, ok := cart.ItemByID(first)
	assert.False(t, ok)
	assert.Equal(t, 2, cart.ItemCount())
	assert.True(t, cart.Total().Equal(price("4.00")))

	cart.RemoveItem("missing")
	assert.Equal(t, 2, cart.ItemCount())

	cart.Clear()
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, 0, cart.ItemCount())
	assert.True(t, cart.Total().IsZero())
}

func TestCart_ItemsIsACopy(t *testing.T) {
	cart := NewCart("c-1", "s-1").AddItem("p-1", 1, price("1.00"), "USD")

	items := cart.Items()
	items[0] = CartItem{}

	item, ok := cart.ItemByProductID("p-1")
	require.True(t, ok)
	assert.Equal(t, 1, item.Quantity())
}

func TestCart_Merge(t *testing.T) {
	cart := NewCart("c-1", "s-1").
		AddItem("p-1", 60, price("1.00"), "USD")
	other := NewCart("c-2", "s-2").
		AddItem("p-1", 70, price("3.00"), "USD").
		AddItem("p-2", 2, price("5.00"), "USD")

	cart.Merge(other)

	p1, _ := cart.ItemByProductID("p-1")
	assert.Equal(t, MaxQuantity, p1.Quantity())
	assert.True(t, p1.PriceAtAdd().Equal(price("1.00")))

	p2, ok := cart.ItemByProductID("p-2")
	require.True(t, ok)
	assert.Equal(t, 2, p2.Quantity())
	assert.NotEqual(t, p1.ID(), p2.ID())
	assert.Equal(t, 102, cart.ItemCount())
	assert.True(t, cart.Total().Equal(price("110.00")))
	assert.Equal(t, "c-1", cart.ID())
}

func TestCart_AssignID(t *testing.T) {
	cart := NewCart("c-1", "s-1").AddItem("p-1", 1, price("1.00"), "USD")
	tmp := cart.Items()[0].ID()

	assert.True(t, cart.AssignID(tmp, "item-42"))
	_, ok := cart.ItemByID("item-42")
	assert.True(t, ok)
	assert.False(t, IsTemporaryID("item-42"))

	assert.False(t, cart.AssignID("item-42", "item-43"), "only temporary ids are reassigned")
	assert.False(t, cart.AssignID(tmp, "item-44"), "temporary id is gone")
}

func TestCartItem_PriceChanged(t *testing.T) {
	item, err := NewCartItem("i-1", "p-1", 1, price("10.00"), "USD")
	require.NoError(t, err)

	assert.False(t, item.PriceChanged(price("10")))
	assert.True(t, item.PriceChanged(price("12.50")))
	assert.True(t, item.PriceDelta(price("12.50")).Equal(price("2.50")))
	assert.True(t, item.PriceDelta(price("8")).Equal(price("-2")))
}

func TestNewCartItem_Validation(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		quantity  int
		price     string
		currency  string
	}{
		{"empty product", "", 1, "1", "USD"},
		{"zero quantity", "p-1", 0, "1", "USD"},
		{"negative price", "p-1", 1, "-0.01", "USD"},
		{"bad currency", "p-1", 1, "1", "DOLLARS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCartItem("i-1", tt.productID, tt.quantity, price(tt.price), tt.currency)
			assert.ErrorIs(t, err, ErrInvalidCart)
		})
	}
}

func TestCart_SerializationRoundTrip(t *testing.T) {
	cart := NewCart("c-1", "s-1").
		AddItem("p-1", 3, price("19.99"), "USD").
		AddItem("p-2", 1, price("0.10"), "USD")

	back, err := FromAPI(cart.ToJSON())
	require.NoError(t, err)
	assert.True(t, cart.Equal(back))

	raw, err := json.Marshal(cart)
	require.NoError(t, err)
	var decoded Cart
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, cart.Equal(&decoded))
}

func TestCart_TemporaryIDsSurviveRoundTrip(t *testing.T) {
	cart := NewCart("c-1", "s-1").
		AddItem("p-1", 1, price("1.00"), "USD").
		AddItem("p-2", 1, price("2.00"), "USD")

	back, err := FromAPI(cart.ToJSON())
	require.NoError(t, err)
	back.AddItem("p-3", 1, price("3.00"), "USD")

	raw, err := json.Marshal(cart)
	require.NoError(t, err)
	var decoded Cart
	require.NoError(t, json.Unmarshal(raw, &decoded))
	decoded.Merge(NewCart("", "s-2").AddItem("p-9", 1, price("9.00"), "USD"))

	for name, c := range map[string]*Cart{"from api": back, "unmarshal then merge": &decoded} {
		seen := map[string]bool{}
		for _, item := range c.Items() {
			assert.False(t, seen[item.ID()], "%s: duplicate item id %s", name, item.ID())
			seen[item.ID()] = true
		}
		assert.Len(t, seen, 3, name)
		assert.True(t, seen["tmp-3"], name)
	}
}

func TestCart_FromAPIIgnoresNonNumericTemporarySuffix(t *testing.T) {
	back, err := FromAPI(CartDTO{
		SessionID: "s-1",
		Items: []CartItemDTO{
			{ID: "tmp-abc", ProductID: "p-1", Quantity: 1, PriceAtAdd: NewAmount(price("1.00")), Currency: "USD"},
			{ID: "item-7", ProductID: "p-2", Quantity: 1, PriceAtAdd: NewAmount(price("1.00")), Currency: "USD"},
		},
	})
	require.NoError(t, err)

	back.AddItem("p-3", 1, price("1.00"), "USD")
	item, ok := back.ItemByProductID("p-3")
	require.True(t, ok)
	assert.Equal(t, "tmp-1", item.ID())
}

func TestCart_ToJSONShape(t *testing.T) {
	cart := NewCart("c-1", "s-1").AddItem("p-1", 2, price("1.25"), "USD")

	raw, err := json.Marshal(cart)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "s-1", body["session_id"])
	assert.Equal(t, 2.5, body["total"])
	assert.Equal(t, float64(2), body["item_count"])

	items := body["items"].([]any)
	require.Len(t, items, 1)
	line := items[0].(map[string]any)
	assert.Equal(t, 1.25, line["price_at_add"])
	assert.Equal(t, 2.5, line["subtotal"])
	assert.Equal(t, "p-1", line["product_id"])
}

func TestFromAPI_RecomputesDerivedFields(t *testing.T) {
	raw := `{
		"id": "c-9",
		"session_id": "s-9",
		"items": [
			{"id": "i-1", "product_id": "p-1", "quantity": 2, "price_at_add": 10.5, "currency": "EUR", "subtotal": 999},
			{"id": "i-2", "product_id": "p-2", "quantity": 1, "price_at_add": "4.5", "currency": "EUR", "subtotal": 4.5}
		],
		"total": 0,
		"item_count": 0
	}`
	var dto CartDTO
	require.NoError(t, json.Unmarshal([]byte(raw), &dto))

	cart, err := FromAPI(dto)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.ItemCount())
	assert.True(t, cart.Total().Equal(price("25.50")))

	item, _ := cart.ItemByID("i-1")
	assert.True(t, item.Subtotal().Equal(price("21")))
}

func TestFromAPI_Rejects(t *testing.T) {
	_, err := FromAPI(CartDTO{ID: "c-1"})
	assert.ErrorIs(t, err, ErrInvalidCart)

	_, err = FromAPI(CartDTO{
		ID:        "c-1",
		SessionID: "s-1",
		Items:     []CartItemDTO{{ID: "i-1", ProductID: "p-1", Quantity: 1, Currency: "EURO"}},
	})
	assert.ErrorIs(t, err, ErrInvalidCart)
}

func TestFormatMoney(t *testing.T) {
	us := FormatMoney(language.AmericanEnglish, price("12.5"), "USD")
	assert.Contains(t, us, "12")
	assert.NotContains(t, us, "USD 12.50 USD")

	assert.Equal(t, "12.50 QQQ", FormatMoney(language.AmericanEnglish, price("12.5"), "QQQ"))
	assert.Equal(t, "3.00 EUR", FormatMoney(language.Und, price("3"), "eur"))
	assert.Equal(t, "3.00", FormatMoney(language.German, price("3"), ""))
}

func TestCart_FormattedTotalEmpty(t *testing.T) {
	cart := NewCart("c-1", "s-1")
	assert.Equal(t, "0.00 USD", cart.FormattedTotal(language.Und))
}
