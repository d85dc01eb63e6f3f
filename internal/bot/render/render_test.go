package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
)

func TestMoney(t *testing.T) {
	f := NewFormatter("EUR", "en")
	assert.Equal(t, "EUR 12.50", f.Money(12.5))
	assert.Equal(t, "EUR 0.00", f.Money(0))
	assert.Equal(t, "+EUR 1.00", f.Signed(1))
	assert.Equal(t, "-EUR 0.50", f.Signed(-0.5))

	bad := NewFormatter("???", "!!")
	assert.Contains(t, bad.Money(3), "USD")
	assert.Contains(t, bad.Money(3), "3.00")

	var zero Formatter
	assert.Contains(t, zero.Money(1), "1.00")
}

func TestForTenant(t *testing.T) {
	f := ForTenant(&model.Tenant{Currency: "THB"}, "USD", "en-US")
	assert.Contains(t, f.Money(1), "THB")
	f = ForTenant(nil, "GBP", "en-GB")
	assert.Contains(t, f.Money(1), "GBP")
}

func TestCart(t *testing.T) {
	f := NewFormatter("USD", "en-US")
	assert.Equal(t, "Your cart is empty.", Cart(f, nil))

	lines := []model.CartLine{
		{ItemName: "Burger", UnitPrice: 10, Quantity: 2, VariationName: "Large", AddonNames: []string{"Cheese"}},
		{ItemName: "Cola", UnitPrice: 1.5, Quantity: 1},
	}
	out := Cart(f, lines)
	assert.Contains(t, out, "1. 2 x Burger (Large, + Cheese) - USD 20.00")
	assert.Contains(t, out, "2. 1 x Cola - USD 1.50")
	assert.Contains(t, out, "Subtotal: USD 21.50")
}

func TestConfirmation(t *testing.T) {
	f := NewFormatter("USD", "en-US")
	lines := []model.CartLine{{ItemName: "Pizza", UnitPrice: 12, Quantity: 1}}
	co := model.CheckoutState{
		OrderType:    &model.OrderTypeSnapshot{Name: "Delivery", Fields: []model.FormField{{Key: "address", Label: "Address"}}},
		CustomerData: map[string]string{"address": "1 Main St"},
		Delivery:     &model.DeliveryQuote{Fee: 3},
		Payment:      &model.PaymentSnapshot{Name: "Cash"},
	}
	out := Confirmation(f, lines, co)
	assert.Contains(t, out, "Delivery fee: USD 3.00")
	assert.Contains(t, out, "Total: USD 15.00")
	assert.Contains(t, out, "Address: 1 Main St")
	assert.Contains(t, out, "Payment: Cash")

	out = Confirmation(f, lines, model.CheckoutState{})
	assert.Contains(t, out, "Payment: to be arranged")
}

func TestOrderReceipt(t *testing.T) {
	f := NewFormatter("USD", "en-US")
	o := model.Order{ID: "abc", Number: "1042", OrderTypeName: "Pickup", Items: []model.CartLine{{ItemName: "Tea", UnitPrice: 2, Quantity: 3}}}
	out := OrderReceipt(f, o)
	assert.Contains(t, out, "Order #1042 confirmed (Pickup)")
	assert.Contains(t, out, "Total: USD 6.00")
	assert.Equal(t, "Thank you! Your order #7 has been placed.", OrderPlaced("7"))
}
