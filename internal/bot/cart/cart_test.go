package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
)

func burger() model.Selection {
	return model.Selection{
		ItemID: "burger", ItemName: "Burger", BasePrice: 8,
		VariationID: "double", VariationName: "Double", VariationPrice: 3,
		AddonIDs: []string{"cheese", "bacon"}, AddonNames: []string{"Cheese", "Bacon"}, AddonsPrice: 2.5,
	}
}

func TestUnitPrice(t *testing.T) {
	assert.Equal(t, 13.5, UnitPrice(burger()))
	assert.Equal(t, 4.0, UnitPrice(model.Selection{BasePrice: 5, VariationPrice: -1}))
}

func TestAddMergesIgnoringAddonOrder(t *testing.T) {
	a := LineFromSelection(burger(), 1)
	sel := burger()
	sel.AddonIDs = []string{"bacon", "cheese"}
	sel.AddonNames = []string{"Bacon", "Cheese"}
	b := LineFromSelection(sel, 2)

	lines := Add(Add(nil, a), b)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, []string{"Cheese", "Bacon"}, lines[0].AddonNames, "display order of the first line is kept")
}

func TestAddAppendsDifferentSignatures(t *testing.T) {
	a := LineFromSelection(burger(), 1)

	noBacon := burger()
	noBacon.AddonIDs = []string{"cheese"}
	single := burger()
	single.VariationID = "single"

	lines := Add(Add(Add(nil, a), LineFromSelection(noBacon, 1)), LineFromSelection(single, 1))
	assert.Len(t, lines, 3)
}

func TestAddKeepsSnapshotPrice(t *testing.T) {
	lines := Add(nil, LineFromSelection(burger(), 1))

	// The catalog price changed after the first line was added.
	repriced := burger()
	repriced.BasePrice = 20
	lines = Add(lines, LineFromSelection(repriced, 1))

	require.Len(t, lines, 1)
	assert.Equal(t, 13.5, lines[0].UnitPrice)
	assert.Equal(t, 27.0, model.Subtotal(lines))
}

func TestAddDoesNotAliasInput(t *testing.T) {
	orig := Add(nil, LineFromSelection(burger(), 1))
	_ = Add(orig, LineFromSelection(burger(), 1))
	assert.Equal(t, 1, orig[0].Quantity)
}

func TestRemove(t *testing.T) {
	lines := []model.CartLine{{ItemID: "a"}, {ItemID: "b"}, {ItemID: "c"}}
	out, ok := Remove(lines, 2)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c"}, []string{out[0].ItemID, out[1].ItemID})

	_, ok = Remove(lines, 0)
	assert.False(t, ok)
	_, ok = Remove(lines, 4)
	assert.False(t, ok)
	assert.Equal(t, 3, Count([]model.CartLine{{Quantity: 1}, {Quantity: 2}}))
}

func newTurn() *model.Turn {
	turn := model.NewTurn(model.Input{PSID: "p1", Tenant: &model.Tenant{ID: "t1"}}, time.Now())
	turn.Session = model.NewSession("t1", "p1", time.Now())
	return turn
}

func TestBuilderAddToCart(t *testing.T) {
	b := NewBuilder(model.ConversationConfig{DefaultCurrency: "USD", DefaultLocale: "en-US"})
	turn := newTurn()
	sel := burger()
	turn.Session.Checkout.Selection = &sel
	turn.Session.Checkout.Payment = &model.PaymentSnapshot{ID: "cash"}

	require.NoError(t, b.AddToCart(turn, 2))
	assert.Equal(t, model.StateCart, turn.Session.State)
	require.Len(t, turn.Session.Cart, 1)
	assert.True(t, turn.Session.Checkout.IsZero(), "selection and checkout are cleared")
	require.NotEmpty(t, turn.Replies)
	assert.Contains(t, turn.Replies[0].Text, "Added 2 x Burger")

	p := turn.Patch()
	assert.NotNil(t, p.Cart)
	assert.NotNil(t, p.Checkout)
	assert.NotNil(t, p.State)
}

func TestBuilderAddToCartValidation(t *testing.T) {
	b := NewBuilder(model.ConversationConfig{})
	turn := newTurn()
	assert.ErrorIs(t, b.AddToCart(turn, 1), errx.ErrValidation)

	sel := burger()
	turn.Session.Checkout.Selection = &sel
	assert.ErrorIs(t, b.AddToCart(turn, 0), errx.ErrValidation)
	assert.ErrorIs(t, b.AddToCart(turn, MaxQuantity+1), errx.ErrValidation)
	assert.Empty(t, turn.Session.Cart)
}

func TestBuilderShowCart(t *testing.T) {
	b := NewBuilder(model.ConversationConfig{DefaultCurrency: "USD"})
	turn := newTurn()
	turn.Session.State = model.StateSelectingItem

	b.ShowCart(turn)
	assert.Equal(t, model.StateMenu, turn.Session.State)
	require.Len(t, turn.Replies, 1)
	assert.Equal(t, "Your cart is empty.", turn.Replies[0].Text)

	turn = newTurn()
	turn.Session.Cart = []model.CartLine{{ItemID: "a", ItemName: "Tea", UnitPrice: 2, Quantity: 1}}
	b.ShowCart(turn)
	assert.Equal(t, model.StateCart, turn.Session.State)
	require.Len(t, turn.Replies, 2)
	assert.Equal(t, messenger.KindQuickReply, turn.Replies[0].Kind())
	assert.Equal(t, "REMOVE_ITEM_1", turn.Replies[0].QuickReplies[0].Payload)
	assert.Equal(t, messenger.KindButtons, turn.Replies[1].Kind())
}

func TestBuilderRemoveLine(t *testing.T) {
	b := NewBuilder(model.ConversationConfig{})
	turn := newTurn()
	turn.Session.Cart = []model.CartLine{{ItemID: "a", ItemName: "Tea", Quantity: 1}}
	turn.Session.Checkout.OrderType = &model.OrderTypeSnapshot{ID: "pickup"}

	require.NoError(t, b.RemoveLine(turn, 1))
	assert.Empty(t, turn.Session.Cart)
	assert.Nil(t, turn.Session.Checkout.OrderType, "checkout is invalidated")
	assert.Equal(t, model.StateMenu, turn.Session.State)

	assert.ErrorIs(t, b.RemoveLine(turn, 1), errx.ErrValidation)
}
