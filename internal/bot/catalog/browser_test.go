package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/cart"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/repo"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
)

func setup(t *testing.T) (*Browser, *repo.MemoryStore, *model.Turn) {
	t.Helper()
	store := repo.NewMemoryStore()
	repo.SeedDemo(store, "page-1", "")
	cfg := model.ConversationConfig{DefaultCurrency: "USD", DefaultLocale: "en-US", QuantityChoices: 5}
	b := NewBrowser(store, cart.NewBuilder(cfg), cfg)
	return b, store, newTurn()
}

func newTurn() *model.Turn {
	turn := model.NewTurn(model.Input{PSID: "p1", Tenant: &model.Tenant{ID: repo.DemoTenantID}}, time.Now())
	turn.Session = model.NewSession(repo.DemoTenantID, "p1", time.Now())
	return turn
}

func TestShowMenu(t *testing.T) {
	b, _, turn := setup(t)
	require.NoError(t, b.ShowMenu(context.Background(), turn))

	require.Len(t, turn.Replies, 2)
	cards := turn.Replies[1].Cards
	require.Len(t, cards, 3)
	assert.Equal(t, "CATEGORY_burgers", cards[0].Buttons[0].Payload)
	assert.Equal(t, model.StateMenu, turn.Session.State)
}

func TestShowMenuRemindsAboutCart(t *testing.T) {
	b, _, turn := setup(t)
	turn.Session.Cart = []model.CartLine{{ItemID: "cola", Quantity: 2}}
	require.NoError(t, b.ShowMenu(context.Background(), turn))
	require.Len(t, turn.Replies, 3)
	assert.Contains(t, turn.Replies[2].Text, "2 item(s)")
}

func TestBrowseCategory(t *testing.T) {
	b, _, turn := setup(t)
	require.NoError(t, b.BrowseCategory(context.Background(), turn, "burgers"))

	require.Len(t, turn.Replies, 1)
	cards := turn.Replies[0].Cards
	require.Len(t, cards, 2)
	assert.Equal(t, "ADD_classic-burger", cards[0].Buttons[0].Payload)
	assert.Contains(t, cards[1].Subtitle, "USD 7.50 (was USD 9.00)")
	assert.Equal(t, model.StateSelectingItem, turn.Session.State)
}

func TestBrowseEmptyCategoryFallsBackToMenu(t *testing.T) {
	b, _, turn := setup(t)
	require.NoError(t, b.BrowseCategory(context.Background(), turn, "desserts"))
	assert.Equal(t, model.StateMenu, turn.Session.State)
	assert.Contains(t, turn.Replies[0].Text, "nothing available")
}

func TestViewMissingItem(t *testing.T) {
	b, _, turn := setup(t)
	require.NoError(t, b.ViewItem(context.Background(), turn, "soup-of-day"))
	assert.Equal(t, "Sorry, that item is no longer available.", turn.Replies[0].Text)
	assert.Equal(t, model.StateMenu, turn.Session.State)
}

func TestSelectionFlowVariationAddonsQuantity(t *testing.T) {
	b, _, turn := setup(t)
	ctx := context.Background()

	require.NoError(t, b.StartItem(ctx, turn, "classic-burger"))
	assert.Equal(t, model.StateSelectingVariation, turn.Session.State)

	require.NoError(t, b.SelectVariation(ctx, turn, "classic-double"))
	assert.Equal(t, model.StateSelectingAddons, turn.Session.State)
	last := turn.Replies[len(turn.Replies)-1]
	assert.Equal(t, "ADDONS_DONE", last.QuickReplies[0].Payload, "Done comes first")
	assert.Len(t, last.QuickReplies, 4)

	require.NoError(t, b.SelectAddon(ctx, turn, "cheese"))
	require.NoError(t, b.SelectAddon(ctx, turn, "cheese"))
	last = turn.Replies[len(turn.Replies)-1]
	assert.Len(t, last.QuickReplies, 3, "chosen extras are not offered again")
	assert.Equal(t, 1.0, turn.Session.Checkout.Selection.AddonsPrice)

	require.NoError(t, b.AddonsDone(ctx, turn))
	assert.Equal(t, model.StateSelectingQuantity, turn.Session.State)
	last = turn.Replies[len(turn.Replies)-1]
	assert.Len(t, last.QuickReplies, 5)
	assert.Contains(t, last.Text, "USD 12.50 each")

	require.NoError(t, b.SetQuantity(ctx, turn, 2))
	assert.Equal(t, model.StateCart, turn.Session.State)
	require.Len(t, turn.Session.Cart, 1)
	line := turn.Session.Cart[0]
	assert.Equal(t, 12.5, line.UnitPrice)
	assert.Equal(t, "Double", line.VariationName)
	assert.Nil(t, turn.Session.Checkout.Selection)
}

func TestSelectionSkipsEmptySteps(t *testing.T) {
	b, _, turn := setup(t)
	require.NoError(t, b.StartItem(context.Background(), turn, "cola"))
	assert.Equal(t, model.StateSelectingQuantity, turn.Session.State)

	turn = newTurn()
	require.NoError(t, b.StartItem(context.Background(), turn, "veggie-burger"))
	assert.Equal(t, model.StateSelectingAddons, turn.Session.State)
	assert.Equal(t, 7.5, turn.Session.Checkout.Selection.BasePrice)
}

func TestSelectingLastAddonMovesToQuantity(t *testing.T) {
	b, _, turn := setup(t)
	ctx := context.Background()
	require.NoError(t, b.StartItem(ctx, turn, "veggie-burger"))
	require.NoError(t, b.SelectAddon(ctx, turn, "veggie-cheese"))
	assert.Equal(t, model.StateSelectingQuantity, turn.Session.State)
}

func TestStaleSelectionButtonsRestart(t *testing.T) {
	b, _, turn := setup(t)
	require.NoError(t, b.SelectVariation(context.Background(), turn, "classic-double"))
	assert.Equal(t, model.StateMenu, turn.Session.State)
	assert.Contains(t, turn.Replies[0].Text, "start again")

	turn = newTurn()
	require.NoError(t, b.SetQuantity(context.Background(), turn, 1))
	assert.Equal(t, model.StateMenu, turn.Session.State)
	assert.Empty(t, turn.Session.Cart)
}

func TestUnknownVariationReprompts(t *testing.T) {
	b, _, turn := setup(t)
	ctx := context.Background()
	require.NoError(t, b.StartItem(ctx, turn, "classic-burger"))
	require.NoError(t, b.SelectVariation(ctx, turn, "gigantic"))
	assert.Equal(t, model.StateSelectingVariation, turn.Session.State)
	assert.Equal(t, messenger.KindQuickReply, turn.Replies[len(turn.Replies)-1].Kind())
}

func TestQuantityOutOfRangeReprompts(t *testing.T) {
	b, _, turn := setup(t)
	ctx := context.Background()
	require.NoError(t, b.StartItem(ctx, turn, "cola"))
	require.NoError(t, b.SetQuantity(ctx, turn, cart.MaxQuantity+1))
	assert.Equal(t, model.StateSelectingQuantity, turn.Session.State)
	assert.Empty(t, turn.Session.Cart)
}
