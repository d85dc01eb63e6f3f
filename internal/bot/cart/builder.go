package cart

import (
	"fmt"
	"strconv"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/command"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/render"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

// Builder turns a finished selection into a cart line and renders the cart.
type Builder struct {
	cfg model.ConversationConfig
}

func NewBuilder(cfg model.ConversationConfig) *Builder {
	return &Builder{cfg: cfg}
}

func (b *Builder) Formatter(t *model.Turn) render.Formatter {
	return render.ForTenant(t.Tenant, b.cfg.DefaultCurrency, b.cfg.DefaultLocale)
}

// AddToCart finalizes the current selection. It returns a validation error
// when there is no selection or the quantity is out of range.
func (b *Builder) AddToCart(t *model.Turn, qty int) error {
	sel := t.Session.Checkout.Selection
	if sel == nil {
		return errx.Validation("selection", "no item is being configured")
	}
	if qty < 1 || qty > MaxQuantity {
		return errx.Validation("quantity", fmt.Sprintf("must be between 1 and %d", MaxQuantity))
	}

	line := LineFromSelection(*sel, qty)
	t.SetCart(Add(t.Session.Cart, line))

	logx.Debug().
		Str("psid", t.PSID).
		Str("item_id", line.ItemID).
		Int("quantity", qty).
		Float64("unit_price", line.UnitPrice).
		Msg("added line to cart")

	t.Reply(messenger.Text(fmt.Sprintf("Added %d x %s to your cart.", qty, render.LineLabel(line))))
	b.ShowCart(t)
	return nil
}

// ShowCart replies with the cart, or with an empty-cart notice that sends
// the customer back to the menu.
func (b *Builder) ShowCart(t *model.Turn) {
	lines := t.Session.Cart
	if len(lines) == 0 {
		t.Reply(messenger.QuickReplies("Your cart is empty.",
			messenger.Option("Browse menu", command.PayloadMenu)))
		t.Transition(model.StateMenu)
		return
	}

	f := b.Formatter(t)
	removals := make([]messenger.QuickReply, 0, len(lines))
	for i := range lines {
		removals = append(removals, messenger.Option("Remove "+strconv.Itoa(i+1), command.Remove(i+1)))
	}
	t.Reply(
		messenger.QuickReplies(render.Cart(f, lines), removals...),
		messenger.ButtonTemplate("What would you like to do next?",
			messenger.Postback("Checkout", command.PayloadCheckout),
			messenger.Postback("Add more", command.PayloadMenu),
			messenger.Postback("Clear cart", command.PayloadClearCart),
		),
	)
	t.Transition(model.StateCart)
}

// RemoveLine deletes the 1-based line n and shows the cart again.
func (b *Builder) RemoveLine(t *model.Turn, n int) error {
	lines, ok := Remove(t.Session.Cart, n)
	if !ok {
		return errx.Validation("line", "no such cart line")
	}
	removed := t.Session.Cart[n-1]
	t.SetCart(lines)
	t.Reply(messenger.Text("Removed " + render.LineLabel(removed) + "."))
	b.ShowCart(t)
	return nil
}
