// Package catalog renders the tenant menu and walks a customer through
// configuring one item: variation, then add-ons, then quantity.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/cart"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/command"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/render"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

type Browser struct {
	catalog model.CatalogRepository
	cart    *cart.Builder
	cfg     model.ConversationConfig
}

func NewBrowser(catalog model.CatalogRepository, cb *cart.Builder, cfg model.ConversationConfig) *Browser {
	if cfg.QuantityChoices <= 0 {
		cfg.QuantityChoices = 5
	}
	return &Browser{catalog: catalog, cart: cb, cfg: cfg}
}

// ShowMenu lists the tenant's categories.
func (b *Browser) ShowMenu(ctx context.Context, t *model.Turn) error {
	cats, err := b.catalog.Categories(ctx, t.TenantID())
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	t.Transition(model.StateMenu)

	if len(cats) == 0 {
		t.Reply(messenger.Text("Our menu is not available right now. Please check back later."))
		return nil
	}

	cards := make([]messenger.Card, 0, len(cats))
	for _, c := range cats {
		cards = append(cards, messenger.Card{
			Title:    c.Name,
			Subtitle: c.Description,
			ImageURL: c.ImageURL,
			Buttons:  []messenger.Button{messenger.Postback("View items", command.Category(c.ID))},
		})
	}
	t.Reply(messenger.Text("Here's our menu. Pick a category:"), messenger.CardList(cards...))

	if n := cart.Count(t.Session.Cart); n > 0 {
		t.Reply(messenger.QuickReplies(fmt.Sprintf("You have %d item(s) in your cart.", n),
			messenger.Option("View cart", command.PayloadViewCart),
			messenger.Option("Checkout", command.PayloadCheckout),
		))
	}
	return nil
}

func (b *Browser) BrowseCategory(ctx context.Context, t *model.Turn, categoryID string) error {
	items, err := b.catalog.ItemsInCategory(ctx, t.TenantID(), categoryID)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	if len(items) == 0 {
		t.Reply(messenger.Text("There is nothing available in that category right now."))
		return b.ShowMenu(ctx, t)
	}

	f := b.cart.Formatter(t)
	cards := make([]messenger.Card, 0, len(items))
	for _, it := range items {
		cards = append(cards, messenger.Card{
			Title:    it.Name,
			Subtitle: priceLine(f, it),
			ImageURL: it.ImageURL,
			Buttons: []messenger.Button{
				messenger.Postback("Add to cart", command.Add(it.ID)),
				messenger.Postback("Details", command.Item(it.ID)),
				messenger.Postback("Back to menu", command.PayloadMenu),
			},
		})
	}
	t.Reply(messenger.CardList(cards...))
	t.Transition(model.StateSelectingItem)
	return nil
}

func (b *Browser) ViewItem(ctx context.Context, t *model.Turn, itemID string) error {
	it, err := b.loadItem(ctx, t, itemID)
	if err != nil || it == nil {
		return err
	}

	f := b.cart.Formatter(t)
	var sb strings.Builder
	sb.WriteString(priceLine(f, *it))
	if len(it.Variations) > 0 {
		names := make([]string, 0, len(it.Variations))
		for _, v := range it.Variations {
			names = append(names, v.Name)
		}
		fmt.Fprintf(&sb, "\nOptions: %s", strings.Join(names, ", "))
	}
	if len(it.Addons) > 0 {
		names := make([]string, 0, len(it.Addons))
		for _, a := range it.Addons {
			names = append(names, a.Name)
		}
		fmt.Fprintf(&sb, "\nExtras: %s", strings.Join(names, ", "))
	}

	t.Reply(messenger.CardList(messenger.Card{
		Title:    it.Name,
		Subtitle: sb.String(),
		ImageURL: it.ImageURL,
		Buttons: []messenger.Button{
			messenger.Postback("Add to cart", command.Add(it.ID)),
			messenger.Postback("Back to category", command.Category(it.CategoryID)),
			messenger.Postback("Menu", command.PayloadMenu),
		},
	}))
	t.Transition(model.StateSelectingItem)
	return nil
}

// StartItem opens a selection for the item and prompts the first step that
// has options.
func (b *Browser) StartItem(ctx context.Context, t *model.Turn, itemID string) error {
	it, err := b.loadItem(ctx, t, itemID)
	if err != nil || it == nil {
		return err
	}
	t.Session.Checkout.Selection = &model.Selection{
		ItemID:    it.ID,
		ItemName:  it.Name,
		BasePrice: it.EffectivePrice(),
	}
	t.SaveCheckout()
	return b.next(t, it)
}

func (b *Browser) SelectVariation(ctx context.Context, t *model.Turn, variationID string) error {
	sel, it, err := b.current(ctx, t)
	if err != nil || it == nil {
		return err
	}
	v, ok := it.Variation(variationID)
	if !ok {
		t.Reply(messenger.Text("That option is no longer available."))
		b.promptVariation(t, it)
		return nil
	}
	sel.VariationID = v.ID
	sel.VariationName = v.Name
	sel.VariationPrice = v.PriceModifier
	t.SaveCheckout()
	return b.next(t, it)
}

func (b *Browser) SelectAddon(ctx context.Context, t *model.Turn, addonID string) error {
	sel, it, err := b.current(ctx, t)
	if err != nil || it == nil {
		return err
	}
	a, ok := it.Addon(addonID)
	if !ok {
		t.Reply(messenger.Text("That extra is no longer available."))
		b.promptAddons(t, it)
		return nil
	}
	if !sel.HasAddon(a.ID) {
		sel.AddonIDs = append(sel.AddonIDs, a.ID)
		sel.AddonNames = append(sel.AddonNames, a.Name)
		sel.AddonsPrice += a.Price
		t.SaveCheckout()
	}
	if len(remainingAddons(sel, it)) == 0 {
		b.promptQuantity(t, sel)
		return nil
	}
	t.Reply(messenger.Text("Added " + a.Name + "."))
	b.promptAddons(t, it)
	return nil
}

func (b *Browser) AddonsDone(ctx context.Context, t *model.Turn) error {
	sel, it, err := b.current(ctx, t)
	if err != nil || it == nil {
		return err
	}
	b.promptQuantity(t, sel)
	return nil
}

// SetQuantity completes the selection.
func (b *Browser) SetQuantity(ctx context.Context, t *model.Turn, qty int) error {
	if t.Session.Checkout.Selection == nil {
		return b.restart(ctx, t)
	}
	if err := b.cart.AddToCart(t, qty); err != nil {
		if errors.Is(err, errx.ErrValidation) {
			t.Reply(messenger.Text(fmt.Sprintf("Please choose a quantity between 1 and %d.", cart.MaxQuantity)))
			b.promptQuantity(t, t.Session.Checkout.Selection)
			return nil
		}
		return err
	}
	return nil
}

// next prompts the first step of the selection still open.
func (b *Browser) next(t *model.Turn, it *model.Item) error {
	sel := t.Session.Checkout.Selection
	switch {
	case len(it.Variations) > 0 && sel.VariationID == "":
		b.promptVariation(t, it)
	case len(remainingAddons(sel, it)) > 0:
		b.promptAddons(t, it)
	default:
		b.promptQuantity(t, sel)
	}
	return nil
}

func (b *Browser) promptVariation(t *model.Turn, it *model.Item) {
	f := b.cart.Formatter(t)
	opts := make([]messenger.QuickReply, 0, len(it.Variations))
	for _, v := range it.Variations {
		title := v.Name
		if v.PriceModifier != 0 {
			title += " " + f.Signed(v.PriceModifier)
		}
		opts = append(opts, messenger.Option(title, command.Variation(v.ID)))
	}
	t.Reply(messenger.QuickReplies("Choose an option for "+it.Name+":", opts...))
	t.Transition(model.StateSelectingVariation)
}

func (b *Browser) promptAddons(t *model.Turn, it *model.Item) {
	f := b.cart.Formatter(t)
	sel := t.Session.Checkout.Selection
	opts := []messenger.QuickReply{messenger.Option("Done", command.PayloadAddonsDone)}
	for _, a := range remainingAddons(sel, it) {
		opts = append(opts, messenger.Option(a.Name+" "+f.Signed(a.Price), command.Addon(a.ID)))
	}
	text := "Any extras? Tap Done when you're ready."
	if len(sel.AddonNames) > 0 {
		text = "Extras so far: " + strings.Join(sel.AddonNames, ", ") + ". Anything else?"
	}
	t.Reply(messenger.QuickReplies(text, opts...))
	t.Transition(model.StateSelectingAddons)
}

func (b *Browser) promptQuantity(t *model.Turn, sel *model.Selection) {
	f := b.cart.Formatter(t)
	opts := make([]messenger.QuickReply, 0, b.cfg.QuantityChoices)
	for n := 1; n <= b.cfg.QuantityChoices; n++ {
		opts = append(opts, messenger.Option(strconv.Itoa(n), command.Quantity(n)))
	}
	line := cart.LineFromSelection(*sel, 1)
	text := fmt.Sprintf("How many %s? (%s each) You can also type a number.", render.LineLabel(line), f.Money(line.UnitPrice))
	t.Reply(messenger.QuickReplies(text, opts...))
	t.Transition(model.StateSelectingQuantity)
}

// current reloads the item behind the active selection so prices come from
// the catalog, not from the payload.
func (b *Browser) current(ctx context.Context, t *model.Turn) (*model.Selection, *model.Item, error) {
	sel := t.Session.Checkout.Selection
	if sel == nil {
		return nil, nil, b.restart(ctx, t)
	}
	it, err := b.loadItem(ctx, t, sel.ItemID)
	if err != nil || it == nil {
		return nil, nil, err
	}
	return sel, it, nil
}

// loadItem returns (nil, nil) after replying when the item is gone.
func (b *Browser) loadItem(ctx context.Context, t *model.Turn, itemID string) (*model.Item, error) {
	it, err := b.catalog.Item(ctx, t.TenantID(), itemID)
	if errors.Is(err, errx.ErrNotFound) {
		logx.Info().Str("psid", t.PSID).Str("item_id", itemID).Msg("item not found")
		if t.Session.Checkout.Selection != nil {
			t.Session.Checkout.Selection = nil
			t.SaveCheckout()
		}
		t.Reply(messenger.Text("Sorry, that item is no longer available."))
		return nil, b.ShowMenu(ctx, t)
	}
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	return it, nil
}

func (b *Browser) restart(ctx context.Context, t *model.Turn) error {
	t.Reply(messenger.Text("Let's start again. Pick something from the menu."))
	return b.ShowMenu(ctx, t)
}

func remainingAddons(sel *model.Selection, it *model.Item) []model.Addon {
	var out []model.Addon
	for _, a := range it.Addons {
		if !sel.HasAddon(a.ID) {
			out = append(out, a)
		}
	}
	return out
}

func priceLine(f render.Formatter, it model.Item) string {
	p := f.Money(it.EffectivePrice())
	if it.DiscountPrice != nil {
		p += " (was " + f.Money(it.Price) + ")"
	}
	if it.Description != "" {
		p += " - " + it.Description
	}
	return p
}
