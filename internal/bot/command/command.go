// Package command decodes inbound text and payloads into a typed Command
// once, at the edge of the turn graph.
package command

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	Unknown Kind = iota
	// Global commands, accepted in every state.
	ShowMenu
	ShowCart
	ClearCart
	// Catalog.
	BrowseCategory
	ViewItem
	StartItem
	SelectVariation
	SelectAddon
	AddonsDone
	SetQuantity
	RemoveLine
	// Checkout.
	StartCheckout
	SelectOrderType
	SelectPayment
	ConfirmOrder
	CancelCheckout
)

var kindNames = map[Kind]string{
	Unknown:         "unknown",
	ShowMenu:        "show_menu",
	ShowCart:        "show_cart",
	ClearCart:       "clear_cart",
	BrowseCategory:  "browse_category",
	ViewItem:        "view_item",
	StartItem:       "start_item",
	SelectVariation: "select_variation",
	SelectAddon:     "select_addon",
	AddonsDone:      "addons_done",
	SetQuantity:     "set_quantity",
	RemoveLine:      "remove_line",
	StartCheckout:   "start_checkout",
	SelectOrderType: "select_order_type",
	SelectPayment:   "select_payment",
	ConfirmOrder:    "confirm_order",
	CancelCheckout:  "cancel_checkout",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsGlobal reports whether k is one of the escape-hatch commands.
func (k Kind) IsGlobal() bool {
	return k == ShowMenu || k == ShowCart || k == ClearCart
}

// Payload prefixes and exact payloads understood by the bot.
const (
	PayloadGetStarted     = "GET_STARTED"
	PayloadMenu           = "MENU"
	PayloadViewCart       = "VIEW_CART"
	PayloadClearCart      = "CLEAR_CART"
	PayloadAddonsDone     = "ADDONS_DONE"
	PayloadCheckout       = "CHECKOUT"
	PayloadConfirmOrder   = "CONFIRM_ORDER"
	PayloadCancelCheckout = "CANCEL_CHECKOUT"
	PrefixCategory        = "CATEGORY_"
	PrefixViewItem        = "VIEW_ITEM_"
	PrefixAdd             = "ADD_"
	PrefixSelectVariation = "SELECT_VARIATION_"
	PrefixSelectAddon     = "SELECT_ADDON_"
	PrefixSetQuantity     = "SET_QUANTITY_"
	PrefixRemoveItem      = "REMOVE_ITEM_"
	PrefixOrderType       = "ORDER_TYPE_"
	PrefixPayment         = "PAYMENT_"
)

// Command is the decoded form of one inbound event.
type Command struct {
	Kind Kind
	// ID is the entity argument (category, item, variation, add-on, order type, payment method).
	ID string
	// N is the numeric argument (quantity, 1-based cart line).
	N int
	// Text is the raw free text, kept for form collection.
	Text string
	// Payload is the raw payload, kept for logging.
	Payload string
}

// FromPayload reports whether the command came from a button or quick reply.
func (c Command) FromPayload() bool {
	return c.Payload != ""
}

var menuWords = map[string]struct{}{
	"menu": {}, "start": {}, "hi": {}, "hello": {}, "hey": {}, "order": {}, "get started": {}, "back": {},
}

var cartWords = map[string]struct{}{
	"cart": {}, "view cart": {}, "my cart": {}, "basket": {},
}

var clearWords = map[string]struct{}{
	"clear": {}, "reset": {}, "clear cart": {}, "empty cart": {}, "start over": {},
}

// Decode turns text and an optional payload into a Command. A payload always
// wins over text; quick replies and postbacks decode identically.
func Decode(text, payload string) Command {
	payload = strings.TrimSpace(payload)
	if payload != "" {
		cmd := decodePayload(payload)
		cmd.Text = text
		cmd.Payload = payload
		return cmd
	}

	cmd := Command{Kind: Unknown, Text: text}
	word := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if _, ok := menuWords[word]; ok {
		cmd.Kind = ShowMenu
	} else if _, ok := cartWords[word]; ok {
		cmd.Kind = ShowCart
	} else if _, ok := clearWords[word]; ok {
		cmd.Kind = ClearCart
	}
	return cmd
}

// ParseQuantity accepts a typed quantity such as "2" or " 3 ".
func ParseQuantity(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func decodePayload(p string) Command {
	switch p {
	case PayloadGetStarted, PayloadMenu:
		return Command{Kind: ShowMenu}
	case PayloadViewCart:
		return Command{Kind: ShowCart}
	case PayloadClearCart:
		return Command{Kind: ClearCart}
	case PayloadAddonsDone:
		return Command{Kind: AddonsDone}
	case PayloadCheckout:
		return Command{Kind: StartCheckout}
	case PayloadConfirmOrder:
		return Command{Kind: ConfirmOrder}
	case PayloadCancelCheckout:
		return Command{Kind: CancelCheckout}
	}

	// Longer prefixes first where one is a prefix of another.
	idPrefixes := []struct {
		prefix string
		kind   Kind
	}{
		{PrefixCategory, BrowseCategory},
		{PrefixViewItem, ViewItem},
		{PrefixSelectVariation, SelectVariation},
		{PrefixSelectAddon, SelectAddon},
		{PrefixOrderType, SelectOrderType},
		{PrefixPayment, SelectPayment},
		{PrefixAdd, StartItem},
	}
	for _, e := range idPrefixes {
		if id, ok := strings.CutPrefix(p, e.prefix); ok && id != "" {
			return Command{Kind: e.kind, ID: id}
		}
	}

	numPrefixes := []struct {
		prefix string
		kind   Kind
	}{
		{PrefixSetQuantity, SetQuantity},
		{PrefixRemoveItem, RemoveLine},
	}
	for _, e := range numPrefixes {
		if raw, ok := strings.CutPrefix(p, e.prefix); ok {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return Command{Kind: Unknown}
			}
			return Command{Kind: e.kind, N: n}
		}
	}
	return Command{Kind: Unknown}
}

// Payload builders keep encode and decode in one place.

func Category(id string) string { return PrefixCategory + id }
func Item(id string) string { return PrefixViewItem + id }
func Add(id string) string { return PrefixAdd + id }
func Variation(id string) string { return PrefixSelectVariation + id }
func Addon(id string) string { return PrefixSelectAddon + id }
func Quantity(n int) string { return PrefixSetQuantity + strconv.Itoa(n) }
func Remove(line int) string { return PrefixRemoveItem + strconv.Itoa(line) }
func OrderType(id string) string { return PrefixOrderType + id }
func PaymentMethod(id string) string { return PrefixPayment + id }
