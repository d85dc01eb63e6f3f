package model

import (
	"time"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/command"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
)

// Input is one decoded-ready inbound event for the conversation router.
type Input struct {
	Tenant *Tenant
	PSID   string
	Text   string
	// Payload is the postback or quick-reply payload, if any.
	Payload string
}

// Turn is the unit of work flowing through the turn graph. Handlers mutate
// Session in memory and mark what changed; the persist step writes one
// merged patch at the end.
type Turn struct {
	Input
	Command command.Command
	Session *Session
	Replies []messenger.Message
	// Route is the branch taken, for logs and metrics.
	Route string
	Now   time.Time

	stateDirty    bool
	cartDirty     bool
	checkoutDirty bool
	cleared       bool
}

func NewTurn(in Input, now time.Time) *Turn {
	return &Turn{Input: in, Now: now}
}

func (t *Turn) TenantID() string {
	if t.Tenant == nil {
		return ""
	}
	return t.Tenant.ID
}

// Recipient addresses replies on the tenant's page.
func (t *Turn) Recipient() messenger.Recipient {
	r := messenger.Recipient{PSID: t.PSID}
	if t.Tenant != nil {
		r.PageToken = t.Tenant.PageToken
	}
	return r
}

func (t *Turn) Reply(msgs ...messenger.Message) {
	t.Replies = append(t.Replies, msgs...)
}

func (t *Turn) Transition(s State) {
	t.Session.State = s
	t.stateDirty = true
}

// SetCart replaces the cart. Any cart mutation invalidates checkout.
func (t *Turn) SetCart(lines []CartLine) {
	t.Session.Cart = lines
	t.cartDirty = true
	t.ResetCheckout()
}

func (t *Turn) SaveCheckout() {
	t.checkoutDirty = true
}

func (t *Turn) ResetCheckout() {
	t.Session.Checkout = CheckoutState{}
	t.checkoutDirty = true
}

// ResetForm drops everything collected after order-type selection.
func (t *Turn) ResetForm() {
	t.Session.Checkout.CustomerData = nil
	t.Session.Checkout.Payment = nil
	t.Session.Checkout.Delivery = nil
	t.checkoutDirty = true
}

// Clear empties the cart and checkout and returns to the menu. All three
// fields go into the patch, so the reset is written with the rest of the turn.
func (t *Turn) Clear() {
	t.Session.Cart = []CartLine{}
	t.Session.Checkout = CheckoutState{}
	t.Session.State = StateMenu
	t.cleared = true
	t.stateDirty, t.cartDirty, t.checkoutDirty = true, true, true
}

func (t *Turn) Cleared() bool {
	return t.cleared
}

// Patch returns the fields changed during the turn.
func (t *Turn) Patch() SessionPatch {
	var p SessionPatch
	if t.Session == nil {
		return p
	}
	if t.stateDirty {
		s := t.Session.State
		p.State = &s
	}
	if t.cartDirty {
		c := append([]CartLine{}, t.Session.Cart...)
		p.Cart = &c
	}
	if t.checkoutDirty {
		c := t.Session.Checkout
		p.Checkout = &c
	}
	return p
}
