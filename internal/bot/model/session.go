package model

import "time"

// State is the position of a session in the ordering flow.
type State string

const (
	StateMenu               State = "menu"
	StateSelectingItem      State = "selecting_item"
	StateSelectingVariation State = "selecting_variation"
	StateSelectingAddons    State = "selecting_addons"
	StateSelectingQuantity  State = "selecting_quantity"
	StateCart               State = "cart"
	StateCheckoutOrderType  State = "checkout_order_type"
	StateCheckoutCustomer   State = "checkout_customer"
	StateCheckoutPayment    State = "checkout_payment"
	StateCheckoutConfirm    State = "checkout_confirm"
	StateOrderConfirmed     State = "order_confirmed"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateMenu, StateSelectingItem, StateSelectingVariation, StateSelectingAddons,
		StateSelectingQuantity, StateCart, StateCheckoutOrderType, StateCheckoutCustomer,
		StateCheckoutPayment, StateCheckoutConfirm, StateOrderConfirmed:
		return true
	}
	return false
}

// Session is the persisted conversation of one identity with one tenant.
type Session struct {
	PSID      string        `json:"psid"`
	TenantID  string        `json:"tenant_id"`
	State     State         `json:"state"`
	Cart      []CartLine    `json:"cart_data"`
	Checkout  CheckoutState `json:"checkout_state"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewSession returns a fresh session positioned at the menu.
func NewSession(tenantID, psid string, now time.Time) *Session {
	return &Session{
		PSID:      psid,
		TenantID:  tenantID,
		State:     StateMenu,
		Cart:      []CartLine{},
		UpdatedAt: now,
	}
}

// CartLine is one priced line of a cart. UnitPrice is a snapshot taken when
// the line was added and never recomputed from the catalog.
type CartLine struct {
	ItemID        string   `json:"item_id"`
	ItemName      string   `json:"item_name"`
	UnitPrice     float64  `json:"unit_price"`
	Quantity      int      `json:"quantity"`
	VariationID   string   `json:"variation_id,omitempty"`
	VariationName string   `json:"variation_name,omitempty"`
	AddonIDs      []string `json:"addon_ids,omitempty"`
	AddonNames    []string `json:"addon_names,omitempty"`
	Note          string   `json:"note,omitempty"`
}

// LineTotal is UnitPrice times Quantity.
func (l CartLine) LineTotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// CheckoutState is transient: it is cleared whenever the cart changes and
// when an order completes.
type CheckoutState struct {
	OrderType    *OrderTypeSnapshot `json:"order_type,omitempty"`
	CustomerData map[string]string  `json:"customer_data,omitempty"`
	Payment      *PaymentSnapshot   `json:"payment,omitempty"`
	Delivery     *DeliveryQuote     `json:"delivery,omitempty"`
	Selection    *Selection         `json:"current_item_selection,omitempty"`
}

// IsZero reports whether nothing has been collected.
func (c CheckoutState) IsZero() bool {
	return c.OrderType == nil && len(c.CustomerData) == 0 && c.Payment == nil &&
		c.Delivery == nil && c.Selection == nil
}

// OrderTypeSnapshot freezes the order type and its form at selection time.
type OrderTypeSnapshot struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	RequiresDelivery bool        `json:"requires_delivery"`
	Fields           []FormField `json:"fields,omitempty"`
}

// NextField returns the first field with no collected value.
func (o *OrderTypeSnapshot) NextField(collected map[string]string) (FormField, bool) {
	if o == nil {
		return FormField{}, false
	}
	for _, f := range o.Fields {
		if _, ok := collected[f.Key]; !ok {
			return f, true
		}
	}
	return FormField{}, false
}

type PaymentSnapshot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Details string `json:"details,omitempty"`
	QRImage string `json:"qr_image,omitempty"`
}

type DeliveryQuote struct {
	Fee     float64 `json:"fee"`
	QuoteID string  `json:"quote_id,omitempty"`
}

// Selection is the item currently being configured, before it becomes a
// cart line.
type Selection struct {
	ItemID         string   `json:"item_id"`
	ItemName       string   `json:"item_name"`
	BasePrice      float64  `json:"base_price"`
	VariationID    string   `json:"variation_id,omitempty"`
	VariationName  string   `json:"variation_name,omitempty"`
	VariationPrice float64  `json:"variation_price,omitempty"`
	AddonIDs       []string `json:"addon_ids,omitempty"`
	AddonNames     []string `json:"addon_names,omitempty"`
	AddonsPrice    float64  `json:"addons_price,omitempty"`
}

// HasAddon reports whether the add-on is already part of the selection.
func (s *Selection) HasAddon(id string) bool {
	for _, a := range s.AddonIDs {
		if a == id {
			return true
		}
	}
	return false
}

// SessionPatch carries the fields to overwrite; nil fields are left alone.
type SessionPatch struct {
	State    *State
	Cart     *[]CartLine
	Checkout *CheckoutState
}

// Empty reports whether the patch has nothing to write.
func (p SessionPatch) Empty() bool {
	return p.State == nil && p.Cart == nil && p.Checkout == nil
}

// IsReset reports whether the patch sets every field to its cleared value.
func (p SessionPatch) IsReset() bool {
	return p.State != nil && *p.State == StateMenu &&
		p.Cart != nil && len(*p.Cart) == 0 &&
		p.Checkout != nil && p.Checkout.IsZero()
}

// Apply merges the patch into s.
func (p SessionPatch) Apply(s *Session) {
	if p.State != nil {
		s.State = *p.State
	}
	if p.Cart != nil {
		s.Cart = *p.Cart
	}
	if p.Checkout != nil {
		s.Checkout = *p.Checkout
	}
}

// Subtotal sums the line totals.
func Subtotal(lines []CartLine) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.LineTotal()
	}
	return sum
}
