// Package checkout drives a non-empty cart to a created order: order type,
// customer form, optional delivery quote, payment, confirmation.
package checkout

import (
	"context"
	"fmt"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/cart"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/command"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/render"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
	"github.com/Chative-core-poc-v1/orderbot/pkg/metrics"
)

const (
	msgRetry     = "Sorry, we couldn't place your order right now. Your cart is saved, please try again in a moment."
	msgNoPayment = "No payment method is set up for this order type. The restaurant will contact you about payment."
	msgNoQuote   = "We couldn't calculate the delivery fee. The restaurant will confirm it with you."
)

type Orchestrator struct {
	catalog model.CatalogRepository
	orders  model.OrderCreator
	quoter  model.DeliveryQuoter
	cart    *cart.Builder
}

// NewOrchestrator builds the checkout flow. quoter may be nil.
func NewOrchestrator(catalog model.CatalogRepository, orders model.OrderCreator, quoter model.DeliveryQuoter, cb *cart.Builder) *Orchestrator {
	return &Orchestrator{catalog: catalog, orders: orders, quoter: quoter, cart: cb}
}

// Start begins checkout from a fresh CheckoutState.
func (o *Orchestrator) Start(ctx context.Context, t *model.Turn) error {
	if len(t.Session.Cart) == 0 {
		o.cart.ShowCart(t)
		return nil
	}
	t.ResetCheckout()
	return o.promptOrderType(ctx, t)
}

func (o *Orchestrator) promptOrderType(ctx context.Context, t *model.Turn) error {
	types, err := o.catalog.OrderTypes(ctx, t.TenantID())
	if err != nil {
		return fmt.Errorf("load order types: %w", err)
	}
	if len(types) == 0 {
		t.Reply(messenger.Text("Online ordering is not available right now."))
		o.cart.ShowCart(t)
		return nil
	}
	opts := make([]messenger.QuickReply, 0, len(types))
	for _, ot := range types {
		opts = append(opts, messenger.Option(ot.Name, command.OrderType(ot.ID)))
	}
	t.Reply(messenger.QuickReplies("How would you like to receive your order?", opts...))
	t.Transition(model.StateCheckoutOrderType)
	return nil
}

// SelectOrderType snapshots the order type and its form, then moves on.
func (o *Orchestrator) SelectOrderType(ctx context.Context, t *model.Turn, orderTypeID string) error {
	if len(t.Session.Cart) == 0 {
		o.cart.ShowCart(t)
		return nil
	}
	types, err := o.catalog.OrderTypes(ctx, t.TenantID())
	if err != nil {
		return fmt.Errorf("load order types: %w", err)
	}
	var chosen *model.OrderType
	for i := range types {
		if types[i].ID == orderTypeID {
			chosen = &types[i]
			break
		}
	}
	if chosen == nil {
		t.Reply(messenger.Text("That option is not available anymore."))
		return o.promptOrderType(ctx, t)
	}

	fields, err := o.catalog.FormFields(ctx, chosen.ID)
	if err != nil {
		return fmt.Errorf("load form fields: %w", err)
	}
	t.ResetCheckout()
	t.Session.Checkout.OrderType = &model.OrderTypeSnapshot{
		ID:               chosen.ID,
		Name:             chosen.Name,
		RequiresDelivery: chosen.RequiresDelivery,
		Fields:           fields,
	}
	t.Session.Checkout.CustomerData = map[string]string{}
	return o.advance(ctx, t)
}

// FormInput stores free text against the field currently being asked.
func (o *Orchestrator) FormInput(ctx context.Context, t *model.Turn, text string) error {
	co := &t.Session.Checkout
	field, ok := co.OrderType.NextField(co.CustomerData)
	if !ok {
		return o.advance(ctx, t)
	}
	v, err := ValidateField(field, text)
	if err != nil {
		logx.Debug().Str("psid", t.PSID).Str("field", field.Key).Err(err).Msg("form value rejected")
		t.Reply(messenger.Text(fieldHint(field)))
		o.promptField(t, field)
		return nil
	}
	if co.CustomerData == nil {
		co.CustomerData = map[string]string{}
	}
	co.CustomerData[field.Key] = v
	t.SaveCheckout()
	return o.advance(ctx, t)
}

// advance prompts the next missing piece of checkout.
func (o *Orchestrator) advance(ctx context.Context, t *model.Turn) error {
	co := &t.Session.Checkout
	if co.OrderType == nil {
		return o.promptOrderType(ctx, t)
	}
	if field, ok := co.OrderType.NextField(co.CustomerData); ok {
		o.promptField(t, field)
		return nil
	}
	if co.OrderType.RequiresDelivery && co.Delivery == nil && o.quoter != nil {
		o.quote(ctx, t)
	}
	if co.Payment == nil {
		return o.promptPayment(ctx, t)
	}
	o.promptConfirm(t)
	return nil
}

func (o *Orchestrator) promptField(t *model.Turn, f model.FormField) {
	label := f.Label
	if label == "" {
		label = f.Key
	}
	text := "Please enter your " + label + "."
	if !f.Required {
		text = "Please enter your " + label + " (optional, send - to skip)."
	}
	t.Reply(messenger.Text(text))
	t.Transition(model.StateCheckoutCustomer)
}

// quote asks for a delivery fee. Failure is reported and checkout continues
// without a fee.
func (o *Orchestrator) quote(ctx context.Context, t *model.Turn) {
	co := &t.Session.Checkout
	q, err := o.quoter.Quote(ctx, model.QuoteRequest{
		TenantID: t.TenantID(),
		Form:     co.CustomerData,
		Subtotal: model.Subtotal(t.Session.Cart),
	})
	if err != nil {
		logx.Warn().Err(err).Str("psid", t.PSID).Msg("delivery quote failed")
		t.Reply(messenger.Text(msgNoQuote))
		return
	}
	co.Delivery = &q
	t.SaveCheckout()
	t.Reply(messenger.Text("Delivery fee: " + o.cart.Formatter(t).Money(q.Fee)))
}

func (o *Orchestrator) promptPayment(ctx context.Context, t *model.Turn) error {
	co := &t.Session.Checkout
	methods, err := o.catalog.PaymentMethods(ctx, t.TenantID(), co.OrderType.ID)
	if err != nil {
		return fmt.Errorf("load payment methods: %w", err)
	}
	switch len(methods) {
	case 0:
		logx.Warn().Str("tenant_id", t.TenantID()).Str("order_type", co.OrderType.ID).Msg("no active payment method")
		t.Reply(messenger.Text(msgNoPayment))
		o.promptConfirm(t)
	case 1:
		o.choosePayment(t, methods[0])
		o.promptConfirm(t)
	default:
		opts := make([]messenger.QuickReply, 0, len(methods))
		for _, m := range methods {
			opts = append(opts, messenger.Option(m.Name, command.PaymentMethod(m.ID)))
		}
		t.Reply(messenger.QuickReplies("How would you like to pay?", opts...))
		t.Transition(model.StateCheckoutPayment)
	}
	return nil
}

func (o *Orchestrator) SelectPayment(ctx context.Context, t *model.Turn, methodID string) error {
	co := &t.Session.Checkout
	if len(t.Session.Cart) == 0 || co.OrderType == nil {
		return o.Start(ctx, t)
	}
	methods, err := o.catalog.PaymentMethods(ctx, t.TenantID(), co.OrderType.ID)
	if err != nil {
		return fmt.Errorf("load payment methods: %w", err)
	}
	for _, m := range methods {
		if m.ID == methodID {
			o.choosePayment(t, m)
			return o.advance(ctx, t)
		}
	}
	t.Reply(messenger.Text("That payment method is not available anymore."))
	return o.promptPayment(ctx, t)
}

func (o *Orchestrator) choosePayment(t *model.Turn, m model.PaymentMethod) {
	t.Session.Checkout.Payment = &model.PaymentSnapshot{ID: m.ID, Name: m.Name, Details: m.Details, QRImage: m.QRImage}
	t.SaveCheckout()

	text := "Payment: " + m.Name
	if m.Details != "" {
		text += "\n" + m.Details
	}
	t.Reply(messenger.Text(text))
	if messenger.IsAbsoluteHTTPURL(m.QRImage) {
		t.Reply(messenger.Image(m.QRImage))
	}
}

func (o *Orchestrator) promptConfirm(t *model.Turn) {
	f := o.cart.Formatter(t)
	t.Reply(
		messenger.Text(render.Confirmation(f, t.Session.Cart, t.Session.Checkout)),
		messenger.ButtonTemplate("Place this order?",
			messenger.Postback("Confirm order", command.PayloadConfirmOrder),
			messenger.Postback("Cancel", command.PayloadCancelCheckout),
		),
	)
	t.Transition(model.StateCheckoutConfirm)
}

// Confirm creates the order. A business failure shows its message and a
// transport failure a generic retry; the cart survives both.
func (o *Orchestrator) Confirm(ctx context.Context, t *model.Turn) error {
	co := t.Session.Checkout
	if len(t.Session.Cart) == 0 {
		o.cart.ShowCart(t)
		return nil
	}
	if co.OrderType == nil {
		return o.Start(ctx, t)
	}
	if _, pending := co.OrderType.NextField(co.CustomerData); pending {
		return o.advance(ctx, t)
	}
	if co.Payment == nil {
		methods, err := o.catalog.PaymentMethods(ctx, t.TenantID(), co.OrderType.ID)
		if err != nil {
			return fmt.Errorf("load payment methods: %w", err)
		}
		if len(methods) > 0 {
			logx.Debug().Str("psid", t.PSID).Msg("confirm before payment selection")
			return o.promptPayment(ctx, t)
		}
	}

	name, contact := customerIdentity(co.CustomerData, t.PSID)
	req := model.CreateOrderRequest{
		TenantID:        t.TenantID(),
		PSID:            t.PSID,
		Lines:           t.Session.Cart,
		CustomerName:    name,
		CustomerContact: contact,
		OrderTypeID:     co.OrderType.ID,
		OrderTypeName:   co.OrderType.Name,
		Form:            co.CustomerData,
	}
	if co.Delivery != nil {
		fee := co.Delivery.Fee
		req.DeliveryFee = &fee
		req.QuoteID = co.Delivery.QuoteID
	}
	if co.Payment != nil {
		req.PaymentID = co.Payment.ID
		req.PaymentName = co.Payment.Name
		req.PaymentDetails = co.Payment.Details
		req.PaymentQR = co.Payment.QRImage
	}

	res, err := o.orders.CreateOrder(ctx, req)
	if err != nil {
		metrics.OrdersCreated.WithLabelValues("error").Inc()
		logx.Error().Err(err).Str("psid", t.PSID).Str("tenant_id", t.TenantID()).Msg("order creation failed")
		t.Reply(messenger.ButtonTemplate(msgRetry,
			messenger.Postback("Try again", command.PayloadConfirmOrder),
			messenger.Postback("View cart", command.PayloadViewCart),
		))
		t.Transition(model.StateCheckoutConfirm)
		return nil
	}
	if !res.Success {
		metrics.OrdersCreated.WithLabelValues("rejected").Inc()
		logx.Info().Str("psid", t.PSID).Str("reason", res.Error).Msg("order rejected")
		msg := res.Error
		if msg == "" {
			msg = "Your order could not be placed."
		}
		t.Reply(messenger.QuickReplies(msg,
			messenger.Option("View cart", command.PayloadViewCart),
			messenger.Option("Menu", command.PayloadMenu),
		))
		t.Transition(model.StateCart)
		return nil
	}

	metrics.OrdersCreated.WithLabelValues("ok").Inc()
	logx.Info().Str("psid", t.PSID).Str("order_id", res.OrderID).Msg("order created")
	t.SetCart([]model.CartLine{})
	t.Transition(model.StateOrderConfirmed)
	t.Reply(messenger.QuickReplies(render.OrderPlaced(res.Number),
		messenger.Option("New order", command.PayloadMenu)))
	return nil
}

// Cancel drops checkout progress and returns to the cart.
func (o *Orchestrator) Cancel(ctx context.Context, t *model.Turn) error {
	t.ResetCheckout()
	t.Reply(messenger.Text("Checkout cancelled."))
	o.cart.ShowCart(t)
	return nil
}
