package render

import (
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
)

// LineLabel is "Burger (Large, + Cheese, + Bacon)".
func LineLabel(l model.CartLine) string {
	var mods []string
	if l.VariationName != "" {
		mods = append(mods, l.VariationName)
	}
	for _, a := range l.AddonNames {
		mods = append(mods, "+ "+a)
	}
	if len(mods) == 0 {
		return l.ItemName
	}
	return fmt.Sprintf("%s (%s)", l.ItemName, strings.Join(mods, ", "))
}

func writeLines(b *strings.Builder, f Formatter, lines []model.CartLine) {
	for i, l := range lines {
		fmt.Fprintf(b, "%d. %d x %s - %s\n", i+1, l.Quantity, LineLabel(l), f.Money(l.LineTotal()))
		if l.Note != "" {
			fmt.Fprintf(b, "   Note: %s\n", l.Note)
		}
	}
}

// Cart renders the numbered cart lines and the subtotal.
func Cart(f Formatter, lines []model.CartLine) string {
	if len(lines) == 0 {
		return "Your cart is empty."
	}
	var b strings.Builder
	b.WriteString("Your cart:\n")
	writeLines(&b, f, lines)
	fmt.Fprintf(&b, "Subtotal: %s", f.Money(model.Subtotal(lines)))
	return b.String()
}

// Confirmation renders the pre-order review shown before CONFIRM_ORDER.
func Confirmation(f Formatter, lines []model.CartLine, co model.CheckoutState) string {
	var b strings.Builder
	b.WriteString("Please review your order:\n")
	writeLines(&b, f, lines)

	subtotal := model.Subtotal(lines)
	fmt.Fprintf(&b, "Subtotal: %s\n", f.Money(subtotal))
	total := subtotal
	if co.Delivery != nil {
		fmt.Fprintf(&b, "Delivery fee: %s\n", f.Money(co.Delivery.Fee))
		total += co.Delivery.Fee
	}
	fmt.Fprintf(&b, "Total: %s\n", f.Money(total))

	if co.OrderType != nil {
		fmt.Fprintf(&b, "Order type: %s\n", co.OrderType.Name)
		for _, fld := range co.OrderType.Fields {
			if v := co.CustomerData[fld.Key]; v != "" {
				fmt.Fprintf(&b, "%s: %s\n", fld.Label, v)
			}
		}
	}
	if co.Payment != nil {
		fmt.Fprintf(&b, "Payment: %s", co.Payment.Name)
	} else {
		b.WriteString("Payment: to be arranged")
	}
	return b.String()
}

// OrderPlaced is the reply after a successful checkout.
func OrderPlaced(number string) string {
	if number == "" {
		return "Thank you! Your order has been placed."
	}
	return fmt.Sprintf("Thank you! Your order #%s has been placed.", number)
}

// OrderReceipt is the confirmation delivered by the attribution resolver.
func OrderReceipt(f Formatter, o model.Order) string {
	var b strings.Builder
	ref := o.Number
	if ref == "" {
		ref = o.ID
	}
	fmt.Fprintf(&b, "Order #%s confirmed", ref)
	if o.OrderTypeName != "" {
		fmt.Fprintf(&b, " (%s)", o.OrderTypeName)
	}
	b.WriteString("\n")
	writeLines(&b, f, o.Items)
	if o.DeliveryFee > 0 {
		fmt.Fprintf(&b, "Delivery fee: %s\n", f.Money(o.DeliveryFee))
	}
	total := o.Total
	if total == 0 {
		total = model.Subtotal(o.Items) + o.DeliveryFee
	}
	fmt.Fprintf(&b, "Total: %s", f.Money(total))
	if o.PaymentName != "" {
		fmt.Fprintf(&b, "\nPayment: %s", o.PaymentName)
	}
	return b.String()
}
