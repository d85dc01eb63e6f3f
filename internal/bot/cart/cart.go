// Package cart holds the pure cart arithmetic and the cart-facing replies.
package cart

import (
	"sort"
	"strings"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
)

// MaxQuantity bounds a single line.
const MaxQuantity = 99

// UnitPrice is base (or discounted) price plus variation modifier plus
// every add-on.
func UnitPrice(sel model.Selection) float64 {
	return sel.BasePrice + sel.VariationPrice + sel.AddonsPrice
}

// LineFromSelection snapshots the selection into a cart line.
func LineFromSelection(sel model.Selection, qty int) model.CartLine {
	return model.CartLine{
		ItemID:        sel.ItemID,
		ItemName:      sel.ItemName,
		UnitPrice:     UnitPrice(sel),
		Quantity:      qty,
		VariationID:   sel.VariationID,
		VariationName: sel.VariationName,
		AddonIDs:      append([]string(nil), sel.AddonIDs...),
		AddonNames:    append([]string(nil), sel.AddonNames...),
	}
}

// Signature identifies lines that merge: same item, same variation and the
// same add-on set in any order.
func Signature(l model.CartLine) string {
	addons := append([]string(nil), l.AddonIDs...)
	sort.Strings(addons)
	return l.ItemID + "|" + l.VariationID + "|" + strings.Join(addons, ",")
}

// Add merges line into lines and returns a new slice. The unit price of an
// existing line is kept.
func Add(lines []model.CartLine, line model.CartLine) []model.CartLine {
	out := append([]model.CartLine(nil), lines...)
	sig := Signature(line)
	for i := range out {
		if Signature(out[i]) == sig {
			out[i].Quantity += line.Quantity
			if out[i].Quantity > MaxQuantity {
				out[i].Quantity = MaxQuantity
			}
			return out
		}
	}
	return append(out, line)
}

// Remove drops the 1-based line n.
func Remove(lines []model.CartLine, n int) ([]model.CartLine, bool) {
	if n < 1 || n > len(lines) {
		return lines, false
	}
	out := make([]model.CartLine, 0, len(lines)-1)
	out = append(out, lines[:n-1]...)
	return append(out, lines[n:]...), true
}

// Count is the total number of units.
func Count(lines []model.CartLine) int {
	var n int
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
