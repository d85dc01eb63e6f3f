// Package attribution links orders created outside the chat to the chat
// identity that placed them and delivers each confirmation once.
package attribution

import (
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
)

type Outcome string

const (
	Matched   Outcome = "matched"
	NoneFound Outcome = "none_found"
	Ambiguous Outcome = "ambiguous"
)

// Decision is the result of attributing one inbound event.
type Decision struct {
	Outcome Outcome
	// Order is set only when Outcome is Matched.
	Order *model.Order
	// Candidates counts the undelivered orders considered.
	Candidates int
}

// RefPrefix marks order references carried in m.me links.
const RefPrefix = "ORDER_"

// ParseOrderRef extracts the order id from "ORDER_<id>" or
// "ORDER_<id>_<digits>"; the numeric suffix is a cache-buster.
func ParseOrderRef(ref string) (string, bool) {
	id, ok := strings.CutPrefix(strings.TrimSpace(ref), RefPrefix)
	if !ok || id == "" {
		return "", false
	}
	if i := strings.LastIndexByte(id, '_'); i > 0 && isDigits(id[i+1:]) {
		id = id[:i]
	}
	return id, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Resolve decides which candidate, if any, belongs to the sender. Only
// undelivered orders created within window of now count. More than one is
// ambiguous and nothing is delivered.
func Resolve(candidates []model.Order, now time.Time, window time.Duration) Decision {
	since := now.Add(-window)
	var pending []model.Order
	for _, o := range candidates {
		if o.Delivered() || o.CreatedAt.Before(since) {
			continue
		}
		pending = append(pending, o)
	}

	switch len(pending) {
	case 0:
		return Decision{Outcome: NoneFound}
	case 1:
		o := pending[0]
		return Decision{Outcome: Matched, Order: &o, Candidates: 1}
	default:
		return Decision{Outcome: Ambiguous, Candidates: len(pending)}
	}
}
