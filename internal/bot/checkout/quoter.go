package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
)

// FlatQuoter charges the same delivery fee for every order.
type FlatQuoter struct {
	Fee float64
}

func (q FlatQuoter) Quote(_ context.Context, _ model.QuoteRequest) (model.DeliveryQuote, error) {
	return model.DeliveryQuote{Fee: q.Fee, QuoteID: "flat-" + uuid.NewString()}, nil
}

var _ model.DeliveryQuoter = FlatQuoter{}
