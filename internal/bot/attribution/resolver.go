package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/render"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
	"github.com/Chative-core-poc-v1/orderbot/pkg/metrics"
)

const (
	pathReferral = "referral"
	pathFallback = "fallback"
)

type Resolver struct {
	orders model.OrderRepository
	sender messenger.Sender
	cfg    model.AttributionConfig
	conv   model.ConversationConfig
	now    func() time.Time
}

func NewResolver(orders model.OrderRepository, sender messenger.Sender, cfg model.AttributionConfig, conv model.ConversationConfig) *Resolver {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 10
	}
	return &Resolver{orders: orders, sender: sender, cfg: cfg, conv: conv, now: time.Now}
}

// HandleReferral delivers the confirmation of the order named by ref.
// Unknown, foreign and already delivered orders are no-ops.
func (r *Resolver) HandleReferral(ctx context.Context, tenant *model.Tenant, psid, ref string) (Decision, error) {
	id, ok := ParseOrderRef(ref)
	if !ok {
		logx.Debug().Str("psid", psid).Str("ref", ref).Msg("referral is not an order reference")
		return Decision{Outcome: NoneFound}, nil
	}

	order, err := r.orders.Get(ctx, id)
	if errors.Is(err, errx.ErrNotFound) {
		logx.Info().Str("psid", psid).Str("order_id", id).Msg("referral order not found")
		r.record(pathReferral, string(NoneFound))
		return Decision{Outcome: NoneFound}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("load referral order: %w", err)
	}
	if order.TenantID != tenant.ID {
		logx.Warn().Str("psid", psid).Str("order_id", id).Str("tenant_id", tenant.ID).Msg("referral order belongs to another tenant")
		r.record(pathReferral, "foreign")
		return Decision{Outcome: NoneFound}, nil
	}

	// A referral names its order, so the time window does not apply.
	if order.Delivered() {
		logx.Info().Str("psid", psid).Str("order_id", id).Msg("referral order already delivered")
		r.record(pathReferral, "duplicate")
		return Decision{Outcome: NoneFound}, nil
	}
	return Decision{Outcome: Matched, Order: order, Candidates: 1}, r.deliver(ctx, pathReferral, tenant, psid, *order)
}

// HandleFallback attributes a plain message to the only undelivered order
// created in the window, if there is exactly one.
func (r *Resolver) HandleFallback(ctx context.Context, tenant *model.Tenant, psid string) (Decision, error) {
	now := r.now()
	candidates, err := r.orders.ListRecent(ctx, tenant.ID, now.Add(-r.cfg.Window), r.cfg.Batch)
	if err != nil {
		return Decision{}, fmt.Errorf("list recent orders: %w", err)
	}

	d := Resolve(candidates, now, r.cfg.Window)
	switch d.Outcome {
	case NoneFound:
		logx.Info().Str("psid", psid).Str("tenant_id", tenant.ID).Msg("no recent order to attribute")
		r.record(pathFallback, string(NoneFound))
		return d, nil
	case Ambiguous:
		logx.Warn().Str("psid", psid).Str("tenant_id", tenant.ID).Int("candidates", d.Candidates).Msg("ambiguous order attribution, not delivering")
		r.record(pathFallback, string(Ambiguous))
		return d, nil
	}
	return d, r.deliver(ctx, pathFallback, tenant, psid, *d.Order)
}

// deliver claims the marker, sends, and releases the claim if the send
// fails so a later event can retry.
func (r *Resolver) deliver(ctx context.Context, path string, tenant *model.Tenant, psid string, order model.Order) error {
	won, err := r.orders.ClaimDelivery(ctx, order.ID, psid, r.now())
	if err != nil {
		return fmt.Errorf("claim delivery: %w", err)
	}
	if !won {
		logx.Info().Str("psid", psid).Str("order_id", order.ID).Msg("order confirmation already delivered")
		r.record(path, "duplicate")
		return nil
	}

	f := render.ForTenant(tenant, r.conv.DefaultCurrency, r.conv.DefaultLocale)
	to := messenger.Recipient{PSID: psid, PageToken: tenant.PageToken}
	if err := r.sender.Send(ctx, to, messenger.Text(render.OrderReceipt(f, order))); err != nil {
		if rerr := r.orders.ReleaseDelivery(ctx, order.ID, psid); rerr != nil {
			logx.Error().Err(rerr).Str("order_id", order.ID).Msg("failed to release delivery claim")
		}
		r.record(path, "send_failed")
		return errx.Downstream("messenger", err)
	}

	logx.Info().Str("psid", psid).Str("order_id", order.ID).Str("path", path).Msg("order confirmation delivered")
	r.record(path, string(Matched))
	return nil
}

func (r *Resolver) record(path, outcome string) {
	metrics.AttributionDecisions.WithLabelValues(path, outcome).Inc()
}
