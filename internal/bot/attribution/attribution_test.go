package attribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/repo"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
)

func TestParseOrderRef(t *testing.T) {
	tests := []struct {
		ref    string
		want   string
		wantOK bool
	}{
		{"ORDER_abc", "abc", true},
		{"ORDER_abc_1712345678", "abc", true},
		{"ORDER_0f8fad5b-d9cb-469f", "0f8fad5b-d9cb-469f", true},
		{"ORDER_my_order", "my_order", true},
		{" ORDER_x_12 ", "x", true},
		{"ORDER_", "", false},
		{"PROMO_summer", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := ParseOrderRef(tt.ref)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fresh := func(id string, age time.Duration) model.Order {
		return model.Order{ID: id, CreatedAt: now.Add(-age), CustomerData: map[string]string{}}
	}
	sent := fresh("sent", 5*time.Second)
	sent.CustomerData[model.MarkerSentAt] = now.Format(time.RFC3339)

	tests := []struct {
		name       string
		candidates []model.Order
		want       Outcome
		wantID     string
	}{
		{"none", nil, NoneFound, ""},
		{"single", []model.Order{fresh("a", 10 * time.Second)}, Matched, "a"},
		{"two undelivered fail closed", []model.Order{fresh("a", 10 * time.Second), fresh("b", 20 * time.Second)}, Ambiguous, ""},
		{"delivered ones do not count", []model.Order{sent, fresh("b", 20 * time.Second)}, Matched, "b"},
		{"outside window", []model.Order{fresh("old", 2 * time.Minute)}, NoneFound, ""},
		{"only delivered", []model.Order{sent}, NoneFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Resolve(tt.candidates, now, time.Minute)
			assert.Equal(t, tt.want, d.Outcome)
			if tt.wantID != "" {
				require.NotNil(t, d.Order)
				assert.Equal(t, tt.wantID, d.Order.ID)
			} else {
				assert.Nil(t, d.Order)
			}
		})
	}
}

var tenant = &model.Tenant{ID: "t1", PageToken: "page-token"}

func setup(now time.Time) (*Resolver, *repo.MemoryStore, *messenger.Recorder) {
	store := repo.NewMemoryStore()
	rec := &messenger.Recorder{}
	r := NewResolver(store, rec, model.AttributionConfig{Window: time.Minute, Batch: 10}, model.ConversationConfig{DefaultCurrency: "USD", DefaultLocale: "en-US"})
	r.now = func() time.Time { return now }
	return r, store, rec
}

func order(id, tenantID string, createdAt time.Time) model.Order {
	return model.Order{
		ID: id, TenantID: tenantID, Number: "1001", CreatedAt: createdAt,
		Items: []model.CartLine{{ItemName: "Pizza", UnitPrice: 10, Quantity: 1}}, Total: 10,
	}
}

func TestReferralDeliversExactlyOnce(t *testing.T) {
	now := time.Now()
	r, store, rec := setup(now)
	store.PutOrder(order("o1", "t1", now.Add(-time.Hour)))
	ctx := context.Background()

	d, err := r.HandleReferral(ctx, tenant, "p1", "ORDER_o1_123")
	require.NoError(t, err)
	assert.Equal(t, Matched, d.Outcome)

	// Platform re-delivers the same event.
	d, err = r.HandleReferral(ctx, tenant, "p1", "ORDER_o1_123")
	require.NoError(t, err)
	assert.Equal(t, NoneFound, d.Outcome)

	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "p1", sent[0].To.PSID)
	assert.Equal(t, "page-token", sent[0].To.PageToken)
	assert.Contains(t, sent[0].Message.Text, "Order #1001 confirmed")

	o, err := store.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "p1", o.CustomerData[model.MarkerPSID])
}

func TestReferralForeignOrUnknown(t *testing.T) {
	now := time.Now()
	r, store, rec := setup(now)
	store.PutOrder(order("o2", "t2", now))
	ctx := context.Background()

	d, err := r.HandleReferral(ctx, tenant, "p1", "ORDER_o2")
	require.NoError(t, err)
	assert.Equal(t, NoneFound, d.Outcome)

	d, err = r.HandleReferral(ctx, tenant, "p1", "ORDER_missing")
	require.NoError(t, err)
	assert.Equal(t, NoneFound, d.Outcome)

	d, err = r.HandleReferral(ctx, tenant, "p1", "campaign_42")
	require.NoError(t, err)
	assert.Equal(t, NoneFound, d.Outcome)
	assert.Empty(t, rec.Sent())
}

func TestSendFailureReleasesClaim(t *testing.T) {
	now := time.Now()
	r, store, rec := setup(now)
	store.PutOrder(order("o1", "t1", now))
	ctx := context.Background()

	rec.SendFunc = func(context.Context, messenger.Recipient, messenger.Message) error {
		return errors.New("graph api down")
	}
	_, err := r.HandleReferral(ctx, tenant, "p1", "ORDER_o1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrDownstream)

	o, err := store.Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, o.Delivered(), "claim released after failed send")

	rec.SendFunc = nil
	d, err := r.HandleReferral(ctx, tenant, "p1", "ORDER_o1")
	require.NoError(t, err)
	assert.Equal(t, Matched, d.Outcome)
	assert.Len(t, rec.Sent(), 1)
}

func TestFallbackSingleCandidate(t *testing.T) {
	now := time.Now()
	r, store, rec := setup(now)
	store.PutOrder(order("o1", "t1", now.Add(-20*time.Second)))
	store.PutOrder(order("old", "t1", now.Add(-5*time.Minute)))
	store.PutOrder(order("other", "t2", now.Add(-5*time.Second)))

	d, err := r.HandleFallback(context.Background(), tenant, "p1")
	require.NoError(t, err)
	assert.Equal(t, Matched, d.Outcome)
	assert.Equal(t, "o1", d.Order.ID)
	assert.Len(t, rec.Sent(), 1)

	d, err = r.HandleFallback(context.Background(), tenant, "p1")
	require.NoError(t, err)
	assert.Equal(t, NoneFound, d.Outcome)
	assert.Len(t, rec.Sent(), 1)
}

func TestFallbackAmbiguousFailsClosed(t *testing.T) {
	now := time.Now()
	r, store, rec := setup(now)
	store.PutOrder(order("a", "t1", now.Add(-10*time.Second)))
	store.PutOrder(order("b", "t1", now.Add(-20*time.Second)))

	d, err := r.HandleFallback(context.Background(), tenant, "p1")
	require.NoError(t, err)
	assert.Equal(t, Ambiguous, d.Outcome)
	assert.Equal(t, 2, d.Candidates)
	assert.Empty(t, rec.Sent())

	for _, id := range []string{"a", "b"} {
		o, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, o.Delivered())
	}
}
