package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/attribution"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/repo"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/tenants"
	"github.com/Chative-core-poc-v1/orderbot/internal/core"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
)

type fakeTenants struct {
	ResolveFunc func(ctx context.Context, pageID string) (*model.Tenant, error)
}

func (f *fakeTenants) Resolve(ctx context.Context, pageID string) (*model.Tenant, error) {
	if f.ResolveFunc != nil {
		return f.ResolveFunc(ctx, pageID)
	}
	return &model.Tenant{ID: "t1", PageID: pageID}, nil
}

type fakeConversation struct {
	inputs     []model.Input
	HandleFunc func(ctx context.Context, in model.Input) error
}

func (f *fakeConversation) Handle(ctx context.Context, in model.Input) error {
	f.inputs = append(f.inputs, in)
	if f.HandleFunc != nil {
		return f.HandleFunc(ctx, in)
	}
	return nil
}

type fakeAttributor struct {
	referrals []string
	fallbacks int
}

func (f *fakeAttributor) HandleReferral(_ context.Context, _ *model.Tenant, _ string, ref string) (attribution.Decision, error) {
	f.referrals = append(f.referrals, ref)
	return attribution.Decision{Outcome: attribution.Matched}, nil
}

func (f *fakeAttributor) HandleFallback(context.Context, *model.Tenant, string) (attribution.Decision, error) {
	f.fallbacks++
	return attribution.Decision{Outcome: attribution.NoneFound}, nil
}

type fixture struct {
	mux     *http.ServeMux
	tenants *fakeTenants
	conv    *fakeConversation
	attr    *fakeAttributor
}

func newFixture(secret string) *fixture {
	f := &fixture{tenants: &fakeTenants{}, conv: &fakeConversation{}, attr: &fakeAttributor{}}
	h := New(messenger.Config{VerifyToken: "verify-me", AppSecret: secret}, Config{EventTimeout: time.Second}, f.tenants, f.conv, f.attr)
	f.mux = http.NewServeMux()
	h.RegisterRoutes(f.mux)
	return f
}

func post(mux *http.ServeMux, body string, sign func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if sign != nil {
		sign(req)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func signedWith(secret, body string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set(messenger.SignatureHeader, messenger.Sign(secret, []byte(body)))
	}
}

func TestVerify(t *testing.T) {
	f := newFixture("")
	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"hub params", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusOK, "42"},
		{"bare params", "mode=subscribe&verify_token=verify-me&challenge=abc", http.StatusOK, "abc"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=42", http.StatusForbidden, ""},
		{"missing", "", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil))
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

const textBody = `{"object":"page","entry":[{"id":"page-1","messaging":[{"sender":{"id":"u1"},"recipient":{"id":"page-1"},"message":{"mid":"m1","text":"hello"}}]}]}`

func TestSignature(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		sign   func(*http.Request)
		status int
		turns  int
	}{
		{"no secret no header", "", nil, http.StatusOK, 1},
		{"valid signature", "s3cret", signedWith("s3cret", textBody), http.StatusOK, 1},
		{"wrong secret", "s3cret", signedWith("other", textBody), http.StatusForbidden, 0},
		{"secret but no header", "s3cret", nil, http.StatusForbidden, 0},
		{"garbage header", "s3cret", func(r *http.Request) { r.Header.Set(messenger.SignatureHeader, "sha256=zz") }, http.StatusForbidden, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.secret)
			w := post(f.mux, textBody, tt.sign)
			assert.Equal(t, tt.status, w.Code)
			assert.Len(t, f.conv.inputs, tt.turns)
		})
	}
}

func TestBodyHandling(t *testing.T) {
	f := newFixture("")

	assert.Equal(t, http.StatusBadRequest, post(f.mux, "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, post(f.mux, "  \n", nil).Code)

	w := post(f.mux, "{not json", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EVENT_RECEIVED", w.Body.String())

	assert.Equal(t, http.StatusOK, post(f.mux, `{"object":"instagram","entry":[]}`, nil).Code)
	assert.Empty(t, f.conv.inputs)
}

func TestTextMessageRunsFallbackAndTurn(t *testing.T) {
	f := newFixture("")
	post(f.mux, textBody, nil)

	assert.Equal(t, 1, f.attr.fallbacks)
	require.Len(t, f.conv.inputs, 1)
	in := f.conv.inputs[0]
	assert.Equal(t, "u1", in.PSID)
	assert.Equal(t, "hello", in.Text)
	assert.Equal(t, "t1", in.Tenant.ID)
}

func TestQuickReplyAndPostbackPayloads(t *testing.T) {
	f := newFixture("")
	body := `{"object":"page","entry":[{"id":"page-1","messaging":[
		{"sender":{"id":"u1"},"message":{"text":"Burgers","quick_reply":{"payload":"CATEGORY_burgers"}}},
		{"sender":{"id":"u1"},"postback":{"title":"Checkout","payload":"CHECKOUT"}}
	]}]}`
	post(f.mux, body, nil)

	require.Len(t, f.conv.inputs, 2)
	assert.Equal(t, "CATEGORY_burgers", f.conv.inputs[0].Payload)
	assert.Equal(t, "CHECKOUT", f.conv.inputs[1].Payload)
	assert.Zero(t, f.attr.fallbacks, "payload events are not plain text")
}

func TestEchoesAreIgnored(t *testing.T) {
	f := newFixture("")
	body := `{"object":"page","entry":[{"id":"page-1","messaging":[{"sender":{"id":"page-1"},"message":{"text":"hi","is_echo":true}}]}]}`
	assert.Equal(t, http.StatusOK, post(f.mux, body, nil).Code)
	assert.Empty(t, f.conv.inputs)
	assert.Zero(t, f.attr.fallbacks)
}

func TestReferralPrecedence(t *testing.T) {
	ev := Event{
		Referral: &Referral{Ref: ""},
		Message:  &Message{Text: "hi", Referral: &Referral{Ref: "ORDER_from_message"}},
		Postback: &Postback{Referral: &Referral{Ref: "ORDER_from_postback"}},
	}
	assert.Equal(t, "ORDER_from_message", ev.Ref())

	ev.Referral = &Referral{Ref: "ORDER_top"}
	assert.Equal(t, "ORDER_top", ev.Ref())

	ev = Event{Postback: &Postback{Payload: "GET_STARTED", Referral: &Referral{Ref: "ORDER_pb"}}}
	assert.Equal(t, "ORDER_pb", ev.Ref())
	assert.Equal(t, KindPostback, ev.Kind())
}

func TestOrderReferralSkipsTurn(t *testing.T) {
	f := newFixture("")
	body := `{"object":"page","entry":[{"id":"page-1","messaging":[
		{"sender":{"id":"u1"},"postback":{"payload":"GET_STARTED","referral":{"ref":"ORDER_o1_99","source":"SHORTLINK"}}},
		{"sender":{"id":"u2"},"referral":{"ref":"PROMO_x"}}
	]}]}`
	post(f.mux, body, nil)

	assert.Equal(t, []string{"ORDER_o1_99"}, f.attr.referrals)
	assert.Empty(t, f.conv.inputs)
}

func TestUnresolvedTenantDropsEntry(t *testing.T) {
	f := newFixture("")
	f.tenants.ResolveFunc = func(_ context.Context, pageID string) (*model.Tenant, error) {
		return nil, errx.Resolution(pageID)
	}
	assert.Equal(t, http.StatusOK, post(f.mux, textBody, nil).Code)
	assert.Empty(t, f.conv.inputs)
}

func TestTurnFailureStillAcknowledges(t *testing.T) {
	f := newFixture("")
	f.conv.HandleFunc = func(context.Context, model.Input) error { return errors.New("redis down") }
	w := post(f.mux, textBody, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.conv.inputs, 1)
}

func TestReferralDeliveredOnceAcrossRedelivery(t *testing.T) {
	store := repo.NewMemoryStore()
	store.AddTenant(model.Tenant{ID: "t1", PageID: "page-1", PageToken: "tok", Active: true})
	store.PutOrder(model.Order{
		ID: "abc123", TenantID: "t1", Number: "1042", CreatedAt: time.Now().Add(-time.Hour),
		Items: []model.CartLine{{ItemName: "Cola", UnitPrice: 2, Quantity: 1}},
	})
	rec := &messenger.Recorder{}
	conv := &fakeConversation{}
	attr := attribution.NewResolver(store, rec, model.AttributionConfig{}, model.ConversationConfig{DefaultCurrency: "USD", DefaultLocale: "en-US"})
	h := New(messenger.Config{VerifyToken: "v", AppSecret: "s"}, Config{},
		tenants.NewResolver(store, model.TenantConfig{}, core.Testing), conv, attr)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	body := `{"object":"page","entry":[{"id":"page-1","time":1690000000,"messaging":[{"sender":{"id":"u9"},"recipient":{"id":"page-1"},"timestamp":1690000000,"referral":{"ref":"ORDER_abc123_1690000000","source":"SHORTLINK","type":"OPEN_THREAD"}}]}]}`

	w := post(mux, body, signedWith("s", body))
	require.Equal(t, http.StatusOK, w.Code)
	sent := rec.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "u9", sent[0].To.PSID)
	assert.Contains(t, sent[0].Message.Text, "Order #1042 confirmed")

	o, err := store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, o.Delivered())
	assert.Equal(t, "u9", o.CustomerData[model.MarkerPSID])

	w = post(mux, body, signedWith("s", body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, rec.Sent(), 1)
	assert.Empty(t, conv.inputs)
}
