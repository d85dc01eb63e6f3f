// Package webhook receives Messenger platform events and hands each one to
// order attribution and the conversation router.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/attribution"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
	"github.com/Chative-core-poc-v1/orderbot/pkg/metrics"
)

// MaxBodySize limits webhook bodies to 1MB.
const MaxBodySize = 1 << 20

const eventReceived = "EVENT_RECEIVED"

type Config struct {
	EventTimeout time.Duration `envconfig:"WEBHOOK_EVENT_TIMEOUT" default:"15s"`
}

// TenantResolver maps a page id to its tenant.
type TenantResolver interface {
	Resolve(ctx context.Context, pageID string) (*model.Tenant, error)
}

// Conversation runs one turn of the ordering bot.
type Conversation interface {
	Handle(ctx context.Context, in model.Input) error
}

// Attributor delivers confirmations for orders placed outside the chat.
type Attributor interface {
	HandleReferral(ctx context.Context, tenant *model.Tenant, psid, ref string) (attribution.Decision, error)
	HandleFallback(ctx context.Context, tenant *model.Tenant, psid string) (attribution.Decision, error)
}

// Handler holds dependencies for the webhook endpoints.
type Handler struct {
	verifyToken  string
	appSecret    string
	eventTimeout time.Duration
	tenants      TenantResolver
	conversation Conversation
	attribution  Attributor
}

func New(mcfg messenger.Config, cfg Config, tenants TenantResolver, conv Conversation, attr Attributor) *Handler {
	if cfg.EventTimeout <= 0 {
		cfg.EventTimeout = 15 * time.Second
	}
	if mcfg.AppSecret == "" {
		logx.Warn().Msg("MESSENGER_APP_SECRET is not set: webhook signatures will not be verified")
	}
	return &Handler{
		verifyToken:  mcfg.VerifyToken,
		appSecret:    mcfg.AppSecret,
		eventTimeout: cfg.EventTimeout,
		tenants:      tenants,
		conversation: conv,
		attribution:  attr,
	}
}

// RegisterRoutes registers the webhook routes with the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /webhook", h.handleVerify)
	mux.HandleFunc("POST /webhook", h.handleEvents)
}

// handleVerify answers the subscription handshake. Both the hub.-prefixed
// and the bare parameter names are accepted.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := firstParam(q.Get("hub.mode"), q.Get("mode"))
	token := firstParam(q.Get("hub.verify_token"), q.Get("verify_token"))
	challenge := firstParam(q.Get("hub.challenge"), q.Get("challenge"))

	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		logx.Warn().Str("mode", mode).Msg("webhook verification rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	logx.Info().Msg("webhook verified")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, challenge)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		logx.Warn().Err(err).Msg("failed to read webhook body")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := h.verify(body, r.Header.Get(messenger.SignatureHeader)); err != nil {
		logx.Warn().Err(err).Msg("webhook signature rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		logx.Warn().Err(err).Msg("unparseable webhook body")
		h.ack(w)
		return
	}
	if payload.Object != "page" {
		logx.Debug().Str("object", payload.Object).Msg("ignoring non-page webhook")
		h.ack(w)
		return
	}

	for _, entry := range payload.Entry {
		h.processEntry(r.Context(), entry)
	}
	h.ack(w)
}

// verify checks the signature when a secret is configured. Without a secret
// a request is tolerated and logged.
func (h *Handler) verify(body []byte, header string) error {
	if h.appSecret == "" {
		if header != "" {
			logx.Debug().Msg("webhook signature present but no app secret configured")
		} else {
			logx.Debug().Msg("unsigned webhook accepted: no app secret configured")
		}
		return nil
	}
	return messenger.VerifySignature(h.appSecret, body, header)
}

func (h *Handler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, eventReceived)
}

func (h *Handler) processEntry(ctx context.Context, entry Entry) {
	if len(entry.Messaging) == 0 {
		return
	}
	tenant, err := h.tenants.Resolve(ctx, entry.ID)
	if errors.Is(err, errx.ErrResolution) {
		logx.Warn().Str("page_id", entry.ID).Int("events", len(entry.Messaging)).Msg("no tenant for page, dropping events")
		return
	}
	if err != nil {
		logx.Error().Err(err).Str("page_id", entry.ID).Msg("tenant lookup failed")
		return
	}

	for _, ev := range entry.Messaging {
		h.processEvent(ctx, tenant, ev)
	}
}

// processEvent handles one event. Failures are logged and never stop the
// remaining events of the request.
func (h *Handler) processEvent(ctx context.Context, tenant *model.Tenant, ev Event) {
	kind := ev.Kind()
	metrics.WebhookEvents.WithLabelValues(kind).Inc()

	psid := ev.Sender.ID
	if kind == KindEcho || kind == KindOther || psid == "" {
		logx.Debug().Str("kind", kind).Str("psid", psid).Msg("skipping event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.eventTimeout)
	defer cancel()

	if ref := ev.Ref(); ref != "" {
		if _, ok := attribution.ParseOrderRef(ref); ok {
			if _, err := h.attribution.HandleReferral(ctx, tenant, psid, ref); err != nil {
				logx.Error().Err(err).Str("psid", psid).Str("ref", ref).Msg("order referral failed")
			}
			return
		}
		logx.Info().Str("psid", psid).Str("ref", ref).Msg("non-order referral")
	}
	if kind == KindReferral {
		return
	}

	text, payload := ev.Text(), ev.Payload()
	if kind == KindMessage && payload == "" && ev.Ref() == "" && strings.TrimSpace(text) != "" {
		if _, err := h.attribution.HandleFallback(ctx, tenant, psid); err != nil {
			logx.Error().Err(err).Str("psid", psid).Msg("fallback attribution failed")
		}
	}
	if text == "" && payload == "" {
		logx.Debug().Str("psid", psid).Msg("message without text or payload")
		return
	}

	err := h.conversation.Handle(ctx, model.Input{Tenant: tenant, PSID: psid, Text: text, Payload: payload})
	if err != nil {
		logx.Error().Err(err).Str("psid", psid).Str("tenant_id", tenant.ID).Str("kind", kind).Msg("turn failed")
	}
}

func firstParam(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
