package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Chative-core-poc-v1/orderbot/pkg/metrics"
)

type Config struct {
	PageAccessToken string        `envconfig:"MESSENGER_PAGE_ACCESS_TOKEN"`
	AppSecret       string        `envconfig:"MESSENGER_APP_SECRET"`
	VerifyToken     string        `envconfig:"MESSENGER_VERIFY_TOKEN" required:"true"`
	GraphURL        string        `envconfig:"MESSENGER_GRAPH_URL" default:"https://graph.facebook.com/v19.0"`
	SendTimeout     time.Duration `envconfig:"MESSENGER_SEND_TIMEOUT" default:"10s"`
	SendRPS         float64       `envconfig:"MESSENGER_SEND_RPS" default:"20"`
	SendBurst       int           `envconfig:"MESSENGER_SEND_BURST" default:"40"`
}

// Recipient addresses one conversation identity on one page. An empty
// PageToken falls back to the configured default token.
type Recipient struct {
	PSID      string
	PageToken string
}

// Sender is what the bot needs from the gateway.
type Sender interface {
	Send(ctx context.Context, to Recipient, msg Message) error
}

// SendError is returned when the Graph API rejects a message.
type SendError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("messenger send failed (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Client posts messages to the Send API. Each Send is single-shot: failures
// are returned to the caller, never retried here.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.SendRPS > 0 {
		limit = rate.Limit(cfg.SendRPS)
	}
	burst := cfg.SendBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

func (c *Client) Send(ctx context.Context, to Recipient, msg Message) error {
	kind := string(msg.Kind())
	err := c.send(ctx, to, msg)
	if err != nil {
		metrics.MessagesSent.WithLabelValues(kind, "error").Inc()
		return err
	}
	metrics.MessagesSent.WithLabelValues(kind, "ok").Inc()
	return nil
}

func (c *Client) send(ctx context.Context, to Recipient, msg Message) error {
	if to.PSID == "" {
		return fmt.Errorf("messenger: empty recipient")
	}
	token := to.PageToken
	if token == "" {
		token = c.cfg.PageAccessToken
	}
	if token == "" {
		return fmt.Errorf("messenger: no page access token configured")
	}

	body, err := json.Marshal(toWire(to.PSID, msg.Bounded()))
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SendTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limiter: %w", err)
	}

	endpoint := strings.TrimSuffix(c.cfg.GraphURL, "/") + "/me/messages?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	sendErr := &SendError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var ge graphError
	if json.Unmarshal(raw, &ge) == nil && ge.Error.Message != "" {
		sendErr.Code = ge.Error.Code
		sendErr.Message = ge.Error.Message
	}
	return sendErr
}

var _ Sender = (*Client)(nil)
