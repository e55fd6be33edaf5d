// Package gateway talks to the bKash and Nagad tokenized checkout APIs.
//
// Both providers follow the same two step flow: a credential exchange at
// /token/grant returns an id_token, which authorizes /payment/create.
package gateway

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/payment"
)

// Config holds provider credentials.
type Config struct {
	BaseURL     string `usage:"provider API base URL"`
	Username    string `usage:"merchant username"`
	Password    string `usage:"merchant password"`
	AppKey      string `usage:"application key"`
	AppSecret   string `usage:"application secret"`
	CallbackURL string `usage:"URL the provider posts payment results to"`
}

// Enabled reports whether the provider is configured.
func (c Config) Enabled() bool {
	return c.BaseURL != "" && c.AppKey != ""
}

var _ payment.Gateway = (*Client)(nil)

// Client is a payment.Gateway for one provider.
type Client struct {
	name string
	cfg  Config
	http *http.Client
}

// New creates a Client. A nil httpClient gets a traced client with a
// 15 second timeout.
func New(name string, cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{name: name, cfg: cfg, http: httpClient}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// CreatePayment obtains a token and creates a sale for the order. It returns
// the provider's paymentID.
func (c *Client) CreatePayment(ctx context.Context, orderID int64, amount decimal.Decimal) (string, error) {
	token, err := c.grantToken(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "%s token grant", c.name)
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { e.Str(amount.StringFixed(2)) })
		e.Field("orderId", func(e *jx.Encoder) { e.Int64(orderID) })
		e.Field("currency", func(e *jx.Encoder) { e.Str("BDT") })
		e.Field("intent", func(e *jx.Encoder) { e.Str("sale") })
		if c.cfg.CallbackURL != "" {
			e.Field("callbackURL", func(e *jx.Encoder) { e.Str(c.cfg.CallbackURL) })
		}
	})
	body, err := c.post(ctx, "/payment/create", e.Bytes(), map[string]string{
		"Authorization": token,
		"X-App-Key":     c.cfg.AppKey,
	})
	if err != nil {
		return "", errors.Wrapf(err, "%s create payment", c.name)
	}
	id, err := stringField(body, "paymentID")
	if err != nil {
		return "", errors.Wrapf(err, "%s create payment", c.name)
	}
	return id, nil
}

func (c *Client) grantToken(ctx context.Context) (string, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("app_key", func(e *jx.Encoder) { e.Str(c.cfg.AppKey) })
		e.Field("app_secret", func(e *jx.Encoder) { e.Str(c.cfg.AppSecret) })
	})
	body, err := c.post(ctx, "/token/grant", e.Bytes(), map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	})
	if err != nil {
		return "", err
	}
	return stringField(body, "id_token")
}

func (c *Client) post(ctx context.Context, path string, payload []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("%s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}

// stringField extracts one top level string field from a JSON object.
func stringField(body []byte, name string) (string, error) {
	var v string
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key != name {
			return d.Skip()
		}
		s, err := d.Str()
		v = s
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if v == "" {
		return "", errors.Errorf("response has no %s", name)
	}
	return v, nil
}
