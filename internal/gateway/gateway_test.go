package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	grants      int
	created     map[string]string
	failGrant   bool
	emptyCreate bool
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fields := map[string]string{}
	_ = jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			fields[key] = s
			return err
		case jx.Number:
			n, err := d.Num()
			fields[key] = n.String()
			return err
		default:
			return d.Skip()
		}
	})

	switch r.URL.Path {
	case "/token/grant":
		f.grants++
		if f.failGrant || r.Header.Get("username") != "merchant" || fields["app_key"] != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id_token":"tok-1","expires_in":3600}`))
	case "/payment/create":
		if r.Header.Get("Authorization") != "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.created = fields
		if f.emptyCreate {
			_, _ = w.Write([]byte(`{"statusCode":"2001"}`))
			return
		}
		_, _ = w.Write([]byte(`{"paymentID":"TR0011","bkashURL":"https://pay.example/TR0011"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newClient(t *testing.T, f *fakeProvider) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New("bkash", Config{
		BaseURL:     srv.URL + "/",
		Username:    "merchant",
		Password:    "pw",
		AppKey:      "key",
		AppSecret:   "secret",
		CallbackURL: "https://shop.example/payments/bkash/callback",
	}, srv.Client())
}

func TestClient_CreatePayment(t *testing.T) {
	f := &fakeProvider{}
	c := newClient(t, f)

	id, err := c.CreatePayment(context.Background(), 42, decimal.RequireFromString("380.5"))
	require.NoError(t, err)
	assert.Equal(t, "TR0011", id)
	assert.Equal(t, 1, f.grants)
	assert.Equal(t, map[string]string{
		"amount":      "380.50",
		"orderId":     "42",
		"currency":    "BDT",
		"intent":      "sale",
		"callbackURL": "https://shop.example/payments/bkash/callback",
	}, f.created)
}

func TestClient_GrantFailure(t *testing.T) {
	f := &fakeProvider{failGrant: true}
	_, err := newClient(t, f).CreatePayment(context.Background(), 1, decimal.NewFromInt(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token grant")
	assert.Nil(t, f.created)
}

func TestClient_MissingPaymentID(t *testing.T) {
	f := &fakeProvider{emptyCreate: true}
	_, err := newClient(t, f).CreatePayment(context.Background(), 1, decimal.NewFromInt(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paymentID")
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{BaseURL: "https://x", AppKey: "k"}.Enabled())
}
