package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/auth"
)

func newTestProvider(t *testing.T, userinfo string) *Provider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(userinfo))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(ClientConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "https://shop.example/auth/test/callback"},
		oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		srv.URL+"/userinfo", "email")
}

func TestProvider_ExchangeProfile(t *testing.T) {
	p := newTestProvider(t, `{"sub":"1","email":"rahim@example.com","name":"Rahim","picture":"x"}`)

	got, err := p.ExchangeProfile(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, auth.Profile{Email: "rahim@example.com", Name: "Rahim"}, got)

	_, err = p.ExchangeProfile(context.Background(), "bad")
	assert.Error(t, err)
}

func TestProvider_NullEmail(t *testing.T) {
	p := newTestProvider(t, `{"id":"1","name":"No Mail","email":null}`)
	got, err := p.ExchangeProfile(context.Background(), "good")
	require.NoError(t, err)
	assert.Empty(t, got.Email)
	assert.Equal(t, "No Mail", got.Name)
}

func TestProvider_AuthCodeURL(t *testing.T) {
	p := newTestProvider(t, `{}`)
	u, err := url.Parse(p.AuthCodeURL("state-1"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "id", q.Get("client_id"))
	assert.Equal(t, "email", q.Get("scope"))
}

func TestConfigs(t *testing.T) {
	assert.False(t, ClientConfig{}.Enabled())
	assert.Contains(t, Google(ClientConfig{ClientID: "g"}).AuthCodeURL("s"), "accounts.google.com")
	assert.Contains(t, Facebook(ClientConfig{ClientID: "f"}).AuthCodeURL("s"), "facebook.com")
}
