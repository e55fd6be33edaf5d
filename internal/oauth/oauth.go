// Package oauth implements auth.OAuthProvider for Google and Facebook.
package oauth

import (
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/MabsRahman/bamboo-shop-api/internal/domain/auth"
)

// ClientConfig is the OAuth application registered with a provider.
type ClientConfig struct {
	ClientID     string `usage:"OAuth client id"`
	ClientSecret string `usage:"OAuth client secret"`
	RedirectURL  string `usage:"callback URL registered with the provider"`
}

// Enabled reports whether the application is configured.
func (c ClientConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

var _ auth.OAuthProvider = (*Provider)(nil)

// Provider exchanges authorization codes and reads the user's email and name
// from a userinfo endpoint.
type Provider struct {
	conf        *oauth2.Config
	userInfoURL string
}

// New creates a Provider for any OAuth2 endpoint whose userinfo response
// carries top level "email" and "name" fields.
func New(cfg ClientConfig, endpoint oauth2.Endpoint, userInfoURL string, scopes ...string) *Provider {
	return &Provider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
	}
}

// Google returns the Google provider.
func Google(cfg ClientConfig) *Provider {
	return New(cfg, endpoints.Google, "https://openidconnect.googleapis.com/v1/userinfo", "openid", "email", "profile")
}

// Facebook returns the Facebook provider.
func Facebook(cfg ClientConfig) *Provider {
	return New(cfg, endpoints.Facebook, "https://graph.facebook.com/me?fields=id,name,email", "email")
}

// AuthCodeURL returns the consent page URL.
func (p *Provider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

// ExchangeProfile trades code for a token and fetches the profile.
func (p *Provider) ExchangeProfile(ctx context.Context, code string) (auth.Profile, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return auth.Profile{}, errors.Wrap(err, "exchange code")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, http.NoBody)
	if err != nil {
		return auth.Profile{}, errors.Wrap(err, "build userinfo request")
	}
	resp, err := p.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return auth.Profile{}, errors.Wrap(err, "fetch userinfo")
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return auth.Profile{}, errors.Wrap(err, "read userinfo")
	}
	if resp.StatusCode != http.StatusOK {
		return auth.Profile{}, errors.Errorf("userinfo returned %d", resp.StatusCode)
	}
	return parseProfile(body)
}

func parseProfile(body []byte) (auth.Profile, error) {
	var p auth.Profile
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "email":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s, err := d.Str()
			p.Email = s
			return err
		case "name":
			s, err := d.Str()
			p.Name = s
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return auth.Profile{}, errors.Wrap(err, "decode userinfo")
	}
	return p, nil
}
