package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/MabsRahman/bamboo-shop-api/internal/gateway"
	"github.com/MabsRahman/bamboo-shop-api/internal/notify"
	"github.com/MabsRahman/bamboo-shop-api/internal/oauth"
	"github.com/MabsRahman/bamboo-shop-api/pkg/httpmiddleware"
)

// Config holds the complete application configuration, loadable from
// environment variables (BAMBOO_ prefix), a .env file, flags, or YAML config
// files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (BAMBOO_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	AppURL      string `default:"http://localhost:3000" usage:"Public frontend URL used in email links" flag:"app-url"`

	JWT            JWTConfig
	Cookie         CookieConfig
	RateLimit      RateLimitConfig
	CORS           CORSConfig
	Graceful       GracefulConfig
	SMTP           notify.SMTPConfig
	Bkash          gateway.Config
	Nagad          gateway.Config
	CallbackSecret string `usage:"HMAC secret for payment callback signatures; empty disables the check" flag:"callback-secret"`
	OAuth          OAuthConfig
	Jobs           JobsConfig
}

// JWTConfig controls access token signing.
type JWTConfig struct {
	Secret string        `usage:"HS256 signing secret (BAMBOO_JWT_SECRET)"`
	TTL    time.Duration `default:"1h" usage:"Access token lifetime"`
}

// CookieConfig controls the refresh token cookie.
type CookieConfig struct {
	Name   string        `default:"refreshToken" usage:"Refresh cookie name"`
	TTL    time.Duration `default:"720h" usage:"Refresh cookie lifetime"`
	Secure bool          `default:"false" usage:"Mark cookies Secure (enable in production)" flag:"secure-cookies"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	// TrustedProxies lists proxy addresses or CIDR prefixes whose forwarding
	// headers name the client. Empty means the direct peer is the client.
	TrustedProxies []string `usage:"Proxies allowed to set X-Forwarded-For, as IPs or CIDRs" flag:"trusted-proxies"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// OAuthConfig holds the social login applications. An application without
// credentials is not offered.
type OAuthConfig struct {
	Google   oauth.ClientConfig
	Facebook oauth.ClientConfig
}

// JobsConfig controls the background loops of the API server.
type JobsConfig struct {
	ReminderInterval time.Duration `default:"1h" usage:"Cart reminder interval; 0 disables the loop" flag:"reminder-interval"`
	RevocationReload time.Duration `default:"1m" usage:"How often the token revocation filter is rebuilt" flag:"revocation-reload"`
	VisitorBuffer    int           `default:"1024" usage:"Pending visitor log entries before new ones are dropped" flag:"visitor-buffer"`
}

// LoadConfig loads configuration from an optional .env file, environment
// variables, YAML config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BAMBOO",
		Files:     []string{"config.yaml", "/etc/bamboo/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set BAMBOO_DATABASE_URL or DATABASE_URL")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is required: set BAMBOO_JWT_SECRET")
	}
	if _, err := httpmiddleware.NewClientIPResolver(c.RateLimit.TrustedProxies); err != nil {
		return err
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's BAMBOO_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
