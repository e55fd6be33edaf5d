package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPlatformDefaults(t *testing.T) {
	t.Run("Fallbacks", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://platform/db")
		t.Setenv("PORT", "9000")

		cfg := Config{Addr: "0.0.0.0:8080"}
		cfg.applyPlatformDefaults()
		assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
		assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	})

	t.Run("ExplicitWins", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://platform/db")
		t.Setenv("PORT", "9000")

		cfg := Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
		cfg.applyPlatformDefaults()
		assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
		assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	})
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	require.ErrorContains(t, cfg.validate(), "database URL is required")

	cfg.DatabaseURL = "postgres://localhost/bamboo"
	require.ErrorContains(t, cfg.validate(), "JWT secret is required")

	cfg.JWT.Secret = "s3cret"
	require.NoError(t, cfg.validate())

	cfg.RateLimit.TrustedProxies = []string{"10.0.0.0/8", "bogus"}
	require.ErrorContains(t, cfg.validate(), `trusted proxy "bogus"`)

	cfg.RateLimit.TrustedProxies = []string{"10.0.0.0/8", "::1"}
	require.NoError(t, cfg.validate())
}
