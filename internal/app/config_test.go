package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:        defaultAddr,
		DatabaseURL: "postgres://localhost/store",
		Auth:        AuthConfig{Secret: strings.Repeat("s", 32)},
		RateLimit:   RateLimitConfig{Max: 10, Window: time.Minute},
	}
}

func TestApplyPlatformDefaults(t *testing.T) {
	env := map[string]string{"DATABASE_URL": "postgres://platform/db", "PORT": "9000"}

	cfg := Config{Addr: defaultAddr}
	cfg.applyPlatformDefaults(func(k string) string { return env[k] })
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)

	cfg = Config{Addr: "127.0.0.1:1234", DatabaseURL: "postgres://explicit/db"}
	cfg.applyPlatformDefaults(func(k string) string { return env[k] })
	assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:1234", cfg.Addr)
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	for name, mutate := range map[string]func(*Config){
		"no database":  func(c *Config) { c.DatabaseURL = "" },
		"short secret": func(c *Config) { c.Auth.Secret = "short" },
		"no limit":     func(c *Config) { c.RateLimit.Max = 0 },
		"no window":    func(c *Config) { c.RateLimit.Window = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_DATABASE_URL", "postgres://env/db")
	t.Setenv("STORE_AUTH_SECRET", strings.Repeat("k", 40))
	t.Setenv("STORE_NATS_URL", "nats://localhost:4222")
	t.Setenv("STORE_RATE_LIMIT_MAX", "5")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, "orders.created", cfg.NATS.Subject)
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "storefront", cfg.Auth.Issuer)
}
