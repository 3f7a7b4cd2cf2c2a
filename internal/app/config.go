package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Auth        AuthConfig
	NATS        NATSConfig
	RateLimit   RateLimitConfig
	Health      HealthConfig
	Graceful    GracefulConfig
}

// AuthConfig controls bearer token verification.
type AuthConfig struct {
	Secret string `usage:"HS512 shared secret, at least 32 bytes (STORE_AUTH_SECRET)" flag:"auth-secret"`
	Issuer string `default:"storefront" usage:"Expected token issuer, empty to skip the check"`
}

// NATSConfig controls order event publishing. Publishing is disabled when
// URL is empty.
type NATSConfig struct {
	URL     string        `default:"" usage:"NATS server URL"`
	Stream  string        `default:"ORDERS" usage:"JetStream stream for order events"`
	Subject string        `default:"orders.created" usage:"Subject for order created events"`
	Timeout time.Duration `default:"2s" usage:"Connect and publish timeout"`
}

// RateLimitConfig controls the per-user sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// HealthConfig controls background health checks.
type HealthConfig struct {
	Interval      time.Duration `default:"10s" usage:"Health check interval"`
	MaxGoroutines int           `default:"10000" usage:"Liveness goroutine limit"`
	CheckTimeout  time.Duration `default:"5s" usage:"Timeout of a single check"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/store/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if len(c.Auth.Secret) < 32 {
		return errors.New("auth secret must be at least 32 bytes: set STORE_AUTH_SECRET")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.Errorf("invalid rate limit %d per %s", c.RateLimit.Max, c.RateLimit.Window)
	}
	return nil
}

// applyPlatformDefaults maps DATABASE_URL and PORT, as set by hosting
// platforms, onto the STORE_ settings.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
