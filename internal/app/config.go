package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage       string `default:"postgres" usage:"Storage backend: postgres or memory" flag:"storage"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL  string `default:"" usage:"Base URL for relative product image paths" flag:"image-base-url"`
	SecureCookies bool   `default:"false" usage:"Mark the cart session cookie Secure" flag:"secure-cookies"`
	Payment       PaymentConfig
	Auth          AuthConfig
	Cart          CartConfig
	Realtime      RealtimeConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// PaymentConfig points at the mobile-money prompt endpoint.
type PaymentConfig struct {
	URL     string        `usage:"Payment initiation endpoint (SHOP_PAYMENT_URL)" flag:"payment-url"`
	Timeout time.Duration `default:"15s" usage:"Payment request timeout" flag:"payment-timeout"`
}

// AuthConfig controls sessions and password hashing.
type AuthConfig struct {
	Pepper        string        `usage:"HMAC pepper for session token hashing (SHOP_AUTH_PEPPER)" flag:"auth-pepper"`
	SessionTTL    time.Duration `default:"168h" usage:"Session lifetime" flag:"session-ttl"`
	BcryptCost    int           `default:"10" usage:"bcrypt cost for password hashes" flag:"bcrypt-cost"`
	PurgeInterval time.Duration `default:"1h" usage:"How often expired sessions are deleted" flag:"session-purge-interval"`
}

// CartConfig controls the in-memory cart registry.
type CartConfig struct {
	SweepInterval time.Duration `default:"5m" usage:"How often idle carts are dropped from memory" flag:"cart-sweep-interval"`
	IdleTTL       time.Duration `default:"30m" usage:"Idle time after which a cart leaves memory" flag:"cart-idle-ttl"`
}

// RealtimeConfig controls change-event fan-out.
type RealtimeConfig struct {
	Buffer int `default:"16" usage:"Per-subscriber event buffer" flag:"realtime-buffer"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"20" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	Paths  []string      `default:"/api/auth/" usage:"Path prefixes subject to rate limiting"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (cart cookie, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// flags, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	base.EnvPrefix = "SHOP"
	if base.Files == nil {
		base.Files = []string{"config.yaml", "/etc/shop/config.yaml"}
	}
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SHOP_-prefixed configuration.
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

func (c *Config) validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q: use %q or %q", c.Storage, StoragePostgres, StorageMemory)
	}
	if c.Payment.URL == "" {
		return errors.New("payment URL is required: set SHOP_PAYMENT_URL")
	}
	if c.Auth.Pepper == "" {
		return errors.New("auth pepper is required: set SHOP_AUTH_PEPPER")
	}
	return nil
}
