package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Session store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	JWTSecret string `env:"JWT_SECRET"`

	API     APIConfig
	Session SessionConfig
	Routes  RoutesConfig
	Payment PaymentConfig
	Audit   AuditConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

// APIConfig locates the booking backend.
type APIConfig struct {
	BaseURL   string        `env:"API_BASE_URL,   default=http://127.0.0.1:8787"`
	Timeout   time.Duration `env:"API_TIMEOUT,    default=15s"`
	RateLimit float64       `env:"API_RATE_LIMIT, default=0"`
	RateBurst int           `env:"API_RATE_BURST, default=10"`
}

type SessionConfig struct {
	Store          string        `env:"SESSION_STORE,           default=redis"`
	CookieName     string        `env:"SESSION_COOKIE,          default=cbs_session"`
	TTL            time.Duration `env:"SESSION_TTL,             default=720h"`
	Secure         bool          `env:"SESSION_SECURE,          default=false"`
	ProfileTTL     time.Duration `env:"SESSION_PROFILE_TTL,     default=5m"`
	LockTTL        time.Duration `env:"SESSION_LOCK_TTL,        default=30s"`
	ResolveTimeout time.Duration `env:"SESSION_RESOLVE_TIMEOUT, default=5s"`
}

// RoutesConfig names the navigation targets of the session state machine
// and the guards.
type RoutesConfig struct {
	Login    string `env:"ROUTE_LOGIN,    default=/login"`
	Landing  string `env:"ROUTE_LANDING,  default=/dashboard"`
	Public   string `env:"ROUTE_PUBLIC,   default=/"`
	Fallback string `env:"ROUTE_FALLBACK, default=/dashboard"`
}

type PaymentConfig struct {
	Amount        float64 `env:"PAYMENT_AMOUNT,     default=999"`
	Currency      string  `env:"PAYMENT_CURRENCY,   default=INR"`
	ReturnURLBase string  `env:"PAYMENT_RETURN_URL, default=http://localhost:8080"`
}

type AuditConfig struct {
	Enabled   bool          `env:"AUDIT_ENABLED,   default=true"`
	Workers   int           `env:"AUDIT_WORKERS,   default=4"`
	Retention time.Duration `env:"AUDIT_RETENTION, default=2160h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=consultation_web"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads a .env file when one exists, then configuration from
// environment variables using go-envconfig.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("config: failed to read .env: %v", err))
	}
	cfg, err := FromLookuper(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// FromLookuper processes configuration from l and validates it.
func FromLookuper(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Pretty reports whether logs should be human-formatted.
func (c *Config) Pretty() bool { return c.Env == "development" }

func (c *Config) validate() error {
	switch c.Session.Store {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", StoreRedis, StoreMemory, c.Session.Store)
	}
	if c.API.BaseURL == "" {
		return errors.New("API_BASE_URL must not be empty")
	}
	if c.Session.CookieName == "" {
		return errors.New("SESSION_COOKIE must not be empty")
	}
	return nil
}
