// internal/config/config.go
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Ledger      LedgerConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig
	Seed        SeedConfig
}

type ServerConfig struct {
	Port         string   `env:"SERVER_PORT" envDefault:"8080"`
	Host         string   `env:"SERVER_HOST" envDefault:"localhost"`
	ReadTimeout  int      `env:"SERVER_READ_TIMEOUT" envDefault:"15"`
	WriteTimeout int      `env:"SERVER_WRITE_TIMEOUT" envDefault:"15"`
	IdleTimeout  int      `env:"SERVER_IDLE_TIMEOUT" envDefault:"60"`
	AllowOrigins []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`
}

type DatabaseConfig struct {
	Host         string `env:"DB_HOST" envDefault:"localhost"`
	Port         string `env:"DB_PORT" envDefault:"5432"`
	User         string `env:"DB_USER" envDefault:"postgres"`
	Password     string `env:"DB_PASSWORD"`
	Database     string `env:"DB_NAME" envDefault:"iprx"`
	SSLMode      string `env:"DB_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	MaxLifetime  int    `env:"DB_MAX_LIFETIME" envDefault:"300"`
	LogLevel     string `env:"DB_LOG_LEVEL" envDefault:"silent"`
}

type JWTConfig struct {
	SecretKey      string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`
	AccessTokenTTL int    `env:"JWT_ACCESS_TTL" envDefault:"24"`      // in hours
	ChallengeTTL   int    `env:"AUTH_CHALLENGE_TTL" envDefault:"300"` // in seconds
}

// LedgerConfig governs the order ledger. Any number of server replicas may
// share one Postgres database: units of work serialise on an advisory lock
// there. The SQLite store is for a single process only.
type LedgerConfig struct {
	OwnerAddress  string `env:"IPRX_OWNER_ADDRESS"`
	MaxOrderBytes int    `env:"IPRX_MAX_ORDER_BYTES" envDefault:"4096"`
}

// requestEnvelopeBytes covers the JSON around a hex encoded order.
const requestEnvelopeBytes = 1024

// MaxRequestBytes bounds request bodies: a hex encoded order of
// MaxOrderBytes plus its JSON envelope.
func (l LedgerConfig) MaxRequestBytes() int64 {
	return int64(2*l.MaxOrderBytes+2) + requestEnvelopeBytes
}

// Owner is the global owner allowed to create organisations and authorise
// their admins.
func (l LedgerConfig) Owner() common.Address {
	return common.HexToAddress(l.OwnerAddress)
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_ORDER_TOPIC" envDefault:"iprx.orders"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	Burst             int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	AuthPerMinute     float64 `env:"RATE_LIMIT_AUTH_PER_MINUTE" envDefault:"5"`
	AuthBurst         int     `env:"RATE_LIMIT_AUTH_BURST" envDefault:"5"`
}

// SeedConfig drives the demo network: one organisation with an admin, a
// Patent rights token and a marketplace.
type SeedConfig struct {
	Enabled            bool   `env:"SEED_DEMO_DATA" envDefault:"false"`
	AdminAddress       string `env:"SEED_ADMIN_ADDRESS"`
	MarketplaceAddress string `env:"SEED_MARKETPLACE_ADDRESS"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Ledger.OwnerAddress) {
		return fmt.Errorf("IPRX_OWNER_ADDRESS must be a hex address, got %q", c.Ledger.OwnerAddress)
	}

	if c.JWT.SecretKey == defaultJWTSecret && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Seed.Enabled {
		if !common.IsHexAddress(c.Seed.AdminAddress) || !common.IsHexAddress(c.Seed.MarketplaceAddress) {
			return fmt.Errorf("seeding requires SEED_ADMIN_ADDRESS and SEED_MARKETPLACE_ADDRESS")
		}
	}

	return nil
}
