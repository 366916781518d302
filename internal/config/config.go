package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	Provider ProviderConfig `env:",prefix=PROVIDER_"`
	MFA      MFAConfig      `env:",prefix=MFA_"`
	Session  SessionConfig  `env:",prefix=SESSION_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=60s"`
}

type PostgresConfig struct {
	Host           string `env:"HOST,default=localhost"`
	Port           string `env:"PORT,default=5432"`
	User           string `env:"USER,default=wearsync"`
	Password       string `env:"PASSWORD,default=wearsync_password"`
	DBName         string `env:"DB,default=wearsync_db"`
	SSLMode        string `env:"SSLMODE,default=disable"`
	MigrationsPath string `env:"MIGRATIONS_PATH,default=migrations"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// ProviderConfig points at the upstream wearable API.
type ProviderConfig struct {
	BaseURL        string   `env:"BASE_URL,default=https://connectapi.example.com"`
	RequestTimeout Duration `env:"REQUEST_TIMEOUT,default=30s"`
	// RequestsPerSecond paces calls against the provider, which does not
	// tolerate bursts of per-date requests for the same account.
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND,default=5"`
}

type MFAConfig struct {
	ChallengeTTL  Duration `env:"CHALLENGE_TTL,default=5m"`
	SweepInterval Duration `env:"SWEEP_INTERVAL,default=60s"`
}

type SessionConfig struct {
	// IdleTTL of 0 disables eviction: sessions live until logout or process
	// restart, matching the original lifecycle.
	IdleTTL       Duration `env:"IDLE_TTL,default=0"`
	SweepInterval Duration `env:"SWEEP_INTERVAL,default=5m"`
}

type SecurityConfig struct {
	// BundleKey seals credential bundles at rest. Must be exactly 32 bytes.
	BundleKey         string   `env:"BUNDLE_KEY,required"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,X-Session-Token"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns a migrate-compatible PostgreSQL URL
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// chacha20poly1305 needs a 256-bit key
	if len(config.Security.BundleKey) != 32 {
		return nil, fmt.Errorf("BUNDLE_KEY must be exactly 32 bytes, got %d", len(config.Security.BundleKey))
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
