// Package config loads portal configuration from the environment (optionally
// seeded from a .env file) and the option catalog from YAML.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StorePostgREST = "postgrest"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

// Object store backends.
const (
	ObjectStoreS3       = "s3"
	ObjectStoreSupabase = "supabase"
)

// Config is the process configuration.
type Config struct {
	HTTPAddr    string `env:"PORTAL_HTTP_ADDR,default=:8080"`
	LogLevel    string `env:"PORTAL_LOG_LEVEL,default=info"`
	LogFormat   string `env:"PORTAL_LOG_FORMAT,default=json"`
	Store       string `env:"PORTAL_STORE,default=postgrest"`
	ObjectStore string `env:"PORTAL_OBJECT_STORE,default=s3"`
	CatalogPath string `env:"PORTAL_CATALOG_PATH,default=config/catalog.yaml"`

	Supabase SupabaseConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	AWS      AWSConfig

	OnboardingAPIURL string `env:"ONBOARDING_API_URL,default=https://ticketingtoolapplywizz.vercel.app/api/direct-onboard"`
	CORSOrigins      string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`

	RateLimitRPS   int `env:"RATE_LIMIT_RPS,default=2"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST,default=5"`

	BootstrapAdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// SupabaseConfig addresses the hosted backend.
type SupabaseConfig struct {
	URL        string `env:"SUPABASE_URL"`
	ServiceKey string `env:"SUPABASE_SERVICE_KEY"`
	AnonKey    string `env:"SUPABASE_ANON_KEY"`
	// StorageBucket is used when PORTAL_OBJECT_STORE=supabase.
	StorageBucket string `env:"SUPABASE_STORAGE_BUCKET,default=resumes"`
}

// DatabaseConfig configures the direct Postgres backend.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME,default=30m"`
	MigrateOnStart  bool          `env:"DATABASE_MIGRATE_ON_START,default=false"`
}

// RedisConfig enables the redis session store when Addr is set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
}

// SessionConfig configures admin sessions and checkout verification tokens.
type SessionConfig struct {
	Secret      string        `env:"SESSION_SECRET"`
	TTL         time.Duration `env:"SESSION_TTL,default=12h"`
	OTPTokenTTL time.Duration `env:"OTP_TOKEN_TTL,default=30m"`
	BcryptCost  int           `env:"BCRYPT_COST,default=10"`
}

// AWSConfig holds object storage credentials. Missing values are reported by
// the uploader, not at startup, so the rest of the portal can run without S3.
type AWSConfig struct {
	Region          string `env:"AWS_REGION"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Bucket          string `env:"AWS_S3_BUCKET"`
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
}

// Load reads envFile if it exists and decodes the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// a missing .env is normal in production
		_ = godotenv.Load(envFile)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.ObjectStore = strings.ToLower(strings.TrimSpace(c.ObjectStore))
	c.Supabase.URL = strings.TrimRight(strings.TrimSpace(c.Supabase.URL), "/")
	if c.Session.TTL <= 0 {
		c.Session.TTL = 12 * time.Hour
	}
	if c.Session.OTPTokenTTL <= 0 {
		c.Session.OTPTokenTTL = 30 * time.Minute
	}
}

// Validate checks backend-specific requirements.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgREST:
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return fmt.Errorf("PORTAL_STORE=postgrest requires SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	case StorePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("PORTAL_STORE=postgres requires DATABASE_URL")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown PORTAL_STORE %q", c.Store)
	}

	switch c.ObjectStore {
	case ObjectStoreS3:
	case ObjectStoreSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return fmt.Errorf("PORTAL_OBJECT_STORE=supabase requires SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	default:
		return fmt.Errorf("unknown PORTAL_OBJECT_STORE %q", c.ObjectStore)
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}
	if (c.BootstrapAdminEmail == "") != (c.BootstrapAdminPassword == "") {
		return fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}
	return nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, part := range strings.Split(c.CORSOrigins, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
