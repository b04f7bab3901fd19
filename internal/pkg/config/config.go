package config

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	// Host defaults to loopback: the shell serves the signed-in user's session
	// to whoever can reach it.
	Host     string `env:"HOST,      default=127.0.0.1"`
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	API          APIConfig
	Credentials  CredentialConfig
	TwoFactor    TwoFactorConfig
	Notification NotificationConfig
	Mongo        MongoConfig
	Redis        RedisConfig
}

// APIConfig mirrors the dev/prod endpoint split of the web client's boot file.
type APIConfig struct {
	// Endpoint overrides the per-environment endpoints when set.
	Endpoint     string        `env:"API_ENDPOINT"`
	EndpointDev  string        `env:"API_ENDPOINT_DEV,  default=http://localhost:8000"`
	EndpointProd string        `env:"API_ENDPOINT_PROD"`
	Timeout      time.Duration `env:"API_TIMEOUT,       default=15s"`
}

type CredentialConfig struct {
	Backend string `env:"CREDENTIAL_BACKEND, default=file"`
	Path    string `env:"CREDENTIAL_PATH,    default=.careportal/credentials.json"`
	// Key seals the file backend at rest when non-empty.
	Key     string `env:"CREDENTIAL_KEY"`
	Profile string `env:"CREDENTIAL_PROFILE, default=default"`
}

type TwoFactorConfig struct {
	Enabled bool          `env:"TWO_FACTOR_ENABLED, default=true"`
	TTL     time.Duration `env:"TWO_FACTOR_TTL,     default=5m"`
}

type NotificationConfig struct {
	Interval time.Duration `env:"NOTIFY_INTERVAL, default=0s"`
	Workers  int           `env:"NOTIFY_WORKERS,  default=1"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=careportal"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,   default=localhost:6379"`
	DB       int    `env:"REDIS_DB,     default=0"`
	Password string `env:"REDIS_PASSWORD"`
	Prefix   string `env:"REDIS_PREFIX, default=careportal"`
}

// ListenAddr is the host:port the portal shell binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// APIEndpoint returns the backend base URL for the configured environment.
// Unknown environments get an empty base URL, like the web client.
func (c *Config) APIEndpoint() string {
	if c.API.Endpoint != "" {
		return c.API.Endpoint
	}
	switch c.Env {
	case EnvDevelopment:
		return c.API.EndpointDev
	case EnvProduction:
		return c.API.EndpointProd
	default:
		return ""
	}
}

// Validate rejects combinations the client cannot start with.
func (c *Config) Validate() error {
	switch c.Credentials.Backend {
	case BackendFile, BackendRedis, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("config: unknown credential backend %q", c.Credentials.Backend)
	}
	if c.APIEndpoint() == "" {
		return fmt.Errorf("config: no API endpoint configured for env %q", c.Env)
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), nil)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom processes cfg from lookuper, or from the OS environment when
// lookuper is nil.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
