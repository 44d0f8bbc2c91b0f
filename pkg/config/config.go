// Package config loads client and proxy settings from FIXFORGE_* environment
// variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// BackendURL is the fixforge API origin.
	BackendURL string `env:"FIXFORGE_BACKEND_URL" envDefault:"https://shy6565-fixforge-backend.hf.space"`
	// AppOrigin is the frontend origin used for navigation links and OAuth redirects.
	AppOrigin   string        `env:"FIXFORGE_APP_ORIGIN" envDefault:"http://localhost:5173"`
	HTTPTimeout time.Duration `env:"FIXFORGE_HTTP_TIMEOUT" envDefault:"60s"`
	LogLevel    string        `env:"FIXFORGE_LOG_LEVEL" envDefault:"info"`
	LogJSON     bool          `env:"FIXFORGE_LOG_JSON" envDefault:"false"`

	Auth    AuthConfig    `envPrefix:"FIXFORGE_AUTH_"`
	Session SessionConfig `envPrefix:"FIXFORGE_"`
	AMQP    AMQPConfig    `envPrefix:"FIXFORGE_AMQP_"`
	Storage StorageConfig `envPrefix:"FIXFORGE_S3_"`
	Proxy   ProxyConfig   `envPrefix:"FIXFORGE_PROXY_"`
}

// AuthConfig points at a GoTrue-compatible auth service.
type AuthConfig struct {
	URL       string `env:"URL"`
	AnonKey   string `env:"ANON_KEY"`
	JWTSecret string `env:"JWT_SECRET"`
	LoginPath string `env:"LOGIN_PATH" envDefault:"/login"`
}

type SessionConfig struct {
	AccessToken string `env:"ACCESS_TOKEN"`
	UserID      string `env:"USER_ID"`
}

type AMQPConfig struct {
	URL   string `env:"URL"`
	Queue string `env:"QUEUE" envDefault:"bug_submitted"`
}

func (c AMQPConfig) Enabled() bool { return c.URL != "" }

type StorageConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Region    string `env:"REGION"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
}

func (c StorageConfig) Enabled() bool { return c.Endpoint != "" }

type ProxyConfig struct {
	Port      string `env:"PORT" envDefault:"5173"`
	Target    string `env:"TARGET" envDefault:"https://shy6565-fixforge-backend.hf.space"`
	Prefix    string `env:"PREFIX" envDefault:"/api"`
	Insecure  bool   `env:"INSECURE" envDefault:"true"`
	StaticDir string `env:"STATIC_DIR"`
}

// Load parses the environment and validates the URLs it depends on.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	for name, raw := range map[string]string{
		"FIXFORGE_BACKEND_URL":  c.BackendURL,
		"FIXFORGE_APP_ORIGIN":   c.AppOrigin,
		"FIXFORGE_PROXY_TARGET": c.Proxy.Target,
	} {
		if err := validateOrigin(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Auth.URL != "" {
		if err := validateOrigin(c.Auth.URL); err != nil {
			return fmt.Errorf("FIXFORGE_AUTH_URL: %w", err)
		}
	}
	if !strings.HasPrefix(c.Proxy.Prefix, "/") {
		return fmt.Errorf("FIXFORGE_PROXY_PREFIX must start with /")
	}
	return nil
}

func validateOrigin(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("want http or https URL, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
