package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	devAccessSecret  = "dev-access-secret-change-in-production"
	devRefreshSecret = "dev-refresh-secret-change-in-production"
)

type Config struct {
	Env     string `env:"APP_ENV,default=development"`
	Port    string `env:"PORT,default=8080"`
	DBDSN   string `env:"DB_DSN,default=cartscout.db"`
	LogFile string `env:"LOG_FILE"`

	// JWT: short-lived access token, long-lived rotating refresh token.
	AccessSecret  string        `env:"JWT_ACCESS_SECRET,default=dev-access-secret-change-in-production"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET,default=dev-refresh-secret-change-in-production"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL,default=15m"`
	RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL,default=168h"`
}

// Load reads the process environment, after merging in a .env file if one
// exists (ENV_FILE overrides the path).
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	log.Printf("[config] APP_ENV=%s PORT=%s DB_DSN=%s LOG_FILE=%s JWT_ACCESS_TTL=%s JWT_REFRESH_TTL=%s",
		cfg.Env, cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.AccessTTL, cfg.RefreshTTL)
	return cfg, nil
}

func (c Config) Production() bool { return c.Env == "production" }

// Validate rejects settings that are only acceptable in development.
func (c Config) Validate() error {
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if c.Production() {
		if c.AccessSecret == devAccessSecret || c.RefreshSecret == devRefreshSecret {
			return errors.New("development JWT secrets are not allowed in production")
		}
		if c.AccessSecret == c.RefreshSecret {
			return errors.New("access and refresh secrets must differ")
		}
	}
	return nil
}
