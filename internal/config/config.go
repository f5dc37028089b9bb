package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

type Config struct {
	DatabaseURL string
	Addr        string
	SecretKey   string
	LogLevel    string
	SeedFile    string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads the process environment, after merging an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Addr:        getenv("ADDR", ":8080"),
		SecretKey:   os.Getenv("SECRET_KEY"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		SeedFile:    os.Getenv("SEED_FILE"),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = assembleDSN(
			getenv("POSTGRES_SERVER", "db"),
			getenv("POSTGRES_USER", "postgres"),
			getenv("POSTGRES_PASSWORD", "postgres"),
			getenv("POSTGRES_DB", "policy_management"),
		)
	}
	if err := cfg.validateDSN(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func assembleDSN(host, user, password, db string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   host,
		Path:   "/" + db,
	}
	return u.String()
}

func (c *Config) validateDSN() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		if _, err := pq.ParseURL(c.DatabaseURL); err != nil {
			return fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
	}
	return nil
}

// RequireSecret is checked by the server, which verifies bearer tokens.
func (c *Config) RequireSecret() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	return nil
}
