package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv        string `env:"APP_ENV" default:"development"`
	Port          string `env:"PORT" default:"8080"`
	AppURL        string `env:"APP_URL" default:"http://localhost:8080"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL"`
	LogLevel      string `env:"LOG_LEVEL" default:"info"`
	LogFormat     string `env:"LOG_FORMAT" default:"text"`
	OperatorToken string `env:"OPERATOR_TOKEN"`

	// Space-separated origins of sites embedding the live vote feed.
	WebsocketOrigins []string `env:"WEBSOCKET_ORIGINS"`

	// Space-separated CIDRs of reverse proxies whose X-Forwarded-For is honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	VoterHourlyLimit  int `env:"VOTER_HOURLY_LIMIT" default:"30"`
	OriginHourlyLimit int `env:"ORIGIN_HOURLY_LIMIT" default:"50"`

	StoreTimeout     time.Duration `env:"STORE_TIMEOUT" default:"2s"`
	BroadcastTimeout time.Duration `env:"BROADCAST_TIMEOUT" default:"2s"`

	APIRateLimit float64 `env:"API_RATE_LIMIT" default:"10"`
	APIRateBurst int     `env:"API_RATE_BURST" default:"20"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SingleInstance reports whether Redis is absent and in-process stores are used instead.
func (c *Config) SingleInstance() bool {
	return c.RedisURL == ""
}

// TrustedProxyRanges parses TrustedProxies.
func (c *Config) TrustedProxyRanges() ([]*net.IPNet, error) {
	ranges := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, cidr := range c.TrustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q: %w", cidr, err)
		}
		ranges = append(ranges, ipNet)
	}
	return ranges, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	if cfg.AppEnv == "production" {
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required in production")
		}
		if err := validateSSLMode(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	if cfg.OperatorToken != "" && len(cfg.OperatorToken) < 16 {
		return errors.New("OPERATOR_TOKEN must be at least 16 characters")
	}

	if cfg.VoterHourlyLimit < 1 {
		return fmt.Errorf("VOTER_HOURLY_LIMIT must be positive, got %d", cfg.VoterHourlyLimit)
	}
	if cfg.OriginHourlyLimit < 1 {
		return fmt.Errorf("ORIGIN_HOURLY_LIMIT must be positive, got %d", cfg.OriginHourlyLimit)
	}

	if cfg.StoreTimeout <= 0 || cfg.BroadcastTimeout <= 0 {
		return errors.New("STORE_TIMEOUT and BROADCAST_TIMEOUT must be positive")
	}

	if _, err := cfg.TrustedProxyRanges(); err != nil {
		return err
	}

	if cfg.APIRateLimit <= 0 || cfg.APIRateBurst < 1 {
		return errors.New("API_RATE_LIMIT and API_RATE_BURST must be positive")
	}

	return nil
}

func validateSSLMode(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
