// Package config содержит логику чтения конфигурации сервиса учёта заказов.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/drinkbar-ledger/internal/validation"
)

const (
	defaultRunAddress       = "localhost:8080"
	defaultCurrency         = "EUR"
	defaultOverdraftCeiling = "30"
	defaultRequestTimeout   = 10 * time.Second
	defaultCatalogCacheTTL  = 30 * time.Second
	defaultLogLevel         = "info"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress       string        `env:"RUN_ADDRESS"`
	DatabaseURI      string        `env:"DATABASE_URI"`
	AuthSecret       string        `env:"AUTH_SECRET"`
	AuthUserInfoURL  string        `env:"AUTH_USERINFO_URL"`
	RedisAddress     string        `env:"REDIS_ADDRESS"`
	Currency         string        `env:"LEDGER_CURRENCY"`
	OverdraftCeiling string        `env:"DEFAULT_OVERDRAFT_CEILING"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT"`
	CatalogCacheTTL  time.Duration `env:"CATALOG_CACHE_TTL"`
	LogLevel         string        `env:"LOG_LEVEL"`
}

// Ceiling возвращает лимит овердрафта по умолчанию для новых аккаунтов.
func (c *Config) Ceiling() decimal.Decimal {
	d, err := decimal.NewFromString(c.OverdraftCeiling)
	if err != nil {
		return decimal.RequireFromString(defaultOverdraftCeiling)
	}
	return d
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "HMAC secret for bearer tokens")
	flag.StringVar(&cfg.AuthUserInfoURL, "u", "", "OIDC userinfo endpoint")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for catalog cache")
	flag.StringVar(&cfg.Currency, "c", defaultCurrency, "ledger currency code")
	flag.StringVar(&cfg.OverdraftCeiling, "o", defaultOverdraftCeiling, "default overdraft ceiling")
	flag.DurationVar(&cfg.RequestTimeout, "t", defaultRequestTimeout, "request timeout")
	flag.DurationVar(&cfg.CatalogCacheTTL, "cache-ttl", defaultCatalogCacheTTL, "catalog cache TTL")
	flag.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")

	flag.Parse()

	override(&cfg.RunAddress, envCfg.RunAddress)
	override(&cfg.DatabaseURI, envCfg.DatabaseURI)
	override(&cfg.AuthSecret, envCfg.AuthSecret)
	override(&cfg.AuthUserInfoURL, envCfg.AuthUserInfoURL)
	override(&cfg.RedisAddress, envCfg.RedisAddress)
	override(&cfg.Currency, envCfg.Currency)
	override(&cfg.OverdraftCeiling, envCfg.OverdraftCeiling)
	override(&cfg.LogLevel, envCfg.LogLevel)
	if envCfg.RequestTimeout > 0 {
		cfg.RequestTimeout = envCfg.RequestTimeout
	}
	if envCfg.CatalogCacheTTL > 0 {
		cfg.CatalogCacheTTL = envCfg.CatalogCacheTTL
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	ceiling, err := decimal.NewFromString(c.OverdraftCeiling)
	if err != nil {
		return fmt.Errorf("parse overdraft ceiling: %w", err)
	}
	if ceiling.IsNegative() {
		return errors.New("overdraft ceiling must not be negative")
	}
	if err := validation.Currency(c.Currency); err != nil {
		return fmt.Errorf("currency %q: %w", c.Currency, err)
	}
	if c.AuthSecret == "" && c.AuthUserInfoURL == "" {
		return errors.New("either auth secret or userinfo url must be set")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	return nil
}
