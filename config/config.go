package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwise1/querydesk/util"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Keyword modes select how the search keyword is combined across title and
// content. See SearchQueriesHelper.
const (
	KeywordModeTitle            = "title"
	KeywordModeContentThenTitle = "content_then_title"
	KeywordModeAny              = "any"
)

type Config struct {
	Port               int    `env:"PORT" envDefault:"8080"`
	StoreDriver        string `env:"STORE_DRIVER" envDefault:"sqlite"`
	Dsn                string `env:"DSN"`
	SQLitePath         string `env:"SQLITE_PATH" envDefault:"querydesk.db"`
	JwtSecret          string `env:"JWT_SECRET"`
	JwtExpires         string `env:"JWT_EXPIRES" envDefault:"24h"`
	CookieSecure       bool   `env:"COOKIE_SECURE" envDefault:"false"`
	PageSize           int    `env:"PAGE_SIZE" envDefault:"5"`
	SearchKeywordMode  string `env:"SEARCH_KEYWORD_MODE" envDefault:"title"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
	OtelEndpoint       string `env:"OTEL_ENDPOINT"`
	ServiceName        string `env:"SERVICE_NAME" envDefault:"querydesk"`
}

func New() *Config {
	if loadErr := godotenv.Load(".env"); loadErr != nil {
		log.Printf("[Env]: unable to load .env file: %v", loadErr)
	}

	cfg, parseErr := Parse()
	if parseErr != nil {
		log.Printf("[Env]: failed to parse environment variables: %v", parseErr)
	}

	return cfg
}

// Parse reads the configuration from the process environment without touching
// any .env file.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return &cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.SearchKeywordMode = strings.ToLower(strings.TrimSpace(cfg.SearchKeywordMode))
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if !util.NotBlank(c.SQLitePath) {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if !util.NotBlank(c.Dsn) {
			return fmt.Errorf("DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.SearchKeywordMode {
	case KeywordModeTitle, KeywordModeContentThenTitle, KeywordModeAny:
	default:
		return fmt.Errorf("unknown SEARCH_KEYWORD_MODE %q", c.SearchKeywordMode)
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be greater than zero")
	}
	if !util.NotBlank(c.JwtSecret) {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	return nil
}

// TokenTTL returns the parsed JWT_EXPIRES duration.
func (c *Config) TokenTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.JwtExpires)
	if err != nil {
		return 0, fmt.Errorf("invalid JWT_EXPIRES %q: %w", c.JwtExpires, err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("JWT_EXPIRES must be positive")
	}
	return ttl, nil
}
