package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":4000"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/sleeptype.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR"`

	// RedisURL enables the shared rate limiter; empty keeps limits in process.
	RedisURL       string   `env:"REDIS_URL"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"https://soobo.sijun.dev"`
	DefaultLang    string   `env:"DEFAULT_LANG" envDefault:"ko"`
	MaxBodyBytes   int64    `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	// AdminPasswordHash is a bcrypt hash guarding /api/data; empty leaves it open.
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	RateLimit RateLimits `envPrefix:"RATE_LIMIT_"`
}

type RateLimits struct {
	Window        time.Duration `env:"WINDOW" envDefault:"15m"`
	Max           int           `env:"MAX_REQUESTS" envDefault:"100"`
	SessionWindow time.Duration `env:"SESSION_WINDOW" envDefault:"5m"`
	SessionMax    int           `env:"SESSION_MAX" envDefault:"10"`
	DataWindow    time.Duration `env:"DATA_WINDOW" envDefault:"1m"`
	DataMax       int           `env:"DATA_MAX" envDefault:"30"`
}

// Load reads an optional .env file, then the environment. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
