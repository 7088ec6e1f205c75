package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Приложение
	AppEnv string

	// Telegram
	BotToken    string
	APIURL      string        // пусто — api.telegram.org
	PollTimeout time.Duration // таймаут long polling

	// Куда складывать файлы
	TargetDir string

	// База данных: bolt, sqlite, pgx или json
	DBDriver     string
	DBConnection string

	// Наблюдаемость (необязательно)
	SentryDSN    string
	MetricsAddr  string
	LogAddSource bool
}

var ErrMissingEnv = errors.New("required env var missing")

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	token, err := envRequired("TELEGRAM_BOT_TOKEN")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv: envString("APP_ENV", "production"),

		BotToken:    token,
		APIURL:      envString("TELEGRAM_API_URL", ""),
		PollTimeout: envDuration("POLL_TIMEOUT", 10*time.Second),

		TargetDir: envString("TARGET_DIR", "./archive"),

		DBDriver:     envString("DB_DRIVER", "bolt"),
		DBConnection: envString("DB_CONNECTION", "./data/archivebot.bolt"),

		SentryDSN:    envString("SENTRY_DSN", ""),
		MetricsAddr:  envString("METRICS_ADDR", ""),
		LogAddSource: envBool("LOG_ADD_SOURCE", false),
	}

	switch cfg.DBDriver {
	case "bolt", "sqlite", "pgx", "json":
	default:
		return nil, fmt.Errorf("DB_DRIVER: unsupported value %q", cfg.DBDriver)
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) (string, error) {
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrMissingEnv, key)
}
