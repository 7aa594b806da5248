// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/meikuraledutech/techrules"
)

type Config struct {
	DatabaseURL string
	Port        string
	ProductCode string
	LogLevel    slog.Level
	LogFormat   string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	port := strings.TrimSpace(os.Getenv("PORT"))
	switch {
	case port == "":
		port = ":3000"
	case !strings.HasPrefix(port, ":"):
		port = ":" + port
	}

	return &Config{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Port:        port,
		ProductCode: firstNonEmpty(strings.TrimSpace(os.Getenv("PRODUCT_CODE")), techrules.DefaultProductCode),
		LogLevel:    parseLevel(os.Getenv("LOG_LEVEL")),
		LogFormat:   strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
	}
}

// Logger builds the slog logger described by c.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
