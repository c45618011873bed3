// Package config reads engine settings from the environment. main loads
// .env through godotenv before calling Load.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"club-live-engine/utils"
)

type Config struct {
	DatabaseURL    string
	DatabaseDriver string // postgres | sqlite
	RedisURL       string // empty = in-process cache
	ServiceToken   string
	SessionSecret  string
	HTTPAddr       string
	WSAddr         string
	AllowedOrigins []string

	TickActiveInterval time.Duration
	TickIdleInterval   time.Duration
	ReconcileInterval  time.Duration
	ArchiveInterval    time.Duration

	R2 utils.R2Config
}

// Load validates required settings and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseDriver: strings.ToLower(envOr("DATABASE_DRIVER", "postgres")),
		RedisURL:       os.Getenv("REDIS_URL"),
		ServiceToken:   os.Getenv("ENGINE_SERVICE_TOKEN"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		HTTPAddr:       envOr("HTTP_ADDR", ":5200"),
		WSAddr:         envOr("WS_ADDR", ":5201"),
		R2: utils.R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}

	for _, origin := range strings.Split(envOr("ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	var err error
	if cfg.TickActiveInterval, err = durationOr("TICK_ACTIVE_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TickIdleInterval, err = durationOr("TICK_IDLE_INTERVAL", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ReconcileInterval, err = durationOr("RECONCILE_INTERVAL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ArchiveInterval, err = durationOr("ARCHIVE_SWEEP_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL environment variable not set")
	}
	if cfg.DatabaseDriver != "postgres" && cfg.DatabaseDriver != "sqlite" {
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q (use postgres or sqlite)", cfg.DatabaseDriver)
	}
	if cfg.ServiceToken == "" {
		return Config{}, errors.New("ENGINE_SERVICE_TOKEN environment variable not set")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET environment variable not set")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration like 1s", key, raw)
	}
	return d, nil
}
