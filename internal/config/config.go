// Package config resolves runtime configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the API binary needs to run.
type Config struct {
	Addr  string
	PGDSN string

	JWTSecret    string
	TokenTTL     time.Duration
	RefreshGrace time.Duration

	CookieName     string
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	// Timezone is the deployment time zone the dashboard date filter
	// interprets calendar dates in.
	Timezone *time.Location

	CORSOrigins []string

	RateBurst  int
	RatePerSec int
}

// Load reads configuration from TALENTA_* environment variables. A .env file
// in the working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:           envDefault("TALENTA_ADDR", ":8080"),
		PGDSN:          os.Getenv("TALENTA_PG_DSN"),
		JWTSecret:      os.Getenv("TALENTA_JWT_SECRET"),
		TokenTTL:       time.Duration(envInt("TALENTA_JWT_TTL_MINUTES", 60)) * time.Minute,
		RefreshGrace:   time.Duration(envInt("TALENTA_JWT_REFRESH_GRACE_MINUTES", 20160)) * time.Minute,
		CookieName:     envDefault("TALENTA_COOKIE_NAME", "jwt_token"),
		CookiePath:     envDefault("TALENTA_COOKIE_PATH", "/"),
		CookieDomain:   os.Getenv("TALENTA_COOKIE_DOMAIN"),
		CookieSecure:   envBool("TALENTA_COOKIE_SECURE", true),
		CookieSameSite: parseSameSite(envDefault("TALENTA_COOKIE_SAMESITE", "none")),
		RateBurst:      envInt("TALENTA_RATE_BURST", 10),
		RatePerSec:     envInt("TALENTA_RATE_PER_SEC", 5),
	}

	if origins := strings.TrimSpace(os.Getenv("TALENTA_CORS_ORIGINS")); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	tz := envDefault("TALENTA_TZ", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("config: load timezone %q: %w", tz, err)
	}
	cfg.Timezone = loc

	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("config: token TTL must be positive")
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteNoneMode
	}
}
