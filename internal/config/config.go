package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string // sqlite|postgres
	DBDSN    string

	AuthSecret string

	AssetBasePath string

	CORSOrigins []string

	ProgressCacheTTL time.Duration
}

// FromEnv loads configuration from the environment, reading a local .env
// first when one exists.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:         envOr("HTTP_ADDR", ":8080"),
		PublicURL:        os.Getenv("PUBLIC_URL"),
		DBDriver:         envOr("DB_DRIVER", "sqlite"),
		DBDSN:            envOr("DB_DSN", ""),
		AuthSecret:       envOr("AUTH_HMAC_SECRET", "coursebook-dev-key"),
		AssetBasePath:    envOr("ASSET_BASE_PATH", "./data"),
		CORSOrigins:      csvOr("CORS_ORIGINS", "http://localhost:3000"),
		ProgressCacheTTL: durOr("PROGRESS_CACHE_TTL", 60*time.Second),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func durOr(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
