package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBDriver  string
	DBDSN     string
	RedisURL  string
	JWTSecret string
	JWTIssuer string
	Port      string

	CORSOrigins []string
	FrontendURL string

	BlobBaseURL string
	BlobBucket  string

	DiscordToken     string
	DiscordChannelID string

	StoreRetries        int
	WinnersAllowPartial bool
	RateLimit           int
	RateWindow          time.Duration

	EnableSSL bool
	SSLCert   string
	SSLKey    string
}

// Lookup resolves a setting by name; data.GetSetting satisfies it.
type Lookup func(name string) string

// getenv prefers the environment, then the settings table, then def.
func getenv(settings Lookup, key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if settings != nil {
		if v := strings.TrimSpace(settings(strings.ToLower(key))); v != "" {
			return v
		}
	}
	return def
}

func getint(settings Lookup, key string, def int) int {
	n, err := strconv.Atoi(getenv(settings, key, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Database returns the driver and DSN needed before settings can be read.
func Database() (driver, dsn string) {
	driver = strings.ToLower(getenv(nil, "DB_DRIVER", "mysql"))
	dsn = getenv(nil, "DB_DSN", "gigboard:gigboard@tcp(127.0.0.1:3306)/gigboard")
	return driver, dsn
}

func Load(settings Lookup) (Config, error) {
	driver, dsn := Database()
	cfg := Config{
		DBDriver:  driver,
		DBDSN:     dsn,
		RedisURL:  getenv(settings, "REDIS_URL", "redis://127.0.0.1:6379/0"),
		JWTSecret: getenv(settings, "JWT_SECRET", ""),
		JWTIssuer: getenv(settings, "JWT_ISSUER", ""),
		Port:      getenv(settings, "PORT", "8080"),

		FrontendURL: getenv(settings, "FRONTEND_URL", "http://localhost:3000"),

		BlobBaseURL: getenv(settings, "BLOB_BASE_URL", "http://localhost:54321"),
		BlobBucket:  getenv(settings, "BLOB_BUCKET", "avatars"),

		DiscordToken:     getenv(settings, "DISCORD_TOKEN", ""),
		DiscordChannelID: getenv(settings, "DISCORD_CHANNEL_ID", ""),

		StoreRetries: getint(settings, "STORE_RETRIES", 3),
		RateLimit:    getint(settings, "RATE_LIMIT", 30),
		RateWindow:   time.Minute,

		SSLCert: getenv(settings, "SSL_CERT", ""),
		SSLKey:  getenv(settings, "SSL_KEY", ""),
	}

	for _, o := range strings.Split(getenv(settings, "CORS_ORIGINS", cfg.FrontendURL), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	if w, err := time.ParseDuration(getenv(settings, "RATE_WINDOW", "1m")); err == nil && w > 0 {
		cfg.RateWindow = w
	}
	cfg.WinnersAllowPartial, _ = strconv.ParseBool(getenv(settings, "WINNERS_ALLOW_PARTIAL", "false"))
	cfg.EnableSSL = cfg.SSLCert != "" && cfg.SSLKey != ""

	if cfg.DBDriver != "mysql" && cfg.DBDriver != "postgres" {
		return cfg, errors.New("DB_DRIVER must be mysql or postgres")
	}
	if len(cfg.JWTSecret) < 32 {
		return cfg, errors.New("JWT_SECRET must be set to at least 32 bytes")
	}
	if cfg.WinnersAllowPartial {
		log.Printf("config: WINNERS_ALLOW_PARTIAL is on; declared winners may sum to less than a gig's total bounty")
	}
	return cfg, nil
}
