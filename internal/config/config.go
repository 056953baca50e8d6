package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	DBDriver    string // "sqlite" or "postgres"
	SQLitePath  string
	DatabaseURL string

	JWTSecret          string
	AccessTokenMinutes int
	RememberMeDays     int

	OwnerUsername string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	PushSubscriber  string

	JanitorIntervalSeconds int
	OfflineGraceSeconds    int

	BannedWords []string
	CORSOrigins []string
	Debug       bool
}

func Load() (*Config, error) {
	cfg := &Config{
		AppName: getEnv("APP_NAME", "FromChat API"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 8000),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		SQLitePath: getEnv("SQLITE_PATH", "fromchat.db"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24),
		RememberMeDays:     getEnvAsInt("REMEMBER_ME_TOKEN_EXPIRE_DAYS", 30),

		OwnerUsername: getEnv("OWNER_USERNAME", "admin"),

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		PushSubscriber:  getEnv("PUSH_SUBSCRIBER", "mailto:admin@localhost"),

		JanitorIntervalSeconds: getEnvAsInt("JANITOR_INTERVAL_SECONDS", 30),
		OfflineGraceSeconds:    getEnvAsInt("OFFLINE_GRACE_SECONDS", 60),

		Debug: getEnvAsBool("DEBUG", true),
	}

	if cfg.DBDriver != "sqlite" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", cfg.DBDriver)
	}
	if cfg.DBDriver == "postgres" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), getEnv("POSTGRES_PASSWORD", "postgres")),
			Host:     fmt.Sprintf("%s:%s", getEnv("POSTGRES_HOST", "localhost"), getEnv("POSTGRES_PORT", "5432")),
			Path:     getEnv("POSTGRES_DB", "fromchat"),
			RawQuery: "sslmode=" + getEnv("POSTGRES_SSLMODE", "disable"),
		}
		cfg.DatabaseURL = u.String()
	}

	cfg.BannedWords = splitList(getEnv("BANNED_WORDS", ""))
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", ""))
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

func (c *Config) RememberMeTTL() time.Duration {
	return time.Duration(c.RememberMeDays) * 24 * time.Hour
}

func (c *Config) JanitorInterval() time.Duration {
	return time.Duration(c.JanitorIntervalSeconds) * time.Second
}

func (c *Config) OfflineGrace() time.Duration {
	return time.Duration(c.OfflineGraceSeconds) * time.Second
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
