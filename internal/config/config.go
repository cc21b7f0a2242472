package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for the tunables below. Env vars override them at startup.
const (
	// Matchmaking
	DefaultMatchFallback = 5 * time.Second
	MatchSweepInterval   = 500 * time.Millisecond

	// Sessions
	DefaultNegotiationTimeout = 20 * time.Second

	// Chat relay
	DefaultChatRateLimit  = 10
	DefaultChatRateWindow = 2 * time.Second

	DefaultListenAddr = ":8080"
	DefaultRedisAddr  = "localhost:6379"
)

// Config carries the runtime configuration read from the environment.
type Config struct {
	ListenAddr string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr     string
	RedisPassword string

	JWTSecret string

	TelegramBotToken    string
	TelegramAdminChatID int64

	MatchFallbackAfter time.Duration
	NegotiationTimeout time.Duration
	ChatRateLimit      int
	ChatRateWindow     time.Duration
}

// Load builds a Config from environment variables. JWT_SECRET is the
// only required variable; everything else has a usable default.
func Load() (*Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	cfg := &Config{
		ListenAddr: getenv("LISTEN_ADDR", DefaultListenAddr),

		DBHost:     getenv("DB_HOST", "localhost"),
		DBUser:     getenv("DB_USER", "user"),
		DBPassword: getenv("DB_PASSWORD", "password"),
		DBName:     getenv("DB_NAME", "vidgogodb"),
		DBPort:     getenv("DB_PORT", "5432"),

		RedisAddr:     getenv("REDIS_ADDR", DefaultRedisAddr),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: secret,

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		MatchFallbackAfter: getenvMillis("MATCH_FALLBACK_MS", DefaultMatchFallback),
		NegotiationTimeout: getenvMillis("NEGOTIATION_TIMEOUT_MS", DefaultNegotiationTimeout),
		ChatRateLimit:      getenvInt("CHAT_RATE_LIMIT", DefaultChatRateLimit),
		ChatRateWindow:     getenvMillis("CHAT_RATE_WINDOW_MS", DefaultChatRateWindow),
	}

	if raw := os.Getenv("TELEGRAM_ADMIN_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_CHAT_ID: %w", err)
		}
		cfg.TelegramAdminChatID = id
	}

	return cfg, nil
}

// DSN renders the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getenvMillis(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
