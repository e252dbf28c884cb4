// Package config loads the server configuration from the environment, with a
// .env file honored in development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RateLimit defines the per-connection message throttle.
type RateLimit struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds all runtime settings for the server.
type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimit

	SessionSecret string
	SessionTTL    time.Duration

	HistoryFile     string
	RoomCodeLength  int
	ShutdownTimeout time.Duration
}

func defaults() Config {
	return Config{
		Port:           ":8080",
		Env:            "development",
		AllowedOrigins: []string{"http://localhost:8080"},
		MaxMessageSize: 512,
		RateLimit: RateLimit{
			Burst:          5,
			RefillInterval: time.Second,
		},
		SessionSecret:   "dev-secret-change",
		SessionTTL:      12 * time.Hour,
		HistoryFile:     "message_history.json",
		RoomCodeLength:  4,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads configuration from environment variables, falling back to
// defaults for anything unset. A .env file is loaded first if present.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaults()
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.SessionSecret = getEnv("SESSION_SECRET", cfg.SessionSecret)
	cfg.HistoryFile = getEnv("HISTORY_FILE", cfg.HistoryFile)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitCSV(origins)
	}
	cfg.MaxMessageSize = getEnvInt64("MAX_MESSAGE_SIZE", cfg.MaxMessageSize)
	cfg.RateLimit.Burst = getEnvInt("RATE_LIMIT_BURST", cfg.RateLimit.Burst)
	cfg.RateLimit.RefillInterval = getEnvSeconds("RATE_LIMIT_REFILL_INTERVAL", cfg.RateLimit.RefillInterval)
	cfg.SessionTTL = getEnvSeconds("SESSION_TTL", cfg.SessionTTL)
	cfg.RoomCodeLength = getEnvInt("ROOM_CODE_LENGTH", cfg.RoomCodeLength)
	cfg.ShutdownTimeout = getEnvSeconds("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	return sanitize(cfg)
}

// sanitize clamps every setting back to its default when a value would be
// unusable, so a bad environment degrades instead of breaking startup.
func sanitize(cfg Config) Config {
	def := defaults()
	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if !strings.HasPrefix(cfg.Port, ":") && !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = def.HistoryFile
	}
	if cfg.RoomCodeLength <= 0 {
		cfg.RoomCodeLength = def.RoomCodeLength
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	return cfg
}

// IsDevelopment reports whether the server runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env != "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func getEnvSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}

// splitCSV trims and filters a comma-separated list.
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
