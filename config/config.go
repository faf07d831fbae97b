package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Engine   EngineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:3000,http://localhost:3001)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/pulse?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EngineConfig holds the named knobs of the confusion engine. The defaults
// are the observed product behavior; tests vary them through this struct.
type EngineConfig struct {
	// BinWidthMinutes is the fixed width of aggregation intervals.
	BinWidthMinutes int
	// ThresholdMultiplier is the sensitivity knob k in threshold = mean + k*stddev.
	ThresholdMultiplier float64
	// MinDurationMinutes / MaxDurationMinutes bound session length (inclusive).
	MinDurationMinutes int
	MaxDurationMinutes int
	// PollIntervalSeconds is the refresh cadence served to polling clients.
	PollIntervalSeconds int
	// LiveCacheTTLSeconds bounds the staleness of cached live views.
	LiveCacheTTLSeconds int
}

// Engine knob defaults.
const (
	DefaultBinWidthMinutes     = 1
	DefaultThresholdMultiplier = 1.2
	DefaultMinDurationMinutes  = 15
	DefaultMaxDurationMinutes  = 180
	DefaultPollIntervalSeconds = 5
)

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/pulse?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "pulse"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Engine: EngineConfig{
			BinWidthMinutes:     getEnvInt("BIN_WIDTH_MINUTES", DefaultBinWidthMinutes),
			ThresholdMultiplier: getEnvFloat("THRESHOLD_MULTIPLIER", DefaultThresholdMultiplier),
			MinDurationMinutes:  getEnvInt("MIN_DURATION_MINUTES", DefaultMinDurationMinutes),
			MaxDurationMinutes:  getEnvInt("MAX_DURATION_MINUTES", DefaultMaxDurationMinutes),
			PollIntervalSeconds: getEnvInt("POLL_INTERVAL_SECONDS", DefaultPollIntervalSeconds),
			LiveCacheTTLSeconds: getEnvInt("LIVE_CACHE_TTL_SECONDS", DefaultPollIntervalSeconds),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
