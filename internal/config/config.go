package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Generation
	AnthropicAPIKey string
	AnthropicModel  string
	MaxTokens       int64
	Temperature     float64
	MockGenerator   bool

	// GeneratorCommand selects a local model command instead of the API.
	GeneratorCommand string

	// Metadata enrichment
	OMDbAPIKey          string
	SpotifyClientID     string
	SpotifyClientSecret string
	MetadataTimeout     time.Duration

	// Auth
	JWTSecret  string
	CronSecret string

	// Rate limiting; an empty RedisURL selects the in-process store.
	RedisURL            string
	RateLimitPerMinute  int
	RateLimitSweepEvery time.Duration

	PregenerateDelay time.Duration
	ShutdownTimeout  time.Duration
}

func Load() *Config {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: failed to read .env: %v", err)
	}

	return &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("APP_ENV", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "culturequiz"),
		DBPassword: getEnv("DB_PASSWORD", "culturequiz"),
		DBName:     getEnv("DB_NAME", "culturequiz"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		MaxTokens:       int64(getInt("GENERATION_MAX_TOKENS", 1500)),
		Temperature:     getFloat("GENERATION_TEMPERATURE", 0.7),
		MockGenerator:   getBool("MOCK_GENERATOR", false),

		GeneratorCommand: os.Getenv("GENERATOR_COMMAND"),

		OMDbAPIKey:          os.Getenv("OMDB_API_KEY"),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		MetadataTimeout:     getDuration("METADATA_TIMEOUT", 8*time.Second),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		CronSecret: os.Getenv("CRON_SECRET"),

		RedisURL:            os.Getenv("REDIS_URL"),
		RateLimitPerMinute:  getInt("RATE_LIMIT_PER_MINUTE", 20),
		RateLimitSweepEvery: getInterval("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),

		PregenerateDelay: getDuration("PREGENERATE_DELAY", 2*time.Second),
		ShutdownTimeout:  getDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

// DSN builds the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: %s=%q is not a number, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: %s=%q is not a valid duration, using %v", key, v, fallback)
		return fallback
	}
	if d < 0 {
		log.Printf("config: %s=%q is negative, using %v", key, v, fallback)
		return fallback
	}
	return d
}

// getInterval is getDuration for ticker periods, which must be positive.
func getInterval(key string, fallback time.Duration) time.Duration {
	d := getDuration(key, fallback)
	if d == 0 {
		log.Printf("config: %s must be positive, using %v", key, fallback)
		return fallback
	}
	return d
}
