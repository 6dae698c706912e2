package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port            string
	Env             string
	MaxRequestBytes int64

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int
	GeminiTimeout        time.Duration

	// Rate limiting
	ChatRateLimit int
	RedisURL      string

	// Frontend
	FrontendURL string
}

// ClientConfig holds the settings of the terminal chat client.
type ClientConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		MaxRequestBytes:      int64(getEnvAsIntOrDefault("MAX_REQUEST_BYTES", 1<<20)),
		GeminiAPIKey:         mustGetEnvAny("GOOGLE_API_KEY", "GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		GeminiTimeout:        time.Duration(getEnvAsIntOrDefault("GEMINI_TIMEOUT_SECONDS", 60)) * time.Second,
		ChatRateLimit:        getEnvAsIntOrDefault("CHAT_RATE_LIMIT", 30),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}

	return cfg
}

func LoadClient() *ClientConfig {
	godotenv.Load()

	return &ClientConfig{
		Endpoint: getEnvOrDefault("CHAT_ENDPOINT", "http://localhost:8080"),
		Timeout:  time.Duration(getEnvAsIntOrDefault("CHAT_TIMEOUT_SECONDS", 60)) * time.Second,
	}
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

// mustGetEnvAny returns the first non-empty value among keys.
func mustGetEnvAny(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return mustGetEnv(keys[0])
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}
