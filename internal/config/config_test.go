package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			assert.Equal(t, tc.expected, getEnvOrDefault(tc.key, tc.defaultVal))
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
		{"uses default for non-positive", "TEST_INT_4", "-3", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				t.Setenv(tc.key, tc.envValue)
			}

			assert.Equal(t, tc.expected, getEnvAsIntOrDefault(tc.key, tc.defaultVal))
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	t.Setenv("NONEXISTENT_REQUIRED_VAR", "")
	assert.Panics(t, func() { mustGetEnv("NONEXISTENT_REQUIRED_VAR") })
}

func TestMustGetEnvAny_FallsBack(t *testing.T) {
	t.Setenv("TEST_PRIMARY_KEY", "")
	t.Setenv("TEST_SECONDARY_KEY", "secondary")

	assert.Equal(t, "secondary", mustGetEnvAny("TEST_PRIMARY_KEY", "TEST_SECONDARY_KEY"))

	t.Setenv("TEST_PRIMARY_KEY", "primary")
	assert.Equal(t, "primary", mustGetEnvAny("TEST_PRIMARY_KEY", "TEST_SECONDARY_KEY"))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")
	for _, key := range []string{"PORT", "ENV", "GEMINI_MODEL", "GEMINI_TIMEOUT_SECONDS", "REDIS_URL", "CHAT_RATE_LIMIT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, 60*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, 30, cfg.ChatRateLimit)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadClient_Overrides(t *testing.T) {
	t.Setenv("CHAT_ENDPOINT", "http://chat.internal:9000")
	t.Setenv("CHAT_TIMEOUT_SECONDS", "5")

	cfg := LoadClient()

	assert.Equal(t, "http://chat.internal:9000", cfg.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}
