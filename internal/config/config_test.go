package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConsoleDefaults(t *testing.T) {
	t.Setenv("REGDESK_API_URL", "")
	t.Setenv("CAPTURE_TIMEOUT", "")

	cfg := LoadConsole()

	assert.Equal(t, "http://localhost:5000", cfg.APIURL)
	assert.Equal(t, "Department App", cfg.Capture.RPName)
	assert.Equal(t, 60*time.Second, cfg.Capture.Timeout)
	assert.False(t, cfg.Capture.BindProfile)
	assert.Equal(t, "file", cfg.SessionBackend)
}

func TestLoadConsoleOverrides(t *testing.T) {
	t.Setenv("REGDESK_API_URL", "https://registry.example.edu/")
	t.Setenv("CAPTURE_TIMEOUT", "15s")
	t.Setenv("CAPTURE_BIND_PROFILE", "true")
	t.Setenv("REGDESK_SESSION_BACKEND", "redis")

	cfg := LoadConsole()

	assert.Equal(t, "https://registry.example.edu", cfg.APIURL)
	assert.Equal(t, 15*time.Second, cfg.Capture.Timeout)
	assert.True(t, cfg.Capture.BindProfile)
	assert.Equal(t, "redis", cfg.SessionBackend)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("CAPTURE_BIND_PROFILE", "maybe")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")

	console := LoadConsole()
	server := LoadServer()

	assert.Equal(t, 24*time.Hour, console.SessionTTL)
	assert.False(t, console.Capture.BindProfile)
	assert.Equal(t, 120, server.RateLimitPerMin)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", OutputPath: "stderr"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = NewLogger(LoggingConfig{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestLoadServerCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, LoadServer().CORSOrigins)

	t.Setenv("CORS_ORIGINS", "")
	assert.Equal(t, []string{"http://localhost:3000"}, LoadServer().CORSOrigins)
}
