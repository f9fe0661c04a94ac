package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvVars clears all MentorHub-related environment variables.
func clearEnvVars() {
	envVars := []string{
		"APP_ENV", "LOG_LEVEL", "HTTP_ADDR",
		"DATABASE_DRIVER", "DATABASE_URL", "SQLITE_PATH",
		"REDIS_URL", "RABBITMQ_URL",
		"OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE", "OUTBOX_MAX_RETRIES",
		"OUTBOX_RETENTION_DAYS", "OUTBOX_PROCESSOR_ENABLED",
		"WORKER_HEALTH_ADDR",
		"MEETING_PROVIDER", "MEETING_TIMEOUT",
		"GOOGLE_CALENDAR_ID", "GOOGLE_TOKEN_URL",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REFRESH_TOKEN",
		"JITSI_BASE_URL",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Application defaults
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)

	// Storage defaults
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Contains(t, cfg.DatabaseURL, "postgres://")
	assert.Equal(t, "mentorhub.db", cfg.SQLitePath)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)

	// Outbox defaults
	assert.Equal(t, 100*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.Equal(t, 5, cfg.OutboxMaxRetries)
	assert.Equal(t, 14, cfg.OutboxRetentionDays)
	assert.True(t, cfg.OutboxProcessorEnabled)

	// Meeting defaults
	assert.Equal(t, "noop", cfg.MeetingProvider)
	assert.Equal(t, 10*time.Second, cfg.MeetingTimeout)
	assert.Equal(t, "primary", cfg.GoogleCalendarID)
	assert.Equal(t, "https://meet.jit.si", cfg.JitsiBaseURL)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("APP_ENV", "production")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("HTTP_ADDR", "127.0.0.1:9090")
	os.Setenv("DATABASE_DRIVER", "sqlite")
	os.Setenv("SQLITE_PATH", "/tmp/bookings.db")
	os.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	os.Setenv("OUTBOX_BATCH_SIZE", "50")
	os.Setenv("OUTBOX_PROCESSOR_ENABLED", "false")
	os.Setenv("MEETING_PROVIDER", "google")
	os.Setenv("MEETING_TIMEOUT", "5s")
	os.Setenv("GOOGLE_CLIENT_ID", "client-id")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "/tmp/bookings.db", cfg.SQLitePath)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, 50, cfg.OutboxBatchSize)
	assert.False(t, cfg.OutboxProcessorEnabled)
	assert.Equal(t, "google", cfg.MeetingProvider)
	assert.Equal(t, 5*time.Second, cfg.MeetingTimeout)
	assert.Equal(t, "client-id", cfg.GoogleClientID)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("OUTBOX_BATCH_SIZE", "not-a-number")
	os.Setenv("OUTBOX_POLL_INTERVAL", "not-a-duration")
	os.Setenv("OUTBOX_PROCESSOR_ENABLED", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.OutboxPollInterval)
	assert.True(t, cfg.OutboxProcessorEnabled)
}

func TestConfig_EnvironmentHelpers(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		isDev  bool
		isProd bool
	}{
		{"development", "development", true, false},
		{"production", "production", false, true},
		{"staging", "staging", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AppEnv: tt.appEnv}
			assert.Equal(t, tt.isDev, cfg.IsDevelopment())
			assert.Equal(t, tt.isProd, cfg.IsProduction())
		})
	}
}
