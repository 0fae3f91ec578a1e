package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 3*time.Second, cfg.Analytics.CollectorTimeout)
	assert.Equal(t, 75.0, cfg.Analytics.AtRiskAttendanceRate)
	assert.Equal(t, 60.0, cfg.Analytics.PassThreshold)
	assert.Equal(t, 10, cfg.Analytics.RecentActivityLimit)
	assert.False(t, cfg.Dashboard.CacheEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ANALYTICS_PASS_THRESHOLD", "65")
	t.Setenv("ANALYTICS_COLLECTOR_TIMEOUT", "750ms")
	t.Setenv("ANALYTICS_TIMEZONE", "Asia/Jakarta")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 65.0, cfg.Analytics.PassThreshold)
	assert.Equal(t, 750*time.Millisecond, cfg.Analytics.CollectorTimeout)
	assert.Equal(t, "Asia/Jakarta", cfg.Analytics.Timezone)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, AnalyticsConfig{Timezone: "Mars/Olympus"}.Location())
	assert.Equal(t, time.UTC, AnalyticsConfig{}.Location())
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
