package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "PORT", "CHAIN_ID", "POLL_INTERVAL", "POLL_TIMEOUT", "SESSION_TTL",
		"MEDIA_PUBLIC_BASE_URL", "MEDIA_MINIO_ENDPOINT", "MEDIA_S3_ENDPOINT",
		"MEDIA_S3_ACCESS_KEY", "MEDIA_S3_SECRET_KEY", "PROVIDER_RPS", "PROVIDER_BURST",
		"ALLOWED_ORIGINS", "MEDIA_CACHE_DIR", "MEDIA_CACHE_DIR_MAX_MB",
		"STEP_TIMEOUT", "SHUTDOWN_GRACE", "HTTP_READ_HEADER_TIMEOUT", "HTTP_IDLE_TIMEOUT", "HTTP2_MAX_STREAMS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MINIO_ROOT_USER", "minio")
	t.Setenv("MINIO_ROOT_PASSWORD", "minio123")

	cfg, err := LoadArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "minio:9000", cfg.Media.Endpoint)
	assert.False(t, cfg.Media.UseSSL)
	assert.True(t, cfg.Media.CanUseS3())
	assert.Equal(t, "http://localhost:8081/media", cfg.Media.PublicBaseURL)
	assert.Equal(t, 4*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 1, cfg.Providers.Burst)
	assert.Empty(t, cfg.Media.CacheDir)
	assert.Equal(t, int64(2048)<<20, cfg.Media.CacheDirMaxBytes)
	assert.Equal(t, 15*time.Minute, cfg.StepTimeout)
	assert.Equal(t, cfg.StepTimeout, cfg.Providers.JobTTL)
	assert.Equal(t, ServerConfig{
		ReadHeaderTimeout:    10 * time.Second,
		IdleTimeout:          2 * time.Minute,
		MaxConcurrentStreams: 250,
		ShutdownGrace:        30 * time.Second,
	}, cfg.Server)
}

func TestLoadServerAndStepSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("STEP_TIMEOUT", "20m")
	t.Setenv("SHUTDOWN_GRACE", "45s")
	t.Setenv("HTTP_IDLE_TIMEOUT", "5m")
	t.Setenv("HTTP2_MAX_STREAMS", "64")

	cfg, err := LoadArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, cfg.StepTimeout)
	assert.Equal(t, 20*time.Minute, cfg.Providers.JobTTL)
	assert.Equal(t, 45*time.Second, cfg.Server.ShutdownGrace)
	assert.Equal(t, 5*time.Minute, cfg.Server.IdleTimeout)
	assert.Equal(t, uint32(64), cfg.Server.MaxConcurrentStreams)
}

func TestLoadRejectsStepShorterThanPoll(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_TIMEOUT", "10m")
	t.Setenv("STEP_TIMEOUT", "1m")
	_, err := LoadArgs(nil)
	assert.ErrorContains(t, err, "STEP_TIMEOUT")

	t.Setenv("STEP_TIMEOUT", "")
	t.Setenv("HTTP2_MAX_STREAMS", "0")
	_, err = LoadArgs(nil)
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("CHAIN_ID", "31337")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("PROVIDER_RPS", "2.5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MEDIA_CACHE_DIR", "/var/cache/storyweave")
	t.Setenv("MEDIA_CACHE_DIR_MAX_MB", "64")

	cfg, err := LoadArgs([]string{"-port", ":7000"})
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Port)
	assert.False(t, cfg.Media.Enabled)
	assert.Equal(t, int64(31337), cfg.Chain.ChainID)
	assert.Equal(t, 250*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 2.5, cfg.Providers.RPS)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "/var/cache/storyweave", cfg.Media.CacheDir)
	assert.Equal(t, int64(64)<<20, cfg.Media.CacheDirMaxBytes)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAIN_ID", "abc")
	_, err := LoadArgs(nil)
	assert.Error(t, err)

	t.Setenv("CHAIN_ID", "")
	t.Setenv("POLL_TIMEOUT", "soon")
	_, err = LoadArgs(nil)
	assert.Error(t, err)
}
