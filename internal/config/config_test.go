package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 120*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "X-Admin-Key", cfg.Auth.AdminHeader)
	assert.Equal(t, 0.2, cfg.Intent.ValidationFraction)
	assert.Equal(t, 20000, cfg.Intent.MaxFeatures)
	assert.Equal(t, uint64(42), cfg.Intent.Seed)
	assert.Equal(t, "gazetteer", cfg.Dialogue.EntityBackend)
	assert.Equal(t, 16000, cfg.Audio.SampleRate)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AUTH_USERS", "roger:secret, broken ,ana:pw")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LLM_CACHE_TTL", "30s")
	t.Setenv("INTENT_MODEL_REQUIRED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, map[string]string{"roger": "secret", "ana": "pw"}, cfg.Auth.Users)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.LLM.CacheTTL)
	assert.True(t, cfg.Intent.Required)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("INTENT_C", "strong")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
	assert.Contains(t, err.Error(), "INTENT_C")
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.Auth.JWTSecret = "s3cret"
	assert.NoError(t, cfg.Validate())

	cfg.Dialogue.EntityBackend = "spacy"
	assert.Error(t, cfg.Validate())
}

func TestLogConfig_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, LogConfig{Level: in}.SlogLevel(), in)
	}
}
