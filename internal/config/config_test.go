package config

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("S3_PRESIGN_TTL", "")
	cfg := Load()
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "kyc_verifications", cfg.DynamoTables.Verifications)
	assert.Equal(t, 15*time.Minute, cfg.PresignTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 2*time.Second, cfg.RedisDialTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.RedisIOTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("S3_PRESIGN_TTL", "90s")
	t.Setenv("SMTP_ENABLED", "true")
	t.Setenv("SUBMIT_RATE_PER_SECOND", "0.5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	cfg := Load()
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 90*time.Second, cfg.PresignTTL)
	assert.True(t, cfg.SMTPEnabled)
	assert.Equal(t, 0.5, cfg.SubmitRatePerSecond)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SUBMIT_BURST", "many")
	t.Setenv("DIRECTORY_CACHE_TTL", "soon")
	cfg := Load()
	assert.Equal(t, 3, cfg.SubmitBurst)
	assert.Equal(t, 5*time.Minute, cfg.DirectoryCacheTTL)
}

func TestNewLogger_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, &Config{AppEnv: "production", LogLevel: "warn"})
	log.Info("dropped")
	log.Warn("kept", "user_id", "u1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "u1", line["user_id"])
}
