package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "chatmate-dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(20), cfg.Quota.FreeDailyLimit)
	assert.Equal(t, int64(1000), cfg.Quota.PremiumDailyLimit)
	assert.Equal(t, SoftEnforcement, cfg.Quota.Enforcement)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, int32(500), cfg.Gemini.FreeMaxOutputTokens)
	assert.Equal(t, int32(1000), cfg.Gemini.PremiumMaxOutputTokens)
	assert.Equal(t, []string{"http://localhost:8081", "exp://localhost:8081", "*"}, cfg.CORSOrigins)
	assert.Equal(t, "5050", cfg.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DOCUMENT_STORE", "memory")
	t.Setenv("QUOTA_STORE", "Redis")
	t.Setenv("FREE_DAILY_LIMIT", "5")
	t.Setenv("PREMIUM_DAILY_LIMIT", "50")
	t.Setenv("QUOTA_ENFORCEMENT", "hard")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.QuotaStore)
	assert.Equal(t, int64(5), cfg.Quota.FreeDailyLimit)
	assert.Equal(t, int64(50), cfg.Quota.PremiumDailyLimit)
	assert.Equal(t, HardEnforcement, cfg.Quota.Enforcement)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.False(t, cfg.UsesBackend(BackendFirestore))
}

func TestLoadYAMLFileWithExpansion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatmate.yaml")
	content := `
document_store: memory
quota_store: memory
quota:
  free_daily_limit: 3
  premium_daily_limit: 30
  timezone: Europe/Warsaw
auth:
  mode: jwt
  jwt_secret: ${TEST_CHATMATE_SECRET}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TEST_CHATMATE_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(3), cfg.Quota.FreeDailyLimit)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "Europe/Warsaw", cfg.Quota.Location().String())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative limit", func(c *Config) { c.Quota.FreeDailyLimit = -1 }},
		{"unknown enforcement", func(c *Config) { c.Quota.Enforcement = "strict" }},
		{"unknown timezone", func(c *Config) { c.Quota.Timezone = "Mars/Olympus" }},
		{"unknown quota store", func(c *Config) { c.QuotaStore = "mongo" }},
		{"redis as document store", func(c *Config) { c.DocumentStore = BackendRedis }},
		{"postgres without url", func(c *Config) { c.QuotaStore = BackendPostgres }},
		{"jwt without secret", func(c *Config) { c.Auth.Mode = AuthJWT; c.Auth.JWTSecret = "" }},
		{"firestore without project", func(c *Config) { c.Firebase.ProjectID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.Firebase.ProjectID = "chatmate-dev"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
