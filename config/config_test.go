package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	noEnvFile(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "eco-explorer-hub", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "eco_edu_user_progress", cfg.Storage.KeyPrefix)
	assert.Equal(t, "guest-user", cfg.Storage.DefaultLearnerID)
	assert.Equal(t, 3, cfg.Storage.RetryAttempts)
	assert.Equal(t, 5, cfg.Storage.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Storage.BreakerCooldown)
	assert.Equal(t, time.Duration(0), cfg.HTTP.SimulatedLatency)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 60, cfg.HTTP.WriteRatePerMinute)
	assert.Equal(t, 10, cfg.HTTP.WriteBurst)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	require.NotNil(t, cfg.Features)
	assert.True(t, cfg.Features.IsEnabled(FeatureActivityFeed, "guest-user"))
}

func TestLoad_FromEnvironment(t *testing.T) {
	noEnvFile(t)
	t.Setenv("APP_TIMEZONE", "Mars/Olympus_Mons")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_SIMULATED_LATENCY", "300ms")
	t.Setenv("HTTP_CORS_ORIGINS", "http://localhost:5173, https://eco.example ,")
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "eco")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Address())
	assert.Equal(t, 300*time.Millisecond, cfg.HTTP.SimulatedLatency)
	assert.Equal(t, []string{"http://localhost:5173", "https://eco.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://eco:secret@db:5432/eco_explorer?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_NAME=eco-from-file\nSTORAGE_DRIVER=memory\n"), 0o600))
	t.Setenv("CONFIG_ENV_FILE", path)
	t.Setenv("STORAGE_DRIVER", "redis")
	t.Cleanup(func() { _ = os.Unsetenv("APP_NAME") })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "eco-from-file", cfg.App.Name)
	// the process environment wins over the file
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
}

func TestLoad_ValidationErrors(t *testing.T) {
	noEnvFile(t)
	t.Setenv("STORAGE_DRIVER", "mongo")
	t.Setenv("HTTP_PORT", "70000")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("STORAGE_RETRY_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "configuration errors:\n  - ")
	assert.Contains(t, msg, `STORAGE_DRIVER must be one of [memory sqlite postgres redis], got "mongo"`)
	assert.Contains(t, msg, "HTTP_PORT must be at most 65535")
	assert.Contains(t, msg, "LOG_LEVEL must be one of")
	assert.Contains(t, msg, "STORAGE_RETRY_ATTEMPTS must be at least 1")
}

func TestValidate_DriverRequirements(t *testing.T) {
	noEnvFile(t)
	cfg, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"postgres without url", func(c *Config) { c.Storage.Driver = DriverPostgres; c.Database.URL = "" }, "DATABASE_URL"},
		{"redis without address", func(c *Config) { c.Storage.Driver = DriverRedis; c.Redis.URL = ""; c.Redis.Host = "" }, "REDIS_URL or REDIS_HOST"},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = DriverSQLite; c.SQLite.Path = " " }, "SQLITE_PATH"},
		{"memory in production", func(c *Config) { c.Storage.Driver = DriverMemory; c.App.Environment = EnvProduction }, "not allowed in production"},
		{"min conns above max", func(c *Config) { c.Database.MinConns = 20 }, "DB_MIN_CONNS must not exceed MaxConns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *cfg
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFeatureFlags(t *testing.T) {
	t.Setenv("FEATURE_API_GAME_ROUNDS", "false")
	t.Setenv("FEATURE_API_ACTIVITY_FEED_ROLLOUT", "0")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureGameRounds, "kid-1"))
	assert.False(t, ff.IsEnabled(FeatureActivityFeed, "kid-1"))
	assert.True(t, ff.IsEnabled(FeatureQuizGrading, "kid-1"))
	assert.False(t, ff.IsEnabled("api.unknown", "kid-1"))
	assert.Equal(t, []string{FeatureLearnerSignup, FeatureQuizGrading}, ff.EnabledNames())

	ff.SetLearnerOverride("kid-1", FeatureGameRounds, true)
	assert.True(t, ff.IsEnabled(FeatureGameRounds, "kid-1"))
	assert.False(t, ff.IsEnabled(FeatureGameRounds, "kid-2"))
	ff.ClearLearnerOverrides("kid-1")
	assert.False(t, ff.IsEnabled(FeatureGameRounds, "kid-1"))

	require.NoError(t, ff.EnableFeature(FeatureGameRounds))
	require.NoError(t, ff.SetRolloutPercent(FeatureGameRounds, 50))
	first := ff.IsEnabled(FeatureGameRounds, "kid-42")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureGameRounds, "kid-42"))
	}

	var flagErr *FeatureFlagError
	assert.ErrorAs(t, ff.SetRolloutPercent(FeatureGameRounds, 101), &flagErr)
	assert.ErrorAs(t, ff.DisableFeature("api.unknown"), &flagErr)
}
