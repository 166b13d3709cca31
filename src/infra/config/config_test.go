package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(256<<10), cfg.Server.MaxBodyBytes)
	assert.Equal(t, StorePostgres, cfg.Store.Mode)
	assert.Equal(t, ScoringLocal, cfg.Scoring.Mode)
	assert.Equal(t, 45*time.Second, cfg.Scoring.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TTL)
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.Model)
	assert.Equal(t, 6, cfg.RateLimit.SubmissionsPerMinute)
	assert.Equal(t, 32, cfg.Realtime.SendBuffer)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.CORS.AllowAll())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_STORE", "memory")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_SCORING_MODE", "remote")
	t.Setenv("APP_SCORING_URL", "http://judge.local/api/duel/analyze")
	t.Setenv("APP_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Mode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)
	assert.False(t, cfg.CORS.AllowAll())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store:    StoreConfig{Mode: StorePostgres},
			Scoring:  ScoringConfig{Mode: ScoringLocal, Timeout: time.Second},
			Auth:     AuthConfig{JWTSecret: "x"},
			Realtime: RealtimeConfig{SendBuffer: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown store", func(c *Config) { c.Store.Mode = "sqlite" }, "APP_STORE"},
		{"remote without url", func(c *Config) { c.Scoring.Mode = ScoringRemote }, "APP_SCORING_URL"},
		{"unknown scoring", func(c *Config) { c.Scoring.Mode = "magic" }, "APP_SCORING_MODE"},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "APP_JWT_SECRET"},
		{"memory store without secret", func(c *Config) { c.Auth.JWTSecret = ""; c.Store.Mode = StoreMemory }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSection(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", "tool-secret")
	t.Setenv("APP_STORE", "bogus")

	var auth AuthConfig
	require.NoError(t, LoadSection(&auth))
	assert.Equal(t, "tool-secret", auth.JWTSecret)
	assert.Equal(t, "scholarduel", auth.Issuer)
}
