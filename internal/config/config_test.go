package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Database: DatabaseConfig{Driver: DriverMemory},
		JWT:      JWTConfig{Secret: "secret", Expiration: time.Hour},
		Auth:     AuthConfig{AllowedEmail: "me@example.com"},
		Sync: SyncConfig{
			DebounceDelay:    400 * time.Millisecond,
			CompletionGrace:  600 * time.Millisecond,
			MaxWriteAttempts: 3,
			Timezone:         "Local",
		},
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DriverMongo, cfg.Database.Driver)
	assert.Equal(t, 2*time.Second, cfg.Database.PollInterval)
	assert.False(t, cfg.Database.UniqueDaySessions)
	assert.Equal(t, 400*time.Millisecond, cfg.Sync.DebounceDelay)
	assert.Equal(t, 600*time.Millisecond, cfg.Sync.CompletionGrace)
	assert.Equal(t, 3, cfg.Sync.MaxWriteAttempts)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
database:
  driver: memory
  unique_day_sessions: true
sync:
  debounce_delay: 300ms
auth:
  allowed_email: me@example.com
s3:
  bucket_name: exports
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("SYNC_MAX_WRITE_ATTEMPTS", "5")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.True(t, cfg.Database.UniqueDaySessions)
	assert.Equal(t, 300*time.Millisecond, cfg.Sync.DebounceDelay)
	assert.Equal(t, 5, cfg.Sync.MaxWriteAttempts)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.True(t, cfg.S3.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }},
		{"zero debounce", func(c *Config) { c.Sync.DebounceDelay = 0 }},
		{"debounce too long", func(c *Config) { c.Sync.DebounceDelay = 6 * time.Second }},
		{"negative grace", func(c *Config) { c.Sync.CompletionGrace = -time.Second }},
		{"no write attempts", func(c *Config) { c.Sync.MaxWriteAttempts = 0 }},
		{"bad timezone", func(c *Config) { c.Sync.Timezone = "Mars/Olympus" }},
		{"missing secret", func(c *Config) { c.JWT.Secret = "" }},
		{"missing email", func(c *Config) { c.Auth.AllowedEmail = "  " }},
	}

	require.NoError(t, validConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSyncLocation(t *testing.T) {
	loc, err := SyncConfig{Timezone: "Europe/Warsaw"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Warsaw", loc.String())

	loc, err = SyncConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}
