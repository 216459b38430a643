package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Asia/Kolkata", cfg.Reminders.ReferenceZone)
	assert.Equal(t, "any_attempt", cfg.Reminders.DeliveryPolicy)
	assert.Equal(t, "firebase", cfg.Store.Backend)
	assert.Equal(t, 500, cfg.Push.FCM.MaxBatch)
	require.Len(t, cfg.Push.Providers, 1)
	assert.False(t, cfg.ClickHouse.Enabled)
	assert.NotEmpty(t, cfg.ClickHouse.DSN)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: mysql
reminders:
  concurrency: 4
`), 0o600))

	t.Setenv("REMINDERS_REMINDERS_DELIVERY_POLICY", "require_success")
	t.Setenv("SA_PATH", "/secrets/sa.json")
	t.Setenv("DATABASE_URL", "https://example.firebaseio.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Store.Backend)
	assert.Equal(t, 4, cfg.Reminders.Concurrency)
	assert.Equal(t, "require_success", cfg.Reminders.DeliveryPolicy)
	assert.Equal(t, "/secrets/sa.json", cfg.Firebase.CredentialsFile)
	assert.Equal(t, "https://example.firebaseio.com", cfg.Firebase.DatabaseURL)
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "firebase", cfg.Store.Backend)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad zone", func(c *Config) { c.Reminders.ReferenceZone = "Mars/Olympus" }},
		{"bad backend", func(c *Config) { c.Store.Backend = "sqlite" }},
		{"bad policy", func(c *Config) { c.Reminders.DeliveryPolicy = "maybe" }},
		{"no providers", func(c *Config) { c.Push.FCM.Enabled = false }},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Push.Providers = append([]ProviderConfig(nil), base.Push.Providers...)
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
