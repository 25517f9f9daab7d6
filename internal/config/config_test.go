package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRequiresDatabaseURL(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())

	cfg.Database.URL = "postgres://localhost/warnengine"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warnengine.toml")
	content := `
environment = "staging"

[database]
url = "postgres://db/warnengine"

[delivery]
batch_size = 25
send_timeout = "3s"
agency_timezone = "UTC"

[delivery.channel_rates]
SMS = 1.5

[scheduler]
escalation_interval = "5m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Default()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "postgres://db/warnengine", cfg.Database.URL)
	assert.Equal(t, 25, cfg.Delivery.BatchSize)
	assert.Equal(t, 3*time.Second, cfg.Delivery.SendTimeout)
	assert.Equal(t, 1.5, cfg.Delivery.ChannelRates["SMS"])
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.EscalationInterval)
	// untouched sections keep their defaults
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Scheduler.HourlyInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warnengine.toml")
	require.NoError(t, os.WriteFile(path, []byte("[redis]\naddr = \"file:6379\"\n"), 0o600))

	t.Setenv(ConfigPathEnv, path)
	t.Setenv("DATABASE_URL", "postgres://env/warnengine")
	t.Setenv("REDIS_ADDR", "env:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }},
		{"production without auth", func(c *Config) { c.Environment = "production" }},
		{"claim shorter than send", func(c *Config) { c.Delivery.ClaimStaleAfter = time.Second }},
		{"zero rate", func(c *Config) { c.Delivery.ChannelRates["EMAIL"] = 0 }},
		{"unknown timezone", func(c *Config) { c.Delivery.AgencyTimezone = "Mars/Olympus" }},
		{"kafka without topic", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Topic = "" }},
		{"zero interval", func(c *Config) { c.Scheduler.DeliveryInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.URL = "postgres://localhost/warnengine"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
