package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "energyplatform.db", cfg.Storage.DSN)
	assert.Equal(t, "America/Bogota", cfg.Location.String())
	assert.Equal(t, "none", cfg.Artifact.Kind)
	assert.Equal(t, "osm", cfg.Geocoding.Provider)
	assert.Equal(t, 5*time.Second, cfg.Geocoding.Timeout)
	assert.Equal(t, 256, cfg.Geocoding.CacheSize)
	assert.Equal(t, "@daily", cfg.Cron.Schedule)
	assert.Equal(t, 365, cfg.Cron.RetentionDays)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "billing-events", cfg.KafkaTopic)
	assert.False(t, cfg.Alerting.Enabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENERGYPLATFORM_DB_DRIVER", "postgres")
	t.Setenv("ENERGYPLATFORM_DB_DSN", "postgres://localhost/energy")
	t.Setenv("ENERGYPLATFORM_MAP_PROVIDER", "MAPBOX")
	t.Setenv("MAPBOX_TOKEN", "pk.test")
	t.Setenv("ENERGYPLATFORM_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ENERGYPLATFORM_CRON_SCHEDULE", "3600")
	t.Setenv("ENERGYPLATFORM_ARTIFACT_STORE", "s3")
	t.Setenv("ENERGYPLATFORM_S3_BUCKET", "invoices")
	t.Setenv("ENERGYPLATFORM_S3_PATH_STYLE", "true")
	t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.slack.com/services/x")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "mapbox", cfg.Geocoding.Provider)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "3600", cfg.Cron.Schedule)
	assert.True(t, cfg.Artifact.S3UsePathStyle)
	assert.Equal(t, "slack", cfg.Alerting.WebhookType)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"timeout":  {"ENERGYPLATFORM_GEOCODE_TIMEOUT", "soon"},
		"cache":    {"ENERGYPLATFORM_GEOCODE_CACHE_SIZE", "-1"},
		"bool":     {"ENERGYPLATFORM_AUTO_MIGRATE", "maybe"},
		"timezone": {"ENERGYPLATFORM_TIMEZONE", "Mars/Olympus"},
		"schedule": {"ENERGYPLATFORM_CRON_SCHEDULE", "whenever"},
		"provider": {"ENERGYPLATFORM_MAP_PROVIDER", "google"},
		"mapbox":   {"ENERGYPLATFORM_MAP_PROVIDER", "mapbox"},
		"s3":       {"ENERGYPLATFORM_ARTIFACT_STORE", "s3"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
