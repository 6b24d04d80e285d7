package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bher20/energyplatform/internal/alerting"
	"github.com/bher20/energyplatform/internal/artifact"
	"github.com/bher20/energyplatform/internal/cron"
	"github.com/bher20/energyplatform/internal/geocoding"
	"github.com/bher20/energyplatform/internal/storage"
)

const prefix = "ENERGYPLATFORM_"

// Config is the whole process configuration.
type Config struct {
	Port            string
	ShutdownTimeout time.Duration
	RatesFile       string
	Location        *time.Location
	PlatformName    string
	Organization    string

	KafkaBrokers []string
	KafkaTopic   string

	Storage   storage.Config
	Artifact  artifact.Config
	Geocoding geocoding.Config
	Cron      cron.Config
	Alerting  alerting.Config
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() (Config, error) {
	var errs []string
	check := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	shutdown, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	check(err)
	autoMigrate, err := envBool(prefix+"AUTO_MIGRATE", false)
	check(err)
	pathStyle, err := envBool(prefix+"S3_PATH_STYLE", false)
	check(err)
	geoTimeout, err := envDuration(prefix+"GEOCODE_TIMEOUT", 5*time.Second)
	check(err)
	cacheSize, err := envInt(prefix+"GEOCODE_CACHE_SIZE", 256)
	check(err)
	redisTTL, err := envDuration(prefix+"GEOCODE_CACHE_TTL", 24*time.Hour)
	check(err)
	retention, err := envInt(prefix+"RETENTION_DAYS", 365)
	check(err)
	minFailures, err := envInt("ALERT_MIN_FAILURES", 1)
	check(err)

	tz := env(prefix+"TIMEZONE", "America/Bogota")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid %sTIMEZONE: %q", prefix, tz))
	}

	schedule := env(prefix+"CRON_SCHEDULE", "@daily")
	if !cron.ValidSchedule(schedule) {
		errs = append(errs, fmt.Sprintf("invalid %sCRON_SCHEDULE: %q", prefix, schedule))
	}

	provider := strings.ToLower(env(prefix+"MAP_PROVIDER", "osm"))
	mapboxToken := env("MAPBOX_TOKEN", "")
	switch provider {
	case "osm":
	case "mapbox":
		if mapboxToken == "" {
			errs = append(errs, prefix+"MAP_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid %sMAP_PROVIDER: %q", prefix, provider))
	}

	artifactKind := env(prefix+"ARTIFACT_STORE", "none")
	if artifactKind == "s3" && env(prefix+"S3_BUCKET", "") == "" {
		errs = append(errs, prefix+"ARTIFACT_STORE is s3 but "+prefix+"S3_BUCKET is not set")
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}

	webhook := env("ALERT_WEBHOOK_URL", "")
	return Config{
		Port:            env("PORT", "8000"),
		ShutdownTimeout: shutdown,
		RatesFile:       env(prefix+"RATES_FILE", ""),
		Location:        loc,
		PlatformName:    env(prefix+"PLATFORM_NAME", ""),
		Organization:    env(prefix+"ORGANIZATION", ""),

		KafkaBrokers: splitList(env(prefix+"KAFKA_BROKERS", "")),
		KafkaTopic:   env(prefix+"KAFKA_TOPIC", "billing-events"),

		Storage: storage.Config{
			Driver:      env(prefix+"DB_DRIVER", "sqlite"),
			DSN:         env(prefix+"DB_DSN", "energyplatform.db"),
			AutoMigrate: autoMigrate,
		},
		Artifact: artifact.Config{
			Kind:           artifactKind,
			Dir:            env(prefix+"ARTIFACT_DIR", "invoices"),
			S3Bucket:       env(prefix+"S3_BUCKET", ""),
			S3Region:       env(prefix+"S3_REGION", "us-east-1"),
			S3Endpoint:     env(prefix+"S3_ENDPOINT", ""),
			S3AccessKey:    env(prefix+"S3_ACCESS_KEY", ""),
			S3SecretKey:    env(prefix+"S3_SECRET_KEY", ""),
			S3UsePathStyle: pathStyle,
		},
		Geocoding: geocoding.Config{
			Provider:     provider,
			NominatimURL: env(prefix+"NOMINATIM_URL", geocoding.DefaultNominatimURL),
			MapboxURL:    env(prefix+"MAPBOX_URL", geocoding.DefaultMapboxURL),
			MapboxToken:  mapboxToken,
			UserAgent:    env(prefix+"USER_AGENT", "energyplatform/1.0"),
			Timeout:      geoTimeout,
			CacheSize:    cacheSize,
			RedisURL:     env(prefix+"REDIS_URL", ""),
			RedisTTL:     redisTTL,
		},
		Cron: cron.Config{
			Schedule:      schedule,
			RetentionDays: retention,
		},
		Alerting: alerting.Config{
			WebhookURL:  webhook,
			WebhookType: env("ALERT_WEBHOOK_TYPE", alerting.DetectType(webhook)),
			MinFailures: minFailures,
			Timeout:     10 * time.Second,
		},
	}, nil
}
