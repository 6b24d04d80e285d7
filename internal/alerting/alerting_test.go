package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/energyplatform/pkg/logging"
)

func TestDetectType(t *testing.T) {
	assert.Equal(t, "slack", DetectType("https://hooks.slack.com/services/x"))
	assert.Equal(t, "discord", DetectType("https://discord.com/api/webhooks/x"))
	assert.Equal(t, "generic", DetectType("https://alerts.example.org"))
}

func TestSendJobAlert_Threshold(t *testing.T) {
	var got map[string]interface{}
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	a := NewAlerter(Config{WebhookURL: srv.URL, MinFailures: 2}, logging.Discard())
	alert := JobAlert{
		JobName:             "invoice_retention",
		ConsecutiveFailures: 1,
		LastError:           "db down",
		Timestamp:           time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC),
	}

	sent, err := a.SendJobAlert(context.Background(), alert)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Zero(t, calls)

	alert.ConsecutiveFailures = 2
	sent, err = a.SendJobAlert(context.Background(), alert)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "job_failure", got["alert_type"])
	assert.Equal(t, "db down", got["last_error"])
	assert.Equal(t, "2026-03-01T03:00:00Z", got["timestamp"])
}

func TestSendJobAlert_Disabled(t *testing.T) {
	sent, err := NewAlerter(Config{}, logging.Discard()).SendJobAlert(context.Background(), JobAlert{ConsecutiveFailures: 10})
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestSendJobAlert_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewAlerter(Config{WebhookURL: srv.URL}, logging.Discard()).
		SendJobAlert(context.Background(), JobAlert{ConsecutiveFailures: 1})
	assert.Error(t, err)
}

func TestPayloadFormats(t *testing.T) {
	alert := JobAlert{JobName: "j", ConsecutiveFailures: 3, LastError: "e"}

	b, err := slackPayload(alert)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"blocks"`)

	b, err = discordPayload(alert)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"embeds"`)
}
