package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds alerting configuration.
type Config struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom)
	WebhookURL string
	// WebhookType determines the payload format: "slack", "discord", or "generic"
	WebhookType string
	// MinFailures is the number of consecutive failures before an alert is sent.
	MinFailures int
	Timeout     time.Duration
}

// Enabled reports whether a webhook is configured.
func (c Config) Enabled() bool { return c.WebhookURL != "" }

// DetectType guesses the payload format from the webhook host.
func DetectType(webhookURL string) string {
	switch {
	case strings.Contains(webhookURL, "slack.com"):
		return "slack"
	case strings.Contains(webhookURL, "discord.com"):
		return "discord"
	}
	return "generic"
}

// Alerter sends alerts to configured webhooks.
type Alerter struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

func NewAlerter(cfg Config, log *slog.Logger) *Alerter {
	if cfg.WebhookType == "" {
		cfg.WebhookType = DetectType(cfg.WebhookURL)
	}
	if cfg.MinFailures <= 0 {
		cfg.MinFailures = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// JobAlert describes a scheduled job that keeps failing.
type JobAlert struct {
	JobName             string
	ConsecutiveFailures int
	LastError           string
	Duration            time.Duration
	Timestamp           time.Time
}

// SendJobAlert posts the alert when the failure threshold has been reached.
// It returns false when the alert was skipped.
func (a *Alerter) SendJobAlert(ctx context.Context, alert JobAlert) (bool, error) {
	if !a.cfg.Enabled() {
		a.log.Debug("alerting: alerts disabled, skipping")
		return false, nil
	}
	if alert.ConsecutiveFailures < a.cfg.MinFailures {
		a.log.Debug("alerting: failures below threshold, skipping",
			"failures", alert.ConsecutiveFailures, "threshold", a.cfg.MinFailures)
		return false, nil
	}

	var payload []byte
	var err error
	switch a.cfg.WebhookType {
	case "slack":
		payload, err = slackPayload(alert)
	case "discord":
		payload, err = discordPayload(alert)
	default:
		payload, err = genericPayload(alert)
	}
	if err != nil {
		return false, fmt.Errorf("build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	a.log.Info("alerting: sent job alert", "job", alert.JobName, "failures", alert.ConsecutiveFailures)
	return true, nil
}

func slackPayload(alert JobAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf(":x: Job Alert: %s", alert.JobName),
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Consecutive failures:*\n%d", alert.ConsecutiveFailures)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Timestamp:*\n%s", alert.Timestamp.Format(time.RFC3339))},
				},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Last error:*\n%s", alert.LastError),
				},
			},
		},
	}
	return json.Marshal(payload)
}

func discordPayload(alert JobAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       fmt.Sprintf("Job Alert: %s", alert.JobName),
				"description": alert.LastError,
				"color":       16711680, // red
				"fields": []map[string]interface{}{
					{"name": "Consecutive failures", "value": fmt.Sprintf("%d", alert.ConsecutiveFailures), "inline": true},
					{"name": "Duration", "value": alert.Duration.Round(time.Millisecond).String(), "inline": true},
				},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}
	return json.Marshal(payload)
}

func genericPayload(alert JobAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"alert_type":           "job_failure",
		"job_name":             alert.JobName,
		"consecutive_failures": alert.ConsecutiveFailures,
		"last_error":           alert.LastError,
		"duration_ms":          alert.Duration.Milliseconds(),
		"timestamp":            alert.Timestamp.Format(time.RFC3339),
	}
	return json.Marshal(payload)
}
