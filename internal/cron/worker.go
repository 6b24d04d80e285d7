// Package cron runs the invoice retention job on a schedule.
package cron

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/bher20/energyplatform/internal/alerting"
	"github.com/bher20/energyplatform/internal/metrics"
	"github.com/bher20/energyplatform/internal/storage"
)

const (
	JobName = "invoice_retention"

	// Settings that override the configured values at runtime.
	SettingSchedule      = "retention_schedule"
	SettingRetentionDays = "retention_days"

	lockKey      int64 = 42
	pollInterval       = 10 * time.Second
)

// Config controls the retention job.
type Config struct {
	// Schedule is either a number of seconds or a standard cron expression.
	Schedule      string
	RetentionDays int
}

// Worker purges archived invoices older than the retention window.
type Worker struct {
	st       storage.Storage
	alerter  *alerting.Alerter
	clock    clockwork.Clock
	log      *slog.Logger
	cfg      Config
	failures int
}

func NewWorker(st storage.Storage, cfg Config, alerter *alerting.Alerter, clock clockwork.Clock, log *slog.Logger) *Worker {
	if cfg.Schedule == "" {
		cfg.Schedule = "@daily"
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 365
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{st: st, alerter: alerter, clock: clock, log: log, cfg: cfg}
}

// NextRun computes when a job with the given schedule runs after last.
// Unparseable schedules fall back to one hour.
func NextRun(schedule string, last time.Time) time.Time {
	if v, err := strconv.Atoi(schedule); err == nil && v > 0 {
		return last.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(schedule); err == nil {
		return sched.Next(last)
	}
	return last.Add(time.Hour)
}

// ValidSchedule reports whether NextRun understands the schedule.
func ValidSchedule(schedule string) bool {
	if v, err := strconv.Atoi(schedule); err == nil {
		return v > 0
	}
	_, err := cron.ParseStandard(schedule)
	return err == nil
}

func (w *Worker) setting(ctx context.Context, key, fallback string) string {
	if val, err := w.st.GetSetting(ctx, key); err == nil && val != "" {
		return val
	}
	return fallback
}

func (w *Worker) retentionDays(ctx context.Context) int {
	raw := w.setting(ctx, SettingRetentionDays, strconv.Itoa(w.cfg.RetentionDays))
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return w.cfg.RetentionDays
}

// RunOnce executes the job a single time under the advisory lock. It
// returns the number of purged invoices; skipped is true when another
// worker holds the lock.
func (w *Worker) RunOnce(ctx context.Context) (purged int64, skipped bool, err error) {
	started := w.clock.Now()

	ok, err := w.st.AcquireAdvisoryLock(ctx, lockKey)
	if err != nil {
		w.log.Error("cron: acquire advisory lock failed", "error", err)
		w.record(ctx, started, err)
		return 0, false, err
	}
	if !ok {
		w.log.Info("cron: advisory lock held by another worker, skipping run")
		return 0, true, nil
	}
	defer func() {
		if _, err := w.st.ReleaseAdvisoryLock(ctx, lockKey); err != nil {
			w.log.Warn("cron: release advisory lock failed", "error", err)
		}
	}()

	days := w.retentionDays(ctx)
	cutoff := started.AddDate(0, 0, -days)
	purged, err = w.st.DeleteInvoicesBefore(ctx, cutoff)
	if err == nil {
		metrics.InvoicesPurgedTotal.Add(float64(purged))
	}
	w.record(ctx, started, err)

	if err != nil {
		w.log.Error("cron: job completed with error", "job", JobName, "error", err)
	} else {
		w.log.Info("cron: job completed", "job", JobName, "purged", purged, "cutoff", cutoff.Format(time.RFC3339))
	}
	return purged, false, err
}

func (w *Worker) record(ctx context.Context, started time.Time, runErr error) {
	finished := w.clock.Now()
	metrics.UpdateJobMetrics(JobName, started, finished, runErr)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := w.st.UpdateScheduledJob(ctx, JobName, started, finished.Sub(started), runErr == nil, errMsg); err != nil {
		w.log.Warn("cron: update scheduled_jobs failed", "error", err)
	}

	if runErr == nil {
		w.failures = 0
		return
	}
	w.failures++
	if w.alerter == nil {
		return
	}
	_, err := w.alerter.SendJobAlert(ctx, alerting.JobAlert{
		JobName:             JobName,
		ConsecutiveFailures: w.failures,
		LastError:           errMsg,
		Duration:            finished.Sub(started),
		Timestamp:           finished,
	})
	if err != nil {
		w.log.Warn("cron: send alert failed", "error", err)
	}
}

// Run executes the job immediately and then on schedule until ctx is done.
// The schedule setting is re-read on every poll so it can change at runtime.
func (w *Worker) Run(ctx context.Context) error {
	schedule := w.setting(ctx, SettingSchedule, w.cfg.Schedule)
	nextRun := w.clock.Now()

	ticker := w.clock.NewTicker(pollInterval)
	defer ticker.Stop()

	w.log.Info("cron: worker starting", "schedule", schedule, "retention_days", w.retentionDays(ctx))

	for {
		if !w.clock.Now().Before(nextRun) {
			w.RunOnce(ctx)
			nextRun = NextRun(schedule, w.clock.Now())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if val := w.setting(ctx, SettingSchedule, schedule); val != schedule {
				w.log.Info("cron: schedule updated", "from", schedule, "to", val)
				schedule = val
				nextRun = NextRun(schedule, w.clock.Now())
			}
		}
	}
}
