// internal/fanout/orchestrator.go
package fanout

import (
	"context"
	"time"

	"weather-notify/internal/common/logger"
	"weather-notify/internal/common/metrics"
	"weather-notify/internal/store"
	"weather-notify/internal/weather"

	"github.com/google/uuid"
)

// RecipientSource is the slice of the store the orchestrator scans.
type RecipientSource interface {
	EligibleRecipients(ctx context.Context, limit int) ([]store.Recipient, error)
}

// WeatherFetcher provides one current-conditions snapshot per coordinate pair.
type WeatherFetcher interface {
	FetchCurrent(ctx context.Context, lat, lon float64) (weather.Snapshot, error)
}

// BatchDispatcher sends one composed batch to the push provider.
type BatchDispatcher interface {
	Dispatch(ctx context.Context, batch Batch, msg Message, notificationID string) Result
}

// Config tunes one orchestration run.
type Config struct {
	// BatchLimit is the provider's maximum tokens per call.
	BatchLimit int
	// ScanLimit bounds how many recipients one run loads; the rest wait for
	// the next trigger so the run stays inside its wall-clock budget.
	ScanLimit int
	// AppBaseURL is the mini-app URL notifications link back to.
	AppBaseURL string
}

// Orchestrator ties store scan, grouping, batching, weather fetch, composing
// and dispatch into one sequential end-to-end run.
type Orchestrator struct {
	cfg        Config
	recipients RecipientSource
	weather    WeatherFetcher
	dispatcher BatchDispatcher
	logger     logger.Logger
	now        func() time.Time
}

func NewOrchestrator(
	cfg Config,
	recipients RecipientSource,
	weatherClient WeatherFetcher,
	dispatcher BatchDispatcher,
	log logger.Logger,
) *Orchestrator {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultBatchLimit
	}
	return &Orchestrator{
		cfg:        cfg,
		recipients: recipients,
		weather:    weatherClient,
		dispatcher: dispatcher,
		logger:     log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		now:        time.Now,
	}
}

// Run executes one fan-out pass. Groups and batches are processed strictly
// sequentially; a failed batch is recorded and the run continues, while a
// store failure aborts the whole run (no recipient data to work from).
// Every group/batch is attempted exactly once per run.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	start := o.now()
	report := Report{RunID: uuid.NewString()}

	recipients, err := o.recipients.EligibleRecipients(ctx, o.cfg.ScanLimit)
	if err != nil {
		metrics.FanoutRuns.WithLabelValues("aborted").Inc()
		return report, err
	}

	order, buckets := Group(recipients)
	day := start.UTC()

	for _, groupKey := range order {
		for _, batch := range SplitBatches(groupKey, buckets[groupKey], o.cfg.BatchLimit) {
			report.TotalBatches++
			report.Results = append(report.Results, o.processBatch(ctx, batch, day))
		}
		report.GroupsProcessed++
	}

	outcome := "ok"
	for _, res := range report.Results {
		if !res.Success {
			outcome = "partial"
			break
		}
	}
	metrics.FanoutRuns.WithLabelValues(outcome).Inc()
	metrics.FanoutRunDuration.Observe(time.Since(start).Seconds())

	o.logger.Info("fan-out run complete", map[string]interface{}{
		"runId":           report.RunID,
		"groupsProcessed": report.GroupsProcessed,
		"totalBatches":    report.TotalBatches,
		"outcome":         outcome,
	})
	return report, nil
}

// processBatch fetches one snapshot from the batch's representative recipient
// (the first encountered in the bucket), composes the message and dispatches.
func (o *Orchestrator) processBatch(ctx context.Context, batch Batch, day time.Time) Result {
	representative := batch.Recipients[0]

	snapshot, err := o.weather.FetchCurrent(ctx, representative.Latitude, representative.Longitude)
	if err != nil {
		o.logger.Warn("weather fetch failed, batch skipped", map[string]interface{}{
			"batchKey": batch.Key(),
			"error":    err.Error(),
		})
		metrics.BatchesDispatched.WithLabelValues("failed").Inc()
		return Result{
			BatchKey:       batch.Key(),
			RecipientCount: len(batch.Recipients),
			Error:          err.Error(),
		}
	}

	msg := Compose(snapshot, representative.Label, o.cfg.AppBaseURL)
	return o.dispatcher.Dispatch(ctx, batch, msg, DailyNotificationID(day, batch.GroupKey))
}
