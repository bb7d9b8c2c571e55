package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/glassline-erp/glassline-erp/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuotesExpire is the task type for the stale-quote sweep.
	TaskQuotesExpire = "quotes:expire"
)

// QuoteExpirer marks sent quotes older than the validity window as expired.
type QuoteExpirer interface {
	ExpireStale(ctx context.Context, validity time.Duration) (int64, error)
}

// QuotesExpirePayload carries the validity window for a sweep run.
type QuotesExpirePayload struct {
	Validity time.Duration `json:"validity"`
}

// NewQuotesExpireTask constructs an Asynq task for the expiry sweep.
func NewQuotesExpireTask(payload QuotesExpirePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotesExpire, data), nil
}

// NewQuotesExpireHandler returns the handler processing TaskQuotesExpire
// tasks. metrics may be nil.
func NewQuotesExpireHandler(expirer QuoteExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload QuotesExpirePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.Validity <= 0 {
			return asynq.SkipRetry
		}

		tracker := metrics.Track(TaskQuotesExpire)
		expired, err := expirer.ExpireStale(ctx, payload.Validity)
		if err != nil {
			logger.Error("quote expiry sweep failed", slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.AddExpiredQuotes(expired)
		if expired > 0 {
			logger.Info("quote expiry sweep", slog.Int64("expired", expired))
		}
		return tracker.End(nil)
	}
}
