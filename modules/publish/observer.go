package publish

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/publora/publora/pkg/queue"
	"github.com/publora/publora/pkg/telemetry"
)

// PipelineObserver translates queue job transitions into pipeline
// metrics and the failure leg of outcome recording. It is registered on
// the queue worker via queue.WithObserver.
type PipelineObserver struct {
	metrics  *telemetry.Metrics
	recorder *OutcomeRecorder
	log      *slog.Logger
}

// NewPipelineObserver creates the observer. metrics may be nil in
// setups that do not export any.
func NewPipelineObserver(metrics *telemetry.Metrics, recorder *OutcomeRecorder, logger *slog.Logger) *PipelineObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineObserver{metrics: metrics, recorder: recorder, log: logger}
}

var _ queue.Observer = (*PipelineObserver)(nil)

// JobStarted records queue lag once per job, on its first attempt. Later
// attempts are delayed by backoff rather than queue pressure, so their
// lag would measure the retry schedule instead.
func (o *PipelineObserver) JobStarted(job *queue.Job) {
	if job.Attempts != 0 || o.metrics == nil {
		return
	}
	payload, ok := o.decode(job)
	if !ok {
		return
	}
	// Lag is measured from the schedule's due time, not the enqueue time,
	// so it includes the sweeper's discovery delay.
	o.metrics.RecordQueueLag(context.Background(), string(payload.Platform), time.Since(payload.ScheduledAt))
}

func (o *PipelineObserver) JobSucceeded(job *queue.Job, duration time.Duration) {
	if o.metrics == nil {
		return
	}
	payload, ok := o.decode(job)
	if !ok {
		return
	}
	o.metrics.RecordSuccess(context.Background(), string(payload.Platform))
}

func (o *PipelineObserver) JobRetried(job *queue.Job, attempt int, delay time.Duration, err error) {
	payload, ok := o.decode(job)
	if !ok {
		return
	}
	o.log.Warn("publish retry scheduled",
		slog.String("schedule_id", payload.ScheduleID.String()),
		slog.String("platform", string(payload.Platform)),
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
		slog.String("error", err.Error()))
}

// JobDeadLettered counts the failure and records the terminal failed
// outcome on the schedule.
func (o *PipelineObserver) JobDeadLettered(job *queue.Job, err error) {
	payload, ok := o.decode(job)
	if !ok {
		return
	}

	if o.metrics != nil {
		o.metrics.RecordFailure(context.Background(), string(payload.Platform))
	}

	if o.recorder != nil {
		o.recorder.Record(context.Background(), payload.ScheduleID, Outcome{
			Success: false,
			Error:   err.Error(),
		})
	}
}

func (o *PipelineObserver) decode(job *queue.Job) (JobPayload, bool) {
	var payload JobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		o.log.Error("undecodable publish job payload",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
		return payload, false
	}
	return payload, true
}
