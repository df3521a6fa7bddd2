package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/constructeye/constructeye/internal/jobs"
	"github.com/constructeye/constructeye/jobs"
)

// Job processes report generation requests coming from the queue.
type Job struct {
	service *Service
	metrics *jobmetrics.Metrics
	logger  *slog.Logger
}

// NewJob constructs a Job handler.
func NewJob(service *Service, metrics *jobmetrics.Metrics, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{service: service, metrics: metrics, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract. Malformed payloads and
// vanished records skip retries; transient failures bubble up for the queue
// to retry.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.service == nil {
		return fmt.Errorf("report job not configured")
	}
	var payload jobs.ReportGeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	id, err := uuid.Parse(payload.ReportID)
	if err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics.Track(jobs.TaskReportGenerate)
	err = j.service.Process(ctx, id)
	err = tracker.End(err)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return asynq.SkipRetry
		}
		j.logger.Error("report generation", slog.String("report_id", id.String()), slog.Any("error", err))
		return err
	}
	return nil
}
