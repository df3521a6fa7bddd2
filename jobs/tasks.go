// Package jobs defines the queue task catalogue plus the worker and client
// wrappers around asynq.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueReports carries report generation, isolated so a burst of heavy
	// PDF renders never starves maintenance tasks.
	QueueReports = "reports"

	// TaskReportGenerate renders one queued report document.
	TaskReportGenerate = "report:generate"
	// TaskDashboardWarmup recomputes the portfolio dashboard after a cache bump.
	TaskDashboardWarmup = "dashboard:warmup"
)

// ReportGeneratePayload identifies the pending report log entry to fulfil.
type ReportGeneratePayload struct {
	ReportID string `json:"reportId"`
}

// NewReportGenerateTask constructs an Asynq task for one report request.
func NewReportGenerateTask(payload ReportGeneratePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportGenerate, data), nil
}

// DashboardWarmupPayload scopes a warmup run. An empty scope warms the whole
// portfolio overview.
type DashboardWarmupPayload struct {
	Scope string `json:"scope,omitempty"`
}

// NewDashboardWarmupTask constructs an Asynq task for a dashboard warmup.
func NewDashboardWarmupTask(payload DashboardWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardWarmup, data), nil
}
