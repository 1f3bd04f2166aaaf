package job

import (
	"context"
	"encoding/json"
	"time"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

const (
	JobsTopic      = "evaluation_jobs"
	CompletedTopic = "evaluation_completed"
)

// Job represents a queued evaluation run
type Job struct {
	ID        int             `json:"id"`
	TaskType  string          `json:"task_type"`
	Payload   json.RawMessage `gorm:"type:jsonb" json:"payload"`
	Status    JobStatus       `json:"status"`
	Error     *string         `json:"error,omitempty"`
	ReportID  *int64          `json:"report_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Job) TableName() string {
	return "evaluation_jobs"
}

// JobRepository defines the interface for job persistence
type JobRepository interface {
	Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error)
	Get(ctx context.Context, id int) (*Job, error)
	UpdateStatus(ctx context.Context, id int, status JobStatus, err *string) error
	SetReport(ctx context.Context, id int, reportID int64) error
}
