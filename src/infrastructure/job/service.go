package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type JobService struct {
	publisher      message.Publisher
	repo           JobRepository
	logger         watermill.LoggerAdapter
	evaluationTask *EvaluationTask
}

type JobMessage struct {
	JobID    int             `json:"job_id"`
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

// CompletedEvent is published on CompletedTopic when an evaluation job succeeds.
type CompletedEvent struct {
	JobID     int      `json:"job_id"`
	RunID     string   `json:"run_id"`
	ReportID  *int64   `json:"report_id,omitempty"`
	Type      string   `json:"type"`
	Documents int      `json:"documents"`
	Precision *float64 `json:"precision"`
	Recall    *float64 `json:"recall"`
}

func NewJobService(
	publisher message.Publisher,
	repo JobRepository,
	logger watermill.LoggerAdapter,
	evaluationTask *EvaluationTask,
) *JobService {
	return &JobService{
		publisher:      publisher,
		repo:           repo,
		logger:         logger,
		evaluationTask: evaluationTask,
	}
}

// EnqueueEvaluation validates the payload, creates a job and publishes it.
func (s *JobService) EnqueueEvaluation(ctx context.Context, payload EvaluationPayload) (*Job, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal evaluation payload: %w", err)
	}
	return s.EnqueueJob(ctx, TaskTypeEvaluation, raw)
}

// EnqueueJob creates a new job and publishes it to the message queue
func (s *JobService) EnqueueJob(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	job, err := s.repo.Create(ctx, taskType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	jobMsg := JobMessage{
		JobID:    job.ID,
		TaskType: job.TaskType,
		Payload:  job.Payload,
	}

	msgPayload, err := json.Marshal(jobMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgPayload)
	if err := s.publisher.Publish(JobsTopic, msg); err != nil {
		return nil, fmt.Errorf("failed to publish job message: %w", err)
	}

	return job, nil
}

// ProcessJobMessage processes a job message from the queue
func (s *JobService) ProcessJobMessage(msg *message.Message) error {
	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Payload, &jobMsg); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	ctx := msg.Context()

	job, err := s.repo.Get(ctx, jobMsg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("%w: %d", ErrJobNotFound, jobMsg.JobID)
	}

	if job.Status == JobStatusCompleted {
		s.logger.Info("Job already completed, skipping", watermill.LogFields{"job_id": job.ID})
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusRunning, nil); err != nil {
		return fmt.Errorf("failed to update job status to running: %w", err)
	}

	err = s.processJob(ctx, job)

	if err != nil {
		errStr := err.Error()
		if updateErr := s.repo.UpdateStatus(ctx, job.ID, JobStatusFailed, &errStr); updateErr != nil {
			s.logger.Error("Failed to update job status to failed", updateErr, watermill.LogFields{
				"job_id": job.ID,
			})
		}
		return fmt.Errorf("failed to process job: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusCompleted, nil); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	return nil
}

// processJob handles different types of jobs
func (s *JobService) processJob(ctx context.Context, job *Job) error {
	switch job.TaskType {
	case TaskTypeEvaluation:
		if s.evaluationTask == nil {
			return fmt.Errorf("no evaluation task configured")
		}
		if job.ReportID != nil {
			s.logger.Info("Job already has a report, skipping evaluation", watermill.LogFields{
				"job_id":    job.ID,
				"report_id": *job.ReportID,
			})
			return nil
		}
		outcome, err := s.evaluationTask.HandleEvaluationTask(ctx, job.Payload)
		if err != nil {
			return err
		}
		if outcome.ReportID != nil {
			if err := s.repo.SetReport(ctx, job.ID, *outcome.ReportID); err != nil {
				return fmt.Errorf("failed to link report: %w", err)
			}
		}
		s.logger.Info("Evaluation job finished", watermill.LogFields{
			"job_id":    job.ID,
			"run_id":    outcome.Report.RunID,
			"documents": len(outcome.Report.Documents),
		})
		// The report is stored at this point. A failed notification must not
		// send the message back through the retry middleware.
		if err := s.publishCompleted(job, outcome); err != nil {
			s.logger.Error("Failed to publish completed event", err, watermill.LogFields{
				"job_id": job.ID,
				"run_id": outcome.Report.RunID,
			})
		}
		return nil
	default:
		return fmt.Errorf("unknown task type: %s", job.TaskType)
	}
}

func (s *JobService) publishCompleted(job *Job, outcome *EvaluationOutcome) error {
	rep := outcome.Report
	event := CompletedEvent{
		JobID:     job.ID,
		RunID:     rep.RunID,
		ReportID:  outcome.ReportID,
		Type:      rep.Type,
		Documents: len(rep.Documents),
		Precision: rep.Precision,
		Recall:    rep.Recall,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal completed event: %w", err)
	}

	if err := s.publisher.Publish(CompletedTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return fmt.Errorf("failed to publish completed event: %w", err)
	}
	return nil
}
