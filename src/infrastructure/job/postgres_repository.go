package job

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

var ErrJobNotFound = errors.New("job not found")

type PostgresJobRepository struct {
	db *gorm.DB
}

func NewPostgresJobRepository(db *gorm.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Job{})
}

func (r *PostgresJobRepository) Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error) {
	job := &Job{
		TaskType: taskType,
		Payload:  payload,
		Status:   JobStatusPending,
	}

	result := r.db.WithContext(ctx).Create(job)
	if result.Error != nil {
		return nil, result.Error
	}

	return job, nil
}

func (r *PostgresJobRepository) Get(ctx context.Context, id int) (*Job, error) {
	var job Job
	result := r.db.WithContext(ctx).First(&job, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &job, nil
}

func (r *PostgresJobRepository) UpdateStatus(ctx context.Context, id int, status JobStatus, err *string) error {
	return r.update(ctx, id, map[string]interface{}{
		"status": status,
		"error":  err,
	})
}

func (r *PostgresJobRepository) SetReport(ctx context.Context, id int, reportID int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"report_id": reportID,
	})
}

func (r *PostgresJobRepository) update(ctx context.Context, id int, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}

	return nil
}
