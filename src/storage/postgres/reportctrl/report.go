package reportctrl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/evaluation"
)

// Report is a stored evaluation run. Headline metrics are columns so runs can
// be compared in SQL; the full report is kept in Body.
type Report struct {
	ID                  int64     `gorm:"primaryKey" json:"id"`
	RunID               string    `gorm:"not null;uniqueIndex" json:"run_id"`
	EntityType          string    `gorm:"not null;index" json:"entity_type"`
	Documents           int       `gorm:"not null" json:"documents"`
	ClassifiedCorrect   int       `gorm:"not null" json:"classified_correct"`
	ClassifiedIncorrect int       `gorm:"not null" json:"classified_incorrect"`
	Missed              int       `gorm:"not null" json:"missed"`
	Correct             int       `gorm:"not null" json:"correct"`
	Precision           *float64  `json:"precision"`
	Recall              *float64  `json:"recall"`
	MRRMin              *float64  `gorm:"column:mrr_min" json:"mrr_min"`
	MRRMax              *float64  `gorm:"column:mrr_max" json:"mrr_max"`
	RandomMRRMin        *float64  `gorm:"column:random_mrr_min" json:"random_mrr_min"`
	RandomMRRMax        *float64  `gorm:"column:random_mrr_max" json:"random_mrr_max"`
	Body                []byte    `gorm:"type:jsonb;not null" json:"-"`
	CreatedAt           time.Time `json:"created_at"`
}

func (Report) TableName() string {
	return "evaluation_reports"
}

// FromEvaluation flattens an evaluation report into a row without an ID.
func FromEvaluation(rep *evaluation.Report) (*Report, error) {
	body, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	row := &Report{
		RunID:               rep.RunID,
		EntityType:          rep.Type,
		Documents:           rep.Totals.Documents,
		ClassifiedCorrect:   rep.Totals.ClassifiedCorrect,
		ClassifiedIncorrect: rep.Totals.ClassifiedIncorrect,
		Missed:              rep.Totals.Missed,
		Correct:             rep.Totals.Correct,
		Precision:           rep.Precision,
		Recall:              rep.Recall,
		Body:                body,
	}
	if r := rep.Ranking; r != nil {
		if r.Real != nil {
			row.MRRMin, row.MRRMax = &r.Real.Min, &r.Real.Max
		}
		if r.Random != nil {
			row.RandomMRRMin, row.RandomMRRMax = &r.Random.Min, &r.Random.Max
		}
	}
	return row, nil
}

// Decode returns the full evaluation report stored in Body.
func (r *Report) Decode() (*evaluation.Report, error) {
	var rep evaluation.Report
	if err := json.Unmarshal(r.Body, &rep); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %d: %w", r.ID, err)
	}
	return &rep, nil
}

type ReportService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewReportService(db *gorm.DB) (*ReportService, error) {
	node, err := snowflake.NewNode(4) // Node number 4 for reports
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &ReportService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *ReportService) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Report{}); err != nil {
		return fmt.Errorf("failed to migrate reports: %v", err)
	}
	return nil
}

func (s *ReportService) Save(ctx context.Context, rep *evaluation.Report) (*Report, error) {
	row, err := FromEvaluation(rep)
	if err != nil {
		return nil, err
	}
	row.ID = s.snowflake.Generate().Int64()

	result := s.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create report: %v", result.Error)
	}
	return row, nil
}

func (s *ReportService) GetByID(ctx context.Context, id int64) (*Report, error) {
	var row Report
	result := s.db.WithContext(ctx).First(&row, id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %v", result.Error)
	}
	return &row, nil
}

// List returns the newest reports, optionally for one entity type.
func (s *ReportService) List(ctx context.Context, entityType string, limit int, offset int) ([]Report, error) {
	var rows []Report

	query := s.db.WithContext(ctx).Omit("body").Order("created_at DESC")
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	result := query.Limit(limit).Offset(offset).Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list reports: %v", result.Error)
	}
	return rows, nil
}
