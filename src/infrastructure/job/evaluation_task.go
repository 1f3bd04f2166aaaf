package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/evaluation"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/fsutil"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/storage/postgres/reportctrl"
)

const TaskTypeEvaluation = "evaluation"

var ErrInvalidPayload = errors.New("invalid evaluation payload")

type EvaluationPayload struct {
	ClassifiedURL  string  `json:"classified_url"`
	GroundTruthURL string  `json:"ground_truth_url"`
	Type           string  `json:"type"`
	Ranking        bool    `json:"ranking"`
	Join           string  `json:"join,omitempty"`
	Seed           *uint64 `json:"seed,omitempty"`
}

func (p EvaluationPayload) Validate() error {
	switch {
	case p.ClassifiedURL == "":
		return fmt.Errorf("%w: classified_url is required", ErrInvalidPayload)
	case p.GroundTruthURL == "":
		return fmt.Errorf("%w: ground_truth_url is required", ErrInvalidPayload)
	case p.Type == "":
		return fmt.Errorf("%w: type is required", ErrInvalidPayload)
	}
	if _, err := evaluation.ParseJoin(p.Join); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// ReportStore persists finished reports.
type ReportStore interface {
	Save(ctx context.Context, rep *evaluation.Report) (*reportctrl.Report, error)
}

// ReportArchive keeps a JSON copy of each report in object storage.
type ReportArchive interface {
	PutObject(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
}

type EvaluationTask struct {
	source        fsutil.Source
	reports       ReportStore
	archive       ReportArchive
	archiveBucket string
}

// NewEvaluationTask wires the inputs and outputs of queued evaluations.
// reports and archive may be nil.
func NewEvaluationTask(source fsutil.Source, reports ReportStore, archive ReportArchive, archiveBucket string) *EvaluationTask {
	return &EvaluationTask{
		source:        source,
		reports:       reports,
		archive:       archive,
		archiveBucket: archiveBucket,
	}
}

// EvaluationOutcome is what a finished evaluation job produced.
type EvaluationOutcome struct {
	Report   *evaluation.Report
	ReportID *int64
}

func (task *EvaluationTask) HandleEvaluationTask(ctx context.Context, payload json.RawMessage) (*EvaluationOutcome, error) {
	var p EvaluationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	classified, err := task.source.Open(ctx, p.ClassifiedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open classifier output: %w", err)
	}
	defer classified.Close()

	groundTruth, err := task.source.Open(ctx, p.GroundTruthURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open ground truth: %w", err)
	}
	defer groundTruth.Close()

	rep, err := evaluation.Run(ctx, classified, groundTruth, evaluation.Options{
		Type:    p.Type,
		Ranking: p.Ranking,
		Join:    evaluation.Join(p.Join),
		Seed:    p.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate: %w", err)
	}

	outcome := &EvaluationOutcome{Report: rep}
	if task.reports != nil {
		row, err := task.reports.Save(ctx, rep)
		if err != nil {
			return nil, fmt.Errorf("failed to save report: %w", err)
		}
		outcome.ReportID = &row.ID
	}

	if task.archive != nil {
		body, err := json.Marshal(rep)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		object := fmt.Sprintf("reports/%s/%s.json", rep.Type, rep.RunID)
		if err := task.archive.PutObject(ctx, task.archiveBucket, object, body, "application/json"); err != nil {
			return nil, fmt.Errorf("failed to archive report: %w", err)
		}
	}

	return outcome, nil
}
