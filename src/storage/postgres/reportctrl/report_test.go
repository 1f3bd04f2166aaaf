package reportctrl_test

import (
	"context"
	"strings"
	"testing"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/evaluation"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/storage/postgres/reportctrl"
)

func TestFromEvaluation(t *testing.T) {
	s := uint64(3)
	rep, err := evaluation.Run(context.Background(),
		strings.NewReader(`{"doc_id":"1","accepted":["a","b"],"rejected":["c"],"negative_probs":[0.1,0.5,0.9],"labels":[1,0,1]}`),
		strings.NewReader(`{"doc_id":"1","correct_cities":["a","c"],"annotated_cities":["a","b","c"]}`),
		evaluation.Options{Type: "cities", Ranking: true, Seed: &s})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	row, err := reportctrl.FromEvaluation(rep)
	if err != nil {
		t.Fatalf("FromEvaluation() error = %v", err)
	}

	if row.RunID != rep.RunID || row.EntityType != "cities" || row.Documents != 1 {
		t.Errorf("row = %+v", row)
	}
	if row.ClassifiedCorrect != 1 || row.ClassifiedIncorrect != 1 || row.Missed != 1 || row.Correct != 2 {
		t.Errorf("row counts = %d, %d, %d, %d", row.ClassifiedCorrect, row.ClassifiedIncorrect, row.Missed, row.Correct)
	}
	if row.MRRMin == nil || *row.MRRMin != 1.0 || row.MRRMax == nil || *row.MRRMax != 1.0/3 {
		t.Errorf("row MRR = %v, %v", row.MRRMin, row.MRRMax)
	}
	if row.RandomMRRMin == nil || row.RandomMRRMax == nil {
		t.Error("random MRR columns not set")
	}

	decoded, err := row.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.RunID != rep.RunID || len(decoded.Documents) != 1 || *decoded.Precision != 0.5 {
		t.Errorf("Decode() = %+v", decoded)
	}
}

func TestFromEvaluation_UndefinedMetrics(t *testing.T) {
	rep := &evaluation.Report{RunID: "r", Type: "name"}
	row, err := reportctrl.FromEvaluation(rep)
	if err != nil {
		t.Fatalf("FromEvaluation() error = %v", err)
	}
	if row.Precision != nil || row.Recall != nil || row.MRRMin != nil {
		t.Errorf("undefined metrics stored as values: %+v", row)
	}
}

func TestReportTableName(t *testing.T) {
	if got := (reportctrl.Report{}).TableName(); got != "evaluation_reports" {
		t.Errorf("TableName() = %q", got)
	}
}
