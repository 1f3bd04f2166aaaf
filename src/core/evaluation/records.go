package evaluation

import (
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/agreement"
)

// ClassifiedRecord is one document of classifier output. Entities,
// NegativeProbs and Labels are parallel and only needed for ranking.
type ClassifiedRecord struct {
	DocID         string    `json:"doc_id"`
	Accepted      []string  `json:"accepted"`
	Borderline    []string  `json:"borderline"`
	Rejected      []string  `json:"rejected"`
	Entities      []string  `json:"entities,omitempty"`
	NegativeProbs []float64 `json:"negative_probs,omitempty"`
	Labels        []int     `json:"labels,omitempty"`
}

// Validate checks the candidate arrays.
func (r ClassifiedRecord) Validate() error {
	n := len(r.Labels)
	if len(r.NegativeProbs) != n || (len(r.Entities) != 0 && len(r.Entities) != n) {
		return fmt.Errorf("%w: %d entities, %d scores, %d labels",
			ErrCandidateLength, len(r.Entities), len(r.NegativeProbs), len(r.Labels))
	}
	for i, label := range r.Labels {
		if label != 0 && label != 1 {
			return fmt.Errorf("%w: labels[%d] = %d", ErrInvalidLabel, i, label)
		}
	}
	for i, p := range r.NegativeProbs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: negative_probs[%d] = %v", ErrInvalidScore, i, p)
		}
	}
	return nil
}

func (r ClassifiedRecord) Classification() agreement.Classification {
	return agreement.Classification{
		Accepted:   agreement.NewSet(r.Accepted...),
		Borderline: agreement.NewSet(r.Borderline...),
		Rejected:   agreement.NewSet(r.Rejected...),
	}
}

// GroundTruthRecord is one annotated document for a single entity type.
type GroundTruthRecord struct {
	DocID     string   `json:"doc_id"`
	Correct   []string `json:"correct"`
	Annotated []string `json:"annotated"`
}

func (r GroundTruthRecord) GroundTruth() agreement.GroundTruth {
	return agreement.GroundTruth{
		Correct:   agreement.NewSet(r.Correct...),
		Annotated: agreement.NewSet(r.Annotated...),
	}
}

// ParseGroundTruth reads doc_id, correct_<typ> and annotated_<typ> from a
// JSON object.
func ParseGroundTruth(data []byte, typ string) (GroundTruthRecord, error) {
	if !gjson.ValidBytes(data) {
		return GroundTruthRecord{}, fmt.Errorf("%w: invalid json", ErrMalformedRecord)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return GroundTruthRecord{}, fmt.Errorf("%w: not an object", ErrMalformedRecord)
	}

	correct, err := stringArray(doc, "correct_"+typ)
	if err != nil {
		return GroundTruthRecord{}, err
	}
	annotated, err := stringArray(doc, "annotated_"+typ)
	if err != nil {
		return GroundTruthRecord{}, err
	}

	return GroundTruthRecord{
		DocID:     doc.Get("doc_id").String(),
		Correct:   correct,
		Annotated: annotated,
	}, nil
}

func stringArray(doc gjson.Result, field string) ([]string, error) {
	v := doc.Get(gjson.Escape(field))
	switch {
	case !v.Exists():
		return nil, fmt.Errorf("%w: %s", ErrMissingField, field)
	case v.Type == gjson.Null:
		return nil, nil
	case !v.IsArray():
		return nil, fmt.Errorf("%w: %s is not an array", ErrMalformedRecord, field)
	}

	items := v.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out, nil
}
