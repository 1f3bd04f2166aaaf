package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/agreement"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/ranking"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/log"
)

var (
	ErrMalformedRecord      = errors.New("malformed record")
	ErrMissingField         = errors.New("missing field")
	ErrCandidateLength      = errors.New("candidate arrays differ in length")
	ErrInvalidLabel         = errors.New("label must be 0 or 1")
	ErrInvalidScore         = errors.New("score must be finite")
	ErrMissingDocumentID    = errors.New("missing doc_id")
	ErrDuplicateDocumentID  = errors.New("duplicate doc_id")
	ErrUnknownDocument      = errors.New("doc_id not found in ground truth")
	ErrUnmatchedGroundTruth = errors.New("ground truth documents without classifier output")
	ErrRecordCountMismatch  = errors.New("inputs have a different number of records")
	ErrInvalidJoin          = errors.New("invalid join mode")
	ErrMissingType          = errors.New("entity type is required")
)

// Join selects how classifier and ground-truth records are paired.
type Join string

const (
	// JoinByID pairs records by doc_id.
	JoinByID Join = "id"
	// JoinByPosition pairs the i-th record of each input.
	JoinByPosition Join = "position"
)

func ParseJoin(s string) (Join, error) {
	switch Join(strings.ToLower(strings.TrimSpace(s))) {
	case "", JoinByID:
		return JoinByID, nil
	case JoinByPosition:
		return JoinByPosition, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidJoin, s)
	}
}

type Options struct {
	// Type is the entity category, e.g. "cities" or "eye-color".
	Type    string
	Ranking bool
	Join    Join
	// Seed makes the random baseline reproducible. Nil draws a random seed.
	Seed *uint64
	// OnDocument is called after each document is evaluated.
	OnDocument func(DocumentResult)
}

// Run evaluates classifier output against ground truth, both given as JSON
// lines.
func Run(ctx context.Context, classified, groundTruth io.Reader, opts Options) (*Report, error) {
	return RunSources(ctx, NewClassifiedDecoder(classified), NewGroundTruthDecoder(groundTruth, opts.Type), opts)
}

// RunSources evaluates every paired document and returns the summary.
func RunSources(ctx context.Context, classified ClassifiedSource, groundTruth GroundTruthSource, opts Options) (*Report, error) {
	if strings.TrimSpace(opts.Type) == "" {
		return nil, ErrMissingType
	}
	join, err := ParseJoin(string(opts.Join))
	if err != nil {
		return nil, err
	}
	opts.Join = join

	r := newRun(opts)
	switch join {
	case JoinByPosition:
		err = r.joinByPosition(ctx, classified, groundTruth)
	default:
		err = r.joinByID(ctx, classified, groundTruth)
	}
	if err != nil {
		return nil, err
	}
	return r.report(), nil
}

// run owns the accumulators of a single evaluation.
type run struct {
	opts      Options
	totals    agreement.Totals
	evaluator *ranking.Evaluator
	documents []DocumentResult
}

func newRun(opts Options) *run {
	r := &run{opts: opts}
	if opts.Ranking {
		if opts.Seed != nil {
			r.evaluator = ranking.NewSeededEvaluator(*opts.Seed)
		} else {
			r.evaluator = ranking.NewEvaluator(nil)
		}
	}
	return r
}

func (r *run) joinByPosition(ctx context.Context, classified ClassifiedSource, groundTruth GroundTruthSource) error {
	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c, cErr := classified.Next()
		g, gErr := groundTruth.Next()
		cEOF, gEOF := errors.Is(cErr, io.EOF), errors.Is(gErr, io.EOF)
		switch {
		case cErr != nil && !cEOF:
			return cErr
		case gErr != nil && !gEOF:
			return gErr
		case cEOF && gEOF:
			return nil
		case cEOF || gEOF:
			return fmt.Errorf("%w: one input ended at record %d", ErrRecordCountMismatch, index)
		}

		if c.DocID != "" && g.DocID != "" && c.DocID != g.DocID {
			log.Info("Document ids differ under positional join", "index", index, "classified", c.DocID, "ground_truth", g.DocID)
		}
		r.add(index, c, g)
	}
}

func (r *run) joinByID(ctx context.Context, classified ClassifiedSource, groundTruth GroundTruthSource) error {
	truth := make(map[string]GroundTruthRecord)
	for index := 1; ; index++ {
		g, err := groundTruth.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if g.DocID == "" {
			return fmt.Errorf("ground truth record %d: %w", index, ErrMissingDocumentID)
		}
		if _, ok := truth[g.DocID]; ok {
			return fmt.Errorf("ground truth record %d: %w: %s", index, ErrDuplicateDocumentID, g.DocID)
		}
		truth[g.DocID] = g
	}

	seen := make(map[string]struct{}, len(truth))
	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c, err := classified.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if c.DocID == "" {
			return fmt.Errorf("classified record %d: %w", index, ErrMissingDocumentID)
		}
		if _, ok := seen[c.DocID]; ok {
			return fmt.Errorf("classified record %d: %w: %s", index, ErrDuplicateDocumentID, c.DocID)
		}
		g, ok := truth[c.DocID]
		if !ok {
			return fmt.Errorf("classified record %d: %w: %s", index, ErrUnknownDocument, c.DocID)
		}
		seen[c.DocID] = struct{}{}
		r.add(index, c, g)
	}

	if len(seen) != len(truth) {
		var missing []string
		for id := range truth {
			if _, ok := seen[id]; !ok {
				missing = append(missing, id)
			}
		}
		sort.Strings(missing)
		if len(missing) > 5 {
			missing = append(missing[:5], "...")
		}
		return fmt.Errorf("%w: %s", ErrUnmatchedGroundTruth, strings.Join(missing, ", "))
	}
	return nil
}

func (r *run) add(index int, c ClassifiedRecord, g GroundTruthRecord) {
	counts := agreement.EvaluateDocument(c.Classification(), g.GroundTruth())
	r.totals.Add(counts)

	doc := DocumentResult{
		Index:  index,
		DocID:  c.DocID,
		Counts: counts,
	}

	// documents without candidates have nothing to rank
	if r.evaluator != nil && len(c.Labels) > 0 {
		dr := r.evaluator.Add(c.Labels, c.NegativeProbs)
		doc.Ranking = &DocumentRanking{
			Entities: c.Entities,
			Labels:   c.Labels,
			Ranks:    dr.Ranks,
		}
		if dr.OK {
			bounds, random := dr.Bounds, dr.RandomBounds
			doc.Ranking.Bounds = &bounds
			doc.Ranking.RandomBounds = &random
		}
		log.Debug("Ranked document", "index", index, "doc_id", c.DocID,
			"entities", c.Entities, "labels", c.Labels, "ranks", dr.Ranks)
	}

	r.documents = append(r.documents, doc)
	if r.opts.OnDocument != nil {
		r.opts.OnDocument(doc)
	}
}

func (r *run) report() *Report {
	rep := &Report{
		RunID:     uuid.NewString(),
		Type:      r.opts.Type,
		Join:      r.opts.Join,
		Documents: r.documents,
		Totals:    r.totals,
	}
	if p, ok := r.totals.Precision(); ok {
		rep.Precision = &p
	}
	if rc, ok := r.totals.Recall(); ok {
		rep.Recall = &rc
	}

	if r.evaluator != nil {
		res := r.evaluator.Result()
		summary := &RankingSummary{
			Documents:  res.Documents,
			Skipped:    res.Skipped,
			Candidates: res.Candidates,
			Seed:       r.opts.Seed,
		}
		if res.RealOK {
			summary.Real = &res.Real
		}
		if res.RandomOK {
			summary.Random = &res.Random
		}
		rep.Ranking = summary
	}
	return rep
}
