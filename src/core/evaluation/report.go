package evaluation

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/agreement"
	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/ranking"
)

// Report is the outcome of one evaluation run. Metrics that are undefined
// for the run are nil.
type Report struct {
	RunID     string           `json:"run_id"`
	Type      string           `json:"type"`
	Join      Join             `json:"join"`
	Documents []DocumentResult `json:"documents"`
	Totals    agreement.Totals `json:"totals"`
	Precision *float64         `json:"precision"`
	Recall    *float64         `json:"recall"`
	Ranking   *RankingSummary  `json:"ranking,omitempty"`
}

type DocumentResult struct {
	Index   int              `json:"index"`
	DocID   string           `json:"doc_id,omitempty"`
	Counts  agreement.Counts `json:"counts"`
	Ranking *DocumentRanking `json:"ranking,omitempty"`
}

type DocumentRanking struct {
	Entities     []string        `json:"entities,omitempty"`
	Labels       []int           `json:"labels"`
	Ranks        []int           `json:"ranks"`
	Bounds       *ranking.Bounds `json:"bounds"`
	RandomBounds *ranking.Bounds `json:"random_bounds"`
}

type RankingSummary struct {
	Real       *ranking.MRR `json:"real"`
	Random     *ranking.MRR `json:"random"`
	Documents  int          `json:"documents"`
	Skipped    int          `json:"skipped"`
	Candidates int          `json:"candidates"`
	Seed       *uint64      `json:"seed,omitempty"`
}

// DocumentLine formats the per-document counts line.
func DocumentLine(d DocumentResult) string {
	label := strconv.Itoa(d.Index)
	if d.DocID != "" {
		label = fmt.Sprintf("%d (%s)", d.Index, d.DocID)
	}
	return fmt.Sprintf("%s: %d, %d, %d, %d", label,
		d.Counts.ClassifiedCorrect, d.Counts.ClassifiedIncorrect, d.Counts.Missed, d.Counts.Correct)
}

// WriteSummary writes the human readable report.
func WriteSummary(w io.Writer, rep *Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Type: %s\n", rep.Type)
	fmt.Fprintf(&b, "Documents: %d\n", len(rep.Documents))
	b.WriteString("Index: classified_correct, classified_incorrect, missed, total_correct\n")
	for _, d := range rep.Documents {
		b.WriteString(DocumentLine(d))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Total: %d, %d, %d, %d\n\n",
		rep.Totals.ClassifiedCorrect, rep.Totals.ClassifiedIncorrect, rep.Totals.Missed, rep.Totals.Correct)

	fmt.Fprintf(&b, "Precision: %s\n", formatRatio(rep.Precision, "undefined"))
	fmt.Fprintf(&b, "Recall: %s\n", formatRatio(rep.Recall, "undefined"))

	if rep.Ranking != nil {
		scored, random := rep.Ranking.Real, rep.Ranking.Random
		b.WriteByte('\n')
		fmt.Fprintf(&b, "MRR (Max Ranks): %s\n", formatMRR(scored, func(m *ranking.MRR) float64 { return m.Max }))
		fmt.Fprintf(&b, "MRR (Min Ranks): %s\n", formatMRR(scored, func(m *ranking.MRR) float64 { return m.Min }))
		fmt.Fprintf(&b, "Random MRR (Max Ranks): %s\n", formatMRR(random, func(m *ranking.MRR) float64 { return m.Max }))
		fmt.Fprintf(&b, "Random MRR (Min Ranks): %s\n", formatMRR(random, func(m *ranking.MRR) float64 { return m.Min }))
		fmt.Fprintf(&b, "Ranked documents: %d (skipped %d without a correct candidate)\n",
			rep.Ranking.Documents, rep.Ranking.Skipped)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatRatio(v *float64, undefined string) string {
	if v == nil {
		return undefined
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatMRR(m *ranking.MRR, pick func(*ranking.MRR) float64) string {
	if m == nil {
		return "no data"
	}
	v := pick(m)
	return formatRatio(&v, "")
}
