package ranking

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Bounds holds the reciprocal ranks of the best and the worst placed correct
// candidate of one document.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MRR is the mean of Bounds over the documents that had a correct candidate.
type MRR struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Documents int     `json:"documents"`
}

// Rank assigns dense ranks to scores: the lowest distinct value gets rank 1,
// equal values share a rank and the next distinct value takes the next integer.
func Rank(scores []float64) []int {
	distinct := make([]float64, len(scores))
	copy(distinct, scores)
	sort.Float64s(distinct)

	rankOf := make(map[float64]int, len(distinct))
	rank := 0
	for i, v := range distinct {
		if i == 0 || v != distinct[i-1] {
			rank++
			rankOf[v] = rank
		}
	}

	ranks := make([]int, len(scores))
	for i, v := range scores {
		ranks[i] = rankOf[v]
	}
	return ranks
}

// ReciprocalRankBounds returns the reciprocals of the smallest and the largest
// rank among the candidates labelled 1. ok is false when no candidate is
// labelled correct; such documents carry no reciprocal rank at all.
func ReciprocalRankBounds(labels []int, ranks []int) (b Bounds, ok bool) {
	var minRank, maxRank int
	for i, label := range labels {
		if label != 1 || i >= len(ranks) {
			continue
		}
		r := ranks[i]
		if !ok {
			minRank, maxRank, ok = r, r, true
			continue
		}
		if r < minRank {
			minRank = r
		}
		if r > maxRank {
			maxRank = r
		}
	}
	if !ok {
		return Bounds{}, false
	}

	return Bounds{
		Min: 1.0 / float64(minRank),
		Max: 1.0 / float64(maxRank),
	}, true
}

// Aggregate averages the Min and Max reciprocal ranks. ok is false for an
// empty input, where the mean is undefined.
func Aggregate(bounds []Bounds) (MRR, bool) {
	if len(bounds) == 0 {
		return MRR{}, false
	}

	mins := make([]float64, len(bounds))
	maxs := make([]float64, len(bounds))
	for i, b := range bounds {
		mins[i] = b.Min
		maxs[i] = b.Max
	}

	return MRR{
		Min:       stat.Mean(mins, nil),
		Max:       stat.Mean(maxs, nil),
		Documents: len(bounds),
	}, true
}
