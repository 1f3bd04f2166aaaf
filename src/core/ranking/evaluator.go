package ranking

import (
	"math/rand/v2"
)

// RandomRanking returns a uniformly random permutation of 1..n drawn from rng.
func RandomRanking(rng *rand.Rand, n int) []int {
	ranks := rng.Perm(n)
	for i := range ranks {
		ranks[i]++
	}
	return ranks
}

// Result summarises one evaluation run. Real and Random are only meaningful
// when their ok flags are set.
type Result struct {
	Real       MRR
	RealOK     bool
	Random     MRR
	RandomOK   bool
	Documents  int // documents that contributed bounds
	Skipped    int // documents without a correct candidate
	Candidates int
}

// DocumentRanking is what Evaluator.Add observed for a single document.
type DocumentRanking struct {
	Ranks        []int
	RandomRanks  []int
	Bounds       Bounds
	RandomBounds Bounds
	OK           bool
}

// Evaluator accumulates per-document reciprocal rank bounds for the scored
// ranking and for a random control ranking. It is owned by a single run and
// is not safe for concurrent use.
type Evaluator struct {
	rng        *rand.Rand
	real       []Bounds
	random     []Bounds
	skipped    int
	candidates int
}

// NewEvaluator creates an Evaluator drawing control permutations from rng.
// A nil rng uses a randomly seeded source.
func NewEvaluator(rng *rand.Rand) *Evaluator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Evaluator{rng: rng}
}

// NewSeededEvaluator creates an Evaluator whose control rankings are
// reproducible for a given seed.
func NewSeededEvaluator(seed uint64) *Evaluator {
	return NewEvaluator(rand.New(rand.NewPCG(seed, seed)))
}

// Add ranks one document's candidates by negative-class score and records
// the reciprocal rank bounds of its correct candidates. labels and scores
// must have the same length.
func (e *Evaluator) Add(labels []int, scores []float64) DocumentRanking {
	ranks := Rank(scores)
	randomRanks := RandomRanking(e.rng, len(labels))
	e.candidates += len(scores)

	doc := DocumentRanking{
		Ranks:       ranks,
		RandomRanks: randomRanks,
	}

	bounds, ok := ReciprocalRankBounds(labels, ranks)
	if !ok {
		e.skipped++
		return doc
	}
	randomBounds, _ := ReciprocalRankBounds(labels, randomRanks)

	e.real = append(e.real, bounds)
	e.random = append(e.random, randomBounds)

	doc.Bounds = bounds
	doc.RandomBounds = randomBounds
	doc.OK = true
	return doc
}

// Result aggregates everything added so far.
func (e *Evaluator) Result() Result {
	res := Result{
		Documents:  len(e.real),
		Skipped:    e.skipped,
		Candidates: e.candidates,
	}
	res.Real, res.RealOK = Aggregate(e.real)
	res.Random, res.RandomOK = Aggregate(e.random)
	return res
}
