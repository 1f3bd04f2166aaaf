package ranking_test

import (
	"testing"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/ranking"
)

type scoredDoc struct {
	labels []int
	scores []float64
}

func TestEvaluator_ThreeDocuments(t *testing.T) {
	docs := []scoredDoc{
		{labels: []int{1, 0, 0}, scores: []float64{2, 2, 9}},
		{labels: []int{0, 0}, scores: []float64{0.3, 0.1}},
		{labels: []int{0, 1, 1}, scores: []float64{4, 4, 4}},
	}

	e := ranking.NewSeededEvaluator(7)
	for _, d := range docs {
		e.Add(d.labels, d.scores)
	}
	res := e.Result()

	if !res.RealOK {
		t.Fatal("RealOK = false, want true")
	}
	if res.Real.Min != 1.0 || res.Real.Max != 1.0 {
		t.Errorf("Real = %+v, want min 1.0 and max 1.0", res.Real)
	}
	if res.Documents != 2 || res.Real.Documents != 2 {
		t.Errorf("Documents = %d (real %d), want 2", res.Documents, res.Real.Documents)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
	if res.Candidates != 8 {
		t.Errorf("Candidates = %d, want 8", res.Candidates)
	}
	if !res.RandomOK || res.Random.Documents != 2 {
		t.Errorf("Random = %+v (ok %v), want 2 documents", res.Random, res.RandomOK)
	}
}

func TestEvaluator_AbsentDocumentDoesNotDilute(t *testing.T) {
	withAbsent := ranking.NewSeededEvaluator(1)
	withAbsent.Add([]int{0, 1}, []float64{0.2, 0.9})
	withAbsent.Add([]int{0, 0}, []float64{0.2, 0.9})

	without := ranking.NewSeededEvaluator(1)
	without.Add([]int{0, 1}, []float64{0.2, 0.9})

	got, want := withAbsent.Result().Real, without.Result().Real
	if got != want {
		t.Errorf("Real with absent document = %+v, want %+v", got, want)
	}
	if got.Min != 0.5 {
		t.Errorf("Real.Min = %v, want 0.5", got.Min)
	}
}

func TestEvaluator_SeededBaselineIsReproducible(t *testing.T) {
	labels := []int{0, 0, 1, 0, 0, 1, 0, 0, 0, 0}
	scores := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	run := func() ranking.Result {
		e := ranking.NewSeededEvaluator(42)
		for i := 0; i < 50; i++ {
			e.Add(labels, scores)
		}
		return e.Result()
	}

	first, second := run(), run()
	if first.Random != second.Random {
		t.Errorf("seeded random baseline differs: %+v != %+v", first.Random, second.Random)
	}
	if first.Random.Min <= 0 || first.Random.Min > 1 {
		t.Errorf("Random.Min = %v, want within (0, 1]", first.Random.Min)
	}
	if first.Random.Max > first.Random.Min {
		t.Errorf("Random.Max = %v exceeds Random.Min = %v", first.Random.Max, first.Random.Min)
	}
}

func TestEvaluator_EmptyRun(t *testing.T) {
	res := ranking.NewEvaluator(nil).Result()
	if res.RealOK || res.RandomOK {
		t.Errorf("empty run reported data: %+v", res)
	}
}

func TestEvaluator_AddReportsDocumentRanking(t *testing.T) {
	e := ranking.NewSeededEvaluator(3)
	doc := e.Add([]int{0, 1, 0, 1}, []float64{5, 1, 1, 3})

	want := []int{3, 1, 1, 2}
	for i := range want {
		if doc.Ranks[i] != want[i] {
			t.Fatalf("Ranks = %v, want %v", doc.Ranks, want)
		}
	}
	if !doc.OK || doc.Bounds != (ranking.Bounds{Min: 1.0, Max: 0.5}) {
		t.Errorf("Bounds = %+v (ok %v), want min 1.0 max 0.5", doc.Bounds, doc.OK)
	}
	if len(doc.RandomRanks) != 4 {
		t.Errorf("RandomRanks = %v, want 4 entries", doc.RandomRanks)
	}
}
