package ranking_test

import (
	"math/rand/v2"
	"reflect"
	"sort"
	"testing"

	"github.com/usc-isi-i2/dig-train-extractions-classifier/src/core/ranking"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   []int
	}{
		{
			name:   "ties share a rank",
			scores: []float64{5, 1, 1, 3},
			want:   []int{3, 1, 1, 2},
		},
		{
			name:   "all equal",
			scores: []float64{4, 4, 4},
			want:   []int{1, 1, 1},
		},
		{
			name:   "already sorted",
			scores: []float64{0.1, 0.2, 0.3},
			want:   []int{1, 2, 3},
		},
		{
			name:   "descending with tie",
			scores: []float64{9, 2, 2},
			want:   []int{2, 1, 1},
		},
		{
			name:   "single",
			scores: []float64{0.7},
			want:   []int{1},
		},
		{
			name:   "empty",
			scores: []float64{},
			want:   []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ranking.Rank(tt.scores)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Rank(%v) = %v, want %v", tt.scores, got, tt.want)
			}
		})
	}
}

func TestRank_DoesNotReorderInput(t *testing.T) {
	scores := []float64{5, 1, 3}
	ranking.Rank(scores)
	if !reflect.DeepEqual(scores, []float64{5, 1, 3}) {
		t.Errorf("Rank modified its input: %v", scores)
	}
}

func TestReciprocalRankBounds(t *testing.T) {
	tests := []struct {
		name   string
		labels []int
		ranks  []int
		want   ranking.Bounds
		wantOK bool
	}{
		{
			name:   "two correct candidates",
			labels: []int{0, 1, 0, 1},
			ranks:  []int{3, 1, 1, 2},
			want:   ranking.Bounds{Min: 1.0, Max: 0.5},
			wantOK: true,
		},
		{
			name:   "no correct candidate",
			labels: []int{0, 0, 0},
			ranks:  []int{1, 2, 3},
			wantOK: false,
		},
		{
			name:   "single correct candidate",
			labels: []int{1},
			ranks:  []int{1},
			want:   ranking.Bounds{Min: 1.0, Max: 1.0},
			wantOK: true,
		},
		{
			name:   "only correct candidate ranked last",
			labels: []int{0, 0, 1},
			ranks:  []int{1, 2, 4},
			want:   ranking.Bounds{Min: 0.25, Max: 0.25},
			wantOK: true,
		},
		{
			name:   "max is not seeded at best rank",
			labels: []int{1, 1},
			ranks:  []int{3, 2},
			want:   ranking.Bounds{Min: 0.5, Max: 1.0 / 3},
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ranking.ReciprocalRankBounds(tt.labels, tt.ranks)
			if ok != tt.wantOK {
				t.Fatalf("ReciprocalRankBounds(%v, %v) ok = %v, want %v", tt.labels, tt.ranks, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ReciprocalRankBounds(%v, %v) = %+v, want %+v", tt.labels, tt.ranks, got, tt.want)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	bounds := []ranking.Bounds{
		{Min: 1.0, Max: 0.5},
		{Min: 0.5, Max: 0.25},
		{Min: 1.0, Max: 1.0},
		{Min: 0.5, Max: 0.25},
	}

	got, ok := ranking.Aggregate(bounds)
	if !ok {
		t.Fatal("Aggregate returned ok = false for non-empty input")
	}
	want := ranking.MRR{Min: 0.75, Max: 0.5, Documents: 4}
	if got != want {
		t.Errorf("Aggregate = %+v, want %+v", got, want)
	}

	reversed := make([]ranking.Bounds, len(bounds))
	for i, b := range bounds {
		reversed[len(bounds)-1-i] = b
	}
	if again, _ := ranking.Aggregate(reversed); again != got {
		t.Errorf("Aggregate depends on order: %+v != %+v", again, got)
	}
}

func TestAggregate_Empty(t *testing.T) {
	if _, ok := ranking.Aggregate(nil); ok {
		t.Error("Aggregate(nil) ok = true, want false")
	}
}

func TestRandomRanking_IsPermutation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for n := 0; n < 20; n++ {
		got := ranking.RandomRanking(rng, n)
		sort.Ints(got)
		for i, r := range got {
			if r != i+1 {
				t.Fatalf("RandomRanking(%d) sorted = %v, not a permutation of 1..%d", n, got, n)
			}
		}
	}
}
