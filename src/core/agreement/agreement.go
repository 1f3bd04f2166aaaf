package agreement

// Set is a set of entity strings.
type Set map[string]struct{}

// NewSet builds a Set from a list, dropping duplicates.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Union returns a new set holding the members of s and o.
func (s Set) Union(o Set) Set {
	u := make(Set, len(s)+len(o))
	for item := range s {
		u[item] = struct{}{}
	}
	for item := range o {
		u[item] = struct{}{}
	}
	return u
}

// Classification is the classifier's partition of a document's entities.
type Classification struct {
	Accepted   Set
	Borderline Set
	Rejected   Set
}

// GroundTruth holds the annotator's entities for a document. Correct is the
// subset of Annotated confirmed as true positives.
type GroundTruth struct {
	Correct   Set
	Annotated Set
}

// Counts is the agreement between classifier and annotation for one document.
type Counts struct {
	ClassifiedCorrect   int `json:"classified_correct"`
	ClassifiedIncorrect int `json:"classified_incorrect"`
	Missed              int `json:"missed"`
	Correct             int `json:"correct"`
}

// EvaluateDocument compares accepted and borderline entities against the
// correct set. Rejected entities only matter through their absence from the
// positive sets.
func EvaluateDocument(c Classification, g GroundTruth) Counts {
	positive := c.Accepted.Union(c.Borderline)

	var counts Counts
	for entity := range positive {
		if g.Correct.Has(entity) {
			counts.ClassifiedCorrect++
		} else {
			counts.ClassifiedIncorrect++
		}
	}
	for entity := range g.Correct {
		if !positive.Has(entity) {
			counts.Missed++
		}
	}
	counts.Correct = len(g.Correct)

	return counts
}

// Totals accumulates Counts over a corpus.
type Totals struct {
	Counts
	Documents int `json:"documents"`
}

func (t *Totals) Add(c Counts) {
	t.ClassifiedCorrect += c.ClassifiedCorrect
	t.ClassifiedIncorrect += c.ClassifiedIncorrect
	t.Missed += c.Missed
	t.Correct += c.Correct
	t.Documents++
}

// Precision is ok only when the classifier produced at least one positive.
func (t Totals) Precision() (float64, bool) {
	return ratio(t.ClassifiedCorrect, t.ClassifiedCorrect+t.ClassifiedIncorrect)
}

// Recall is ok only when there was at least one correct entity to find.
func (t Totals) Recall() (float64, bool) {
	return ratio(t.ClassifiedCorrect, t.ClassifiedCorrect+t.Missed)
}

func ratio(num, denom int) (float64, bool) {
	if denom == 0 {
		return 0, false
	}
	return float64(num) / float64(denom), true
}
