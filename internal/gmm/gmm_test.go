package gmm

import (
	"math"
	"testing"

	"github.com/example/gojulius/internal/acmodel"
)

func singleGaussianState(id int, mean []float64) *acmodel.State {
	v := &acmodel.Var{Vec: []float64{1, 1, 1}} // unit inverted variance
	d := &acmodel.Dens{Mean: mean, Var: v, GConst: 0, ID: id}
	pdf := &acmodel.PDF{B: []*acmodel.Dens{d}, BWeight: []float64{1.0}}
	return &acmodel.State{ID: id, NStream: 1, PDF: []*acmodel.PDF{pdf}}
}

func TestStateScoreExactMatchIsHighest(t *testing.T) {
	set := &acmodel.Set{}
	near := singleGaussianState(0, []float64{1, 2, 3})
	far := singleGaussianState(1, []float64{10, 10, 10})
	set.States = []*acmodel.State{near, far}

	s := NewScorer(set, 0, PolicyAvg, 0)
	s.BeginFrame(0, []float64{1, 2, 3})

	if got := s.StateScore(near); got != 0 {
		t.Errorf("exact-match score = %v, want 0 (gconst=0, mahal=0)", got)
	}
	if s.StateScore(far) >= s.StateScore(near) {
		t.Error("distant Gaussian should score lower than exact match")
	}
}

func TestStateScoreIsCachedPerFrame(t *testing.T) {
	set := &acmodel.Set{}
	st := singleGaussianState(0, []float64{0, 0, 0})
	set.States = []*acmodel.State{st}

	s := NewScorer(set, 0, PolicyAvg, 0)
	s.BeginFrame(5, []float64{1, 1, 1})
	first := s.StateScore(st)

	// Mutate the frame vector in place; a cached lookup must not notice.
	s.vec[0] = 100
	second := s.StateScore(st)
	if first != second {
		t.Errorf("cached score changed within the same frame: %v vs %v", first, second)
	}

	s.BeginFrame(6, []float64{1, 1, 1})
	if s.vec[0] != 1 {
		t.Errorf("BeginFrame did not install the new frame vector")
	}
}

func TestPrunedMixtureMatchesExactForSmallMixture(t *testing.T) {
	set := &acmodel.Set{}
	v := &acmodel.Var{Vec: []float64{1, 1}}
	d1 := &acmodel.Dens{Mean: []float64{0, 0}, Var: v, GConst: 0}
	d2 := &acmodel.Dens{Mean: []float64{5, 5}, Var: v, GConst: 0}
	d3 := &acmodel.Dens{Mean: []float64{-5, -5}, Var: v, GConst: 0}
	pdf := &acmodel.PDF{B: []*acmodel.Dens{d1, d2, d3}, BWeight: []float64{0.5, 0.3, 0.2}}
	st := &acmodel.State{ID: 0, NStream: 1, PDF: []*acmodel.PDF{pdf}}
	set.States = []*acmodel.State{st}

	exact := NewScorer(set, 0, PolicyAvg, 0)
	exact.BeginFrame(0, []float64{0.1, 0.1})

	pruned := NewScorer(set, 1, PolicyAvg, 0) // keep only the best component
	pruned.BeginFrame(0, []float64{0.1, 0.1})

	exactScore := exact.StateScore(st)
	prunedScore := pruned.StateScore(st)

	// Pruning to N=1 drops the two far components, whose contribution to
	// the true mixture near (0.1, 0.1) is negligible; the pruned score
	// should therefore sit very close to, but never above, the exact one.
	if prunedScore > exactScore+1e-9 {
		t.Errorf("pruned score %v exceeds exact score %v", prunedScore, exactScore)
	}
	if math.Abs(prunedScore-exactScore) > 1 {
		t.Errorf("pruned score %v diverges too far from exact %v", prunedScore, exactScore)
	}
}

func TestPseudoScorePolicies(t *testing.T) {
	lo := singleGaussianState(0, []float64{0, 0, 0})
	mid := singleGaussianState(1, []float64{1, 1, 1})
	hi := singleGaussianState(2, []float64{5, 5, 5})

	set := &acmodel.Set{States: []*acmodel.State{lo, mid, hi}}
	ps := &acmodel.PseudoSet{
		StateSets: []acmodel.CDStateSet{{States: []*acmodel.State{lo, mid, hi}}},
	}

	vec := []float64{0, 0, 0}

	maxScorer := NewScorer(set, 0, PolicyMax, 0)
	maxScorer.BeginFrame(0, vec)
	avgScorer := NewScorer(set, 0, PolicyAvg, 0)
	avgScorer.BeginFrame(0, vec)

	maxVal := maxScorer.PseudoScore(ps, 0)
	avgVal := avgScorer.PseudoScore(ps, 0)

	if maxVal < avgVal {
		t.Errorf("max policy score %v should be >= avg policy score %v", maxVal, avgVal)
	}
	if maxVal != maxScorer.StateScore(lo) {
		t.Errorf("max policy should pick the exact-match (lo) state's score")
	}
}

func TestParsePseudoPolicy(t *testing.T) {
	cases := []struct {
		in       string
		want     PseudoPolicy
		wantBest int
	}{
		{"avg", PolicyAvg, 0},
		{"", PolicyAvg, 0},
		{"max", PolicyMax, 0},
		{"best5", PolicyNBest, 5},
		{"bestN", PolicyAvg, 0}, // non-numeric suffix falls back safely
	}
	for _, c := range cases {
		got, n := ParsePseudoPolicy(c.in)
		if got != c.want || n != c.wantBest {
			t.Errorf("ParsePseudoPolicy(%q) = (%v, %v), want (%v, %v)", c.in, got, n, c.want, c.wantBest)
		}
	}
}
