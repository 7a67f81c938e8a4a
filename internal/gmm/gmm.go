// Package gmm computes the Gaussian-mixture output (emission) probability
// of an HMM state against a feature frame, the "C2" component of
// SPEC_FULL.md: Mahalanobis-distance scoring with safe top-N Gaussian
// pruning and per-frame caching keyed by state ID. The scorer has no
// word-position (plain / left / right / both-context) dispatch of its own.
package gmm

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/example/gojulius/internal/acmodel"
)

// LogZero stands in for an unreachable/underflowed log probability,
// mirroring the original engine's LOG_ZERO sentinel.
const LogZero = -math.MaxFloat64 / 2

// PseudoPolicy selects how a pseudo (cross-word context) phone's state set
// is collapsed into a single output probability, spec.md §4.2's "iwcd1"
// setting.
type PseudoPolicy int

const (
	PolicyAvg PseudoPolicy = iota
	PolicyMax
	PolicyNBest
)

// ParsePseudoPolicy maps a config string ("avg", "max", "bestN") to a
// PseudoPolicy and, for "bestN", the N to use.
func ParsePseudoPolicy(s string) (PseudoPolicy, int) {
	switch {
	case s == "max":
		return PolicyMax, 0
	case s == "avg", s == "":
		return PolicyAvg, 0
	case len(s) > 4 && s[:4] == "best":
		n := 0
		for _, c := range s[4:] {
			if c < '0' || c > '9' {
				return PolicyAvg, 0
			}
			n = n*10 + int(c-'0')
		}
		if n <= 0 {
			n = 3
		}
		return PolicyNBest, n
	default:
		return PolicyAvg, 0
	}
}

// Scorer computes Gaussian-mixture output probabilities against the
// acoustic model in set, with Mahalanobis pruning and a per-frame cache so
// repeated lookups of the same (state, frame) pair within a frame's beam
// search are free.
type Scorer struct {
	set          *acmodel.Set
	pruneN       int // number of best Gaussians kept by safe pruning; 0 disables pruning
	pseudoPolicy PseudoPolicy
	pseudoBestN  int

	frameIdx int
	vec      []float64
	cache    []float64 // indexed by state.ID, valid for frameIdx
	cached   []bool
}

// NewScorer builds a Scorer. pruneN <= 0 disables Gaussian pruning
// (every mixture component is scored exactly).
func NewScorer(set *acmodel.Set, pruneN int, policy PseudoPolicy, policyBestN int) *Scorer {
	return &Scorer{
		set:          set,
		pruneN:       pruneN,
		pseudoPolicy: policy,
		pseudoBestN:  policyBestN,
		cache:        make([]float64, len(set.States)),
		cached:       make([]bool, len(set.States)),
		frameIdx:     -1,
	}
}

// BeginFrame resets the per-state cache for a new input vector. frameIdx is
// an opaque monotonically increasing counter used only to detect whether
// the cache still applies; callers that jump frame indices (e.g. pass-2
// random access into the backward trellis) must call BeginFrame before
// every lookup that is not guaranteed contiguous with the previous one.
func (s *Scorer) BeginFrame(frameIdx int, vec []float64) {
	if s.frameIdx == frameIdx {
		return
	}
	s.frameIdx = frameIdx
	s.vec = vec
	for i := range s.cached {
		s.cached[i] = false
	}
}

// StateScore returns the cached or freshly computed plain (no cross-word
// context) output probability of st against the current frame.
func (s *Scorer) StateScore(st *acmodel.State) float64 {
	if st.ID >= 0 && st.ID < len(s.cache) && s.cached[st.ID] {
		return s.cache[st.ID]
	}
	score := s.computeState(st)
	if st.ID >= 0 && st.ID < len(s.cache) {
		s.cache[st.ID] = score
		s.cached[st.ID] = true
	}
	return score
}

// PseudoScore computes the output probability of a cross-word pseudo
// phone's state set at slot stateIdx, collapsing the set per the
// configured PseudoPolicy (spec.md §4.2 word-tail / single-phone-word
// handling).
func (s *Scorer) PseudoScore(ps *acmodel.PseudoSet, stateIdx int) float64 {
	if stateIdx < 0 || stateIdx >= len(ps.StateSets) {
		return LogZero
	}
	states := ps.StateSets[stateIdx].States
	if len(states) == 0 {
		return LogZero
	}

	switch s.pseudoPolicy {
	case PolicyMax:
		best := LogZero
		for _, st := range states {
			if v := s.StateScore(st); v > best {
				best = v
			}
		}
		return best
	case PolicyNBest:
		n := s.pseudoBestN
		if n <= 0 || n > len(states) {
			n = len(states)
		}
		scores := make([]float64, len(states))
		for i, st := range states {
			scores[i] = s.StateScore(st)
		}
		sortDesc(scores)
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += scores[i]
		}
		return sum / float64(n)
	default: // PolicyAvg
		sum := 0.0
		for _, st := range states {
			sum += s.StateScore(st)
		}
		return sum / float64(len(states))
	}
}

func sortDesc(v []float64) {
	// states sets are small (a handful of triphone variants); insertion
	// sort avoids pulling in sort for a handful of elements.
	for i := 1; i < len(v); i++ {
		x := v[i]
		j := i - 1
		for j >= 0 && v[j] < x {
			v[j+1] = v[j]
			j--
		}
		v[j+1] = x
	}
}

func (s *Scorer) computeState(st *acmodel.State) float64 {
	if len(st.PDF) == 0 {
		return LogZero
	}
	// gojulius, like the original engine, only exercises a single stream
	// in practice; sum any additional streams' weighted scores in case a
	// multi-stream model is loaded.
	total := 0.0
	for i, pdf := range st.PDF {
		score := s.computeMixture(pdf)
		if st.W != nil && i < len(st.W.Weight) {
			score += st.W.Weight[i]
		}
		total += score
	}
	return total
}

func (s *Scorer) computeMixture(pdf *acmodel.PDF) float64 {
	if len(pdf.B) == 0 {
		return LogZero
	}
	if len(pdf.B) == 1 {
		return s.gaussianScore(pdf.B[0])
	}

	var top []scoredDens
	if s.pruneN > 0 && s.pruneN < len(pdf.B) {
		top = s.prunedMixtureComponents(pdf)
	} else {
		top = make([]scoredDens, len(pdf.B))
		for i, d := range pdf.B {
			top[i] = scoredDens{idx: i, score: s.gaussianScore(d)}
		}
	}

	return logSumWeighted(top, pdf.BWeight)
}

// scoredDens is one mixture component's computed score, tagged with its
// original index into pdf.B/pdf.BWeight so pruning can reorder or drop
// components without losing track of which weight belongs to which.
type scoredDens struct {
	idx   int
	score float64
}

// prunedMixtureComponents implements the original engine's "safe" Gaussian
// pruning (gmm.c: gmm_cache_push/gmm_find_insert_point): maintain a
// length-capped, score-descending list of the best pruneN components seen
// so far, discarding a newly scored component outright once it is worse
// than the current worst kept entry and the list is already full.
func (s *Scorer) prunedMixtureComponents(pdf *acmodel.PDF) []scoredDens {
	kept := make([]scoredDens, 0, s.pruneN)

	for i, d := range pdf.B {
		var thresh float64
		full := len(kept) == s.pruneN
		if full {
			thresh = kept[len(kept)-1].score
		} else {
			thresh = LogZero
		}

		score := s.gaussianScoreSafe(d, thresh)
		if full && score <= thresh {
			continue
		}

		insertAt := len(kept)
		for insertAt > 0 && kept[insertAt-1].score < score {
			insertAt--
		}
		if full {
			kept = kept[:len(kept)-1]
		}
		kept = append(kept, scoredDens{})
		copy(kept[insertAt+1:], kept[insertAt:])
		kept[insertAt] = scoredDens{idx: i, score: score}
	}

	return kept
}

// gaussianScore computes the exact diagonal-Gaussian log likelihood. Mean
// and variance vectors are aligned with the current feature vector;
// variance is stored already-inverted (1/sigma^2) when set.VarianceInversed,
// matching the binary/ASCII loader's convention, so the Mahalanobis term is
// always a multiply, never a divide.
func (s *Scorer) gaussianScore(d *acmodel.Dens) float64 {
	if d == nil || d.Var == nil {
		return LogZero
	}
	diff := make([]float64, len(s.vec))
	for i := range diff {
		diff[i] = s.vec[i] - d.Mean[i]
	}
	sq := make([]float64, len(diff))
	for i := range sq {
		sq[i] = diff[i] * diff[i]
	}
	mahal := vecmath.Dot(sq, d.Var.Vec)
	return (mahal + d.GConst) * -0.5
}

// gaussianScoreSafe is gaussianScore with early termination once the
// running Mahalanobis sum already exceeds the pruning threshold, avoiding
// full-dimension computation for components that cannot make the cut.
func (s *Scorer) gaussianScoreSafe(d *acmodel.Dens, thresh float64) float64 {
	if d == nil || d.Var == nil {
		return LogZero
	}
	fthresh := thresh * -2.0
	sum := d.GConst
	for i := range s.vec {
		x := s.vec[i] - d.Mean[i]
		sum += x * x * d.Var.Vec[i]
		if thresh > LogZero && sum > fthresh {
			return LogZero
		}
	}
	return sum * -0.5
}

// logSumWeighted combines per-component log likelihoods with the mixture's
// linear-domain weights (as stored in both the ASCII and binary HMM
// formats) via the standard log-sum-exp.
func logSumWeighted(scored []scoredDens, weight []float64) float64 {
	if len(scored) == 0 {
		return LogZero
	}

	terms := make([]float64, len(scored))
	max := LogZero
	for i, sd := range scored {
		logW := LogZero
		if sd.idx < len(weight) && weight[sd.idx] > 0 {
			logW = math.Log(weight[sd.idx])
		}
		terms[i] = sd.score + logW
		if terms[i] > max {
			max = terms[i]
		}
	}

	if max <= LogZero {
		return LogZero
	}

	sum := 0.0
	for _, t := range terms {
		sum += math.Exp(t - max)
	}
	return max + math.Log(sum)
}
