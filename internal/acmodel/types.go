// Package acmodel loads and represents the HTK-style HMM definition that
// backs acoustic scoring: transition matrices, Gaussian densities/variances,
// states, physical models, and the logical-name resolution (including
// pseudo-phone context-dependent state sets used for cross-word triphones
// at tree-lexicon leaves).
package acmodel

// Trans is a transition probability matrix shared by one or more physical
// models.
type Trans struct {
	Name     string
	StateNum int
	A        [][]float64 // A[i][j], linear-domain transition probability, HTK <TRANSP> convention
	ID       int
}

// EntryWeight returns the probability of entering the first emitting state
// (index 1) directly from the non-emitting entry state (index 0).
func (tr *Trans) EntryWeight() float64 {
	if tr == nil || len(tr.A) < 2 || len(tr.A[0]) < 2 {
		return 0
	}
	return tr.A[0][1]
}

// ExitWeight returns the probability of leaving the last emitting state
// directly into the non-emitting exit state.
func (tr *Trans) ExitWeight() float64 {
	if tr == nil || tr.StateNum < 2 {
		return 0
	}
	last := tr.StateNum - 1
	if last >= len(tr.A) || last-1 < 0 || last-1 >= len(tr.A[last]) {
		return 0
	}
	return tr.A[last-1][last]
}

// Var is a diagonal covariance vector.
type Var struct {
	Name string
	Vec  []float64
}

// Dens is a single Gaussian component: mean vector, a shared variance, and
// the precomputed normalization constant (log domain).
type Dens struct {
	Name   string
	Mean   []float64
	Var    *Var
	GConst float64
	ID     int
}

// StreamWeight holds per-stream log-domain weights for multi-stream models.
// gojulius, like the original engine, only ever exercises a single stream,
// but the type is kept so binary/ASCII definitions that specify one still
// load correctly.
type StreamWeight struct {
	Name   string
	Weight []float64
}

// PDF is one stream's mixture-of-Gaussians output distribution for a state.
// In a tied-mixture model B points into a shared Codebook instead of owning
// its densities outright.
type PDF struct {
	Name     string
	Tmix     bool
	StreamID int
	B        []*Dens
	BWeight  []float64
}

// MixNum reports the number of mixture components.
func (p *PDF) MixNum() int { return len(p.B) }

// State is one HMM state: a PDF per stream plus an optional stream weight.
// ID is a dense index used to key the per-frame Gaussian score cache in
// package gmm.
type State struct {
	Name    string
	NStream int
	W       *StreamWeight
	PDF     []*PDF
	ID      int
}

// Codebook is a tied-mixture Gaussian codebook shared across many states.
type Codebook struct {
	Name string
	D    []*Dens
	ID   int
}

// Data is a physical (fully defined) HMM model: an ordered state sequence
// plus its transition matrix. State 0 and State len(S)-1 are conventionally
// the non-emitting entry/exit states per HTK convention, matching the
// original engine's indexing.
type Data struct {
	Name     string
	States   []*State
	Tr       *Trans
	IsPseudo bool
}

// CDStateSet is the set of physical states standing in for one state slot
// of a pseudo (cross-word, context-underspecified) phone.
type CDStateSet struct {
	States []*State
}

// PseudoSet is a context-dependent HMM set (Julius calls this a "pseudo"
// phone): the set of physical triphone states sharing a base phone and
// state position, used to approximate cross-word context at word-edge
// nodes in the tree lexicon on pass 1. Resolved to a concrete Data during
// pass-2 rescoring by package ctxres.
type PseudoSet struct {
	Name      string
	StateSets []CDStateSet
	Tr        *Trans
}

// Logical maps a logical (name-resolved) HMM to either a concrete physical
// model or a pseudo-phone set.
type Logical struct {
	Name     string
	IsPseudo bool
	Body     *Data      // set if !IsPseudo
	Pseudo   *PseudoSet // set if IsPseudo
}

// Options mirrors the HTK option block: stream layout and model-wide type
// tags. The loaders store these values as read and reject none of them;
// multi-stream models load, and the scorer treats every covariance as
// diagonal whatever CovType says.
type Options struct {
	StreamNum int
	VecSize   int
	CovType   string
	DurType   string
	ParamType string
}

// Set is the fully loaded acoustic model: every physical model, every
// logical name mapping (including pseudo phones), and the shared pools of
// transitions/states/densities they reference.
type Set struct {
	Opt Options

	VarianceInversed bool // diagonal variances stored as 1/sigma^2
	IsTiedMixture    bool

	Trans      []*Trans
	Vars       []*Var
	Dens       []*Dens
	Streams    []*StreamWeight
	Codebooks  []*Codebook
	States     []*State
	Physical   []*Data
	logical    map[string]*Logical
	logicalAll []*Logical

	// EmbeddedParams is non-nil when a BINHMM_V2 header carried embedded
	// analysis parameters (spec.md §4.2, "a binary HMM file may embed its
	// own analysis parameters").
	EmbeddedParams *EmbeddedAnalysisParams
}

// EmbeddedAnalysisParams mirrors the feature-extraction configuration a
// BINHMM_V2 file may carry in its header, so a loader can cross-check it
// against the runtime's own Params and warn on mismatch.
type EmbeddedAnalysisParams struct {
	SampleFreq int
	FrameSize  int
	FrameShift int
	PreEmph    float64
	Lifter     int
	FbankNum   int
	DelWin     int
	AccWin     int
	SilFloor   float64
	EScale     float64
	HiPass     int
	LoPass     int
	ENormalize bool
	RawEnergy  bool
	ZMeanFrame bool
}

// Logical looks up a logical HMM by name.
func (s *Set) Logical(name string) (*Logical, bool) {
	l, ok := s.logical[name]
	return l, ok
}

// AllLogical returns every logical HMM in load order.
func (s *Set) AllLogical() []*Logical {
	return s.logicalAll
}

func (s *Set) addLogical(l *Logical) {
	if s.logical == nil {
		s.logical = make(map[string]*Logical)
	}
	s.logical[l.Name] = l
	s.logicalAll = append(s.logicalAll, l)
}

// StateNum returns the number of emitting+non-emitting states in d.
func (d *Data) StateNum() int { return len(d.States) }
