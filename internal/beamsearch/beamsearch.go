// Package beamsearch implements the frame-synchronous, tree-lexicon Viterbi
// beam search ("C5" in SPEC_FULL.md): pass 1 of the two-pass decoder. Each
// call to Step consumes one MFCC frame, advances every surviving token by
// one state transition, applies rank and score-offset beam pruning, and
// records a lexicon.TrellisWord every time a token reaches a word-end node.
//
// Grounded on original_source/libjulius/src/pass1.c's per-frame token-pass
// loop (propagate_one_node / word_boundary handling) adapted to
// internal/lexicon's one-node-per-phone tree: a node's own emitting-state
// chain is walked via its acmodel.Trans matrix exactly as pass1.c walks an
// HMM's internal states, and crossing a tree arc (word-internal phone
// boundary, or word-end back to the lexicon root) is treated as happening
// on the frame immediately following the frame that produced the exit
// score, so a single topological pass per frame never needs to revisit an
// already-processed node - a deliberate one-frame-delay simplification of
// the original's same-frame non-emitting-transition propagation, noted in
// DESIGN.md.
package beamsearch

import (
	"math"
	"sort"

	"github.com/example/gojulius/internal/acmodel"
	"github.com/example/gojulius/internal/ctxres"
	"github.com/example/gojulius/internal/gmm"
	"github.com/example/gojulius/internal/lexicon"
	"github.com/example/gojulius/internal/lmmodel"
)

// NoWordID marks "no preceding word" (utterance-initial position).
const NoWordID = -1

// Config holds the pass-1 tuning parameters.
type Config struct {
	BeamWidth          int     // rank beam; 0 = no pruning
	ScoreBeam          float64 // score-offset beam; 0 = disabled
	LMWeight           float64
	LMPenalty          float64
	TransparentPenalty float64
	SPModel            string // short-pause word name; "" disables segmentation
	SPFrameDuration    int
}

// token is one active path's state at a tree node: its intra-node Viterbi
// score vector (one per emitting state) plus the word-boundary context
// (spec.md §3 "Token"). Exactly one token is kept per node (the word-pair
// approximation's single-best-per-node default, SPEC_FULL.md's resolution
// of the WPAIR/WORD_GRAPH open question).
type token struct {
	sc    []float64 // per emitting state, gmm.LogZero where unreachable
	enter float64   // pending cross-boundary entry score, gmm.LogZero if none

	lastWordID    int // word preceding the one now in progress at this node
	lastPhoneName string
	predWordID    int
	predRef       int
	dfaStates     []int // grammar mode only
}

func newPendingToken(k int, enter float64, lastWordID int, lastPhoneName string, predWordID, predRef int, dfaStates []int) *token {
	sc := make([]float64, k)
	for i := range sc {
		sc[i] = gmm.LogZero
	}
	return &token{sc: sc, enter: enter, lastWordID: lastWordID, lastPhoneName: lastPhoneName, predWordID: predWordID, predRef: predRef, dfaStates: dfaStates}
}

func maxOf(v []float64) float64 {
	best := gmm.LogZero
	for _, x := range v {
		if x > best {
			best = x
		}
	}
	return best
}

func tokScore(tok *token) float64 {
	s := maxOf(tok.sc)
	if tok.enter > s {
		return tok.enter
	}
	return s
}

// BeamSearch drives pass 1 over a lexicon.Tree, scoring states via gmm.Scorer
// and resolving cross-word context via ctxres.Resolver. Exactly one of lm
// (N-gram mode) or dfa (grammar mode) is active at a time, per the decoder's
// dictionary-vs-grammar configuration.
type BeamSearch struct {
	tree     *lexicon.Tree
	words    []lexicon.WordInfo
	scorer   *gmm.Scorer
	resolver *ctxres.Resolver

	lm  *lmmodel.NGram // pass-1 forward N-gram, nil in grammar mode
	dfa *lmmodel.DFA   // nil in N-gram mode

	// categories[wordID] is the DFA terminal category for words[wordID],
	// valid only when dfa != nil.
	categories []int

	cfg Config

	cur     map[int]*token
	pending map[int]*token
	trellis *lexicon.TrellisStore

	spRun int

	LastWordEnds int // diagnostic: trellis words created by the most recent Step
}

// New builds a BeamSearch for N-gram mode (lm != nil) or grammar mode
// (dfa != nil, categories sized len(words)); exactly one of lm/dfa should
// be supplied.
func New(tree *lexicon.Tree, words []lexicon.WordInfo, scorer *gmm.Scorer, resolver *ctxres.Resolver, lm *lmmodel.NGram, dfa *lmmodel.DFA, categories []int, cfg Config) *BeamSearch {
	return &BeamSearch{
		tree:       tree,
		words:      words,
		scorer:     scorer,
		resolver:   resolver,
		lm:         lm,
		dfa:        dfa,
		categories: categories,
		cfg:        cfg,
	}
}

// Trellis returns the per-utterance trellis word store accumulated so far.
func (b *BeamSearch) Trellis() *lexicon.TrellisStore { return b.trellis }

// StepResult reports what happened after consuming one frame.
type StepResult struct {
	Live           bool // false once the beam has emptied (spec.md's OutOfBeam -> FAIL)
	SegmentTrigger bool // short-pause segmentation boundary reached
}

// Init resets per-utterance state and processes the first frame, seeding
// tokens from the lexicon root (spec.md §4.8's beam.init(frame)).
func (b *BeamSearch) Init(frame []float64) StepResult {
	b.trellis = lexicon.NewTrellisStore()
	b.resolver.Reset()
	b.cur = nil
	b.pending = make(map[int]*token)
	b.spRun = 0

	var initialDFA []int
	if b.dfa != nil {
		initialDFA = append(initialDFA, b.dfa.InitialStates()...)
		sort.Ints(initialDFA)
	}

	b.scorer.BeginFrame(0, frame)
	b.seedChildren(b.tree.Root, b.pending, 0, NoWordID, "", NoWordID, lexicon.NoPredecessor, initialDFA)
	return b.advanceFrame(0)
}

// Step consumes one subsequent frame (spec.md §4.8's beam.step(frame)).
func (b *BeamSearch) Step(frame []float64, frameIdx int) StepResult {
	b.scorer.BeginFrame(frameIdx, frame)
	return b.advanceFrame(frameIdx)
}

// advanceFrame merges the carried-over active tokens with the pending
// cross-boundary entries queued by the previous frame, prunes, advances
// every surviving node by one state transition, and queues the next
// frame's entries.
func (b *BeamSearch) advanceFrame(t int) StepResult {
	b.LastWordEnds = 0
	active := mergeActive(b.cur, b.pending)
	survivors := b.prune(active)

	nextCur := make(map[int]*token, len(survivors))
	nextPending := make(map[int]*token)

	for _, id := range survivors {
		n := b.tree.Nodes[id]
		tok := active[id]

		newSc := b.advanceNode(n, tok, t)
		if maxOf(newSc) <= gmm.LogZero {
			continue
		}
		newTok := &token{sc: newSc, enter: gmm.LogZero, lastWordID: tok.lastWordID, lastPhoneName: tok.lastPhoneName, predWordID: tok.predWordID, predRef: tok.predRef, dfaStates: tok.dfaStates}
		mergeInto(nextCur, id, newTok)

		exitScore := computeExit(newSc, n.Tr)
		if exitScore <= gmm.LogZero {
			continue
		}
		b.seedChildren(id, nextPending, exitScore, tok.lastWordID, tok.lastPhoneName, tok.predWordID, tok.predRef, tok.dfaStates)
		if n.IsTerminal() {
			b.handleWordEnd(n, tok, exitScore, t, nextPending)
		}
	}

	b.cur = nextCur
	b.pending = nextPending

	return StepResult{
		Live:           len(nextCur)+len(nextPending) > 0,
		SegmentTrigger: b.cfg.SPModel != "" && b.cfg.SPFrameDuration > 0 && b.spRun >= b.cfg.SPFrameDuration,
	}
}

func mergeActive(cur, pending map[int]*token) map[int]*token {
	out := make(map[int]*token, len(cur)+len(pending))
	for id, tok := range cur {
		out[id] = tok
	}
	for id, tok := range pending {
		if existing, ok := out[id]; !ok || tok.enter > tokScore(existing) {
			out[id] = tok
		}
	}
	return out
}

func mergeInto(next map[int]*token, id int, tok *token) {
	if existing, ok := next[id]; ok && maxOf(existing.sc) >= maxOf(tok.sc) {
		return
	}
	next[id] = tok
}

// seedChildren queues an entry candidate at every child of parent (the
// lexicon root for a brand-new word, or any node crossing its own phone
// boundary), scored as the exit/entry score plus the arc's boundary weight.
func (b *BeamSearch) seedChildren(parent int, pending map[int]*token, entryScore float64, lastWordID int, lastPhoneName string, predWordID, predRef int, dfaStates []int) {
	for _, tr := range b.tree.Nodes[parent].Trans {
		cand := entryScore + tr.LogProb
		b.mergeEntry(pending, tr.To, cand, lastWordID, lastPhoneName, predWordID, predRef, dfaStates)
	}
}

func (b *BeamSearch) mergeEntry(pending map[int]*token, id int, score float64, lastWordID int, lastPhoneName string, predWordID, predRef int, dfaStates []int) {
	if existing, ok := pending[id]; ok && existing.enter >= score {
		return
	}
	k := b.tree.Nodes[id].EmittingStates()
	pending[id] = newPendingToken(k, score, lastWordID, lastPhoneName, predWordID, predRef, dfaStates)
}

// advanceNode runs one frame's intra-node Viterbi transition: each emitting
// state's new score is the best of (a) a freshly entering token crossing
// the node's entry boundary and (b) every reachable predecessor state
// (self-loop or skip arc) in tok.sc, plus that state's emission probability
// this frame - the general form that covers multi-path HMMs (spec.md
// §4.5's "both self-loop+skip and advance, taking the max").
func (b *BeamSearch) advanceNode(n *lexicon.Node, tok *token, t int) []float64 {
	k := n.EmittingStates()
	newSc := make([]float64, k)
	for j := 0; j < k; j++ {
		best := gmm.LogZero
		if tok.enter > gmm.LogZero {
			if a := safeA(n.Tr, 0, j+1); a > 0 {
				if v := tok.enter + math.Log(a); v > best {
					best = v
				}
			}
		}
		for i := 0; i < k; i++ {
			if tok.sc[i] <= gmm.LogZero {
				continue
			}
			if a := safeA(n.Tr, i+1, j+1); a > 0 {
				if v := tok.sc[i] + math.Log(a); v > best {
					best = v
				}
			}
		}
		if best <= gmm.LogZero {
			newSc[j] = gmm.LogZero
			continue
		}
		e := b.emission(n, j, tok.lastWordID, tok.lastPhoneName)
		if e <= gmm.LogZero {
			newSc[j] = gmm.LogZero
			continue
		}
		newSc[j] = best + e
	}
	return newSc
}

func safeA(tr *acmodel.Trans, i, j int) float64 {
	if tr == nil || i < 0 || i >= len(tr.A) || j < 0 || j >= len(tr.A[i]) {
		return 0
	}
	return tr.A[i][j]
}

// computeExit returns the best score reaching the node's non-emitting exit
// state, the candidate for crossing into a child node this frame.
func computeExit(sc []float64, tr *acmodel.Trans) float64 {
	if tr == nil {
		return gmm.LogZero
	}
	last := tr.StateNum - 1
	best := gmm.LogZero
	for i, s := range sc {
		if s <= gmm.LogZero {
			continue
		}
		if a := safeA(tr, i+1, last); a > 0 {
			if v := s + math.Log(a); v > best {
				best = v
			}
		}
	}
	return best
}

// emission dispatches to the four C2 cases (spec.md §4.2) for node n's
// emitting state j (0-based), given the word-boundary context a token at n
// carries.
func (b *BeamSearch) emission(n *lexicon.Node, j int, lastWordID int, lastPhoneName string) float64 {
	switch n.Kind {
	case lexicon.KindPlain:
		return b.scorer.StateScore(n.States[j])
	case lexicon.KindLeftContext:
		if n.CDLogical.IsPseudo {
			return b.scorer.PseudoScore(n.CDLogical.Pseudo, j+1)
		}
		return b.scorer.StateScore(n.CDLogical.Body.States[j+1])
	default: // KindRightContext, KindBothContext
		resolved, err := b.resolver.ResolveWordHead(n.ID, lastWordID, n.CDLogical, lastPhoneName, j+1)
		if err != nil {
			return gmm.LogZero
		}
		if resolved.IsPseudo {
			return b.scorer.PseudoScore(resolved.Pseudo, resolved.StateLoc)
		}
		return b.scorer.StateScore(resolved.State)
	}
}

// handleWordEnd records a surviving word-end as a lexicon.TrellisWord,
// applies the pass-1 LM/grammar score, and re-seeds the lexicon root for
// the next word (spec.md §4.5 step 3).
func (b *BeamSearch) handleWordEnd(n *lexicon.Node, tok *token, exitScore float64, t int, pendingNext map[int]*token) {
	wordID := n.WordID
	entry := b.words[wordID].Entry

	var lmScore float64
	var newDFA []int

	if b.dfa != nil {
		cat := 0
		if wordID < len(b.categories) {
			cat = b.categories[wordID]
		}
		allowed := make(map[int]bool)
		for _, s := range tok.dfaStates {
			for _, tr := range b.dfa.Next(s, cat) {
				allowed[tr.To] = true
			}
		}
		if len(allowed) == 0 {
			return // disallowed transition: hypothesis killed (spec.md §4.5 step 3)
		}
		for s := range allowed {
			newDFA = append(newDFA, s)
		}
		sort.Ints(newDFA)
	} else {
		lmScore = b.nGramScore(tok.lastWordID, entry)
	}

	ref := b.trellis.Append(lexicon.TrellisWord{
		WordID:         wordID,
		EndFrame:       t,
		BackScore:      exitScore + lmScore,
		PredWordID:     tok.lastWordID,
		PredTrellisRef: tok.predRef,
		LMScore:        lmScore,
	})
	b.LastWordEnds++

	lastPhone := lexicon.WordLastPhone(b.words[wordID])
	b.seedChildren(b.tree.Root, pendingNext, exitScore+lmScore, wordID, lastPhone, wordID, ref, newDFA)

	if b.cfg.SPModel != "" && entry.Name == b.cfg.SPModel {
		b.spRun++
	} else {
		b.spRun = 0
	}
}

func (b *BeamSearch) nGramScore(lastWordID int, entry lmmodel.Entry) float64 {
	if entry.Transparent {
		return b.cfg.TransparentPenalty
	}

	curID := b.lm.LookupWord(entry.Name)
	var ctxID lmmodel.WordID
	if lastWordID == NoWordID {
		ctxID = b.lm.LookupWord(lmmodel.BeginWord)
	} else {
		ctxID = b.lm.LookupWord(b.words[lastWordID].Entry.Name)
	}

	lp := b.lm.LogProb([]lmmodel.WordID{ctxID, curID})
	score := b.cfg.LMWeight*lmmodel.ClampLog(lp) + b.cfg.LMPenalty
	if entry.HasClass && entry.ClassProb > 0 {
		score += b.cfg.LMWeight * math.Log(entry.ClassProb)
	}
	return score
}

// prune applies the rank beam and score-offset beam (spec.md §4.5 step 1),
// ranking by each token's own Viterbi score plus its node's LM look-ahead
// factor.
func (b *BeamSearch) prune(active map[int]*token) []int {
	type cand struct {
		id    int
		score float64
	}
	cands := make([]cand, 0, len(active))
	best := gmm.LogZero
	for id, tok := range active {
		s := tokScore(tok) + b.tree.Nodes[id].Factor
		cands = append(cands, cand{id, s})
		if s > best {
			best = s
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	limit := len(cands)
	if b.cfg.BeamWidth > 0 && b.cfg.BeamWidth < limit {
		limit = b.cfg.BeamWidth
	}

	out := make([]int, 0, limit)
	for i := 0; i < limit; i++ {
		if b.cfg.ScoreBeam > 0 && best-cands[i].score > b.cfg.ScoreBeam {
			break
		}
		out = append(out, cands[i].id)
	}
	return out
}

// DefaultBeamWidth implements the model-dependent rank-beam default,
// spec.md §4.5: min(sqrt(|V|)*15, cap).
func DefaultBeamWidth(vocabSize, cap int) int {
	w := int(math.Sqrt(float64(vocabSize)) * 15)
	if cap > 0 && w > cap {
		return cap
	}
	return w
}
