// Package stackdecoder implements pass 2 ("C7" in SPEC_FULL.md): a
// backward, best-first A* stack search over the pass-1 trellis that
// rescores word sequences under a (typically higher-order) backward
// language model and produces N-best sentences.
//
// Grounded on original_source/libjulius/src/ngram_decode.c's stack-decoding
// loop (next_word / expand_word / score bookkeeping) and the NODE struct in
// original_source/libjulius/include/julius/search.h, which
// SPEC_FULL.md's Hypothesis type mirrors field for field.
package stackdecoder

import (
	"container/heap"
	"math"
	"slices"
	"sort"

	"github.com/example/gojulius/internal/backtrellis"
	"github.com/example/gojulius/internal/lexicon"
	"github.com/example/gojulius/internal/lmmodel"
)

// Config holds the pass-2 tuning parameters.
type Config struct {
	NBest           int
	StackSize       int // overflow cap, S_max; <=0 means 500 (spec.md default)
	LookupRange     int
	LM2Weight       float64
	LM2Penalty      float64
	ConfidenceAlpha float64 // default 0.05 if <=0
}

const defaultStackSize = 500
const defaultConfidenceAlpha = 0.05

// Hypothesis is pass 2's NODE-equivalent: an immutable linked partial
// sentence growing backward in time. WordID/EndFrame describe the word most
// recently attached (the current leftmost-in-time word); Parent links to
// the suffix already fixed (closer to the utterance end).
type Hypothesis struct {
	Parent *Hypothesis

	WordID   int
	EndFrame int

	G float64 // exact incremental Viterbi score of the fixed word sequence
	F float64 // G + trellis-derived backward estimate (priority key)

	EstimatedNextT int
	DFAStates      []int // grammar mode only
}

// Words reconstructs the word-id sequence in utterance (forward) order.
// Pass 2 extends hypotheses backward in time, so h is the earliest word and
// each Parent is the word after it; walking the chain yields forward order.
func (h *Hypothesis) Words() []int {
	var out []int
	for n := h; n != nil; n = n.Parent {
		out = append(out, n.WordID)
	}
	return out
}

// priorityQueue is a max-heap over Hypothesis.F, container/heap's required
// shape (push/pop/less/swap/len) kept as small and literal as the teacher's
// own heap usages.
type priorityQueue []*Hypothesis

func (q priorityQueue) Len() int            { return len(q) }
func (q priorityQueue) Less(i, j int) bool  { return q[i].F > q[j].F }
func (q priorityQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *priorityQueue) Push(x interface{}) { *q = append(*q, x.(*Hypothesis)) }
func (q *priorityQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Sentence is one finished N-best result.
type Sentence struct {
	Words       []int
	Score       float64
	Confidences []float64 // per word, same length as Words
}

// Status mirrors spec.md §4.8's top-level status codes relevant to pass 2.
type Status string

const (
	StatusOK   Status = "OK"
	StatusFail Status = "FAIL"
)

// Result is Run's output.
type Result struct {
	Sentences []Sentence
	Status    Status
}

// StackDecoder runs pass 2 over one utterance's backtrellis.BackTrellis.
type StackDecoder struct {
	bt     *backtrellis.BackTrellis
	words  []lexicon.WordInfo
	edge   backtrellis.EdgeScorer
	lm     *lmmodel.NGram // backward-direction N-gram, nil in grammar mode
	dfa    *lmmodel.DFA
	categories []int

	cfg Config

	beginWordID, endWordID int // dictionary word ids for <s>/</s>, N-gram mode only

	// alt records every g-score ever computed for a (frame, wordID)
	// position during the search, the population the confidence measure
	// (spec.md §4.7) draws its denominator from.
	alt map[altKey][]float64
}

type altKey struct {
	frame  int
	wordID int
}

// New builds a StackDecoder. edge recomputes a word's boundary emission
// score under a now-known adjoining word (the IWCD fix pass 1 could not
// apply); lm is a backward N-gram (nil in grammar mode), dfa a grammar
// (nil in N-gram mode) with categories parallel to words.
func New(bt *backtrellis.BackTrellis, words []lexicon.WordInfo, edge backtrellis.EdgeScorer, lm *lmmodel.NGram, dfa *lmmodel.DFA, categories []int, beginWordID, endWordID int, cfg Config) *StackDecoder {
	return &StackDecoder{
		bt: bt, words: words, edge: edge, lm: lm, dfa: dfa, categories: categories,
		cfg: cfg, beginWordID: beginWordID, endWordID: endWordID,
		alt: make(map[altKey][]float64),
	}
}

func (d *StackDecoder) stackSize() int {
	if d.cfg.StackSize > 0 {
		return d.cfg.StackSize
	}
	return defaultStackSize
}

func (d *StackDecoder) confidenceAlpha() float64 {
	if d.cfg.ConfidenceAlpha > 0 {
		return d.cfg.ConfidenceAlpha
	}
	return defaultConfidenceAlpha
}

// Run executes the best-first search to completion, returning up to
// cfg.NBest finished sentences (spec.md §4.7's Step loop). If nothing
// reaches acceptance, Result.Status is StatusFail and Sentences is empty -
// the caller decides whether to fall back to the pass-1 best path.
func (d *StackDecoder) Run() Result {
	lastFrame := d.bt.FrameLen() - 1

	q := &priorityQueue{}
	heap.Init(q)
	for _, h := range d.seedRoots(lastFrame) {
		heap.Push(q, h)
	}

	var finished []*Hypothesis
	nbest := d.cfg.NBest
	if nbest <= 0 {
		nbest = 1
	}

	stackCap := d.stackSize()
	for q.Len() > 0 && len(finished) < nbest {
		h := heap.Pop(q).(*Hypothesis)

		if d.accepted(h) {
			// A sentence whose word sequence is already finished keeps only
			// the better-scored of the two hypotheses.
			words := h.Words()
			dup := false
			for i, f := range finished {
				if slices.Equal(f.Words(), words) {
					if h.F > f.F {
						finished[i] = h
					}
					dup = true
					break
				}
			}
			if !dup {
				finished = append(finished, h)
			}
			continue
		}

		for _, cand := range d.expand(h) {
			heap.Push(q, cand)
		}
		for q.Len() > stackCap {
			// Drop the weakest hypothesis (heap.Pop always removes the
			// current maximum, so scan-and-remove the minimum instead of
			// disturbing heap order on every overflow).
			d.dropWeakest(q)
		}
	}

	if len(finished) == 0 {
		return Result{Status: StatusFail}
	}

	sort.Slice(finished, func(i, j int) bool { return finished[i].F > finished[j].F })
	sentences := make([]Sentence, 0, len(finished))
	for _, h := range finished {
		sentences = append(sentences, Sentence{
			Words:       h.Words(),
			Score:       h.F,
			Confidences: d.confidences(h),
		})
	}
	return Result{Sentences: sentences, Status: StatusOK}
}

func (d *StackDecoder) dropWeakest(q *priorityQueue) {
	if q.Len() == 0 {
		return
	}
	worst := 0
	for i := 1; i < q.Len(); i++ {
		if (*q)[i].F < (*q)[worst].F {
			worst = i
		}
	}
	heap.Remove(q, worst)
}

// seedRoots creates one initial hypothesis per atom ending at the
// utterance's final frame (or, failing that, the backtrellis's own
// TerminalWords fallback), with an empty word sequence's implicit
// right-context of the sentence-end marker.
func (d *StackDecoder) seedRoots(lastFrame int) []*Hypothesis {
	var atoms []*backtrellis.Atom
	for t := lastFrame; t >= 0 && len(atoms) == 0; t-- {
		atoms = d.bt.AtFrame(t)
	}
	if len(atoms) == 0 {
		return nil
	}

	var dfaInit []int
	if d.dfa != nil {
		dfaInit = append(dfaInit, d.dfa.InitialStates()...)
	}

	out := make([]*Hypothesis, 0, len(atoms))
	for _, a := range atoms {
		h := d.attach(nil, a, dfaInit)
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// attach builds the Hypothesis resulting from prepending atom a to parent
// (nil for the very first word), or nil if a grammar-mode transition
// disallows it.
//
// The acoustic term reuses pass 1's trellis BackScore rather than re-running
// a fresh frame-by-frame Viterbi across a's phones: pass 1 already walked
// every emitting state of this word inside its own beam, and
// backtrellis.DiscountPEScore has removed the provisional word-end emission
// term from every trellis atom (C6), so the only correction pass 2 adds at
// this connection point is the boundary term a genuinely new right-hand
// neighbor introduces - exactly what
// edge.WordEndOutProb recomputes. A full word-internal re-scan would also
// need the word's own start frame, which the trellis never records (spec.md's
// Design Notes keep one end-frame-indexed atom per word, not a start/end
// pair), so re-deriving it would mean widening the trellis rather than
// fixing this function.
func (d *StackDecoder) attach(parent *Hypothesis, a *backtrellis.Atom, dfaStates []int) *Hypothesis {
	rightWordID := d.endWordID
	if parent != nil {
		rightWordID = parent.WordID
	}

	var lmScore float64
	var newDFA []int
	if d.dfa != nil {
		cat := 0
		if a.WordID < len(d.categories) {
			cat = d.categories[a.WordID]
		}
		allowed := make(map[int]bool)
		for _, s := range dfaStates {
			for _, tr := range d.dfa.Next(s, cat) {
				allowed[tr.To] = true
			}
		}
		if len(allowed) == 0 {
			return nil
		}
		for s := range allowed {
			newDFA = append(newDFA, s)
		}
		sort.Ints(newDFA)
	} else {
		lmScore = d.lm2Score(a.WordID, rightWordID)
	}

	acoustic := a.BackScore + d.edge.WordEndOutProb(a.WordID, rightWordID, a.EndFrame)
	parentG := 0.0
	if parent != nil {
		parentG = parent.G
	}
	g := parentG + acoustic + lmScore

	nextT := a.EndFrame - 1
	f := g + d.hStar(nextT)

	d.alt[altKey{frame: a.EndFrame, wordID: a.WordID}] = append(d.alt[altKey{frame: a.EndFrame, wordID: a.WordID}], g)

	return &Hypothesis{
		Parent: parent, WordID: a.WordID, EndFrame: a.EndFrame,
		G: g, F: f, EstimatedNextT: nextT, DFAStates: newDFA,
	}
}

func (d *StackDecoder) lm2Score(wordID, rightWordID int) float64 {
	if wordID >= len(d.words) || rightWordID >= len(d.words) {
		return 0
	}
	curID := d.lm.LookupWord(d.words[wordID].Entry.Name)
	var rightID lmmodel.WordID
	if rightWordID == d.endWordID && rightWordID >= 0 && rightWordID < len(d.words) {
		rightID = d.lm.LookupWord(d.words[rightWordID].Entry.Name)
	} else if rightWordID < 0 {
		rightID = d.lm.LookupWord(lmmodel.EndWord)
	} else {
		rightID = d.lm.LookupWord(d.words[rightWordID].Entry.Name)
	}
	lp := d.lm.LogProb([]lmmodel.WordID{rightID, curID})
	return d.cfg.LM2Weight*lmmodel.ClampLog(lp) + d.cfg.LM2Penalty
}

// hStar is the trellis-derived backward score estimate h*(h): a direct
// read of the best atom ending at or near frame t (spec.md §4.7: "the
// approximate backward score read from the trellis at the expected
// connection frame"), searched within lookup_range when t itself has no
// atoms, and 0 once the search has walked back past the utterance start.
// BackScore at this point is already C6's discounted atom score, not the
// raw pass-1 Viterbi value, so it is consistent with the g-scores attach
// builds alongside it rather than double-counting the discount.
func (d *StackDecoder) hStar(t int) float64 {
	if t < 0 {
		return 0
	}
	win := d.cfg.LookupRange
	if win < 0 {
		win = 0
	}
	for dt := 0; dt <= win; dt++ {
		for _, cand := range []int{t - dt, t + dt} {
			if best := bestAt(d.bt.AtFrame(cand)); best != nil {
				return best.BackScore
			}
			if dt == 0 {
				break
			}
		}
	}
	return 0
}

func bestAt(atoms []*backtrellis.Atom) *backtrellis.Atom {
	var best *backtrellis.Atom
	for _, a := range atoms {
		if best == nil || a.BackScore > best.BackScore {
			best = a
		}
	}
	return best
}

// expand looks up candidate next words in the trellis window around h's
// estimated connection frame, de-duplicates by word id (keeping the
// highest back-score), and drops disallowed expansions: immediate
// self-repeat of the identical trellis word, and the sentence-end marker
// appearing anywhere but the very first (rightmost) position.
func (d *StackDecoder) expand(h *Hypothesis) []*Hypothesis {
	win := d.cfg.LookupRange
	if win < 0 {
		win = 0
	}

	best := make(map[int]*backtrellis.Atom)
	for t := h.EstimatedNextT - win; t <= h.EstimatedNextT+win; t++ {
		for _, a := range d.bt.AtFrame(t) {
			if a.WordID == h.WordID && a.EndFrame == h.EndFrame {
				continue // self-repeat of the identical trellis word
			}
			if a.WordID == d.endWordID {
				continue // </s> is never a mid-sentence expansion
			}
			if cur, ok := best[a.WordID]; !ok || a.BackScore > cur.BackScore {
				best[a.WordID] = a
			}
		}
	}

	out := make([]*Hypothesis, 0, len(best))
	for _, a := range best {
		if cand := d.attach(h, a, h.DFAStates); cand != nil {
			out = append(out, cand)
		}
	}
	return out
}

// accepted reports whether h is a complete sentence: in N-gram mode, its
// leftmost word is the sentence-begin marker; in grammar mode, its DFA
// state set intersects the grammar's initial states.
func (d *StackDecoder) accepted(h *Hypothesis) bool {
	if d.dfa != nil {
		init := make(map[int]bool)
		for _, s := range d.dfa.InitialStates() {
			init[s] = true
		}
		for _, s := range h.DFAStates {
			if init[s] {
				return true
			}
		}
		return false
	}
	return h.WordID == d.beginWordID
}

// confidences computes, for every word in h (utterance order), the
// measure CM = 1 / sum_k 10^(alpha*(score_k - best_score)) over every
// g-score this search ever computed at that (frame, word) position
// (spec.md §4.7).
func (d *StackDecoder) confidences(h *Hypothesis) []float64 {
	var nodes []*Hypothesis
	for n := h; n != nil; n = n.Parent {
		nodes = append(nodes, n)
	}
	alpha := d.confidenceAlpha()
	out := make([]float64, len(nodes))
	for i, n := range nodes {
		scores := d.alt[altKey{frame: n.EndFrame, wordID: n.WordID}]
		out[i] = confidenceMeasure(n.G, scores, alpha)
	}
	return out
}

func confidenceMeasure(score float64, alts []float64, alpha float64) float64 {
	if len(alts) == 0 {
		return 1
	}
	best := score
	for _, s := range alts {
		if s > best {
			best = s
		}
	}
	sum := 0.0
	for _, s := range alts {
		sum += math.Pow(10, alpha*(s-best))
	}
	if sum <= 0 {
		return 1
	}
	return 1 / sum
}
