package lexicon

// TrellisWord is the pass-1 record of one surviving word end: created once
// by beamsearch and never mutated afterward (spec.md §3).
type TrellisWord struct {
	WordID         int
	EndFrame       int
	BackScore      float64
	PredWordID     int
	PredTrellisRef int // index into TrellisStore.Words(), or -1 at utterance start
	LMScore        float64
}

// NoPredecessor marks a TrellisWord with no predecessor (utterance-initial
// word).
const NoPredecessor = -1

// TrellisStore is the per-utterance, append-only list of trellis words
// beamsearch produces during pass 1, later organized per-frame by package
// backtrellis for pass 2's backward search.
type TrellisStore struct {
	words []TrellisWord
}

// NewTrellisStore returns an empty store.
func NewTrellisStore() *TrellisStore {
	return &TrellisStore{}
}

// Append records a new trellis word and returns its stable reference
// (index), usable as a later word's PredTrellisRef.
func (s *TrellisStore) Append(tw TrellisWord) int {
	ref := len(s.words)
	s.words = append(s.words, tw)
	return ref
}

// Words returns every trellis word recorded so far, in creation order.
// Callers must not mutate the returned slice's elements in place; treat it
// as a read-only view (spec.md's "never mutated after creation").
func (s *TrellisStore) Words() []TrellisWord {
	return s.words
}

// At returns the trellis word at ref.
func (s *TrellisStore) At(ref int) TrellisWord {
	return s.words[ref]
}

// Len returns the number of recorded trellis words.
func (s *TrellisStore) Len() int {
	return len(s.words)
}

// Reset discards every recorded word, for reuse across utterances without
// reallocating the backing array.
func (s *TrellisStore) Reset() {
	s.words = s.words[:0]
}
