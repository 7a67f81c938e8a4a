// Package engine is the top-level scheduler ("C8" in SPEC_FULL.md): it
// owns every loaded model component, drives the feature extractor and the
// two-pass decoder over one utterance at a time, and reports the result
// through a small callback set instead of the original's global state and
// compiled-in callback table.
//
// Grounded on original_source/libjulius/src/instance.c and m_chkparam.c for
// the per-utterance lifecycle (reject checks before pass 1, pass 1, then
// pass 2 unless grammar/one-pass mode applies) and on the teacher's
// internal/tts/service.go for the "one struct owns the runtime, exposes a
// single blocking entry point" shape.
package engine

import (
	"github.com/example/gojulius/internal/acmodel"
	"github.com/example/gojulius/internal/config"
	"github.com/example/gojulius/internal/ctxres"
	"github.com/example/gojulius/internal/feature"
	"github.com/example/gojulius/internal/gmm"
	"github.com/example/gojulius/internal/lexicon"
	"github.com/example/gojulius/internal/lmmodel"
)

// Status mirrors spec.md §4.8's top-level per-utterance outcome codes.
type Status string

const (
	StatusOK          Status = "OK"
	StatusFail        Status = "FAIL"
	StatusRejectPower Status = "REJECT_POWER"
	StatusRejectShort Status = "REJECT_SHORT"
	StatusRejectLong  Status = "REJECT_LONG"
	StatusRejectGMM   Status = "REJECT_GMM"
	StatusOnlySilence Status = "ONLY_SILENCE"
	StatusTerminate   Status = "TERMINATE"
)

// Word is one recognized word, resolved to its dictionary name for callers
// that never need to see a raw word id.
type Word struct {
	Name       string
	WordID     int
	EndFrame   int
	Confidence float64
}

// Sentence is one N-best hypothesis, sentence markers stripped.
type Sentence struct {
	Words []Word
	Score float64
}

// Result is the outcome of recognizing one utterance.
type Result struct {
	Status    Status
	Sentences []Sentence
	Frames    int
}

// Callbacks lets a caller observe engine lifecycle events (spec.md §4.8's
// callback registration) without threading extra return values through
// every Recognize call. Every field is optional.
type Callbacks struct {
	OnReady func()
	OnBegin func()
	OnFrame func(frame int)
	OnEnd   func(Result)
}

// Engine holds every loaded model component and runs the two-pass decode
// over one utterance at a time - the single mutable value that replaces
// the original engine's global state, per spec.md's Design Notes.
type Engine struct {
	cfg config.Config

	acoustic *acmodel.Set
	dict     *lmmodel.Dictionary
	dfa      *lmmodel.DFA
	fwdLM    *lmmodel.NGram // nil in grammar mode
	bwdLM    *lmmodel.NGram // nil in grammar mode

	words      []lexicon.WordInfo
	categories []int // parallel to words, valid only in grammar mode
	tree       *lexicon.Tree
	terminal   map[int]int // word id -> tree node id

	beginWordID, endWordID int // N-gram mode only, InvalidWordID if undeclared
	spWordID               int // short-pause word id, InvalidWordID if unset

	params feature.Params

	cb Callbacks

	segmentBase int // frame offset for short-pause segments; never set, so always 0
}

// InvalidWordID marks the absence of a dictionary entry (e.g. no "<s>"
// declared, or no short-pause model configured).
const InvalidWordID = -1

// SetCallbacks registers lifecycle hooks, replacing any previously set.
func (e *Engine) SetCallbacks(cb Callbacks) { e.cb = cb }

// Params exposes the resolved feature-extraction parameters, e.g. for a
// server front-end validating the sample rate of an uploaded file.
func (e *Engine) Params() feature.Params { return e.params }

func (e *Engine) gaussianPolicy() (gmm.PseudoPolicy, int) {
	return gmm.ParsePseudoPolicy(e.cfg.Search.IWCD1)
}

func (e *Engine) gaussianPruneN() int {
	if e.cfg.Search.GPrune == "none" {
		return 0
	}
	return e.cfg.Search.GaussianPruneN
}

func (e *Engine) newResolver() *ctxres.Resolver {
	return ctxres.New(e.acoustic)
}
