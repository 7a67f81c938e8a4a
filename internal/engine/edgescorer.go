package engine

import (
	"github.com/example/gojulius/internal/backtrellis"
	"github.com/example/gojulius/internal/ctxres"
	"github.com/example/gojulius/internal/gmm"
	"github.com/example/gojulius/internal/lexicon"
)

// edgeScorer implements backtrellis.EdgeScorer, the connection-point
// recomputation pass 2 needs: given a word-end and whichever word now
// actually follows it in time (or ctxres.InvalidWordID to re-derive pass
// 1's own provisional average, for DiscountPEScore), it resolves the
// word's final emitting state's exact output probability against the
// feature frame it ended on.
//
// Grounded on original_source/libjulius/src/outprob_style.c's
// outprob_style recomputation at a trellis connection point, generalized
// over the word-tail ctxres.Resolver this repo already builds for pass 1.
type edgeScorer struct {
	scorer   *gmm.Scorer
	resolver *ctxres.Resolver
	tree     *lexicon.Tree
	words    []lexicon.WordInfo
	terminal map[int]int // word id -> terminating tree node id
	frames   [][]float64 // one feature vector per frame of the utterance
}

// WordEndOutProb implements backtrellis.EdgeScorer.
func (s *edgeScorer) WordEndOutProb(wordID, neighborWordID, frame int) float64 {
	nodeID, ok := s.terminal[wordID]
	if !ok || frame < 0 || frame >= len(s.frames) {
		return gmm.LogZero
	}
	n := s.tree.Nodes[nodeID]
	stateLoc := n.EmittingStates()

	s.scorer.BeginFrame(frame, s.frames[frame])

	var nextPhone string
	if neighborWordID != ctxres.InvalidWordID && neighborWordID >= 0 && neighborWordID < len(s.words) {
		nextPhone = lexicon.WordFirstPhone(s.words[neighborWordID])
	}

	resolved, err := s.resolver.ResolveWordTail(nodeID, neighborWordID, n.CDLogical, nextPhone, stateLoc)
	if err != nil {
		return gmm.LogZero
	}
	if resolved.IsPseudo {
		return s.scorer.PseudoScore(resolved.Pseudo, resolved.StateLoc)
	}
	return s.scorer.StateScore(resolved.State)
}

var _ backtrellis.EdgeScorer = (*edgeScorer)(nil)
