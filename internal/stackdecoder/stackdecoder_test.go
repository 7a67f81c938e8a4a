package stackdecoder

import (
	"strings"
	"testing"

	"github.com/example/gojulius/internal/backtrellis"
	"github.com/example/gojulius/internal/lexicon"
	"github.com/example/gojulius/internal/lmmodel"
)

type zeroEdgeScorer struct{}

func (zeroEdgeScorer) WordEndOutProb(wordID, predWordID, frame int) float64 { return 0 }

func buildBackward(t *testing.T, body string) *lmmodel.NGram {
	t.Helper()
	lm, err := lmmodel.ReadARPA(strings.NewReader(body), lmmodel.Backward)
	if err != nil {
		t.Fatalf("ReadARPA: %v", err)
	}
	return lm
}

// TestStackDecoderFinishesAtSentenceBegin decodes a trellis holding one atom
// each for <s>, a and b under a reverse bigram over {<s>, a, b, </s>} and
// checks that the best finished sentence begins with <s>.
func TestStackDecoderFinishesAtSentenceBegin(t *testing.T) {
	words := []lexicon.WordInfo{
		{WordID: 0, Entry: lmmodel.Entry{Name: "<s>"}},
		{WordID: 1, Entry: lmmodel.Entry{Name: "a"}},
		{WordID: 2, Entry: lmmodel.Entry{Name: "b"}},
		{WordID: 3, Entry: lmmodel.Entry{Name: "</s>"}},
	}

	arpa := "\\data\\\nngram 1=4\nngram 2=2\n\n\\1-grams:\n-1.0 <s>\n-1.0 a\n-1.0 b\n-1.0 </s>\n\n" +
		"\\2-grams:\n-0.1 </s> b\n-0.1 b a\n\n\\end\\\n"
	lm := buildBackward(t, arpa)

	bt := backtrellis.New(4)
	store := lexicon.NewTrellisStore()
	// Forward sentence order is "<s> a b </s>", so in time order <s> ends
	// earliest and b (adjacent to the utterance end) ends last.
	store.Append(lexicon.TrellisWord{WordID: 1, EndFrame: 2, BackScore: -1, PredWordID: -1, PredTrellisRef: lexicon.NoPredecessor})
	store.Append(lexicon.TrellisWord{WordID: 2, EndFrame: 3, BackScore: -1, PredWordID: -1, PredTrellisRef: lexicon.NoPredecessor})
	store.Append(lexicon.TrellisWord{WordID: 0, EndFrame: 0, BackScore: -1, PredWordID: -1, PredTrellisRef: lexicon.NoPredecessor})
	bt.Relocate(store)
	bt.Sort()

	cfg := Config{NBest: 1, LookupRange: 3, LM2Weight: 1}
	sd := New(bt, words, zeroEdgeScorer{}, lm, nil, nil, 0, 3, cfg)
	res := sd.Run()

	if res.Status != StatusOK {
		t.Fatalf("status = %v, want OK", res.Status)
	}
	if len(res.Sentences) == 0 {
		t.Fatal("expected at least one finished sentence")
	}
	got := res.Sentences[0].Words
	if len(got) == 0 || got[0] != 0 {
		t.Errorf("sentence %v does not begin with <s> (word id 0)", got)
	}
}

func TestStackDecoderFallsBackToFailWhenTrellisEmpty(t *testing.T) {
	words := []lexicon.WordInfo{{WordID: 0, Entry: lmmodel.Entry{Name: "<s>"}}}
	bt := backtrellis.New(4)
	bt.Relocate(lexicon.NewTrellisStore())

	sd := New(bt, words, zeroEdgeScorer{}, nil, nil, nil, 0, 0, Config{NBest: 1})
	res := sd.Run()
	if res.Status != StatusFail {
		t.Errorf("status = %v, want FAIL for an empty trellis", res.Status)
	}
}
