package beamsearch

import (
	"strings"
	"testing"

	"github.com/example/gojulius/internal/acmodel"
	"github.com/example/gojulius/internal/ctxres"
	"github.com/example/gojulius/internal/gmm"
	"github.com/example/gojulius/internal/lexicon"
	"github.com/example/gojulius/internal/lmmodel"
)

// monophoneData builds a minimal 3-state (1 emitting) concrete HMM whose
// single Gaussian is centered on mean, matching internal/lexicon's own test
// fixture style.
func monophoneData(name string, mean []float64) *acmodel.Data {
	tr := &acmodel.Trans{
		Name:     name + "_tr",
		StateNum: 3,
		A: [][]float64{
			{0, 1, 0},
			{0, 0.5, 0.5},
			{0, 0, 0},
		},
	}
	v := &acmodel.Var{Vec: []float64{1, 1, 1}}
	d := &acmodel.Dens{Mean: mean, Var: v, GConst: 0}
	pdf := &acmodel.PDF{B: []*acmodel.Dens{d}, BWeight: []float64{1.0}}
	st := &acmodel.State{Name: name + "_s2", NStream: 1, PDF: []*acmodel.PDF{pdf}}
	return &acmodel.Data{Name: name, States: []*acmodel.State{nil, st, nil}, Tr: tr}
}

func buildSet(t *testing.T, names ...string) *acmodel.Set {
	t.Helper()
	set := &acmodel.Set{}
	var hmmlist strings.Builder
	for i, n := range names {
		set.Physical = append(set.Physical, monophoneData(n, []float64{float64(i), float64(i), float64(i)}))
		hmmlist.WriteString(n + "\n")
	}
	if err := acmodel.ReadHMMList(strings.NewReader(hmmlist.String()), set); err != nil {
		t.Fatalf("ReadHMMList: %v", err)
	}
	return set
}

func buildLM(t *testing.T, words ...string) *lmmodel.NGram {
	t.Helper()
	var arpa strings.Builder
	arpa.WriteString("\\data\\\n")
	arpa.WriteString("ngram 1=")
	arpa.WriteString(itoa(len(words) + 2))
	arpa.WriteString("\n\n\\1-grams:\n-0.5 <s>\n-0.5 </s>\n")
	for _, w := range words {
		arpa.WriteString("-1.0 " + w + "\n")
	}
	arpa.WriteString("\n\\end\\\n")
	lm, err := lmmodel.ReadARPA(strings.NewReader(arpa.String()), lmmodel.Forward)
	if err != nil {
		t.Fatalf("ReadARPA: %v", err)
	}
	return lm
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestBeamSearchRecognizesSingleWord(t *testing.T) {
	set := buildSet(t, "a")
	words := []lexicon.WordInfo{
		{WordID: 0, Entry: lmmodel.Entry{Name: "hi"}, Phones: []string{"a"}},
	}
	tree, err := lexicon.Build(words, set, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	lm := buildLM(t, "hi")
	scorer := gmm.NewScorer(set, 0, gmm.PolicyAvg, 0)
	resolver := ctxres.New(set)

	bs := New(tree, words, scorer, resolver, lm, nil, nil, Config{LMWeight: 1, LMPenalty: 0})

	frames := [][]float64{
		{0, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
	}

	res := bs.Init(frames[0])
	if !res.Live {
		t.Fatal("beam died on frame 0")
	}
	for i := 1; i < len(frames); i++ {
		res = bs.Step(frames[i], i)
		if !res.Live {
			t.Fatalf("beam died on frame %d", i)
		}
	}

	trellis := bs.Trellis()
	if trellis == nil || len(trellis.Words()) == 0 {
		t.Fatal("expected at least one surviving trellis word")
	}
	found := false
	for _, w := range trellis.Words() {
		if w.WordID == 0 {
			found = true
		}
	}
	if !found {
		t.Error("expected a trellis word for word id 0")
	}
}

func TestBeamSearchLiveAfterInitWithTightBeam(t *testing.T) {
	set := buildSet(t, "a")
	words := []lexicon.WordInfo{
		{WordID: 0, Entry: lmmodel.Entry{Name: "hi"}, Phones: []string{"a"}},
	}
	tree, err := lexicon.Build(words, set, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	lm := buildLM(t, "hi")
	scorer := gmm.NewScorer(set, 0, gmm.PolicyAvg, 0)
	resolver := ctxres.New(set)

	bs := New(tree, words, scorer, resolver, lm, nil, nil, Config{LMWeight: 1, BeamWidth: 1, ScoreBeam: 0.001})
	res := bs.Init([]float64{0, 0, 0})
	if !res.Live {
		t.Fatal("beam should still be alive immediately after init")
	}
}
