package lexicon

import (
	"github.com/example/gojulius/internal/acmodel"
	"github.com/example/gojulius/internal/lmmodel"
)

// PrepareWords converts a loaded word dictionary into the per-position
// phone names Build expects, performing the "triphone conversion of
// monophone entries" spec.md §6 describes as implicit: a word-internal
// phone becomes the concrete triphone formed by its immediate pronunciation
// neighbors, while the word-initial/word-final phones become the
// right-context/left-context biphone names that package ctxres resolves
// against whichever word turns out to precede or follow them at decode
// time. A one-phone word keeps its bare monophone name, letting Build
// classify it KindBothContext.
//
// Grounded on original_source/libsent/src/voca/voca_load_htkdict.c's
// triphone-expansion pass over a loaded dictionary (make_and_voca_chain's
// context-name synthesis), applied here as a pure function over
// lmmodel.Entry rather than mutating global vocabulary state.
func PrepareWords(dict *lmmodel.Dictionary) []WordInfo {
	out := make([]WordInfo, 0, len(dict.Entries))
	for id, e := range dict.Entries {
		out = append(out, WordInfo{
			WordID: id,
			Entry:  e,
			Phones: contextualize(e.Phones),
		})
	}
	return out
}

// contextualize renames a monophone pronunciation into the word-position
// names described above. phones is never mutated.
func contextualize(phones []string) []string {
	if len(phones) <= 1 {
		return append([]string(nil), phones...)
	}

	out := make([]string, len(phones))
	for i, p := range phones {
		switch {
		case i == 0:
			out[i] = p + "+" + phones[i+1]
		case i == len(phones)-1:
			out[i] = phones[i-1] + "-" + p
		default:
			out[i] = phones[i-1] + "-" + p + "+" + phones[i+1]
		}
	}
	return out
}

// WordLastPhone returns the base phone name (context stripped) of word w's
// final pronunciation unit, used to seed the right-context resolution cache
// key when a new word begins right after it.
func WordLastPhone(w WordInfo) string {
	if len(w.Phones) == 0 {
		return ""
	}
	base, _, _ := acmodel.SplitContext(w.Phones[len(w.Phones)-1])
	return base
}

// WordFirstPhone returns the base phone name (context stripped) of word w's
// initial pronunciation unit, the counterpart WordLastPhone needs when
// resolving the word-tail context of whatever precedes w.
func WordFirstPhone(w WordInfo) string {
	if len(w.Phones) == 0 {
		return ""
	}
	base, _, _ := acmodel.SplitContext(w.Phones[0])
	return base
}

// TerminalNodes indexes every tree node that terminates a word, by word id,
// for the backward pass's word-boundary rescoring (it needs to reach a
// word's final-phone node directly by word id rather than walking the tree).
func TerminalNodes(t *Tree) map[int]int {
	out := make(map[int]int)
	for _, n := range t.Nodes {
		if n.IsTerminal() {
			out[n.WordID] = n.ID
		}
	}
	return out
}
