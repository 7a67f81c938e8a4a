// Package lexicon builds the tree lexicon ("C4" in SPEC_FULL.md) that the
// pass-1 beam search walks frame-synchronously, and the per-utterance
// trellis store that records surviving word ends for pass 2.
//
// Grounded on the node/arc shape spec.md §3 describes for the tree lexicon
// ("an output-probability computation handle of one of three [four] kinds
// ... outgoing transitions ... optional terminal marker ... factoring cache
// slot"). The arena/integer-id idiom is shared with internal/acmodel and
// internal/gmm.
package lexicon

import (
	"fmt"
	"math"
	"sort"

	"github.com/example/gojulius/internal/acmodel"
	"github.com/example/gojulius/internal/lmmodel"
)

// Kind selects which of the four outprob dispatch cases (spec.md §4.2) a
// node's phone resolves to.
type Kind int

const (
	// KindPlain is a word-internal phone: a concrete, already
	// context-resolved HMM with a fixed emitting-state chain.
	KindPlain Kind = iota
	// KindLeftContext is a word-final phone: each emitting state's output
	// probability is the MAX/AVG/NBEST collapse over a pseudo state set
	// (C2 case 2), independent of any particular next word.
	KindLeftContext
	// KindRightContext is a word-initial phone: each emitting state's
	// output probability depends on the preceding word's last phone,
	// resolved by package ctxres (C2 case 3).
	KindRightContext
	// KindBothContext is a single-phone word: both word-initial and
	// word-final simultaneously (C2 case 4).
	KindBothContext
)

// InvalidWordID marks a non-terminal node.
const InvalidWordID = -1

// Transition is one outgoing arc of the tree lexicon, labeled with the log
// transition probability crossing the phone boundary (the product, in log
// space, of the source phone's exit weight and the destination phone's
// entry weight).
type Transition struct {
	To      int
	LogProb float64
}

// Node is one tree-lexicon arena slot, representing one phone occurrence at
// a particular position in one or more words' pronunciations (shared when
// several words have an identical prefix). Only Factor is ever mutated
// after the tree is built (the LM look-ahead cache, refreshed on grammar
// change).
//
// A node's emitting-state chain is NOT expanded into the tree's own graph:
// self-loop and skip arcs among a phone's emitting states are intra-node
// detail that package beamsearch walks directly via Tr, so the tree itself
// stays a simple one-node-per-phone structure matching spec.md §4.4's
// "DAG-free tree with word-id terminals" literally.
type Node struct {
	ID   int
	Kind Kind

	// States is the concrete emitting-state chain, valid for KindPlain.
	States []*acmodel.State
	// CDLogical is the word-initial/word-final logical HMM (concrete or
	// pseudo) to resolve via ctxres (KindRightContext/KindBothContext) or
	// collapse directly (KindLeftContext). Its StateNum() emitting
	// positions are addressed by ctxres's stateLoc parameter.
	CDLogical *acmodel.Logical
	// Tr is the transition matrix governing this phone's intra-node
	// self-loop/skip dynamics, shared by all of States or by CDLogical's
	// body/pseudo set.
	Tr *acmodel.Trans

	WordID int // InvalidWordID unless this node terminates a word
	Trans  []Transition

	Factor float64 // LM look-ahead: best reachable unigram/class-ngram log-prob
}

// IsTerminal reports whether n ends a word.
func (n *Node) IsTerminal() bool { return n.WordID != InvalidWordID }

// EmittingStates returns how many emitting HMM states this node's phone
// has, regardless of Kind.
func (n *Node) EmittingStates() int {
	switch n.Kind {
	case KindPlain:
		return len(n.States)
	default:
		if n.CDLogical.IsPseudo {
			return len(n.CDLogical.Pseudo.StateSets) - 2
		}
		return len(n.CDLogical.Body.States) - 2
	}
}

// Tree is the read-only-after-build tree lexicon arena.
type Tree struct {
	Nodes []*Node
	Root  int
}

// WordInfo is the per-word data the tree needs at build time: its
// dictionary entry and the resolved phone sequence. Word-internal entries
// must name concrete (non-pseudo) logical HMMs; word-initial/word-final
// entries may name either a concrete triphone placeholder (refined later
// per preceding word by ctxres) or a pseudo phone.
type WordInfo struct {
	WordID int
	Entry  lmmodel.Entry
	Phones []string
}

// Build constructs a tree lexicon over words, sharing common phone-sequence
// prefixes. set supplies the logical HMM lookup; lm, if non-nil, seeds
// every node's Factor with the best reachable unigram log-probability for
// pass-1 LM look-ahead (spec.md §4.4).
func Build(words []WordInfo, set *acmodel.Set, lm *lmmodel.NGram) (*Tree, error) {
	t := &Tree{}
	root := t.newNode(KindPlain)
	t.Root = root

	for _, w := range words {
		if len(w.Phones) == 0 {
			return nil, fmt.Errorf("lexicon: word %q (id %d) has an empty phone sequence", w.Entry.Name, w.WordID)
		}
		if err := t.insert(root, w, set); err != nil {
			return nil, err
		}
	}

	if lm != nil {
		t.factorLookAhead(words, lm)
	}

	return t, nil
}

func (t *Tree) newNode(kind Kind) int {
	n := &Node{ID: len(t.Nodes), Kind: kind, WordID: InvalidWordID}
	t.Nodes = append(t.Nodes, n)
	return n.ID
}

// insert walks from node, reusing an existing child arc whenever its phone
// name/kind match (shared-prefix sharing), and creates new nodes for the
// suffix that diverges.
func (t *Tree) insert(node int, w WordInfo, set *acmodel.Set) error {
	cur := node
	for i, phone := range w.Phones {
		kind := KindPlain
		switch {
		case len(w.Phones) == 1:
			kind = KindBothContext
		case i == 0:
			kind = KindRightContext
		case i == len(w.Phones)-1:
			kind = KindLeftContext
		}

		if child := t.findChild(cur, phone, kind); child >= 0 {
			cur = child
			continue
		}

		logical, ok := set.Logical(phone)
		if !ok {
			return fmt.Errorf("lexicon: word %q: phone %q has no logical HMM definition", w.Entry.Name, phone)
		}

		child := t.newNode(kind)
		cn := t.Nodes[child]
		cn.CDLogical = logical
		if kind == KindPlain {
			if logical.IsPseudo {
				return fmt.Errorf("lexicon: word %q: word-internal phone %q resolved to a pseudo phone, expected a concrete HMM", w.Entry.Name, phone)
			}
			cn.States = logical.Body.States[1 : len(logical.Body.States)-1]
			cn.Tr = logical.Body.Tr
		} else if logical.IsPseudo {
			cn.Tr = logical.Pseudo.Tr
		} else {
			cn.Tr = logical.Body.Tr
		}
		t.Nodes[cur].Trans = append(t.Nodes[cur].Trans, Transition{To: child, LogProb: boundaryLogProb(t.Nodes[cur], cn)})
		cur = child
	}

	// cur is always freshly created or matched by findChild, which never
	// returns an already-terminal node, so two words with an identical
	// phone sequence (true homophones) simply end up as sibling leaves
	// under their shared parent rather than colliding on one node.
	t.Nodes[cur].WordID = w.WordID
	return nil
}

// boundaryLogProb combines, in log space, the source phone's exit weight
// (transition to its own last/non-emitting exit state) with the
// destination phone's entry weight (transition from its first/non-emitting
// entry state), the product an HMM network normally applies across a phone
// boundary. The root node and pseudo-phone boundaries carry no resolvable
// transition matrix at build time, so those arcs default to 0 (resolved
// exactly once the preceding word's context is known, at pass-1 time).
func boundaryLogProb(from, to *Node) float64 {
	exit := 0.0
	if from.Tr != nil {
		exit = logOrZero(from.Tr.ExitWeight())
	}
	entry := 0.0
	if to.Tr != nil {
		entry = logOrZero(to.Tr.EntryWeight())
	}
	return exit + entry
}

func (t *Tree) findChild(node int, phone string, kind Kind) int {
	for _, tr := range t.Nodes[node].Trans {
		c := t.Nodes[tr.To]
		if c.Kind == kind && c.CDLogical != nil && c.CDLogical.Name == phone && !c.IsTerminal() {
			return c.ID
		}
	}
	return -1
}

// factorLookAhead annotates every node with the maximum unigram (or, if the
// dictionary entry carries a class probability, class-ngram) log
// probability reachable through it, so pass 1 can prune a subtree whose
// best possible word is already worse than the current beam (spec.md §4.4,
// "used for LM look-ahead during pass 1").
func (t *Tree) factorLookAhead(words []WordInfo, lm *lmmodel.NGram) {
	bestForWord := make(map[int]float64, len(words))
	for _, w := range words {
		id := lm.LookupWord(w.Entry.Name)
		p := lmmodel.ClampLog(lm.UnigramLogProb(id))
		if w.Entry.HasClass {
			p += lmmodel.ClampLog(w.Entry.ClassProb)
		}
		if cur, ok := bestForWord[w.WordID]; !ok || p > cur {
			bestForWord[w.WordID] = p
		}
	}

	// propagate bottom-up via a single reverse pass over node ids: since
	// insert() only ever appends a node after its parent already exists,
	// iterating ids in descending order visits every node after all of its
	// children.
	for i := len(t.Nodes) - 1; i >= 0; i-- {
		n := t.Nodes[i]
		best := negInf
		if n.IsTerminal() {
			if p, ok := bestForWord[n.WordID]; ok {
				best = p
			}
		}
		for _, tr := range n.Trans {
			if f := t.Nodes[tr.To].Factor; f > best {
				best = f
			}
		}
		n.Factor = best
	}
}

const negInf = -1e30

func logOrZero(p float64) float64 {
	if p <= 0 {
		return negInf
	}
	return math.Log(p)
}

// SortedWordIDs is a small helper for tests/diagnostics: every distinct
// terminal word id reachable in the tree, in ascending order.
func (t *Tree) SortedWordIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, n := range t.Nodes {
		if n.IsTerminal() && !seen[n.WordID] {
			seen[n.WordID] = true
			ids = append(ids, n.WordID)
		}
	}
	sort.Ints(ids)
	return ids
}
