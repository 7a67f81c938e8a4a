package acmodel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Left/right context delimiters used in triphone names, e.g. "a-k+i"
// (logical name "k" with left context "a" and right context "i").
const (
	leftContextDelim  = "-"
	rightContextDelim = "+"
)

// LoadHMMList reads a logical-to-physical name mapping file, HTK's HMMList
// format: one logical name per line, optionally followed by the physical
// (defined) name it aliases when the two differ (tied models share one
// physical definition under several logical names).
func LoadHMMList(path string, set *Set) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("acmodel: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadHMMList(f, set)
}

// ReadHMMList applies an HMMList mapping to set, adding a Logical entry
// for every listed name that is not already bound to a physical model.
func ReadHMMList(r io.Reader, set *Set) error {
	physical := make(map[string]*Data, len(set.Physical))
	for _, d := range set.Physical {
		physical[d.Name] = d
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		logicalName := fields[0]
		physicalName := logicalName
		if len(fields) > 1 {
			physicalName = fields[1]
		}

		if _, exists := set.Logical(logicalName); exists {
			continue
		}

		d, ok := physical[physicalName]
		if !ok {
			return fmt.Errorf("acmodel: HMMList: %q maps to undefined physical model %q", logicalName, physicalName)
		}
		set.addLogical(&Logical{Name: logicalName, Body: d})
	}

	return sc.Err()
}

// ResolvePseudoPhones builds a context-dependent ("pseudo") HMM set for
// every logical phone name referenced in neededPhones that has no direct
// logical or physical definition, by gathering all physical triphones that
// share the requested base phone and context position (spec.md §4.2,
// "cross-word context resolution fallback chain": concrete match, else a
// pseudo-phone built from same-base-phone triphones, else an error for
// the first name that neither step resolves).
//
// name is one of:
//
//	"p"      center-context-free monophone: matches any triphone "*-p+*"
//	         as well as bare model "p" and biphones "p+*"/"*-p"
//	"l-p"    left-context biphone: matches triphones "l-p+*"
//	"p+r"    right-context biphone: matches triphones "*-p+r"
func ResolvePseudoPhones(set *Set, neededPhones []string) error {
	for _, name := range neededPhones {
		if _, ok := set.Logical(name); ok {
			continue
		}

		stateSets, tr, err := gatherPseudoStates(set, name)
		if err != nil {
			return err
		}
		if len(stateSets) == 0 {
			return fmt.Errorf("acmodel: no physical HMM found to build pseudo phone %q", name)
		}

		ps := &PseudoSet{Name: name, StateSets: stateSets, Tr: tr}
		set.addLogical(&Logical{Name: name, IsPseudo: true, Pseudo: ps})
	}
	return nil
}

func gatherPseudoStates(set *Set, name string) ([]CDStateSet, *Trans, error) {
	base, leftReq, rightReq := splitContext(name)

	var matches []*Data
	for _, d := range set.Physical {
		b, l, r := splitContext(d.Name)
		if b != base {
			continue
		}
		if leftReq != "" && l != leftReq {
			continue
		}
		if rightReq != "" && r != rightReq {
			continue
		}
		matches = append(matches, d)
	}

	if len(matches) == 0 {
		return nil, nil, nil
	}

	stateNum := matches[0].StateNum()
	sets := make([]CDStateSet, stateNum)
	for _, d := range matches {
		if d.StateNum() != stateNum {
			return nil, nil, fmt.Errorf("acmodel: pseudo phone %q: model %q has %d states, want %d", name, d.Name, d.StateNum(), stateNum)
		}
		for i, s := range d.States {
			sets[i].States = append(sets[i].States, s)
		}
	}

	return sets, matches[0].Tr, nil
}

// splitContext decomposes a (bi/tri)phone name of form "l-base+r" into its
// base phone and optional left/right contexts.
func splitContext(name string) (base, left, right string) {
	rest := name
	if i := strings.Index(rest, leftContextDelim); i >= 0 {
		left = rest[:i]
		rest = rest[i+1:]
	}
	if i := strings.Index(rest, rightContextDelim); i >= 0 {
		right = rest[i+1:]
		rest = rest[:i]
	}
	base = rest
	return
}

// SplitContext decomposes a (bi/tri)phone logical name into its base phone
// and optional left/right contexts, e.g. "a-k+i" -> ("k", "a", "i").
func SplitContext(name string) (base, left, right string) {
	return splitContext(name)
}

// ComposeLeftContext builds the logical name of the triphone obtained by
// attaching leftPhone as biphoneName's left context, e.g.
// ComposeLeftContext("k+i", "a") -> "a-k+i". If biphoneName already has a
// left context, it is overwritten to match the original engine's
// get_left_context_HMM behavior of re-deriving from the base+right form.
func ComposeLeftContext(biphoneName, leftPhone string) string {
	base, _, right := splitContext(biphoneName)
	if right == "" {
		return leftPhone + leftContextDelim + base
	}
	return leftPhone + leftContextDelim + base + rightContextDelim + right
}

// ComposeRightContext builds the logical name of the triphone obtained by
// attaching rightPhone as biphoneName's right context, e.g.
// ComposeRightContext("a-k", "i") -> "a-k+i", the word-tail analogue of
// ComposeLeftContext used once pass 2 learns the word that actually follows.
func ComposeRightContext(biphoneName, rightPhone string) string {
	base, left, _ := splitContext(biphoneName)
	if left == "" {
		return base + rightContextDelim + rightPhone
	}
	return left + leftContextDelim + base + rightContextDelim + rightPhone
}
