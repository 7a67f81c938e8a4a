package lmmodel

import (
	"strings"
	"testing"
)

func TestReadDFAParsesTransitions(t *testing.T) {
	d, err := ReadDFA(strings.NewReader("0 1 1 0\n1 2 2 1\n"))
	if err != nil {
		t.Fatalf("ReadDFA: %v", err)
	}
	if len(d.Transitions) != 2 {
		t.Fatalf("len(Transitions) = %d, want 2", len(d.Transitions))
	}
	next := d.Next(0, 1)
	if len(next) != 1 || next[0].To != 1 {
		t.Fatalf("Next(0,1) = %v, want one transition to state 1", next)
	}
	if d.Accepting(1) {
		t.Error("state 1 should not be accepting")
	}
	if !d.Accepting(2) {
		t.Error("state 2 should be accepting (accept flag 1 on the 1->2 transition)")
	}
}

func TestDFAInitialStates(t *testing.T) {
	d, err := ReadDFA(strings.NewReader("0 1 1 0\n1 2 2 1\n"))
	if err != nil {
		t.Fatalf("ReadDFA: %v", err)
	}
	init := d.InitialStates()
	if len(init) != 1 || init[0] != 0 {
		t.Errorf("InitialStates() = %v, want [0]", init)
	}
}

func TestReadDFARejectsMalformedLine(t *testing.T) {
	if _, err := ReadDFA(strings.NewReader("0 1 1\n")); err == nil {
		t.Fatal("expected error for a 3-field DFA line")
	}
}

func buildGrammar(t *testing.T, name, dfaSrc, dictSrc string) *Grammar {
	t.Helper()
	dfa, err := ReadDFA(strings.NewReader(dfaSrc))
	if err != nil {
		t.Fatalf("ReadDFA(%s): %v", name, err)
	}
	dict, err := ReadDictionary(strings.NewReader(dictSrc))
	if err != nil {
		t.Fatalf("ReadDictionary(%s): %v", name, err)
	}
	return &Grammar{Name: name, DFA: dfa, Dict: dict}
}

func TestGrammarSetGlobalUnionsActiveGrammars(t *testing.T) {
	gs := NewGrammarSet()
	gs.Add(buildGrammar(t, "g1", "0 1 1 1\n", "1 y eh s\n"))
	gs.Add(buildGrammar(t, "g2", "0 1 1 1\n", "1 n ow\n"))

	dict, dfa, err := gs.Global()
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if len(dict.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(dict.Entries))
	}
	// g2's states are shifted by g1's state-space width (2: states 0,1).
	if len(dfa.Transitions) != 2 {
		t.Fatalf("len(Transitions) = %d, want 2", len(dfa.Transitions))
	}
	if dfa.Transitions[1].From == dfa.Transitions[0].From {
		t.Error("expected g2's transitions to be shifted into a disjoint state range from g1's")
	}
}

func TestGrammarSetGlobalExcludesInactiveGrammars(t *testing.T) {
	gs := NewGrammarSet()
	gs.Add(buildGrammar(t, "g1", "0 1 1 1\n", "1 y eh s\n"))
	gs.Add(buildGrammar(t, "g2", "0 1 1 1\n", "1 n ow\n"))
	gs.SetActive("g2", false)

	dict, _, err := gs.Global()
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if len(dict.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1 (g2 deactivated)", len(dict.Entries))
	}
}

func TestGrammarSetSetActiveReportsUnknownGrammar(t *testing.T) {
	gs := NewGrammarSet()
	if gs.SetActive("missing", false) {
		t.Error("SetActive on an unregistered grammar should return false")
	}
}
