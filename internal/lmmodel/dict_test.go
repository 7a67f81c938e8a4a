package lmmodel

import (
	"strings"
	"testing"
)

func TestReadDictionaryParsesPlainEntry(t *testing.T) {
	d, err := ReadDictionary(strings.NewReader("yes [YES] y eh s\n"))
	if err != nil {
		t.Fatalf("ReadDictionary: %v", err)
	}
	if len(d.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(d.Entries))
	}
	e := d.Entries[0]
	if e.Name != "yes" || e.Output != "YES" || e.Transparent {
		t.Errorf("entry = %+v, want name=yes output=YES transparent=false", e)
	}
	if want := []string{"y", "eh", "s"}; !equalStrings(e.Phones, want) {
		t.Errorf("Phones = %v, want %v", e.Phones, want)
	}
}

func TestReadDictionaryDefaultsOutputToName(t *testing.T) {
	d, err := ReadDictionary(strings.NewReader("no n ow\n"))
	if err != nil {
		t.Fatalf("ReadDictionary: %v", err)
	}
	if d.Entries[0].Output != "no" {
		t.Errorf("Output = %q, want %q (defaulted from Name)", d.Entries[0].Output, "no")
	}
}

func TestReadDictionaryParsesTransparentEntry(t *testing.T) {
	d, err := ReadDictionary(strings.NewReader("sp {} sp\n"))
	if err != nil {
		t.Fatalf("ReadDictionary: %v", err)
	}
	if !d.Entries[0].Transparent {
		t.Error("expected Transparent=true for {}-bracketed output")
	}
}

func TestReadDictionaryParsesClassAndWeight(t *testing.T) {
	d, err := ReadDictionary(strings.NewReader("cat [CAT] @0.25 :1.5 k ae t\n"))
	if err != nil {
		t.Fatalf("ReadDictionary: %v", err)
	}
	e := d.Entries[0]
	if !e.HasClass || e.ClassProb != 0.25 {
		t.Errorf("class prob = (%v, %v), want (true, 0.25)", e.HasClass, e.ClassProb)
	}
	if !e.HasWeight || e.Weight != 1.5 {
		t.Errorf("weight = (%v, %v), want (true, 1.5)", e.HasWeight, e.Weight)
	}
	if want := []string{"k", "ae", "t"}; !equalStrings(e.Phones, want) {
		t.Errorf("Phones = %v, want %v", e.Phones, want)
	}
}

func TestReadDictionarySkipsBlankAndCommentLines(t *testing.T) {
	d, err := ReadDictionary(strings.NewReader("# comment\n\nyes y eh s\n"))
	if err != nil {
		t.Fatalf("ReadDictionary: %v", err)
	}
	if len(d.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(d.Entries))
	}
}

func TestReadDictionaryRejectsEntryWithNoPhones(t *testing.T) {
	if _, err := ReadDictionary(strings.NewReader("bad [X]\n")); err == nil {
		t.Fatal("expected error for entry with no phone sequence")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
