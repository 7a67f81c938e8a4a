package lmmodel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Entry is one word dictionary line: a vocabulary entry plus its
// pronunciation as a sequence of logical HMM (phone) names.
//
// Grounded on original_source/libsent/src/voca/voca_load_htkdict.c's
// line grammar: "GrammarEntry [OutputString|{TransparentOutput}]
// [@classprob] [:weight] phone1 phone2 ...".
type Entry struct {
	Name        string
	Output      string
	Transparent bool
	HasClass    bool
	ClassProb   float64
	HasWeight   bool
	Weight      float64
	Phones      []string
}

// Dictionary is an ordered, immutable-after-load word list.
type Dictionary struct {
	Entries []Entry
}

// LoadDictionary reads a word dictionary file from path.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lmmodel: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ReadDictionary(f)
}

// ReadDictionary parses a word dictionary from r, one entry per non-blank,
// non-comment line.
func ReadDictionary(r io.Reader) (*Dictionary, error) {
	d := &Dictionary{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseDictLine(line)
		if err != nil {
			return nil, fmt.Errorf("lmmodel: dictionary line %d: %w", lineNum, err)
		}
		d.Entries = append(d.Entries, e)
	}
	return d, sc.Err()
}

func parseDictLine(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Entry{}, fmt.Errorf("need at least a name and one phone, got %q", line)
	}

	e := Entry{Name: fields[0]}
	rest := fields[1:]

	if len(rest) > 0 {
		switch {
		case strings.HasPrefix(rest[0], "[") && strings.HasSuffix(rest[0], "]"):
			e.Output = strings.TrimSuffix(strings.TrimPrefix(rest[0], "["), "]")
			rest = rest[1:]
		case strings.HasPrefix(rest[0], "{") && strings.HasSuffix(rest[0], "}"):
			e.Output = strings.TrimSuffix(strings.TrimPrefix(rest[0], "{"), "}")
			e.Transparent = true
			rest = rest[1:]
		}
	}

	for len(rest) > 0 && (strings.HasPrefix(rest[0], "@") || strings.HasPrefix(rest[0], ":")) {
		tok := rest[0]
		rest = rest[1:]
		switch tok[0] {
		case '@':
			p, err := strconv.ParseFloat(tok[1:], 64)
			if err != nil {
				return Entry{}, fmt.Errorf("malformed class probability %q: %w", tok, err)
			}
			e.HasClass = true
			e.ClassProb = p
		case ':':
			w, err := strconv.ParseFloat(tok[1:], 64)
			if err != nil {
				return Entry{}, fmt.Errorf("malformed weight %q: %w", tok, err)
			}
			e.HasWeight = true
			e.Weight = w
		}
	}

	if len(rest) == 0 {
		return Entry{}, fmt.Errorf("entry %q has no phone sequence", e.Name)
	}
	e.Phones = append([]string(nil), rest...)

	if e.Output == "" {
		e.Output = e.Name
	}
	return e, nil
}
