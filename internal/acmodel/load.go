package acmodel

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
)

// binhmmPeekLen bounds how many leading bytes Load inspects for the binary
// magic string; both magics are shorter than this, and HTK ASCII hmmdefs
// files always begin with whitespace or a macro tag, never these bytes.
const binhmmPeekLen = 32

// Load reads an acoustic model file, auto-detecting the repo's binary
// BINHMM/BINHMMV2 format (by its leading magic string) versus falling back
// to the HTK ASCII hmmdefs parser - the dispatch spec.md §6 assumes callers
// perform themselves, since neither LoadASCII nor LoadBinary can sniff the
// other's format from inside its own reader.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acmodel: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	peek, err := br.Peek(binhmmPeekLen)
	if err != nil && len(peek) == 0 {
		return nil, fmt.Errorf("acmodel: read %s: %w", path, err)
	}

	read := ReadASCII
	if isBinHMM(peek) {
		read = ReadBinary
	}
	set, err := read(br)
	if err == nil && !set.VarianceInversed {
		for _, v := range set.Vars {
			for i, x := range v.Vec {
				v.Vec[i] = 1 / x
			}
		}
		set.VarianceInversed = true
	}
	return set, err
}

func isBinHMM(peek []byte) bool {
	return bytes.HasPrefix(peek, []byte(binhmmMagicV1))
}
