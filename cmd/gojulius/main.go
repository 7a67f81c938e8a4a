// Command gojulius is the CLI front-end for the recognition core: a
// frame-synchronous Viterbi pass-1 over a tree lexicon, a backward
// A*-style pass-2 stack decoder under a rescoring N-gram, fed by an
// MFCC feature extractor.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
