// Package doctor provides environment preflight checks for gojulius: the
// model asset files an engine.New call would otherwise fail deep inside
// component construction, checked up front in one pass with readable
// pass/fail output.
package doctor

import (
	"fmt"
	"io"
	"os"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// StatFunc stats a path, returning an error if it is missing or unreadable.
// Exposed so tests can inject failures without touching the real filesystem.
type StatFunc func(path string) error

// Config holds the paths to preflight. It is a separate type from
// config.PathsConfig (it adds Stat), so a caller copies the path values
// across one field at a time.
type Config struct {
	// Stat resolves a path to an error, or nil if it is present and
	// readable. Defaults to os.Stat when nil.
	Stat StatFunc

	AcousticModel string // hmmdefs/BINHMM file; required
	HMMList       string // logical-to-physical HMM name list; optional
	Dictionary    string // word dictionary; required
	NgramForward  string // forward ARPA N-gram; required unless DFAGrammar is set
	NgramBackward string // backward ARPA N-gram; required unless DFAGrammar is set
	DFAGrammar    string // DFA grammar file; enables grammar mode, makes N-grams optional
	CMNFile       string // persisted CMN/CVN statistics; optional

	SampleFreq int // expected sampling frequency in Hz, reported but never checked
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	if cfg.Stat == nil {
		cfg.Stat = func(path string) error {
			_, err := os.Stat(path)
			return err
		}
	}
	var res Result

	res.checkRequired(w, cfg.Stat, "acoustic model", cfg.AcousticModel)
	res.checkRequired(w, cfg.Stat, "dictionary", cfg.Dictionary)

	if cfg.HMMList != "" {
		res.checkOptional(w, cfg.Stat, "HMM list", cfg.HMMList)
	} else {
		fmt.Fprintf(w, "%s HMM list: not configured (logical == physical HMM names assumed)\n", PassMark)
	}

	switch {
	case cfg.DFAGrammar != "":
		res.checkRequired(w, cfg.Stat, "DFA grammar", cfg.DFAGrammar)
		if cfg.NgramForward != "" || cfg.NgramBackward != "" {
			fmt.Fprintf(w, "%s N-gram files: ignored (grammar mode is active)\n", PassMark)
		}
	case cfg.NgramForward == "" && cfg.NgramBackward == "":
		res.fail("language model: neither a DFA grammar nor a forward/backward N-gram pair is configured")
		fmt.Fprintf(w, "%s language model: no DFA grammar or N-gram pair configured\n", FailMark)
	default:
		res.checkRequired(w, cfg.Stat, "forward N-gram", cfg.NgramForward)
		res.checkRequired(w, cfg.Stat, "backward N-gram", cfg.NgramBackward)
	}

	if cfg.CMNFile != "" {
		res.checkOptional(w, cfg.Stat, "CMN statistics", cfg.CMNFile)
	} else {
		fmt.Fprintf(w, "%s CMN statistics: skipped\n", PassMark)
	}

	if cfg.SampleFreq > 0 {
		fmt.Fprintf(w, "%s expected sampling frequency: %d Hz\n", PassMark, cfg.SampleFreq)
	}

	return res
}

// checkRequired fails the result when path is empty or Stat reports an error.
func (r *Result) checkRequired(w io.Writer, stat StatFunc, label, path string) {
	if path == "" {
		r.fail(fmt.Sprintf("%s: not configured", label))
		fmt.Fprintf(w, "%s %s: not configured\n", FailMark, label)
		return
	}
	if err := stat(path); err != nil {
		r.fail(fmt.Sprintf("%s %q: %v", label, path, err))
		fmt.Fprintf(w, "%s %s: not found at %s\n", FailMark, label, path)
		return
	}
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, label, path)
}

// checkOptional reports a failure only if path is set but Stat reports an
// error; an empty path is reported as skipped rather than failed.
func (r *Result) checkOptional(w io.Writer, stat StatFunc, label, path string) {
	if path == "" {
		fmt.Fprintf(w, "%s %s: skipped\n", PassMark, label)
		return
	}
	if err := stat(path); err != nil {
		r.fail(fmt.Sprintf("%s %q: %v", label, path, err))
		fmt.Fprintf(w, "%s %s: not found at %s\n", FailMark, label, path)
		return
	}
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, label, path)
}
