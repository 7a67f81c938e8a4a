// Package audiosrc provides the pull-based audio source contract the
// decoder's feature extractor drains, plus file and ring-buffer
// implementations. Microphone and socket backends are external
// collaborators and are not implemented here.
package audiosrc

import "errors"

// ErrEOF is returned once all buffered samples have been delivered and no
// more will arrive.
var ErrEOF = errors.New("audiosrc: end of stream")

// ErrSegmentBoundary is returned when the source itself demands an
// utterance break (used by streaming backends that frame their own
// utterances); file sources never return it.
var ErrSegmentBoundary = errors.New("audiosrc: segment boundary")

// Source is the single contract the decoder core depends on for audio
// input. Pull copies up to len(buf) signed 16-bit mono samples into buf and
// returns how many were written. A return of (0, nil) means "no samples
// available right now, try again" (non-blocking empty); callers must not
// treat it as end of stream.
type Source interface {
	Pull(buf []int16) (int, error)

	// SampleRate returns the fixed sample rate this source produces, in Hz.
	SampleRate() int
}
