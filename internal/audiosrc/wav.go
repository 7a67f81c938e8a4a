package audiosrc

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cwbudde/wav"
)

// WAVFileSource reads whole-file mono 16-bit PCM WAV input and serves it to
// the feature extractor in Pull-sized chunks. The entire file is decoded
// up front; Pull then behaves like a bounded, already-filled ring buffer.
type WAVFileSource struct {
	mu         sync.Mutex
	samples    []int16
	pos        int
	sampleRate int
}

// NewWAVFileSource opens path, validates it is mono 16-bit PCM, and decodes
// it fully into memory.
func NewWAVFileSource(path string) (*WAVFileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return NewWAVFileSourceFromReader(f)
}

// NewWAVFileSourceFromReader decodes a WAV stream already open for reading.
func NewWAVFileSourceFromReader(r io.Reader) (*WAVFileSource, error) {
	ra, ok := r.(io.ReadSeeker)
	if !ok {
		return nil, fmt.Errorf("audiosrc: wav decoder requires a seekable reader")
	}

	dec := wav.NewDecoder(ra)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("audiosrc: invalid WAV file")
	}
	if dec.NumChans != 1 {
		return nil, fmt.Errorf("audiosrc: expected mono audio, got %d channels", dec.NumChans)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("audiosrc: expected 16-bit PCM, got %d-bit", dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audiosrc: decode PCM: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	for i, f := range buf.Data {
		samples[i] = floatToInt16(f)
	}

	return &WAVFileSource{
		samples:    samples,
		sampleRate: dec.SampleRate,
	}, nil
}

// floatToInt16 converts a normalized [-1, 1] float32 sample back to signed
// 16-bit PCM, clamping against overflow from any upstream gain.
func floatToInt16(f float32) int16 {
	v := f * 32768
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}

func (s *WAVFileSource) SampleRate() int { return s.sampleRate }

// Pull copies up to len(buf) samples and returns ErrEOF once the file is
// exhausted, per the Source contract.
func (s *WAVFileSource) Pull(buf []int16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pos >= len(s.samples) {
		return 0, ErrEOF
	}

	n := copy(buf, s.samples[s.pos:])
	s.pos += n

	return n, nil
}

// Len returns the total number of samples in the decoded file.
func (s *WAVFileSource) Len() int { return len(s.samples) }
