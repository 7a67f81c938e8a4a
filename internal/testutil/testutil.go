// Package testutil provides shared fixtures and skip helpers for gojulius
// tests.
//
// Each Require helper calls t.Skip with a clear human-readable reason when
// the named prerequisite is absent, so integration tests remain runnable in
// partial environments without failing noisily. The WAV helpers synthesize
// well-formed PCM input in memory, so tests never depend on a checked-in
// binary fixture.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    dir := testutil.RequireModelDir(t)
//	    wav := testutil.SilenceWAV(16000, 200)
//	    ...
//	}
package testutil

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// RequireModelDir skips the test unless the GOJULIUS_TEST_MODEL_DIR
// environment variable names a directory containing a provisioned
// dictation-kit model package (an hmmdefs file at minimum). Returns the
// directory path for convenience.
func RequireModelDir(t testing.TB) string {
	t.Helper()
	dir := os.Getenv("GOJULIUS_TEST_MODEL_DIR")
	if dir == "" {
		t.Skip("GOJULIUS_TEST_MODEL_DIR not set; skipping test that needs a provisioned model package")
	}
	if _, err := os.Stat(filepath.Join(dir, "hmmdefs")); err != nil {
		t.Skipf("model directory %q missing hmmdefs: %v", dir, err)
	}
	return dir
}

// SilenceWAV synthesizes a mono 16-bit PCM WAV buffer of durationMS
// milliseconds of digital silence at sampleRate Hz. It stands in for a
// recorded audio prompt wherever a test only needs well-formed, decodable
// WAV input with no speech content.
func SilenceWAV(sampleRate, durationMS int) []byte {
	return pcmWAV(sampleRate, make([]int16, sampleRate*durationMS/1000))
}

// ToneWAV synthesizes a mono 16-bit PCM WAV buffer containing a pure sine
// tone at freqHz, useful for exercising feature extraction and power-based
// rejection with non-silent input.
func ToneWAV(sampleRate, durationMS int, freqHz float64) []byte {
	samples := make([]int16, sampleRate*durationMS/1000)
	for i := range samples {
		tSec := float64(i) / float64(sampleRate)
		samples[i] = int16(8000 * math.Sin(2*math.Pi*freqHz*tSec))
	}
	return pcmWAV(sampleRate, samples)
}

// pcmWAV assembles a canonical 44-byte-header PCM WAV file around samples.
func pcmWAV(sampleRate int, samples []int16) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                   // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[44+i*2:46+i*2], uint16(s))
	}
	return buf
}
