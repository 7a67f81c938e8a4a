// Package feature implements the MFCC feature extractor (windowed PCM to
// cepstral vectors, delta/acceleration, real-time CMN/CVN) that feeds the
// pass-1 beam search.
package feature

import (
	"fmt"
	"math"

	"github.com/example/gojulius/internal/config"
)

// Params is the immutable analysis configuration derived from config.AudioConfig.
// It corresponds to the original engine's per-utterance "Value" struct.
type Params struct {
	SampleFreq int
	FrameSize  int
	FrameShift int
	PreEmph    float64
	FbankNum   int
	MFCCDim    int
	Lifter     int
	DelWin     int
	AccWin     int
	HiPass     int
	LoPass     int
	CMN        bool
	CVN        bool
	RawEnergy  bool
	ENormalize bool
	EScale     float64
	SilFloor   float64
	UsePower   bool
	ZMeanFrame bool

	WithC0       bool
	WithEnergy   bool
	AbsESuppress bool

	VTLNAlpha float64
	VTLNLower float64
	VTLNUpper float64

	SSAlpha float64
	SSFloor float64

	FFTSize int // smallest power of two >= FrameSize
}

// NewParams validates and derives an analysis configuration from the
// engine's audio config block.
func NewParams(c config.AudioConfig) (Params, error) {
	if c.SampleFreq <= 0 {
		return Params{}, fmt.Errorf("feature: sample frequency must be positive, got %d", c.SampleFreq)
	}
	if c.FrameSize <= 0 || c.FrameShift <= 0 {
		return Params{}, fmt.Errorf("feature: framesize/frameshift must be positive")
	}
	if c.MFCCDim <= 0 {
		return Params{}, fmt.Errorf("feature: mfcc_dim must be positive, got %d", c.MFCCDim)
	}
	if c.FbankNum <= 0 || c.FbankNum < c.MFCCDim {
		return Params{}, fmt.Errorf("feature: fbank_num must be positive and >= mfcc_dim")
	}

	p := Params{
		SampleFreq:   c.SampleFreq,
		FrameSize:    c.FrameSize,
		FrameShift:   c.FrameShift,
		PreEmph:      c.PreEmph,
		FbankNum:     c.FbankNum,
		MFCCDim:      c.MFCCDim,
		Lifter:       c.Lifter,
		DelWin:       c.DelWin,
		AccWin:       c.AccWin,
		HiPass:       c.HiPass,
		LoPass:       c.LoPass,
		CMN:          c.CMN,
		CVN:          c.CVN,
		RawEnergy:    c.RawEnergy,
		ENormalize:   c.ENormalize,
		EScale:       c.EScale,
		SilFloor:     c.SilFloor,
		UsePower:     c.UsePower,
		ZMeanFrame:   c.ZMeanFrame,
		WithC0:       c.WithC0,
		WithEnergy:   c.WithEnergy,
		AbsESuppress: c.AbsESuppress,
		VTLNAlpha:    c.VTLNAlpha,
		VTLNLower:    c.VTLNLower,
		VTLNUpper:    c.VTLNUpper,
		SSAlpha:      c.SSAlpha,
		SSFloor:      c.SSFloor,
	}

	n := 1
	for n < p.FrameSize {
		n <<= 1
	}
	p.FFTSize = n

	return p, nil
}

// BaseLen is the per-frame static vector length before delta/acceleration
// expansion: mfcc_dim + c0? + energy?.
func (p Params) BaseLen() int {
	n := p.MFCCDim
	if p.WithC0 {
		n++
	}
	if p.WithEnergy {
		n++
	}
	return n
}

// VecLen is the full output vector dimension D, per spec.md §3:
// D = baselen * (1 + delta + accel) - (abs energy suppressed ? 1 : 0).
func (p Params) VecLen() int {
	mult := 1
	if p.DelWin > 0 {
		mult++
	}
	if p.AccWin > 0 {
		mult++
	}
	n := p.BaseLen() * mult
	if p.AbsESuppress && p.WithEnergy {
		n--
	}
	return n
}

// MinFramesForOutput is the number of frames of latency imposed by the
// delta/acceleration cycle buffer: a centered vector is only emitted once
// delWin+accWin frames have accumulated around it.
func (p Params) MinFramesForOutput() int {
	return p.DelWin + p.AccWin + 1
}

// Mel returns the mel-scale frequency for linear frequency freqHz.
func Mel(freqHz float64) float64 {
	return 1127.0 * math.Log(1+freqHz/700.0)
}

// MelToHz is the inverse of Mel.
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Exp(mel/1127.0) - 1.0)
}
