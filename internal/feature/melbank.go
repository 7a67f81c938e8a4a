package feature

import (
	"fmt"
	"math"
)

// melFilterbank holds precomputed triangular mel filter channel boundaries
// over FFT bins, with an optional VTLN piecewise-linear frequency warp
// applied to the channel centers.
type melFilterbank struct {
	fftSize    int
	sampleFreq int
	numChans   int

	loChan []int // first FFT bin index contributing to channel c
	hiChan []int // last FFT bin index contributing to channel c
	loWt   [][]float64
	hiWt   [][]float64
}

// newMelFilterbank builds the filterbank per the original engine's
// MakeFBank: mel-uniform channel centers between the lower/upper cutoff,
// optionally VTLN-warped, each channel a triangle spanning its neighbors.
func newMelFilterbank(p Params) (*melFilterbank, error) {
	fres := float64(p.SampleFreq) / float64(p.FFTSize)
	nyquist := float64(p.SampleFreq) / 2

	loFreq := 0.0
	if p.LoPass > 0 {
		loFreq = float64(p.LoPass)
	}
	hiFreq := nyquist
	if p.HiPass > 0 {
		hiFreq = float64(p.HiPass)
	}

	melLo := Mel(loFreq)
	melHi := Mel(hiFreq)

	centers := make([]float64, p.FbankNum+2)
	for c := 0; c <= p.FbankNum+1; c++ {
		centers[c] = melLo + (melHi-melLo)*float64(c)/float64(p.FbankNum+1)
	}

	if p.VTLNAlpha != 0 && p.VTLNAlpha != 1.0 {
		if err := vtlnWarp(centers, p, loFreq, hiFreq); err != nil {
			return nil, err
		}
	}

	fb := &melFilterbank{
		fftSize:    p.FFTSize,
		sampleFreq: p.SampleFreq,
		numChans:   p.FbankNum,
		loChan:     make([]int, p.FbankNum),
		hiChan:     make([]int, p.FbankNum),
		loWt:       make([][]float64, p.FbankNum),
		hiWt:       make([][]float64, p.FbankNum),
	}

	nBins := p.FFTSize/2 + 1

	binMel := make([]float64, nBins)
	for k := 0; k < nBins; k++ {
		binMel[k] = Mel(float64(k) * fres)
	}

	for c := 0; c < p.FbankNum; c++ {
		lo, mid, hi := centers[c], centers[c+1], centers[c+2]

		var bins []int
		var weights []float64
		for k := 0; k < nBins; k++ {
			m := binMel[k]
			var w float64
			switch {
			case m <= lo || m >= hi:
				continue
			case m <= mid:
				if mid == lo {
					w = 0
				} else {
					w = (m - lo) / (mid - lo)
				}
			default:
				if hi == mid {
					w = 0
				} else {
					w = (hi - m) / (hi - mid)
				}
			}
			bins = append(bins, k)
			weights = append(weights, w)
		}

		if len(bins) == 0 {
			return nil, fmt.Errorf("feature: mel channel %d has no contributing FFT bins; raise fbank_num or widen band", c)
		}

		fb.loChan[c] = bins[0]
		fb.hiChan[c] = bins[len(bins)-1]
		fb.loWt[c] = weights
	}

	return fb, nil
}

// vtlnWarp applies the piecewise-linear VTLN frequency warp described in
// spec.md §4.1 to mel channel centers (mutated in place, re-expressed back
// from Hz). Matches the original engine's VTLN_recreate_fbank_cf.
func vtlnWarp(centersMel []float64, p Params, loFreq, hiFreq float64) error {
	if p.VTLNUpper > hiFreq {
		return fmt.Errorf("feature: vtln_upper %.1f exceeds upper frequency bound %.1f", p.VTLNUpper, hiFreq)
	}
	if p.VTLNLower > 0 && p.VTLNLower < loFreq {
		return fmt.Errorf("feature: vtln_lower %.1f below lower frequency bound %.1f", p.VTLNLower, loFreq)
	}

	upper := p.VTLNUpper
	if upper <= 0 {
		upper = hiFreq
	}
	lower := p.VTLNLower
	if lower < 0 {
		lower = loFreq
	}

	scale := 1.0 / p.VTLNAlpha
	cu := upper * 2 / (1 + scale)
	cl := lower * 2 / (1 + scale)
	au := (hiFreq - cu*scale) / (hiFreq - cu)
	al := (cl*scale - loFreq) / (cl - loFreq)

	for i, m := range centersMel {
		f := MelToHz(m)

		var warped float64
		switch {
		case f <= cl:
			warped = al*(f-loFreq) + loFreq
		case f <= cu:
			warped = scale * f
		default:
			warped = au*(f-hiFreq) + hiFreq
		}

		centersMel[i] = Mel(warped)
	}

	return nil
}

// apply maps a power spectrum onto mel filter energies, taking the log
// unless raw is requested (MELSPEC basetype).
func (fb *melFilterbank) apply(power []float64, takeLog bool) []float64 {
	out := make([]float64, fb.numChans)

	for c := 0; c < fb.numChans; c++ {
		sum := 0.0
		weights := fb.loWt[c]
		for i, w := range weights {
			sum += w * power[fb.loChan[c]+i]
		}
		if sum < 1e-30 {
			sum = 1e-30
		}
		if takeLog {
			out[c] = math.Log(sum)
		} else {
			out[c] = sum
		}
	}

	return out
}
