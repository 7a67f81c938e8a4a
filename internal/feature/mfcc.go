package feature

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Frame is one emitted MFCC vector, pre delta/acceleration augmentation.
type Frame struct {
	Vec []float64
}

// Extractor turns windowed PCM samples into a stream of static MFCC
// vectors. It owns the precomputed Hamming/FFT/DCT/lifter tables and the
// sample-buffer state needed for step 1-11 of the analysis pipeline
// (spec.md §4.1). Delta/acceleration augmentation and CMN/CVN live in
// separate stages (delta.go, cmn.go) that wrap an Extractor.
type Extractor struct {
	p   Params
	fft *fftTables
	mel *melFilterbank

	hamming []float64
	dctTbl  []float64 // [mfccDim][fbankNum] flattened
	lifTbl  []float64

	noiseSpec []float64 // optional, for spectral subtraction

	buf []float64 // unconsumed samples, length < framesize+frameshift

	// live energy normalization carry-over (spec.md §4.1, "Energy
	// normalization (live mode)")
	energyMaxLast float64
	energyMinLast float64
	energyFirst   bool
}

// NewExtractor builds an Extractor for the given analysis parameters.
func NewExtractor(p Params) (*Extractor, error) {
	mel, err := newMelFilterbank(p)
	if err != nil {
		return nil, err
	}

	e := &Extractor{
		p:             p,
		fft:           newFFTTables(p.FFTSize),
		mel:           mel,
		hamming:       makeHammingTable(p.FrameSize),
		dctTbl:        makeDCTTable(p.FbankNum, p.MFCCDim),
		lifTbl:        makeLifterTable(p.Lifter, p.MFCCDim),
		energyMaxLast: 5.0,
		energyMinLast: 0.0,
		energyFirst:   true,
	}

	return e, nil
}

// SetNoiseSpectrum installs a loaded noise power spectrum (length
// FFTSize/2+1) enabling spectral subtraction (spec.md §4.1 step 11).
func (e *Extractor) SetNoiseSpectrum(spec []float64) {
	e.noiseSpec = spec
}

// makeHammingTable precomputes the Hamming window coefficients, matching
// the original engine's costbl_hamming: 0.54 - 0.46*cos(2*pi*i/(n-1)).
func makeHammingTable(n int) []float64 {
	tbl := make([]float64, n)
	if n == 1 {
		tbl[0] = 1
		return tbl
	}
	a := 2.0 * math.Pi / float64(n-1)
	for i := 0; i < n; i++ {
		tbl[i] = 0.54 - 0.46*math.Cos(a*float64(i))
	}
	return tbl
}

// makeDCTTable precomputes cos((i*pi/fbankNum)*(j-0.5)) for i=1..mfccDim,
// j=1..fbankNum, flattened row-major by cepstral index.
func makeDCTTable(fbankNum, mfccDim int) []float64 {
	tbl := make([]float64, mfccDim*fbankNum)
	b := math.Pi / float64(fbankNum)
	k := 0
	for i := 1; i <= mfccDim; i++ {
		c := float64(i) * b
		for j := 1; j <= fbankNum; j++ {
			tbl[k] = math.Cos(c * (float64(j) - 0.5))
			k++
		}
	}
	return tbl
}

// makeLifterTable precomputes the cepstral liftering weights: 1 +
// (L/2)*sin((i+1)*pi/L) for i=0..mfccDim-1, or all-ones if L<=0.
func makeLifterTable(lifter, mfccDim int) []float64 {
	tbl := make([]float64, mfccDim)
	if lifter > 0 {
		a := math.Pi / float64(lifter)
		b := float64(lifter) / 2.0
		for i := 0; i < mfccDim; i++ {
			tbl[i] = 1.0 + b*math.Sin(float64(i+1)*a)
		}
	} else {
		for i := range tbl {
			tbl[i] = 1.0
		}
	}
	return tbl
}

// PushSamples appends newly captured int16 samples and returns every
// static MFCC frame that becomes computable. The shift/overlap bookkeeping
// matches the original engine's sliding window: frameshift samples are
// consumed per output frame while framesize-frameshift samples of overlap
// carry forward.
func (e *Extractor) PushSamples(samples []int16) []Frame {
	for _, s := range samples {
		e.buf = append(e.buf, float64(s))
	}

	var out []Frame
	for len(e.buf) >= e.p.FrameSize {
		frame := append([]float64(nil), e.buf[:e.p.FrameSize]...)
		out = append(out, e.computeFrame(frame))
		e.buf = e.buf[e.p.FrameShift:]
	}

	return out
}

// computeFrame runs the full per-frame pipeline (spec.md §4.1 steps 1-10;
// step 11 spectral subtraction is folded into the power-spectrum stage).
func (e *Extractor) computeFrame(x []float64) Frame {
	if e.p.ZMeanFrame {
		zeroMean(x)
	}

	var logRawEnergy float64
	if e.p.WithEnergy && e.p.RawEnergy {
		logRawEnergy = logEnergy(x)
	}

	preEmphasis(x, e.p.PreEmph)

	var logEnergyVal float64
	if e.p.WithEnergy && !e.p.RawEnergy {
		logEnergyVal = logEnergy(x)
	} else {
		logEnergyVal = logRawEnergy
	}

	windowed := make([]float64, e.p.FFTSize)
	for i, v := range x {
		windowed[i] = v * e.hamming[i]
	}

	power := e.fft.powerSpectrum(windowed)
	if !e.p.UsePower {
		for k, v := range power {
			power[k] = math.Sqrt(v)
		}
	}
	if e.noiseSpec != nil {
		e.subtractSpectrum(power)
	}

	takeLog := true // MELSPEC basetype (log skipped) is not exposed as a config option; always log-fbank
	fbank := e.mel.apply(power, takeLog)

	mfcc := e.dct(fbank)

	if e.p.WithC0 {
		mfcc = append(mfcc, c0Coefficient(fbank))
	}

	if e.p.WithEnergy {
		energy := logEnergyVal
		if e.p.ENormalize {
			energy = e.normalizeEnergy(energy)
		}
		mfcc = append(mfcc, energy)
	}

	liftered := make([]float64, len(mfcc))
	for i, v := range mfcc {
		if i < len(e.lifTbl) {
			liftered[i] = v * e.lifTbl[i]
		} else {
			liftered[i] = v
		}
	}

	return Frame{Vec: liftered}
}

func zeroMean(x []float64) {
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))
	for i := range x {
		x[i] -= mean
	}
}

func logEnergy(x []float64) float64 {
	sum := vecmath.Dot(x, x)
	if sum < 1e-30 {
		sum = 1e-30
	}
	return math.Log(sum)
}

func preEmphasis(x []float64, alpha float64) {
	if len(x) == 0 {
		return
	}
	prev := x[0]
	x[0] = (1 - alpha) * x[0]
	for i := 1; i < len(x); i++ {
		cur := x[i]
		x[i] = cur - alpha*prev
		prev = cur
	}
}

// dct applies the precomputed DCT table to fbank energies, one dot product
// per cepstral coefficient.
func (e *Extractor) dct(fbank []float64) []float64 {
	n := len(fbank)
	out := make([]float64, e.p.MFCCDim)
	for i := 0; i < e.p.MFCCDim; i++ {
		out[i] = vecmath.Dot(e.dctTbl[i*n:(i+1)*n], fbank)
	}
	return out
}

// c0Coefficient is the scaled sum of log-fbank energies, HTK's 0'th
// cepstral parameter.
func c0Coefficient(fbank []float64) float64 {
	sum := 0.0
	for _, v := range fbank {
		sum += v
	}
	return sum * math.Sqrt(2.0/float64(len(fbank)))
}

// subtractSpectrum applies spectral subtraction per spec.md §4.1 step 11:
// P' = H*P where H = sqrt(max(P^2 - alpha*N^2, floor^2*P^2)) / P.
func (e *Extractor) subtractSpectrum(power []float64) {
	alpha := e.p.SSAlpha
	floor := e.p.SSFloor

	for k, p := range power {
		if k >= len(e.noiseSpec) || p <= 0 {
			continue
		}
		n := e.noiseSpec[k]
		sub := p*p - alpha*n*n
		floored := floor * floor * p * p
		if sub < floored {
			sub = floored
		}
		h := math.Sqrt(sub) / p
		power[k] = h * p
	}
}

// normalizeEnergy applies the live-mode energy normalization formula from
// spec.md §4.1: E <- 1 - (max_last - E)*escale, carrying max/min across
// utterances.
func (e *Extractor) normalizeEnergy(raw float64) float64 {
	if raw > e.energyMaxLast {
		e.energyMaxLast = raw
	}
	if e.energyFirst || raw < e.energyMinLast {
		e.energyMinLast = raw
		e.energyFirst = false
	}
	return 1.0 - (e.energyMaxLast-raw)*e.p.EScale
}

// Flush returns samples still buffered as a final short frame padded with
// zeros, used when the input ends mid-frame (spec.md §8 boundary
// behaviors: "Audio EOF mid-frame is treated as end-of-utterance after
// flushing delta buffer"). Returns nil if no partial frame remains.
func (e *Extractor) Flush() *Frame {
	if len(e.buf) == 0 {
		return nil
	}
	padded := make([]float64, e.p.FrameSize)
	copy(padded, e.buf)
	e.buf = nil
	f := e.computeFrame(padded)
	return &f
}

// Reset clears per-utterance sample buffering while keeping precomputed
// tables and cross-utterance energy normalization state.
func (e *Extractor) Reset() {
	e.buf = nil
}
