package feature

import "math"

// fftTables holds precomputed twiddle factors for an in-place radix-2
// decimation-in-time FFT of a fixed power-of-two size, matching the
// original engine's table-based approach (recomputing sin/cos per butterfly
// is the dominant cost in a frame-synchronous real-time pipeline).
type fftTables struct {
	n       int
	log2n   int
	cosTbl  []float64 // cosTbl[m-1] = cos(pi / 2^(m-1)) for stage m = 1..log2n
	sinTbl  []float64 // sinTbl[m-1] = -sin(pi / 2^(m-1))
	bitrev  []int
}

func newFFTTables(n int) *fftTables {
	log2n := 0
	for (1 << log2n) < n {
		log2n++
	}

	t := &fftTables{
		n:      n,
		log2n:  log2n,
		cosTbl: make([]float64, log2n),
		sinTbl: make([]float64, log2n),
		bitrev: make([]int, n),
	}

	for m := 1; m <= log2n; m++ {
		me1 := float64(int(1) << uint(m) / 2)
		t.cosTbl[m-1] = math.Cos(math.Pi / me1)
		t.sinTbl[m-1] = -math.Sin(math.Pi / me1)
	}

	for i := 0; i < n; i++ {
		rev := 0
		x := i
		for b := 0; b < log2n; b++ {
			rev = (rev << 1) | (x & 1)
			x >>= 1
		}
		t.bitrev[i] = rev
	}

	return t
}

// forward performs an in-place radix-2 FFT of re/im, both of length t.n,
// using the precomputed twiddle tables. im must be zeroed by the caller for
// a real-input transform.
func (t *fftTables) forward(re, im []float64) {
	n := t.n

	for i := 0; i < n; i++ {
		j := t.bitrev[i]
		if j > i {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for m := 1; m <= t.log2n; m++ {
		me := 1 << uint(m)
		me1 := me / 2
		wr := t.cosTbl[m-1]
		wi := t.sinTbl[m-1]

		for base := 0; base < n; base += me {
			curR, curI := 1.0, 0.0
			for k := 0; k < me1; k++ {
				i0 := base + k
				i1 := i0 + me1

				tr := re[i1]*curR - im[i1]*curI
				ti := re[i1]*curI + im[i1]*curR

				re[i1] = re[i0] - tr
				im[i1] = im[i0] - ti
				re[i0] += tr
				im[i0] += ti

				nr := curR*wr - curI*wi
				ni := curR*wi + curI*wr
				curR, curI = nr, ni
			}
		}
	}
}

// powerSpectrum returns |X[k]|^2 for k in [0, n/2], the one-sided power
// spectrum of a zero-padded real input windowed frame.
func (t *fftTables) powerSpectrum(frame []float64) []float64 {
	n := t.n
	re := make([]float64, n)
	im := make([]float64, n)
	copy(re, frame)

	t.forward(re, im)

	out := make([]float64, n/2+1)
	for k := 0; k <= n/2; k++ {
		out[k] = re[k]*re[k] + im[k]*im[k]
	}

	return out
}
