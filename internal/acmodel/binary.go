package acmodel

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Binary HMM definition format, a from-scratch re-implementation of the
// original engine's mkbinhmm on-disk layout (big-endian throughout,
// section order: header, options, mixture-tying type, transitions,
// variances, densities, [stream weights], [tied-mixture codebooks],
// [mixture PDF macros], states, models). Strings are null-terminated;
// an empty string is stored as a single zero byte.
//
// Three header qualifiers can follow the version-2 magic, each introduced
// by an underscore: 'E' means the header embeds the analysis parameters
// used to build the model (read next, before the option block), 'V' means
// variances are stored pre-inverted (1/sigma^2) rather than raw, and 'M'
// means mixture PDFs are stored once in a dedicated section and states
// reference them by index rather than inlining their own copy.
const (
	binhmmMagicV1 = "GOJULIUS_BINHMM"
	binhmmMagicV2 = "GOJULIUS_BINHMM_V2"

	qualEmbeddedParams = 'E'
	qualVarianceInv    = 'V'
	qualMpdfMacro      = 'M'

	embeddedParamsVersion = 1
)

// LoadBinary reads a binary HMM definition from path.
func LoadBinary(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acmodel: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadBinary(bufio.NewReader(f))
}

// ReadBinary decodes a binary HMM definition from r.
func ReadBinary(r io.Reader) (*Set, error) {
	br := &binReader{r: r}

	mpdfMacro, err := br.readHeader()
	if err != nil {
		return nil, err
	}

	if err := br.readOptions(); err != nil {
		return nil, err
	}
	if err := br.readTiedMixtureFlag(); err != nil {
		return nil, err
	}
	if err := br.readTrans(); err != nil {
		return nil, err
	}
	if err := br.readVars(); err != nil {
		return nil, err
	}
	if err := br.readDens(); err != nil {
		return nil, err
	}
	if br.set.Opt.StreamNum > 1 {
		if err := br.readStreamWeights(); err != nil {
			return nil, err
		}
	}
	if br.set.IsTiedMixture {
		if err := br.readCodebooks(); err != nil {
			return nil, err
		}
	}
	if mpdfMacro {
		if err := br.readMpdfs(); err != nil {
			return nil, err
		}
	}
	if err := br.readStates(mpdfMacro); err != nil {
		return nil, err
	}
	if err := br.readModels(); err != nil {
		return nil, err
	}

	return &br.set, nil
}

// binReader carries the id->pointer indices needed while unswizzling the
// model during a single read pass, mirroring the file-scope static index
// arrays of the original reader.
type binReader struct {
	r   io.Reader
	set Set

	transByID  []*Trans
	varByID    []*Var
	densByID   []*Dens
	swByID     []*StreamWeight
	codeByID   []*Codebook
	mpdfByID   []*PDF
	stateByID  []*State
}

func (b *binReader) readHeader() (mpdfMacro bool, err error) {
	magic, err := b.readString()
	if err != nil {
		return false, fmt.Errorf("acmodel: read header: %w", err)
	}

	switch magic {
	case binhmmMagicV1:
		b.set.VarianceInversed = false
		return false, nil
	case binhmmMagicV2:
		quals, err := b.readString()
		if err != nil {
			return false, fmt.Errorf("acmodel: read header qualifiers: %w", err)
		}
		var embedded bool
		for i := 0; i < len(quals); i++ {
			if quals[i] != '_' {
				return false, fmt.Errorf("acmodel: malformed header qualifier string %q", quals)
			}
			i++
			if i >= len(quals) {
				return false, fmt.Errorf("acmodel: truncated header qualifier string %q", quals)
			}
			switch quals[i] {
			case qualEmbeddedParams:
				embedded = true
			case qualVarianceInv:
				b.set.VarianceInversed = true
			case qualMpdfMacro:
				mpdfMacro = true
			default:
				return false, fmt.Errorf("acmodel: unknown header qualifier %q", quals[i])
			}
		}
		if embedded {
			params, err := b.readEmbeddedParams()
			if err != nil {
				return false, fmt.Errorf("acmodel: read embedded analysis params: %w", err)
			}
			b.set.EmbeddedParams = params
		}
		return mpdfMacro, nil
	default:
		return false, fmt.Errorf("acmodel: unrecognized binary HMM header %q", magic)
	}
}

func (b *binReader) readEmbeddedParams() (*EmbeddedAnalysisParams, error) {
	var version int16
	if err := b.readInto(&version); err != nil {
		return nil, err
	}
	if version > embeddedParamsVersion {
		return nil, fmt.Errorf("unsupported embedded parameter version %d", version)
	}

	p := &EmbeddedAnalysisParams{}
	var i32 int32
	var f32 float32
	var flag int32

	if err := b.readInto(&i32); err != nil {
		return nil, err
	}
	p.SampleFreq = int(i32)
	if err := b.readInto(&i32); err != nil {
		return nil, err
	}
	p.FrameSize = int(i32)
	if err := b.readInto(&i32); err != nil {
		return nil, err
	}
	p.FrameShift = int(i32)
	if err := b.readInto(&f32); err != nil {
		return nil, err
	}
	p.PreEmph = float64(f32)
	if err := b.readInto(&i32); err != nil {
		return nil, err
	}
	p.Lifter = int(i32)
	if err := b.readInto(&i32); err != nil {
		return nil, err
	}
	p.FbankNum = int(i32)
	if err := b.readInto(&i32); err != nil {
		return nil, err
	}
	p.DelWin = int(i32)
	if err := b.readInto(&i32); err != nil {
		return nil, err
	}
	p.AccWin = int(i32)
	if err := b.readInto(&f32); err != nil {
		return nil, err
	}
	p.SilFloor = float64(f32)
	if err := b.readInto(&f32); err != nil {
		return nil, err
	}
	p.EScale = float64(f32)
	if err := b.readInto(&i32); err != nil {
		return nil, err
	}
	p.HiPass = int(i32)
	if err := b.readInto(&i32); err != nil {
		return nil, err
	}
	p.LoPass = int(i32)
	if err := b.readInto(&flag); err != nil {
		return nil, err
	}
	p.ENormalize = flag != 0
	if err := b.readInto(&flag); err != nil {
		return nil, err
	}
	p.RawEnergy = flag != 0
	if err := b.readInto(&flag); err != nil {
		return nil, err
	}
	p.ZMeanFrame = flag != 0

	return p, nil
}

func (b *binReader) readOptions() error {
	var streamNum, vecSize int16
	var covType, durType, paramType int16

	if err := b.readInto(&streamNum); err != nil {
		return err
	}
	if err := b.readInto(&vecSize); err != nil {
		return err
	}
	if err := b.readInto(&covType); err != nil {
		return err
	}
	if err := b.readInto(&durType); err != nil {
		return err
	}
	if err := b.readInto(&paramType); err != nil {
		return err
	}

	b.set.Opt = Options{
		StreamNum: int(streamNum),
		VecSize:   int(vecSize),
		CovType:   covTypeName(covType),
		DurType:   durTypeName(durType),
		ParamType: paramTypeName(paramType),
	}
	return nil
}

func covTypeName(v int16) string {
	if v == 0 {
		return "diag"
	}
	return "full"
}
func durTypeName(v int16) string {
	if v == 0 {
		return "null"
	}
	return "gamma"
}
func paramTypeName(v int16) string { return fmt.Sprintf("%d", v) }

func (b *binReader) readTiedMixtureFlag() error {
	var flag int32
	if err := b.readInto(&flag); err != nil {
		return err
	}
	b.set.IsTiedMixture = flag != 0
	return nil
}

func (b *binReader) readTrans() error {
	var n uint32
	if err := b.readInto(&n); err != nil {
		return err
	}
	b.transByID = make([]*Trans, n)

	for i := uint32(0); i < n; i++ {
		name, err := b.readString()
		if err != nil {
			return err
		}
		var stateNum int16
		if err := b.readInto(&stateNum); err != nil {
			return err
		}
		t := &Trans{Name: name, StateNum: int(stateNum), ID: int(i)}
		t.A = make([][]float64, stateNum)
		for r := 0; r < int(stateNum); r++ {
			row := make([]float32, stateNum)
			if err := b.readInto(&row); err != nil {
				return err
			}
			t.A[r] = toFloat64Slice(row)
		}
		b.transByID[i] = t
		b.set.Trans = append(b.set.Trans, t)
	}
	return nil
}

func (b *binReader) readVars() error {
	var n uint32
	if err := b.readInto(&n); err != nil {
		return err
	}
	b.varByID = make([]*Var, n)

	for i := uint32(0); i < n; i++ {
		name, err := b.readString()
		if err != nil {
			return err
		}
		var length int16
		if err := b.readInto(&length); err != nil {
			return err
		}
		vec := make([]float32, length)
		if err := b.readInto(&vec); err != nil {
			return err
		}
		v := &Var{Name: name, Vec: toFloat64Slice(vec)}
		b.varByID[i] = v
		b.set.Vars = append(b.set.Vars, v)
	}
	return nil
}

func (b *binReader) readDens() error {
	var n uint32
	if err := b.readInto(&n); err != nil {
		return err
	}
	b.densByID = make([]*Dens, n)

	for i := uint32(0); i < n; i++ {
		name, err := b.readString()
		if err != nil {
			return err
		}
		var meanLen int16
		if err := b.readInto(&meanLen); err != nil {
			return err
		}
		mean := make([]float32, meanLen)
		if err := b.readInto(&mean); err != nil {
			return err
		}
		var varID uint32
		if err := b.readInto(&varID); err != nil {
			return err
		}
		var gconst float32
		if err := b.readInto(&gconst); err != nil {
			return err
		}

		var vr *Var
		if int(varID) < len(b.varByID) {
			vr = b.varByID[varID]
		}

		d := &Dens{Name: name, Mean: toFloat64Slice(mean), Var: vr, GConst: float64(gconst), ID: int(i)}
		b.densByID[i] = d
		b.set.Dens = append(b.set.Dens, d)
	}
	return nil
}

func (b *binReader) readStreamWeights() error {
	var n uint32
	if err := b.readInto(&n); err != nil {
		return err
	}
	b.swByID = make([]*StreamWeight, n)

	for i := uint32(0); i < n; i++ {
		name, err := b.readString()
		if err != nil {
			return err
		}
		var length int16
		if err := b.readInto(&length); err != nil {
			return err
		}
		w := make([]float32, length)
		if err := b.readInto(&w); err != nil {
			return err
		}
		sw := &StreamWeight{Name: name, Weight: toFloat64Slice(w)}
		b.swByID[i] = sw
		b.set.Streams = append(b.set.Streams, sw)
	}
	return nil
}

func (b *binReader) readCodebooks() error {
	var n uint32
	if err := b.readInto(&n); err != nil {
		return err
	}
	b.codeByID = make([]*Codebook, n)

	for i := uint32(0); i < n; i++ {
		name, err := b.readString()
		if err != nil {
			return err
		}
		var num int32
		if err := b.readInto(&num); err != nil {
			return err
		}
		cb := &Codebook{Name: name, D: make([]*Dens, num), ID: int(i)}
		for j := int32(0); j < num; j++ {
			var did uint32
			if err := b.readInto(&did); err != nil {
				return err
			}
			if int(did) < len(b.densByID) {
				cb.D[j] = b.densByID[did]
			}
		}
		b.codeByID[i] = cb
		b.set.Codebooks = append(b.set.Codebooks, cb)
	}
	return nil
}

// readPDF reads one mixture PDF body: mix_num, then either a tied-mixture
// codebook reference (mix_num == -1) or an inline list of density ids,
// followed by the mixture weights.
func (b *binReader) readPDF() (*PDF, error) {
	var mixNum int16
	if err := b.readInto(&mixNum); err != nil {
		return nil, err
	}

	p := &PDF{}
	if mixNum == -1 {
		var cbID uint32
		if err := b.readInto(&cbID); err != nil {
			return nil, err
		}
		if int(cbID) >= len(b.codeByID) {
			return nil, fmt.Errorf("codebook id %d out of range", cbID)
		}
		cb := b.codeByID[cbID]
		p.Tmix = true
		p.B = cb.D
	} else {
		p.B = make([]*Dens, mixNum)
		for i := int16(0); i < mixNum; i++ {
			var did uint32
			if err := b.readInto(&did); err != nil {
				return nil, err
			}
			if int(did) < len(b.densByID) {
				p.B[i] = b.densByID[did]
			}
		}
	}

	weights := make([]float32, len(p.B))
	if err := b.readInto(&weights); err != nil {
		return nil, err
	}
	p.BWeight = toFloat64Slice(weights)

	return p, nil
}

func (b *binReader) readMpdfs() error {
	var n uint32
	if err := b.readInto(&n); err != nil {
		return err
	}
	b.mpdfByID = make([]*PDF, n)

	for i := uint32(0); i < n; i++ {
		name, err := b.readString()
		if err != nil {
			return err
		}
		var streamID int16
		if err := b.readInto(&streamID); err != nil {
			return err
		}
		p, err := b.readPDF()
		if err != nil {
			return err
		}
		p.Name = name
		p.StreamID = int(streamID)
		b.mpdfByID[i] = p
	}
	return nil
}

func (b *binReader) readStates(mpdfMacro bool) error {
	var n uint32
	if err := b.readInto(&n); err != nil {
		return err
	}
	b.stateByID = make([]*State, n)

	for i := uint32(0); i < n; i++ {
		name, err := b.readString()
		if err != nil {
			return err
		}

		s := &State{Name: name, NStream: b.set.Opt.StreamNum, ID: int(i)}
		s.PDF = make([]*PDF, s.NStream)

		if mpdfMacro {
			for m := 0; m < s.NStream; m++ {
				var mid uint32
				if err := b.readInto(&mid); err != nil {
					return err
				}
				if int(mid) < len(b.mpdfByID) {
					s.PDF[m] = b.mpdfByID[mid]
				}
			}
		} else {
			for m := 0; m < s.NStream; m++ {
				p, err := b.readPDF()
				if err != nil {
					return err
				}
				p.StreamID = m
				s.PDF[m] = p
			}
		}

		if b.set.Opt.StreamNum > 1 {
			var swid uint32
			if err := b.readInto(&swid); err != nil {
				return err
			}
			if int(swid) < len(b.swByID) {
				s.W = b.swByID[swid]
			}
		}

		b.stateByID[i] = s
		b.set.States = append(b.set.States, s)
	}
	return nil
}

func (b *binReader) readModels() error {
	var n uint32
	if err := b.readInto(&n); err != nil {
		return err
	}

	for i := uint32(0); i < n; i++ {
		name, err := b.readString()
		if err != nil {
			return err
		}
		var stateNum int16
		if err := b.readInto(&stateNum); err != nil {
			return err
		}

		d := &Data{Name: name}
		d.States = make([]*State, stateNum)
		for j := 0; j < int(stateNum); j++ {
			var sid uint32
			if err := b.readInto(&sid); err != nil {
				return err
			}
			if int(sid) < len(b.stateByID) {
				d.States[j] = b.stateByID[sid]
			}
		}

		var tid uint32
		if err := b.readInto(&tid); err != nil {
			return err
		}
		if int(tid) < len(b.transByID) {
			d.Tr = b.transByID[tid]
		}

		b.set.Physical = append(b.set.Physical, d)
		b.set.addLogical(&Logical{Name: name, Body: d})
	}
	return nil
}

func (b *binReader) readString() (string, error) {
	var out []byte
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(b.r, buf); err != nil {
			return "", err
		}
		if buf[0] == 0 {
			break
		}
		out = append(out, buf[0])
	}
	return string(out), nil
}

func (b *binReader) readInto(v any) error {
	return binary.Read(b.r, binary.BigEndian, v)
}

func toFloat64Slice(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
