package acmodel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ASCII HTK-style "hmmdefs" parser. HTK model files are a whitespace/angle-
// bracket tokenized stream: `<TAG> value...` blocks nested under `~h
// "name"` model macros. Only the subset actually emitted by common
// HMM-training toolkits (HTK/HTS-style monophone/triphone acoustic models
// with diagonal covariance, single stream) is supported; anything else is
// a load error naming the unsupported tag.
type asciiParser struct {
	tok *tokenizer
	set Set

	transByName map[string]*Trans
	varByName   map[string]*Var
	densByName  map[string]*Dens
	stateByName map[string]*State
}

// LoadASCII reads an HTK-format hmmdefs file from path.
func LoadASCII(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acmodel: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadASCII(f)
}

// ReadASCII parses an HTK-format hmmdefs stream.
func ReadASCII(r io.Reader) (*Set, error) {
	p := &asciiParser{
		tok:         newTokenizer(r),
		transByName: make(map[string]*Trans),
		varByName:   make(map[string]*Var),
		densByName:  make(map[string]*Dens),
		stateByName: make(map[string]*State),
	}
	p.set.Opt = Options{StreamNum: 1, CovType: "diag"}

	if err := p.parseGlobalOptions(); err != nil {
		return nil, err
	}

	for {
		tag, ok := p.tok.peek()
		if !ok {
			break
		}
		switch strings.ToUpper(tag) {
		case "~H":
			if err := p.parseModelMacro(); err != nil {
				return nil, err
			}
		case "~T":
			if _, err := p.parseTransMacro(); err != nil {
				return nil, err
			}
		case "~V":
			if _, err := p.parseVarMacro(); err != nil {
				return nil, err
			}
		case "~S":
			p.tok.next()
			p.tok.next() // macro name, unused
		default:
			// Unexpected top-level content; skip the token defensively
			// rather than looping forever on malformed input.
			p.tok.next()
		}
	}

	return &p.set, nil
}

// parseGlobalOptions consumes a leading ~o <GLOBALOPTS> block, if present,
// which sets stream/vector/covariance-type options applying to every model
// that follows.
func (p *asciiParser) parseGlobalOptions() error {
	tag, ok := p.tok.peek()
	if !ok || strings.ToUpper(tag) != "~O" {
		return nil
	}
	p.tok.next()

	for {
		tag, ok := p.tok.peek()
		if !ok {
			return nil
		}
		switch strings.ToUpper(tag) {
		case "<STREAMINFO>":
			p.tok.next()
			n, err := p.tok.nextInt()
			if err != nil {
				return err
			}
			p.set.Opt.StreamNum = n
			for i := 0; i < n; i++ {
				if _, err := p.tok.nextInt(); err != nil {
					return err
				}
			}
		case "<VECSIZE>":
			p.tok.next()
			n, err := p.tok.nextInt()
			if err != nil {
				return err
			}
			p.set.Opt.VecSize = n
		case "<DIAGC>":
			p.tok.next()
			p.set.Opt.CovType = "diag"
		case "<NULLD>":
			p.tok.next()
			p.set.Opt.DurType = "null"
		case "<MFCC>", "<MFCC_E>", "<MFCC_E_D>", "<MFCC_E_D_A>", "<MFCC_E_D_A_Z>":
			p.set.Opt.ParamType = strings.Trim(tag, "<>")
			p.tok.next()
		default:
			return nil
		}
	}
}

func (p *asciiParser) parseModelMacro() error {
	p.tok.next() // ~h
	name, err := p.tok.nextQuoted()
	if err != nil {
		return fmt.Errorf("acmodel: ~h macro missing name: %w", err)
	}

	tag, ok := p.tok.peek()
	if !ok || strings.ToUpper(tag) != "<BEGINHMM>" {
		return fmt.Errorf("acmodel: model %q: expected <BEGINHMM>", name)
	}
	p.tok.next()

	d := &Data{Name: name}

	tag, _ = p.tok.peek()
	if strings.ToUpper(tag) == "<NUMSTATES>" {
		p.tok.next()
		n, err := p.tok.nextInt()
		if err != nil {
			return err
		}
		d.States = make([]*State, n)
	}

	for {
		tag, ok := p.tok.peek()
		if !ok {
			return fmt.Errorf("acmodel: model %q: unexpected EOF before <ENDHMM>", name)
		}
		switch strings.ToUpper(tag) {
		case "<STATE>":
			p.tok.next()
			idx, err := p.tok.nextInt()
			if err != nil {
				return err
			}
			s, err := p.parseState()
			if err != nil {
				return fmt.Errorf("acmodel: model %q state %d: %w", name, idx, err)
			}
			s.ID = len(p.set.States)
			p.set.States = append(p.set.States, s)
			if idx-1 >= 0 && idx-1 < len(d.States) {
				d.States[idx-1] = s
			}
		case "<TRANSP>":
			t, err := p.parseInlineTrans()
			if err != nil {
				return err
			}
			d.Tr = t
		case "~T":
			name, err := p.parseMacroRef()
			if err != nil {
				return err
			}
			t, ok := p.transByName[name]
			if !ok {
				return fmt.Errorf("acmodel: model %q: unknown transition macro %q", d.Name, name)
			}
			d.Tr = t
		case "<ENDHMM>":
			p.tok.next()
			p.set.Physical = append(p.set.Physical, d)
			p.set.addLogical(&Logical{Name: d.Name, Body: d})
			return nil
		default:
			return fmt.Errorf("acmodel: model %q: unsupported tag %s", d.Name, tag)
		}
	}
}

func (p *asciiParser) parseMacroRef() (string, error) {
	p.tok.next() // the ~X token itself
	return p.tok.nextQuoted()
}

func (p *asciiParser) parseState() (*State, error) {
	s := &State{NStream: p.set.Opt.StreamNum}
	if s.NStream == 0 {
		s.NStream = 1
	}
	s.PDF = make([]*PDF, s.NStream)

	tag, ok := p.tok.peek()
	if ok && strings.ToUpper(tag) == "~S" {
		name, err := p.parseMacroRef()
		if err != nil {
			return nil, err
		}
		st, ok := p.stateByName[name]
		if !ok {
			return nil, fmt.Errorf("unknown state macro %q", name)
		}
		return st, nil
	}

	pdf, err := p.parseMixtures()
	if err != nil {
		return nil, err
	}
	s.PDF[0] = pdf

	return s, nil
}

// parseMixtures reads a single-stream PDF: an optional <NUMMIXES> count
// followed by that many `<MIXTURE> idx weight <MEAN>... <VARIANCE>...
// <GCONST>` blocks, or a single bare mean/variance/gconst block when no
// <NUMMIXES> tag is present (mix_num == 1).
func (p *asciiParser) parseMixtures() (*PDF, error) {
	pdf := &PDF{}

	tag, ok := p.tok.peek()
	if ok && strings.ToUpper(tag) == "<NUMMIXES>" {
		p.tok.next()
		n, err := p.tok.nextInt()
		if err != nil {
			return nil, err
		}
		pdf.B = make([]*Dens, n)
		pdf.BWeight = make([]float64, n)

		for i := 0; i < n; i++ {
			tag, err := p.tok.nextTag()
			if err != nil {
				return nil, err
			}
			if strings.ToUpper(tag) != "<MIXTURE>" {
				return nil, fmt.Errorf("expected <MIXTURE>, got %s", tag)
			}
			idx, err := p.tok.nextInt()
			if err != nil {
				return nil, err
			}
			w, err := p.tok.nextFloat()
			if err != nil {
				return nil, err
			}
			d, err := p.parseDensBody()
			if err != nil {
				return nil, err
			}
			if idx-1 >= 0 && idx-1 < n {
				pdf.B[idx-1] = d
				pdf.BWeight[idx-1] = w
			}
		}
		return pdf, nil
	}

	d, err := p.parseDensBody()
	if err != nil {
		return nil, err
	}
	pdf.B = []*Dens{d}
	pdf.BWeight = []float64{1.0}
	return pdf, nil
}

// parseDensBody reads <MEAN> n v... <VARIANCE> n v... <GCONST> g, or a
// `~m "name"` macro reference.
func (p *asciiParser) parseDensBody() (*Dens, error) {
	tag, ok := p.tok.peek()
	if ok && strings.ToUpper(tag) == "~M" {
		name, err := p.parseMacroRef()
		if err != nil {
			return nil, err
		}
		d, ok := p.densByName[name]
		if !ok {
			return nil, fmt.Errorf("unknown mixture macro %q", name)
		}
		return d, nil
	}

	d := &Dens{ID: len(p.set.Dens)}

	tag, err := p.tok.nextTag()
	if err != nil {
		return nil, err
	}
	if strings.ToUpper(tag) != "<MEAN>" {
		return nil, fmt.Errorf("expected <MEAN>, got %s", tag)
	}
	n, err := p.tok.nextInt()
	if err != nil {
		return nil, err
	}
	mean, err := p.tok.nextFloats(n)
	if err != nil {
		return nil, err
	}
	d.Mean = mean

	tag, ok = p.tok.peek()
	if ok && strings.ToUpper(tag) == "~V" {
		v, err := p.parseVarRef()
		if err != nil {
			return nil, err
		}
		d.Var = v
	} else {
		v, err := p.parseInlineVar()
		if err != nil {
			return nil, err
		}
		d.Var = v
	}

	tag, err = p.tok.nextTag()
	if err != nil {
		return nil, err
	}
	if strings.ToUpper(tag) != "<GCONST>" {
		return nil, fmt.Errorf("expected <GCONST>, got %s", tag)
	}
	g, err := p.tok.nextFloat()
	if err != nil {
		return nil, err
	}
	d.GConst = g

	p.set.Dens = append(p.set.Dens, d)
	return d, nil
}

func (p *asciiParser) parseVarRef() (*Var, error) {
	name, err := p.parseMacroRef()
	if err != nil {
		return nil, err
	}
	v, ok := p.varByName[name]
	if !ok {
		return nil, fmt.Errorf("unknown variance macro %q", name)
	}
	return v, nil
}

func (p *asciiParser) parseInlineVar() (*Var, error) {
	tag, err := p.tok.nextTag()
	if err != nil {
		return nil, err
	}
	if strings.ToUpper(tag) != "<VARIANCE>" {
		return nil, fmt.Errorf("expected <VARIANCE>, got %s", tag)
	}
	n, err := p.tok.nextInt()
	if err != nil {
		return nil, err
	}
	vec, err := p.tok.nextFloats(n)
	if err != nil {
		return nil, err
	}
	v := &Var{Vec: vec}
	p.set.Vars = append(p.set.Vars, v)
	return v, nil
}

func (p *asciiParser) parseInlineTrans() (*Trans, error) {
	p.tok.next() // <TRANSP>
	n, err := p.tok.nextInt()
	if err != nil {
		return nil, err
	}
	t := &Trans{StateNum: n, ID: len(p.set.Trans)}
	t.A = make([][]float64, n)
	for i := 0; i < n; i++ {
		row, err := p.tok.nextFloats(n)
		if err != nil {
			return nil, err
		}
		t.A[i] = row
	}
	p.set.Trans = append(p.set.Trans, t)
	return t, nil
}

func (p *asciiParser) parseTransMacro() (*Trans, error) {
	name, err := p.parseMacroRef()
	if err != nil {
		return nil, err
	}
	t, err := p.parseInlineTrans()
	if err != nil {
		return nil, err
	}
	t.Name = name
	p.transByName[name] = t
	return t, nil
}

func (p *asciiParser) parseVarMacro() (*Var, error) {
	name, err := p.parseMacroRef()
	if err != nil {
		return nil, err
	}
	v, err := p.parseInlineVar()
	if err != nil {
		return nil, err
	}
	v.Name = name
	p.varByName[name] = v
	return v, nil
}

// tokenizer splits an HTK-style definition stream into angle-bracket tags,
// quoted names, and bare numeric/identifier tokens, matching the original
// engine's whitespace+`<>` delimiter convention (HMMDEF_DELM).
type tokenizer struct {
	r        *bufio.Reader
	lookahead string
	haveLA    bool
}

func newTokenizer(r io.Reader) *tokenizer {
	return &tokenizer{r: bufio.NewReader(r)}
}

func (t *tokenizer) fill() (string, bool) {
	for {
		r, _, err := t.r.ReadRune()
		if err != nil {
			return "", false
		}
		if isSpace(r) {
			continue
		}
		if r == '<' {
			var sb strings.Builder
			sb.WriteRune('<')
			for {
				r2, _, err := t.r.ReadRune()
				if err != nil {
					break
				}
				sb.WriteRune(r2)
				if r2 == '>' {
					break
				}
			}
			return sb.String(), true
		}
		if r == '"' {
			var sb strings.Builder
			for {
				r2, _, err := t.r.ReadRune()
				if err != nil || r2 == '"' {
					break
				}
				sb.WriteRune(r2)
			}
			return sb.String(), true
		}
		var sb strings.Builder
		sb.WriteRune(r)
		for {
			r2, _, err := t.r.ReadRune()
			if err != nil || isSpace(r2) || r2 == '<' {
				if err == nil {
					_ = t.r.UnreadRune()
				}
				break
			}
			sb.WriteRune(r2)
		}
		return sb.String(), true
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

func (t *tokenizer) peek() (string, bool) {
	if !t.haveLA {
		t.lookahead, t.haveLA = t.fill()
	}
	return t.lookahead, t.haveLA
}

func (t *tokenizer) next() (string, bool) {
	tok, ok := t.peek()
	t.haveLA = false
	return tok, ok
}

func (t *tokenizer) nextTag() (string, error) {
	tok, ok := t.next()
	if !ok {
		return "", io.ErrUnexpectedEOF
	}
	return tok, nil
}

func (t *tokenizer) nextQuoted() (string, error) {
	tok, ok := t.next()
	if !ok {
		return "", io.ErrUnexpectedEOF
	}
	return tok, nil
}

func (t *tokenizer) nextInt() (int, error) {
	tok, ok := t.next()
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.Atoi(tok)
}

func (t *tokenizer) nextFloat() (float64, error) {
	tok, ok := t.next()
	if !ok {
		return 0, io.ErrUnexpectedEOF
	}
	return strconv.ParseFloat(tok, 64)
}

func (t *tokenizer) nextFloats(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := t.nextFloat()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
